package cron

import "context"

// Job is one unit of scheduled background work. Name identifies the job in
// logs and metrics; Run does the work and returns the failure, if any.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs the cron worker executes, in registration order.
type Registry struct {
	jobs []Job
}

// NewRegistry returns a registry seeded with the given jobs. Nil entries,
// such as jobs switched off by feature flags, are skipped.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends a job. Nil jobs are ignored.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs so callers cannot reorder or
// mutate the registry's own slice.
func (r *Registry) Jobs() []Job {
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
