package webhooks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/opslog-io/opslog-backend/pkg/db/models"
	"github.com/opslog-io/opslog-backend/pkg/enums"
	pkgerrors "github.com/opslog-io/opslog-backend/pkg/errors"
	"github.com/opslog-io/opslog-backend/pkg/logger"
	"github.com/opslog-io/opslog-backend/pkg/metrics"
)

const (
	defaultWorkerCount = 8
	defaultQueueSize   = 256
)

type deliveryExecutor interface {
	Deliver(ctx context.Context, endpoint *models.WebhookEndpoint, eventType enums.WebhookEventType, eventData map[string]any) *models.WebhookDelivery
}

type endpointLister interface {
	ListSubscribed(ctx context.Context, tenantID uuid.UUID, eventType enums.WebhookEventType) ([]models.WebhookEndpoint, error)
}

type deliveryTask struct {
	endpoint  models.WebhookEndpoint
	eventType enums.WebhookEventType
	eventData map[string]any
}

// DispatcherParams configure the event dispatcher.
type DispatcherParams struct {
	Repository  endpointLister
	Deliverer   deliveryExecutor
	Logger      *logger.Logger
	Metrics     *metrics.WebhookMetrics
	WorkerCount int
	QueueSize   int
}

// Dispatcher fans incident events out to subscribed endpoints through a
// bounded worker pool. Dispatch never blocks the caller; when the queue is
// full the task is dropped and counted, not queued.
type Dispatcher struct {
	repo    endpointLister
	exec    deliveryExecutor
	logg    *logger.Logger
	metrics *metrics.WebhookMetrics
	workers int
	tasks   chan deliveryTask

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewDispatcher wires the dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhooks repository required")
	}
	if params.Deliverer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "deliverer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	workers := params.WorkerCount
	if workers <= 0 {
		workers = defaultWorkerCount
	}
	queueSize := params.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		repo:    params.Repository,
		exec:    params.Deliverer,
		logg:    params.Logger,
		metrics: params.Metrics,
		workers: workers,
		tasks:   make(chan deliveryTask, queueSize),
		done:    make(chan struct{}),
	}, nil
}

// Run starts the worker pool and blocks until the context is canceled.
// Queued tasks are drained before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	})
	<-ctx.Done()
	d.stopOnce.Do(func() { close(d.done) })
	d.wg.Wait()
	return ctx.Err()
}

// Dispatch schedules one delivery per active endpoint subscribed to the
// event type. It returns as soon as the tasks are queued; delivery outcomes
// never reach the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, tenantID uuid.UUID, eventType enums.WebhookEventType, eventData map[string]any) {
	logCtx := d.logg.WithTenantID(ctx, tenantID.String())
	logCtx = d.logg.WithEventType(logCtx, string(eventType))

	endpoints, err := d.repo.ListSubscribed(ctx, tenantID, eventType)
	if err != nil {
		d.logg.Error(logCtx, "failed to load subscribed endpoints", err)
		return
	}
	if len(endpoints) == 0 {
		return
	}

	for _, endpoint := range endpoints {
		task := deliveryTask{
			endpoint:  endpoint,
			eventType: eventType,
			eventData: eventData,
		}
		select {
		case d.tasks <- task:
		default:
			if d.metrics != nil {
				d.metrics.IncDropped()
			}
			dropCtx := d.logg.WithEndpointID(logCtx, endpoint.ID.String())
			d.logg.Warn(dropCtx, "delivery queue full; dropping delivery")
		}
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case task := <-d.tasks:
			d.runTask(task)
		case <-d.done:
			// Drain what was queued before shutdown.
			for {
				select {
				case task := <-d.tasks:
					d.runTask(task)
				default:
					return
				}
			}
		}
	}
}

// runTask executes a delivery on a fresh context so an in-flight attempt is
// bounded only by its own timeout, not by the dispatching caller.
func (d *Dispatcher) runTask(task deliveryTask) {
	if d.metrics != nil {
		d.metrics.IncInFlight()
		defer d.metrics.DecInFlight()
	}
	ctx := context.Background()
	d.exec.Deliver(ctx, &task.endpoint, task.eventType, task.eventData)
}
