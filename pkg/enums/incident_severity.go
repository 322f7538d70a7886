package enums

// IncidentSeverity mirrors the severity levels assigned by the incident
// services. The dispatcher only reads them for Slack formatting, so unknown
// values are tolerated rather than rejected.
type IncidentSeverity string

const (
	SeverityCritical IncidentSeverity = "CRITICAL"
	SeverityHigh     IncidentSeverity = "HIGH"
	SeverityMedium   IncidentSeverity = "MEDIUM"
	SeverityLow      IncidentSeverity = "LOW"
)
