package models

// SourceKind identifies one of the two remote record sources.
type SourceKind string

const (
	// SourceAlerts is the support-alert entity store.
	SourceAlerts SourceKind = "alerts"

	// SourceFlowRuns is the workflow-run telemetry query API.
	SourceFlowRuns SourceKind = "flow_runs"
)

// Canonical column names for the alerts table.
const (
	ColReceivedAt     = "TimeAlertReceived"
	ColSource         = "Source"
	ColSeverity       = "SeverityLevel"
	ColErrorCode      = "ErrorCode"
	ColErrorMessage   = "ErrorMessage"
	ColLink           = "Link"
	ColStackTrace     = "StackTrace"
	ColAdditionalData = "AdditionalData"
)

// Canonical column names for the flow-runs table.
const (
	ColTimestamp     = "Timestamp"
	ColID            = "ID"
	ColRunID         = "RunID"
	ColEnvironmentID = "EnvironmentID"
	ColDisplayName   = "DisplayName"
	ColName          = "Name"
	ColSuccess       = "Success"
)

// AlertColumns is the declared column set of a normalized alerts table.
var AlertColumns = []string{
	ColReceivedAt,
	ColSource,
	ColSeverity,
	ColErrorCode,
	ColErrorMessage,
	ColLink,
	ColStackTrace,
	ColAdditionalData,
}

// FlowRunColumns is the declared column set of a normalized flow-runs table.
var FlowRunColumns = []string{
	ColTimestamp,
	ColID,
	ColRunID,
	ColEnvironmentID,
	ColDisplayName,
	ColName,
	ColErrorCode,
	ColErrorMessage,
	ColSuccess,
}

// TimeColumn returns the windowing timestamp column for a source kind.
func (k SourceKind) TimeColumn() string {
	if k == SourceFlowRuns {
		return ColTimestamp
	}
	return ColReceivedAt
}
