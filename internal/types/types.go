// Package types provides common type definitions for the trace graph service.
package types

// TraceAction represents the execution mode of a single trace row.
type TraceAction string

const (
	// ActionCall represents a plain message call between addresses
	ActionCall TraceAction = "call"
	// ActionCreate represents a contract creation
	ActionCreate TraceAction = "create"
	// ActionCreate2 represents a CREATE2 contract creation
	ActionCreate2 TraceAction = "create2"
	// ActionDelegateCall represents a delegate call executed in the caller's storage context
	ActionDelegateCall TraceAction = "delegate_call"
)

// EdgeClass partitions aggregated edges by how their endpoints are keyed.
type EdgeClass string

const (
	// EdgeClassNormal keys edges by (from_addr, to_addr, action)
	EdgeClassNormal EdgeClass = "normal"
	// EdgeClassDelegate keys edges by (storage_addr, to_addr, action); the
	// storage address is the semantic "from" endpoint for delegate calls
	EdgeClassDelegate EdgeClass = "delegate"
	// EdgeClassUnclassified holds actions outside the known enumeration so
	// they are never silently merged into call or delegate buckets
	EdgeClassUnclassified EdgeClass = "unclassified"
)

// ClassifyAction maps a trace action onto its edge class.
func ClassifyAction(action TraceAction) EdgeClass {
	switch action {
	case ActionCall, ActionCreate, ActionCreate2:
		return EdgeClassNormal
	case ActionDelegateCall:
		return EdgeClassDelegate
	default:
		return EdgeClassUnclassified
	}
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
