package cloudevents

import (
	"time"
)

// Event types emitted by the audit service
const (
	DiscrepancyRaised = "wms.audit.discrepancy-raised"
	EntryAutoApproved = "wms.audit.entry-auto-approved"
	EntryResolved     = "wms.audit.entry-resolved"
)

// SourceAudit is the CloudEvents source of the audit service
const SourceAudit = "/wms/audit-service"

// Extension attribute names
const (
	ExtCorrelationID = "wmscorrelationid"
	ExtLocation      = "wmslocation"
	ExtTraceParent   = "traceparent"
)

// AuditCloudEvent is a CloudEvents v1.0 envelope for audit domain events
type AuditCloudEvent struct {
	SpecVersion     string    `json:"specversion"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Subject         string    `json:"subject,omitempty"`
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	DataContentType string    `json:"datacontenttype"`
	Data            any       `json:"data"`

	CorrelationID string `json:"wmscorrelationid,omitempty"`
	Location      string `json:"wmslocation,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
}

// EntryEventData is the payload shared by all audit entry events
type EntryEventData struct {
	EntryID          string  `json:"entryId"`
	Kind             string  `json:"kind"`
	ItemID           string  `json:"itemId"`
	Location         string  `json:"location"`
	TotalIdentified  float64 `json:"totalIdentified"`
	MinQuantity      float64 `json:"minQuantity"`
	MaxQuantity      float64 `json:"maxQuantity"`
	AuditResult      string  `json:"auditResult"`
	Discrepancy      float64 `json:"discrepancy"`
	Status           string  `json:"status"`
	StaffID          string  `json:"staffId"`
	AssignedClientID string  `json:"assignedClientId,omitempty"`
}

// EntryResolvedData is the payload of an entry-resolved event
type EntryResolvedData struct {
	EntryEventData
	Action      string    `json:"action"`
	Comment     string    `json:"comment,omitempty"`
	RespondedAt time.Time `json:"respondedAt"`
}
