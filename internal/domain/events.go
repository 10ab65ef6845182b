package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// EntrySnapshot is the state of an entry at the moment an event was recorded
type EntrySnapshot struct {
	EntryID          string      `json:"entryId"`
	Kind             EntryKind   `json:"kind"`
	ItemID           string      `json:"itemId"`
	Location         string      `json:"location"`
	Counts           *Counts     `json:"counts,omitempty"`
	Odin             *Thresholds `json:"odin,omitempty"`
	TotalIdentified  float64     `json:"totalIdentified"`
	MinQuantity      float64     `json:"minQuantity"`
	MaxQuantity      float64     `json:"maxQuantity"`
	AuditResult      AuditResult `json:"auditResult"`
	Discrepancy      float64     `json:"discrepancy"`
	Status           Status      `json:"status"`
	StaffID          string      `json:"staffId"`
	AssignedClientID string      `json:"assignedClientId,omitempty"`
}

// Snapshot copies the entry's current state
func (e *InventoryEntry) Snapshot() EntrySnapshot {
	s := EntrySnapshot{
		EntryID:         e.ID.Hex(),
		Kind:            e.Kind,
		ItemID:          e.ItemID(),
		Location:        e.Location,
		TotalIdentified: e.TotalIdentified,
		MinQuantity:     e.MinQuantity,
		MaxQuantity:     e.MaxQuantity,
		AuditResult:     e.AuditResult,
		Discrepancy:     e.Discrepancy,
		Status:          e.Status,
		StaffID:         e.StaffID.Hex(),
	}
	if e.Sku != nil {
		counts, odin := e.Sku.Counts, e.Sku.Odin
		s.Counts = &counts
		s.Odin = &odin
	}
	if !e.AssignedClientID.IsZero() {
		s.AssignedClientID = e.AssignedClientID.Hex()
	}
	return s
}

// DiscrepancyRaisedEvent is recorded when a discrepant entry is routed to a client
type DiscrepancyRaisedEvent struct {
	Entry    EntrySnapshot `json:"entry"`
	RaisedAt time.Time     `json:"raisedAt"`
}

func (e *DiscrepancyRaisedEvent) EventType() string     { return "wms.audit.discrepancy-raised" }
func (e *DiscrepancyRaisedEvent) OccurredAt() time.Time { return e.RaisedAt }

// EntryAutoApprovedEvent is recorded when a count falls inside the expected range
type EntryAutoApprovedEvent struct {
	Entry      EntrySnapshot `json:"entry"`
	ApprovedAt time.Time     `json:"approvedAt"`
}

func (e *EntryAutoApprovedEvent) EventType() string     { return "wms.audit.entry-auto-approved" }
func (e *EntryAutoApprovedEvent) OccurredAt() time.Time { return e.ApprovedAt }

// EntryResolvedEvent is recorded when the assigned client approves or rejects
type EntryResolvedEvent struct {
	Entry      EntrySnapshot  `json:"entry"`
	Action     ResponseAction `json:"action"`
	Comment    string         `json:"comment,omitempty"`
	ResolvedAt time.Time      `json:"resolvedAt"`
}

func (e *EntryResolvedEvent) EventType() string     { return "wms.audit.entry-resolved" }
func (e *EntryResolvedEvent) OccurredAt() time.Time { return e.ResolvedAt }
