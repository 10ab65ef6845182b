package domain

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Status is the approval state of an inventory entry
type Status string

const (
	StatusAutoApproved   Status = "auto-approved"
	StatusPendingClient  Status = "pending-client"
	StatusClientApproved Status = "client-approved"
	StatusClientRejected Status = "client-rejected"

	// statusRecountRequired is written by older deployments and reads as client-rejected
	statusRecountRequired = "recount-required"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusAutoApproved, StatusPendingClient, StatusClientApproved, StatusClientRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed
func (s Status) IsTerminal() bool {
	return s != StatusPendingClient
}

// NormalizeStatus maps stored values, including legacy ones, onto Status
func NormalizeStatus(raw string) Status {
	if raw == statusRecountRequired {
		return StatusClientRejected
	}
	return Status(raw)
}

// UnmarshalBSONValue applies NormalizeStatus when decoding stored entries
func (s *Status) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("status must be a string, got %s", t)
	}
	*s = NormalizeStatus(raw)
	return nil
}

// ResponseAction is a client's decision on a pending entry
type ResponseAction string

const (
	ActionApproved ResponseAction = "approved"
	ActionRejected ResponseAction = "rejected"
)

// IsValid checks if the action is valid
func (a ResponseAction) IsValid() bool {
	return a == ActionApproved || a == ActionRejected
}

// ResultingStatus is the terminal status the action moves an entry to
func (a ResponseAction) ResultingStatus() Status {
	if a == ActionApproved {
		return StatusClientApproved
	}
	return StatusClientRejected
}
