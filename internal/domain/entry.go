package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntryKind tags which variant of InventoryEntry is populated
type EntryKind string

const (
	EntryKindSKU EntryKind = "sku"
	EntryKindBin EntryKind = "bin"
)

// IsValid checks if the kind is valid
func (k EntryKind) IsValid() bool {
	return k == EntryKindSKU || k == EntryKindBin
}

// SkuDetails is the SKU variant: a count breakdown checked against ODIN thresholds
type SkuDetails struct {
	SkuID   string     `bson:"skuId"`
	SkuName string     `bson:"skuName,omitempty"`
	Counts  Counts     `bson:"counts"`
	Odin    Thresholds `bson:"odin"`
}

// BinDetails is the bin variant: one actual quantity checked against a book quantity
type BinDetails struct {
	BinID          string  `bson:"binId"`
	BookQuantity   float64 `bson:"bookQuantity"`
	ActualQuantity float64 `bson:"actualQuantity"`
}

// ClientResponse is the approver's decision
type ClientResponse struct {
	Action  ResponseAction `bson:"action"`
	Comment string         `bson:"comment,omitempty"`
}

// Timestamps records when each workflow step happened
type Timestamps struct {
	StaffEntry     time.Time  `bson:"staffEntry"`
	ClientResponse *time.Time `bson:"clientResponse,omitempty"`
	FinalStatus    *time.Time `bson:"finalStatus,omitempty"`
}

// InventoryEntry is one audit submission. Exactly one of Sku and Bin is set, matching Kind.
// The ID is assigned on construction so events recorded before the insert carry it.
type InventoryEntry struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Kind             EntryKind          `bson:"kind"`
	Sku              *SkuDetails        `bson:"sku,omitempty"`
	Bin              *BinDetails        `bson:"bin,omitempty"`
	ItemKey          string             `bson:"itemKey"`
	Location         string             `bson:"location"`
	LocationKey      string             `bson:"locationKey"`
	TotalIdentified  float64            `bson:"totalIdentified"`
	MinQuantity      float64            `bson:"minQuantity"`
	MaxQuantity      float64            `bson:"maxQuantity"`
	AuditResult      AuditResult        `bson:"auditResult"`
	Discrepancy      float64            `bson:"discrepancy"`
	Status           Status             `bson:"status"`
	StaffID          primitive.ObjectID `bson:"staffId"`
	AssignedClientID primitive.ObjectID `bson:"assignedClientId,omitempty"`
	ClientResponse   *ClientResponse    `bson:"clientResponse,omitempty"`
	Notes            string             `bson:"notes,omitempty"`
	Timestamps       Timestamps         `bson:"timestamps"`
	DomainEvents     []DomainEvent      `bson:"-"`
}

// NewSkuEntryParams holds the inputs of a SKU submission
type NewSkuEntryParams struct {
	SkuID            string
	SkuName          string
	Location         string
	Counts           Counts
	Odin             Thresholds
	StaffID          primitive.ObjectID
	AssignedClientID primitive.ObjectID
	Notes            string
	Now              time.Time
}

// NewBinEntryParams holds the inputs of a bin submission
type NewBinEntryParams struct {
	BinID            string
	Location         string
	BookQuantity     float64
	ActualQuantity   float64
	StaffID          primitive.ObjectID
	AssignedClientID primitive.ObjectID
	Notes            string
	Now              time.Time
}

// NewSkuEntry classifies a SKU count and builds the entry in its initial status
func NewSkuEntry(p NewSkuEntryParams) (*InventoryEntry, error) {
	skuID := strings.TrimSpace(p.SkuID)
	if skuID == "" {
		return nil, ErrItemIDRequired
	}
	if err := p.Counts.Validate(); err != nil {
		return nil, err
	}
	if err := p.Odin.Validate(); err != nil {
		return nil, err
	}

	entry := &InventoryEntry{
		Kind: EntryKindSKU,
		Sku: &SkuDetails{
			SkuID:   skuID,
			SkuName: strings.TrimSpace(p.SkuName),
			Counts:  p.Counts,
			Odin:    p.Odin,
		},
	}
	if err := entry.initialize(Classify(p.Counts, p.Odin), p.Location, p.StaffID, p.AssignedClientID, p.Notes, p.Now); err != nil {
		return nil, err
	}
	return entry, nil
}

// NewBinEntry classifies a bin count and builds the entry in its initial status
func NewBinEntry(p NewBinEntryParams) (*InventoryEntry, error) {
	binID := strings.TrimSpace(p.BinID)
	if binID == "" {
		return nil, ErrItemIDRequired
	}
	if p.BookQuantity < 0 || p.ActualQuantity < 0 {
		return nil, ErrNegativeQuantity
	}

	entry := &InventoryEntry{
		Kind: EntryKindBin,
		Bin: &BinDetails{
			BinID:          binID,
			BookQuantity:   p.BookQuantity,
			ActualQuantity: p.ActualQuantity,
		},
	}
	if err := entry.initialize(ClassifyBin(p.BookQuantity, p.ActualQuantity), p.Location, p.StaffID, p.AssignedClientID, p.Notes, p.Now); err != nil {
		return nil, err
	}
	return entry, nil
}

func (e *InventoryEntry) initialize(c Classification, location string, staffID, clientID primitive.ObjectID, notes string, now time.Time) error {
	location = strings.Join(strings.Fields(location), " ")
	if location == "" {
		return ErrLocationRequired
	}
	if staffID.IsZero() {
		return ErrStaffRequired
	}

	e.ID = primitive.NewObjectID()
	e.ItemKey = EntryKey(e.Kind, e.ItemID())
	e.Location = location
	e.LocationKey = NormalizeLocation(location)
	e.TotalIdentified = c.TotalIdentified
	e.MinQuantity = c.MinQuantity
	e.MaxQuantity = c.MaxQuantity
	e.AuditResult = c.Result
	e.Discrepancy = c.Magnitude
	e.StaffID = staffID
	e.Notes = strings.TrimSpace(notes)
	e.Timestamps = Timestamps{StaffEntry: now}

	if !c.Result.IsDiscrepant() {
		e.Status = StatusAutoApproved
		e.Timestamps.FinalStatus = &now
		e.addDomainEvent(&EntryAutoApprovedEvent{Entry: e.Snapshot(), ApprovedAt: now})
		return nil
	}

	if clientID.IsZero() {
		return ErrApproverRequired
	}
	e.Status = StatusPendingClient
	e.AssignedClientID = clientID
	e.addDomainEvent(&DiscrepancyRaisedEvent{Entry: e.Snapshot(), RaisedAt: now})
	return nil
}

// ItemID returns the SKU or bin identifier
func (e *InventoryEntry) ItemID() string {
	switch {
	case e.Sku != nil:
		return e.Sku.SkuID
	case e.Bin != nil:
		return e.Bin.BinID
	default:
		return ""
	}
}

// ItemName returns the SKU name, empty for bins
func (e *InventoryEntry) ItemName() string {
	if e.Sku != nil {
		return e.Sku.SkuName
	}
	return ""
}

// Key is the natural key used for duplicate-submission warnings
func (e *InventoryEntry) Key() string {
	return EntryKey(e.Kind, e.ItemID())
}

// EntryKey builds the natural key for kind and id
func EntryKey(kind EntryKind, id string) string {
	return string(kind) + ":" + strings.ToLower(strings.TrimSpace(id))
}

// Respond records the assigned client's decision and moves the entry to a terminal status
func (e *InventoryEntry) Respond(actorID primitive.ObjectID, action ResponseAction, comment string, now time.Time) error {
	if !action.IsValid() {
		return ErrInvalidAction
	}
	if e.AssignedClientID.IsZero() || e.AssignedClientID != actorID {
		return ErrNotAssignedApprover
	}
	if e.Status != StatusPendingClient {
		return ErrEntryNotPending
	}

	e.Status = action.ResultingStatus()
	e.ClientResponse = &ClientResponse{Action: action, Comment: strings.TrimSpace(comment)}
	e.Timestamps.ClientResponse = &now
	e.Timestamps.FinalStatus = &now

	e.addDomainEvent(&EntryResolvedEvent{
		Entry:      e.Snapshot(),
		Action:     action,
		Comment:    e.ClientResponse.Comment,
		ResolvedAt: now,
	})
	return nil
}

func (e *InventoryEntry) addDomainEvent(event DomainEvent) {
	e.DomainEvents = append(e.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (e *InventoryEntry) GetDomainEvents() []DomainEvent {
	return e.DomainEvents
}

// ClearDomainEvents clears all domain events
func (e *InventoryEntry) ClearDomainEvents() {
	e.DomainEvents = nil
}
