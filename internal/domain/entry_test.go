package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func newPendingEntry(t *testing.T, clientID primitive.ObjectID) *InventoryEntry {
	t.Helper()
	entry, err := NewSkuEntry(NewSkuEntryParams{
		SkuID:            "SKU-100",
		SkuName:          "Basmati 5kg",
		Location:         "Noida WH",
		Counts:           Counts{Picking: 10},
		Odin:             Thresholds{MinQuantity: 8},
		StaffID:          primitive.NewObjectID(),
		AssignedClientID: clientID,
		Now:              testNow,
	})
	require.NoError(t, err)
	return entry
}

func TestNewSkuEntry_InitialStatus(t *testing.T) {
	staff := primitive.NewObjectID()
	client := primitive.NewObjectID()

	tests := []struct {
		name         string
		counts       Counts
		odin         Thresholds
		client       primitive.ObjectID
		wantStatus   Status
		wantResult   AuditResult
		wantAssigned bool
		wantErr      error
	}{
		{
			name:         "Excess routes to the client",
			counts:       Counts{Picking: 10},
			odin:         Thresholds{MinQuantity: 8},
			client:       client,
			wantStatus:   StatusPendingClient,
			wantResult:   ResultExcess,
			wantAssigned: true,
		},
		{
			name:       "Match is auto approved and drops any supplied client",
			counts:     Counts{Picking: 3, Bulk: 2},
			odin:       Thresholds{MinQuantity: 3, BlockedQuantity: 2},
			client:     client,
			wantStatus: StatusAutoApproved,
			wantResult: ResultMatch,
		},
		{
			name:         "Shortfall routes to the client",
			counts:       Counts{NearExpiry: 2},
			odin:         Thresholds{MinQuantity: 5},
			client:       client,
			wantStatus:   StatusPendingClient,
			wantResult:   ResultShortfall,
			wantAssigned: true,
		},
		{
			name:    "Discrepancy without a client is rejected",
			counts:  Counts{NearExpiry: 2},
			odin:    Thresholds{MinQuantity: 5},
			wantErr: ErrApproverRequired,
		},
		{
			name:    "Negative count is rejected",
			counts:  Counts{Picking: -1},
			wantErr: ErrNegativeQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewSkuEntry(NewSkuEntryParams{
				SkuID:            " SKU-100 ",
				Location:         "  Noida   WH ",
				Counts:           tt.counts,
				Odin:             tt.odin,
				StaffID:          staff,
				AssignedClientID: tt.client,
				Now:              testNow,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, entry)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, entry.Status)
			assert.Equal(t, tt.wantResult, entry.AuditResult)
			assert.Equal(t, tt.wantAssigned, !entry.AssignedClientID.IsZero())
			assert.Equal(t, "SKU-100", entry.Sku.SkuID)
			assert.Equal(t, "Noida WH", entry.Location)
			assert.Equal(t, "noida wh", entry.LocationKey)
			assert.Equal(t, "sku:sku-100", entry.Key())
			assert.Equal(t, testNow, entry.Timestamps.StaffEntry)
			assert.Equal(t, tt.counts.Total(), entry.TotalIdentified)
			assert.Equal(t, tt.odin.MaxQuantity(), entry.MaxQuantity)
			require.Len(t, entry.GetDomainEvents(), 1)

			if tt.wantStatus == StatusAutoApproved {
				require.NotNil(t, entry.Timestamps.FinalStatus)
				assert.IsType(t, &EntryAutoApprovedEvent{}, entry.GetDomainEvents()[0])
			} else {
				assert.Nil(t, entry.Timestamps.FinalStatus)
				assert.IsType(t, &DiscrepancyRaisedEvent{}, entry.GetDomainEvents()[0])
			}
		})
	}
}

func TestNewSkuEntry_RequiredFields(t *testing.T) {
	base := NewSkuEntryParams{SkuID: "A", Location: "Delhi", StaffID: primitive.NewObjectID(), Now: testNow}

	p := base
	p.SkuID = "  "
	_, err := NewSkuEntry(p)
	assert.ErrorIs(t, err, ErrItemIDRequired)

	p = base
	p.Location = " "
	_, err = NewSkuEntry(p)
	assert.ErrorIs(t, err, ErrLocationRequired)

	p = base
	p.StaffID = primitive.NilObjectID
	_, err = NewSkuEntry(p)
	assert.ErrorIs(t, err, ErrStaffRequired)
}

func TestNewBinEntry(t *testing.T) {
	client := primitive.NewObjectID()
	entry, err := NewBinEntry(NewBinEntryParams{
		BinID:            "BIN-7",
		Location:         "Delhi",
		BookQuantity:     12,
		ActualQuantity:   9,
		StaffID:          primitive.NewObjectID(),
		AssignedClientID: client,
		Now:              testNow,
	})

	require.NoError(t, err)
	assert.Equal(t, EntryKindBin, entry.Kind)
	assert.Nil(t, entry.Sku)
	assert.Equal(t, ResultShortfall, entry.AuditResult)
	assert.Equal(t, float64(3), entry.Discrepancy)
	assert.Equal(t, float64(12), entry.MinQuantity)
	assert.Equal(t, float64(12), entry.MaxQuantity)
	assert.Equal(t, float64(9), entry.TotalIdentified)
	assert.Equal(t, StatusPendingClient, entry.Status)
	assert.Equal(t, "bin:bin-7", entry.Key())
}

func TestInventoryEntry_Respond(t *testing.T) {
	client := primitive.NewObjectID()
	respondedAt := testNow.Add(time.Hour)

	tests := []struct {
		name       string
		setup      func() *InventoryEntry
		actor      primitive.ObjectID
		action     ResponseAction
		wantErr    error
		wantStatus Status
	}{
		{
			name:       "Approve",
			setup:      func() *InventoryEntry { return newPendingEntry(t, client) },
			actor:      client,
			action:     ActionApproved,
			wantStatus: StatusClientApproved,
		},
		{
			name:       "Reject",
			setup:      func() *InventoryEntry { return newPendingEntry(t, client) },
			actor:      client,
			action:     ActionRejected,
			wantStatus: StatusClientRejected,
		},
		{
			name:    "Unknown action",
			setup:   func() *InventoryEntry { return newPendingEntry(t, client) },
			actor:   client,
			action:  "recount",
			wantErr: ErrInvalidAction,
		},
		{
			name:    "Another client",
			setup:   func() *InventoryEntry { return newPendingEntry(t, client) },
			actor:   primitive.NewObjectID(),
			action:  ActionApproved,
			wantErr: ErrNotAssignedApprover,
		},
		{
			name: "Already resolved",
			setup: func() *InventoryEntry {
				e := newPendingEntry(t, client)
				require.NoError(t, e.Respond(client, ActionApproved, "", testNow))
				return e
			},
			actor:   client,
			action:  ActionRejected,
			wantErr: ErrEntryNotPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := tt.setup()
			before := entry.Status

			err := entry.Respond(tt.actor, tt.action, "  counted twice  ", respondedAt)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				if before == StatusPendingClient {
					assert.Equal(t, StatusPendingClient, entry.Status)
					assert.Nil(t, entry.ClientResponse)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, entry.Status)
			require.NotNil(t, entry.ClientResponse)
			assert.Equal(t, tt.action, entry.ClientResponse.Action)
			assert.Equal(t, "counted twice", entry.ClientResponse.Comment)
			assert.Equal(t, respondedAt, *entry.Timestamps.ClientResponse)
			assert.Equal(t, respondedAt, *entry.Timestamps.FinalStatus)

			events := entry.GetDomainEvents()
			resolved, ok := events[len(events)-1].(*EntryResolvedEvent)
			require.True(t, ok)
			assert.Equal(t, tt.action, resolved.Action)
		})
	}
}

func TestInventoryEntry_RespondAutoApproved(t *testing.T) {
	entry, err := NewSkuEntry(NewSkuEntryParams{
		SkuID:    "SKU-1",
		Location: "Delhi",
		Counts:   Counts{Picking: 4},
		Odin:     Thresholds{MinQuantity: 4},
		StaffID:  primitive.NewObjectID(),
		Now:      testNow,
	})
	require.NoError(t, err)

	err = entry.Respond(primitive.NewObjectID(), ActionApproved, "", testNow)
	assert.ErrorIs(t, err, ErrNotAssignedApprover)
}

func TestStatus_DecodesLegacyRecount(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"status": "recount-required"})
	require.NoError(t, err)

	var decoded struct {
		Status Status `bson:"status"`
	}
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	assert.Equal(t, StatusClientRejected, decoded.Status)
	assert.True(t, decoded.Status.IsTerminal())
	assert.False(t, StatusPendingClient.IsTerminal())
}

func TestInventoryEntry_EventsSnapshotState(t *testing.T) {
	clientID := primitive.NewObjectID()
	entry := newPendingEntry(t, clientID)
	require.False(t, entry.ID.IsZero())

	require.NoError(t, entry.Respond(clientID, ActionApproved, "ok", testNow.Add(time.Hour)))
	entry.Location = "moved"

	events := entry.GetDomainEvents()
	require.Len(t, events, 2)

	raised, ok := events[0].(*DiscrepancyRaisedEvent)
	require.True(t, ok)
	assert.Equal(t, StatusPendingClient, raised.Entry.Status)
	assert.Equal(t, entry.ID.Hex(), raised.Entry.EntryID)
	assert.Equal(t, "Noida WH", raised.Entry.Location)
	assert.Equal(t, clientID.Hex(), raised.Entry.AssignedClientID)
	require.NotNil(t, raised.Entry.Counts)
	require.NotNil(t, raised.Entry.Odin)

	resolved, ok := events[1].(*EntryResolvedEvent)
	require.True(t, ok)
	assert.Equal(t, StatusClientApproved, resolved.Entry.Status)
	assert.Equal(t, entry.ID.Hex(), resolved.Entry.EntryID)
}
