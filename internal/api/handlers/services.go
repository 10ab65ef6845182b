package handlers

import (
	"context"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/internal/realtime"
)

// AuditService is the inventory workflow used by InventoryHandler
type AuditService interface {
	SubmitEntry(ctx context.Context, cmd application.SubmitEntryCommand) (*application.SubmitEntryResult, error)
	Respond(ctx context.Context, cmd application.RespondCommand) (*application.EntryDTO, error)
	ListPending(ctx context.Context, actor application.Actor) ([]application.EntryDTO, error)
	StaffHistory(ctx context.Context, staffID string) ([]application.EntryDTO, error)
	LookupReference(ctx context.Context, raw string) (*application.ReferenceItemDTO, error)
	ClientsByLocation(ctx context.Context, location string) ([]application.IdentityDTO, error)
}

// AuthService is the session and identity API used by AuthHandler
type AuthService interface {
	Login(ctx context.Context, cmd application.LoginCommand) (*application.LoginResult, error)
	Me(ctx context.Context, id string) (*application.IdentityDTO, error)
	Register(ctx context.Context, cmd application.RegisterCommand) (*application.RegisterResult, error)
	UpdateIdentity(ctx context.Context, id string, cmd application.UpdateIdentityCommand) (*application.IdentityDTO, error)
}

// AdminService is the bulk data API used by AdminHandler
type AdminService interface {
	UploadReference(ctx context.Context, rows []application.ReferenceRow) (*application.UploadResult, error)
	AssignStaff(ctx context.Context, rows []application.RosterRow) (*application.UploadResult, error)
	AssignClients(ctx context.Context, rows []application.RosterRow) (*application.UploadResult, error)
	ListIdentities(ctx context.Context, role string) ([]application.IdentityDTO, error)
	InventoryReport(ctx context.Context, query application.ReportQuery) ([]application.ReportRowDTO, error)
	DeleteAllStaff(ctx context.Context) (*application.DeleteResult, error)
	DeleteAllClients(ctx context.Context) (*application.DeleteResult, error)
	DeleteAllReference(ctx context.Context) (*application.DeleteResult, error)
}

// Subscriber opens realtime streams
type Subscriber interface {
	Subscribe(recipient string) (<-chan realtime.Event, func())
}
