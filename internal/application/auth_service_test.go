package application

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/audit-service/internal/domain"
)

func newAuthFixture(seed ...*domain.Identity) (*AuthService, *MockIdentityRepository) {
	repo := NewMockIdentityRepository(seed...)
	return NewAuthService(repo, plainHasher{}, stubTokens{}, nil), repo
}

func TestLogin(t *testing.T) {
	admin := &domain.Identity{Name: "Root", Role: domain.RoleAdmin, Email: "root@odin.test", PasswordHash: "hashed:s3cret"}
	staff := &domain.Identity{Name: "Sam", Role: domain.RoleStaff, UniqueCode: "S1", PinHash: "hashed:1234", Locations: []string{"Noida"}}
	client := &domain.Identity{Name: "Amy", Role: domain.RoleClient, UniqueCode: "C1", PinHash: "hashed:9999"}
	service, repo := newAuthFixture(admin, staff, client)
	ctx := context.Background()

	tests := []struct {
		name     string
		cmd      LoginCommand
		status   int
		wantRole string
	}{
		{"admin by email", LoginCommand{Role: domain.RoleAdmin, Email: " ROOT@odin.test ", Password: "s3cret"}, 0, "admin"},
		{"admin wrong password", LoginCommand{Role: domain.RoleAdmin, Email: "root@odin.test", Password: "nope"}, http.StatusUnauthorized, ""},
		{"admin unknown email", LoginCommand{Role: domain.RoleAdmin, Email: "who@odin.test", Password: "s3cret"}, http.StatusUnauthorized, ""},
		{"admin missing password", LoginCommand{Role: domain.RoleAdmin, Email: "root@odin.test"}, http.StatusBadRequest, ""},
		{"staff by code", LoginCommand{Role: domain.RoleStaff, UniqueCode: "S1", LoginPin: "1234"}, 0, "staff"},
		{"client through staff form", LoginCommand{Role: domain.RoleStaff, UniqueCode: "C1", LoginPin: "9999"}, 0, "client"},
		{"wrong pin", LoginCommand{Role: domain.RoleStaff, UniqueCode: "S1", LoginPin: "0000"}, http.StatusUnauthorized, ""},
		{"missing pin", LoginCommand{Role: domain.RoleStaff, UniqueCode: "S1"}, http.StatusBadRequest, ""},
		{"email without role", LoginCommand{Email: "root@odin.test", Password: "s3cret"}, 0, "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.Login(ctx, tt.cmd)
			if tt.status != 0 {
				requireAppError(t, err, tt.status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, result.User.Role)
			assert.NotEmpty(t, result.Token)
			assert.NotNil(t, result.User.Locations)
		})
	}

	stored, err := repo.FindByID(ctx, staff.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLogin_TokenFailure(t *testing.T) {
	repo := NewMockIdentityRepository(&domain.Identity{Name: "Sam", Role: domain.RoleStaff, UniqueCode: "S1", PinHash: "hashed:1"})
	service := NewAuthService(repo, plainHasher{}, stubTokens{err: errStore}, nil)

	_, err := service.Login(context.Background(), LoginCommand{UniqueCode: "S1", LoginPin: "1"})

	requireAppError(t, err, http.StatusInternalServerError)
}

func TestRegister(t *testing.T) {
	service, repo := newAuthFixture()
	ctx := context.Background()

	created, err := service.Register(ctx, RegisterCommand{
		Name:       "Amy",
		Role:       domain.RoleClient,
		UniqueCode: "C1",
		LoginPin:   "1234",
		Locations:  []string{"Noida", " noida", "Pune"},
	})
	require.NoError(t, err)
	assert.Equal(t, RegisterTypeCreate, created.Type)
	assert.Equal(t, []string{"Noida", "Pune"}, created.User.Locations)
	assert.Equal(t, "Noida, Pune", created.User.MappedLocation)

	updated, err := service.Register(ctx, RegisterCommand{
		Name:       "Amy B",
		Role:       domain.RoleClient,
		UniqueCode: "C1",
	})
	require.NoError(t, err)
	assert.Equal(t, RegisterTypeUpdate, updated.Type)
	assert.Equal(t, created.User.ID, updated.User.ID)
	assert.Equal(t, "Amy B", updated.User.Name)
	assert.Empty(t, updated.User.Locations, "locations are replaced on update")

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "hashed:1234", all[0].PinHash, "PIN kept when not supplied")
}

func TestRegister_Validation(t *testing.T) {
	service, _ := newAuthFixture()
	ctx := context.Background()

	tests := []struct {
		name  string
		cmd   RegisterCommand
		field string
	}{
		{"invalid role", RegisterCommand{Role: "owner", UniqueCode: "X"}, ""},
		{"admin without email", RegisterCommand{Role: domain.RoleAdmin, Password: "p"}, "email"},
		{"staff without code", RegisterCommand{Role: domain.RoleStaff, LoginPin: "1"}, "uniqueCode"},
		{"new admin without password", RegisterCommand{Role: domain.RoleAdmin, Email: "a@b.c"}, "password"},
		{"new staff without pin", RegisterCommand{Role: domain.RoleStaff, UniqueCode: "S9"}, "loginPin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(ctx, tt.cmd)
			appErr := requireAppError(t, err, http.StatusBadRequest)
			if tt.field != "" {
				assert.Contains(t, appErr.Details, tt.field)
			}
		})
	}
}

func TestMe(t *testing.T) {
	staff := &domain.Identity{Name: "Sam", Role: domain.RoleStaff, UniqueCode: "S1", PinHash: "hashed:1"}
	service, _ := newAuthFixture(staff)

	me, err := service.Me(context.Background(), staff.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Sam", me.Name)

	_, err = service.Me(context.Background(), "not-an-id")
	requireAppError(t, err, http.StatusNotFound)
}

func TestUpdateIdentity(t *testing.T) {
	client := &domain.Identity{Name: "Amy", Role: domain.RoleClient, UniqueCode: "C1", Locations: []string{"Noida"}, MappedLocation: "Noida"}
	service, repo := newAuthFixture(client)
	ctx := context.Background()

	name, pin := "Amy K", "4321"
	dto, err := service.UpdateIdentity(ctx, client.ID.Hex(), UpdateIdentityCommand{
		Name:      &name,
		LoginPin:  &pin,
		Locations: []string{"Gurgaon"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Amy K", dto.Name)
	assert.Equal(t, []string{"Gurgaon"}, dto.Locations)
	assert.Equal(t, "Gurgaon", dto.MappedLocation)

	stored, _ := repo.FindByID(ctx, client.ID)
	assert.Equal(t, "hashed:4321", stored.PinHash)

	unchanged, err := service.UpdateIdentity(ctx, client.ID.Hex(), UpdateIdentityCommand{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Gurgaon"}, unchanged.Locations, "nil locations are left alone")
}
