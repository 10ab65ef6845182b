package domain

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the permission level of an identity
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleClient Role = "client"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleClient:
		return true
	default:
		return false
	}
}

// Identity is a login principal. Admins sign in with email and password,
// staff and clients with a unique code and PIN.
type Identity struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Name           string             `bson:"name"`
	Role           Role               `bson:"role"`
	Email          string             `bson:"email,omitempty"`
	PasswordHash   string             `bson:"passwordHash,omitempty"`
	UniqueCode     string             `bson:"uniqueCode,omitempty"`
	PinHash        string             `bson:"pinHash,omitempty"`
	Locations      []string           `bson:"locations"`
	MappedLocation string             `bson:"mappedLocation,omitempty"`
	Phone          string             `bson:"phone,omitempty"`
	LastLoginAt    *time.Time         `bson:"lastLoginAt,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

// NaturalKey is the upsert key: email for admins, unique code otherwise
func (i *Identity) NaturalKey() string {
	if i.Role == RoleAdmin {
		return strings.ToLower(strings.TrimSpace(i.Email))
	}
	return strings.TrimSpace(i.UniqueCode)
}

// SetLocations replaces the location set and recomputes the legacy mapped location
func (i *Identity) SetLocations(locations []string) {
	i.Locations = CleanLocations(locations)
	i.MappedLocation = MappedLocationFor(i.Locations)
}

// ServesLocation reports whether loc is one of the identity's locations, or is contained
// in its legacy mapped location. Both sides are normalised first.
func (i *Identity) ServesLocation(loc string) bool {
	want := NormalizeLocation(loc)
	if want == "" {
		return false
	}

	for _, l := range i.Locations {
		if NormalizeLocation(l) == want {
			return true
		}
	}
	return strings.Contains(NormalizeLocation(i.MappedLocation), want)
}

// EligibleApprovers filters clients serving loc, ordered by name then id
func EligibleApprovers(identities []*Identity, loc string) []*Identity {
	eligible := make([]*Identity, 0)
	for _, id := range identities {
		if id == nil || id.Role != RoleClient {
			continue
		}
		if id.ServesLocation(loc) {
			eligible = append(eligible, id)
		}
	}

	sort.SliceStable(eligible, func(a, b int) bool {
		na, nb := strings.ToLower(eligible[a].Name), strings.ToLower(eligible[b].Name)
		if na != nb {
			return na < nb
		}
		return eligible[a].ID.Hex() < eligible[b].ID.Hex()
	})
	return eligible
}
