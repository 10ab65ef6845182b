package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wms-platform/audit-service/internal/domain"
)

func testIdentity() *domain.Identity {
	return &domain.Identity{ID: primitive.NewObjectID(), Name: "Asha", Role: domain.RoleStaff}
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager("secret", 12*time.Hour, "audit-service")
	identity := testIdentity()

	token, exp, err := m.Issue(identity)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), exp, time.Minute)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, identity.ID.Hex(), claims.User.ID)
	assert.Equal(t, domain.RoleStaff, claims.User.Role)
	assert.Equal(t, "Asha", claims.User.Name)
	assert.Equal(t, "audit-service", claims.Issuer)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Hour, "audit-service")
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := m.Issue(testIdentity())
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsOtherSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", time.Hour, "").Issue(testIdentity())
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour, "").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsUnsignedToken(t *testing.T) {
	claims := &Claims{
		User:             UserClaims{ID: primitive.NewObjectID().Hex(), Role: domain.RoleAdmin},
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour, "").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHasher(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("1234")
	require.NoError(t, err)
	assert.NotEqual(t, "1234", hash)
	assert.True(t, h.Compare(hash, "1234"))
	assert.False(t, h.Compare(hash, "4321"))
	assert.False(t, h.Compare("", "1234"))
}
