package application

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/pkg/errors"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/mongodb"
)

// AuthService handles login, the current user and identity administration
type AuthService struct {
	identities domain.IdentityRepository
	hasher     PasswordHasher
	tokens     TokenIssuer
	logger     *logging.Logger
	now        func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(identities domain.IdentityRepository, hasher PasswordHasher, tokens TokenIssuer, logger *logging.Logger) *AuthService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AuthService{
		identities: identities,
		hasher:     hasher,
		tokens:     tokens,
		logger:     logger.WithComponent("auth-service"),
		now:        mongodb.Now,
	}
}

func invalidCredentials() *errors.AppError {
	return errors.ErrUnauthorized("invalid credentials")
}

// Login authenticates an admin by email and password, anyone else by unique code and PIN.
// The requested role only selects the form; clients sign in through the staff form.
func (s *AuthService) Login(ctx context.Context, cmd LoginCommand) (*LoginResult, error) {
	useEmail := cmd.Role == domain.RoleAdmin || (strings.TrimSpace(cmd.UniqueCode) == "" && strings.TrimSpace(cmd.Email) != "")

	var (
		identity *domain.Identity
		err      error
	)
	if useEmail {
		email := strings.ToLower(strings.TrimSpace(cmd.Email))
		if email == "" || cmd.Password == "" {
			return nil, errors.ErrValidationWithFields("email and password are required", map[string]string{
				"email": "is required", "password": "is required",
			})
		}
		identity, err = s.identities.FindByEmail(ctx, email)
		if err == nil && !s.hasher.Compare(identity.PasswordHash, cmd.Password) {
			return nil, invalidCredentials()
		}
	} else {
		code := strings.TrimSpace(cmd.UniqueCode)
		if code == "" || cmd.LoginPin == "" {
			return nil, errors.ErrValidationWithFields("unique code and PIN are required", map[string]string{
				"uniqueCode": "is required", "loginPin": "is required",
			})
		}
		identity, err = s.identities.FindByUniqueCode(ctx, code)
		if err == nil && !s.hasher.Compare(identity.PinHash, cmd.LoginPin) {
			return nil, invalidCredentials()
		}
	}

	if stderrors.Is(err, domain.ErrIdentityNotFound) {
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, toAppError(err)
	}

	token, expiresAt, err := s.tokens.Issue(identity)
	if err != nil {
		return nil, errors.ErrInternal("failed to issue token").Wrap(err)
	}

	if err := s.identities.RecordLogin(ctx, identity.ID, s.now()); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to record login", "identityId", identity.ID.Hex())
	}
	s.logger.WithContext(ctx).Info("Login succeeded", "identityId", identity.ID.Hex(), "role", string(identity.Role))

	locations := identity.Locations
	if locations == nil {
		locations = []string{}
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User: SessionUserDTO{
			ID:        identity.ID.Hex(),
			Role:      string(identity.Role),
			Name:      identity.Name,
			Locations: locations,
		},
	}, nil
}

// Me returns the identity behind id
func (s *AuthService) Me(ctx context.Context, id string) (*IdentityDTO, error) {
	identity, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToIdentityDTO(identity)
	return &dto, nil
}

// Register creates an identity or overwrites the one with the same email (admin) or unique code
func (s *AuthService) Register(ctx context.Context, cmd RegisterCommand) (*RegisterResult, error) {
	if !cmd.Role.IsValid() {
		return nil, toAppError(domain.ErrInvalidRole)
	}

	candidate := &domain.Identity{
		Role:       cmd.Role,
		Email:      strings.ToLower(strings.TrimSpace(cmd.Email)),
		UniqueCode: strings.TrimSpace(cmd.UniqueCode),
	}
	key := candidate.NaturalKey()
	if key == "" {
		field := "uniqueCode"
		if cmd.Role == domain.RoleAdmin {
			field = "email"
		}
		return nil, errors.ErrValidationWithFields("identity key is required", map[string]string{field: "is required"})
	}

	var (
		existing *domain.Identity
		err      error
	)
	if cmd.Role == domain.RoleAdmin {
		existing, err = s.identities.FindByEmail(ctx, key)
	} else {
		existing, err = s.identities.FindByUniqueCode(ctx, key)
	}
	if err != nil && !stderrors.Is(err, domain.ErrIdentityNotFound) {
		return nil, toAppError(err)
	}

	now := s.now()
	if existing != nil {
		if err := s.applyRegistration(existing, cmd, now); err != nil {
			return nil, err
		}
		if err := s.identities.Update(ctx, existing); err != nil {
			return nil, toAppError(err)
		}
		s.logger.Audit(ctx, "identity.updated", "identity/"+existing.ID.Hex(), logging.UserIDFromContext(ctx), map[string]any{"role": string(existing.Role)})
		return &RegisterResult{Message: "User updated successfully", Type: RegisterTypeUpdate, User: ToIdentityDTO(existing)}, nil
	}

	if cmd.Role == domain.RoleAdmin && cmd.Password == "" {
		return nil, errors.ErrValidationWithFields("password is required", map[string]string{"password": "is required"})
	}
	if cmd.Role != domain.RoleAdmin && cmd.LoginPin == "" {
		return nil, errors.ErrValidationWithFields("login PIN is required", map[string]string{"loginPin": "is required"})
	}

	candidate.CreatedAt = now
	if err := s.applyRegistration(candidate, cmd, now); err != nil {
		return nil, err
	}
	if err := s.identities.Create(ctx, candidate); err != nil {
		return nil, toAppError(err)
	}
	s.logger.Audit(ctx, "identity.created", "identity/"+candidate.ID.Hex(), logging.UserIDFromContext(ctx), map[string]any{"role": string(candidate.Role)})
	return &RegisterResult{Message: "User created successfully", Type: RegisterTypeCreate, User: ToIdentityDTO(candidate)}, nil
}

func (s *AuthService) applyRegistration(identity *domain.Identity, cmd RegisterCommand, now time.Time) error {
	if name := strings.TrimSpace(cmd.Name); name != "" {
		identity.Name = name
	}
	identity.Role = cmd.Role
	if email := strings.ToLower(strings.TrimSpace(cmd.Email)); email != "" {
		identity.Email = email
	}
	if code := strings.TrimSpace(cmd.UniqueCode); code != "" {
		identity.UniqueCode = code
	}
	if phone := strings.TrimSpace(cmd.Phone); phone != "" {
		identity.Phone = phone
	}

	identity.SetLocations(cmd.Locations)
	if mapped := strings.TrimSpace(cmd.MappedLocation); mapped != "" {
		identity.MappedLocation = mapped
	}

	if cmd.Password != "" {
		hash, err := s.hasher.Hash(cmd.Password)
		if err != nil {
			return errors.ErrInternal("").Wrap(err)
		}
		identity.PasswordHash = hash
	}
	if cmd.LoginPin != "" {
		hash, err := s.hasher.Hash(cmd.LoginPin)
		if err != nil {
			return errors.ErrInternal("").Wrap(err)
		}
		identity.PinHash = hash
	}

	identity.UpdatedAt = now
	return nil
}

// UpdateIdentity edits name, PIN, phone and locations. New locations recompute the mapped location.
func (s *AuthService) UpdateIdentity(ctx context.Context, id string, cmd UpdateIdentityCommand) (*IdentityDTO, error) {
	identity, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cmd.Name != nil && strings.TrimSpace(*cmd.Name) != "" {
		identity.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.LoginPin != nil && *cmd.LoginPin != "" {
		hash, err := s.hasher.Hash(*cmd.LoginPin)
		if err != nil {
			return nil, errors.ErrInternal("").Wrap(err)
		}
		identity.PinHash = hash
	}
	if cmd.Phone != nil {
		identity.Phone = strings.TrimSpace(*cmd.Phone)
	}
	if cmd.Locations != nil {
		identity.SetLocations(cmd.Locations)
	}
	identity.UpdatedAt = s.now()

	if err := s.identities.Update(ctx, identity); err != nil {
		return nil, toAppError(err)
	}
	s.logger.Audit(ctx, "identity.edited", "identity/"+identity.ID.Hex(), logging.UserIDFromContext(ctx), nil)

	dto := ToIdentityDTO(identity)
	return &dto, nil
}

func (s *AuthService) findByID(ctx context.Context, id string) (*domain.Identity, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, toAppError(domain.ErrIdentityNotFound)
	}
	identity, err := s.identities.FindByID(ctx, oid)
	if err != nil {
		return nil, toAppError(err)
	}
	return identity, nil
}
