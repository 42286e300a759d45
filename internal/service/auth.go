// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services receive repository INTERFACES, not concrete sqlite types, so
// tests inject in-memory fakes and the storage backend stays swappable.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/auth"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/repository"
)

// DemoPassword is the fixed credential for the seeded demo accounts. It is
// a demo fixture, not an auth policy — real accounts use bcrypt hashes.
const DemoPassword = "returo2024"

const defaultAvatar = "/illustrations/persona_illustration.png"

// seedUsers are the demo identities available without registration. They
// carry no password hash; the static credential verifier covers them.
var seedUsers = []model.User{
	{
		Email:      "demo@returo.ro",
		FirstName:  "Ana",
		LastName:   "Popescu",
		Phone:      "+40 721 000 001",
		Avatar:     defaultAvatar,
		IsVerified: true,
	},
	{
		Email:      "test@returo.ro",
		FirstName:  "Mihai",
		LastName:   "Ionescu",
		Phone:      "+40 721 000 002",
		Avatar:     defaultAvatar,
		IsVerified: true,
	},
}

// AuthService handles the session lifecycle: register, login, logout,
// restore, and profile updates.
//
// Credential verification is pluggable: registered accounts verify against
// their bcrypt hash, seeded demo accounts against the fixed demo password.
// The lookup logic never branches on HOW a credential is checked.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	tokens     *auth.TokenService
	passwords  *auth.PasswordService
	registered auth.CredentialVerifier
	demo       auth.CredentialVerifier
	logger     *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		passwords:  passwords,
		registered: auth.NewBcryptVerifier(passwords),
		demo:       &auth.StaticVerifier{Secret: DemoPassword},
		logger:     logger,
	}
}

// AuthResult bundles the authenticated user and the issued token so the
// handler can respond in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// SeedDemoUsers makes sure the demo identities exist. Called once at
// startup; existing rows are left untouched.
func (s *AuthService) SeedDemoUsers(ctx context.Context) error {
	for _, seed := range seedUsers {
		if _, err := s.users.GetByEmail(ctx, seed.Email); err == nil {
			continue
		}
		u := seed
		if err := s.users.Create(ctx, &u); err != nil {
			return fmt.Errorf("service/auth: seeding demo user %s: %w", seed.Email, err)
		}
		s.logger.Info("seeded demo user", slog.String("email", u.Email))
	}
	return nil
}

// Register creates a new identity and opens a session for it.
//
// Fails with a duplicate-identity conflict if the email is already present.
// The password is bcrypt-hashed before it ever reaches the repository.
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName, phone string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if firstName == "" {
		return nil, apperror.ValidationFailed("firstName", "first name is required")
	}
	if lastName == "" {
		return nil, apperror.ValidationFailed("lastName", "last name is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Phone:        strings.TrimSpace(phone),
		Avatar:       defaultAvatar,
		IsVerified:   false,
		PasswordHash: hash,
	}

	// The repository surfaces an email collision as DuplicateIdentity and
	// leaves the identity list untouched.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.openSession(ctx, user)
}

// Login authenticates an identity by email and password and opens a fresh
// session.
//
// An unknown email fails with not-found; a bad password fails with
// invalid-credential. Seeded demo accounts (no stored hash) verify against
// the fixed demo password, everyone else against their bcrypt hash.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	verifier := s.registered
	if user.PasswordHash == "" {
		verifier = s.demo
	}
	if err := verifier.Verify(user.PasswordHash, password); err != nil {
		s.logger.Warn("login rejected", slog.String("email", email))
		return nil, apperror.InvalidCredential()
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.openSession(ctx, user)
}

// Logout invalidates the persisted session for a token. It always succeeds
// locally — a token that is already gone is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("service/auth: deleting session: %w", err)
	}
	s.logger.Info("user logged out")
	return nil
}

// Restore re-hydrates a session from a persisted token at app startup.
//
// Fails with no-saved-session if the token has no session row, the token
// itself no longer validates, or the referenced user no longer exists — the
// last check closes the stale-session hole where a session outlives its
// identity.
func (s *AuthService) Restore(ctx context.Context, token string) (*AuthResult, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, apperror.NoSavedSession()
	}

	userID, err := s.tokens.Validate(token)
	if err != nil || userID != session.UserID {
		// Expired or mismatched token: the saved session is dead weight.
		_ = s.sessions.DeleteByToken(ctx, token)
		return nil, apperror.NoSavedSession()
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		_ = s.sessions.DeleteByToken(ctx, token)
		return nil, apperror.NoSavedSession()
	}

	return &AuthResult{User: user, Token: token}, nil
}

// UpdateProfile merges a partial update into the current user and persists
// it to the identity store. Nil fields are left unchanged.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update model.UserUpdate) (*model.User, error) {
	if userID == "" {
		return nil, apperror.NoActiveUser()
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.NoActiveUser()
	}

	if update.FirstName != nil {
		if strings.TrimSpace(*update.FirstName) == "" {
			return nil, apperror.ValidationFailed("firstName", "first name must not be empty")
		}
		user.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		if strings.TrimSpace(*update.LastName) == "" {
			return nil, apperror.ValidationFailed("lastName", "last name must not be empty")
		}
		user.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Phone != nil {
		user.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}

	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("profile update failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: updating profile %s: %w", userID, err)
	}

	s.logger.Info("profile updated", slog.String("userID", userID))
	return user, nil
}

// ValidateToken validates a token string and returns the userID it encodes.
// Thin delegation so callers only need the service package.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// openSession mints a token and persists the session row for a user.
func (s *AuthService) openSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	session := &model.Session{UserID: user.ID, Token: token}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("service/auth: persisting session for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}
