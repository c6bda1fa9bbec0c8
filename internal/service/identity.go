// Package service holds the application logic behind the HTTP handlers:
// account lifecycle and session issuance (IdentityService) and catalog
// reads and writes fronted by the versioned cache (CatalogService).
//
// Services return *apperrors.Error values; they never write responses.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/faizvk/ecommerce-app/internal/apperrors"
	"github.com/faizvk/ecommerce-app/internal/model"
	"github.com/faizvk/ecommerce-app/internal/repository"
	"github.com/faizvk/ecommerce-app/internal/utils"
)

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	UpdatePassword(ctx context.Context, id, hash, provider string) error
	LinkGoogle(ctx context.Context, id, googleID string) error
	UpdateProfile(ctx context.Context, id string, p model.Profile) (*model.User, error)
	UpdateRole(ctx context.Context, id, role string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

// TokenStore records issued refresh tokens.  It is only used when refresh
// tokens rotate.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash, family string, exp time.Time) error
	Lookup(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)
	RevokeFamily(ctx context.Context, family string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// GoogleIdentity is the verified content of a Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

// GoogleVerifier checks a Google ID token credential.
type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (GoogleIdentity, error)
}

// Session is the result of a successful authentication.  Refresh is nil
// when the client's existing refresh token stays in place.
type Session struct {
	User    *model.User
	Access  utils.Token
	Refresh *utils.Token
}

// SignupInput carries the fields accepted at signup.  Role is never taken
// from the client.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Profile  model.Profile
}

// IdentityOptions tunes the identity service.
type IdentityOptions struct {
	BcryptCost int
	Timeout    time.Duration // bound for each call into the stores
}

// IdentityService governs how a client moves between anonymous,
// authenticated and expired sessions.
type IdentityService struct {
	users  UserStore
	tokens TokenStore // nil: stateless refresh tokens
	codec  *utils.TokenCodec
	google GoogleVerifier // nil: Google login disabled
	opts   IdentityOptions
	log    *slog.Logger
}

// NewIdentityService wires the service.  Passing a non-nil tokens store
// turns on refresh-token rotation with reuse detection.
func NewIdentityService(users UserStore, tokens TokenStore, codec *utils.TokenCodec, google GoogleVerifier, opts IdentityOptions, logger *slog.Logger) *IdentityService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityService{
		users:  users,
		tokens: tokens,
		codec:  codec,
		google: google,
		opts:   opts,
		log:    logger.With(slog.String("component", "identity")),
	}
}

// Rotating reports whether refresh tokens rotate on use.
func (s *IdentityService) Rotating() bool { return s.tokens != nil }

// RefreshTTL is the lifetime of issued refresh tokens.
func (s *IdentityService) RefreshTTL() time.Duration { return s.codec.RefreshTTL() }

func (s *IdentityService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.Timeout)
}

const weakPasswordMsg = "password must be 8-16 characters and include upper, lower, number and symbol"

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func defaultName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

// userErr maps store errors onto the taxonomy.
func userErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return apperrors.NewNotFound("user not found")
	case errors.Is(err, repository.ErrEmailExists):
		return apperrors.NewConflict("user already exists")
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict("account is already linked")
	default:
		return apperrors.NewInternal(err)
	}
}

// Signup creates a local account.  The returned user never carries the hash
// in any encoding.
func (s *IdentityService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperrors.NewInvalidInput("email and password are required")
	}
	if !utils.StrongPassword(in.Password) {
		return nil, apperrors.NewInvalidInput(weakPasswordMsg)
	}
	hash, err := utils.HashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         defaultName(in.Name, email),
		Role:         model.RoleUser,
		Provider:     model.ProviderLocal,
		Age:          in.Profile.Age,
		Address:      in.Profile.Address,
		Contact:      in.Profile.Contact,
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.users.Create(ctx, u); err != nil {
		return nil, userErr(err)
	}
	s.log.Info("user signed up", slog.String("user_id", u.ID))
	return u, nil
}

// Login checks email and password and starts a new session.  An account
// created through Google without a local password fails with NoPassword,
// never with InvalidCredentials.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewInvalidInput("all fields are required")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, userErr(err)
	}
	if !u.HasPassword() {
		return nil, apperrors.NewNoPassword("account has no password, continue with Google")
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, apperrors.NewInvalidCredentials("invalid password")
	}
	return s.startSession(ctx, u)
}

// GoogleLogin verifies a Google ID token, links or creates the account and
// starts a new session.
func (s *IdentityService) GoogleLogin(ctx context.Context, credential string) (*Session, error) {
	if s.google == nil {
		return nil, apperrors.New(apperrors.UpstreamUnavailable, "google login is not configured")
	}
	if strings.TrimSpace(credential) == "" {
		return nil, apperrors.NewInvalidInput("missing google credential")
	}
	id, err := s.google.Verify(ctx, credential)
	if err != nil {
		s.log.Warn("google token rejected", slog.String("error", err.Error()))
		return nil, apperrors.NewUnauthorized("google authentication failed")
	}
	if !id.EmailVerified {
		return nil, apperrors.NewUnauthorized("google email is not verified")
	}
	u, err := s.LinkOAuth(ctx, id.Subject, id.Email, id.Name)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.startSession(ctx, u)
}

// LinkOAuth finds or creates the account for a Google identity.  An
// existing account with the same email and no Google linkage is linked; its
// password and provider are left untouched.
func (s *IdentityService) LinkOAuth(ctx context.Context, subject, email, name string) (*model.User, error) {
	email = normalizeEmail(email)
	if subject == "" || email == "" {
		return nil, apperrors.NewInvalidInput("google identity is incomplete")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if u, err := s.users.GetByGoogleID(ctx, subject); err == nil {
		return u, nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperrors.NewInternal(err)
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.GoogleID != nil {
			return nil, apperrors.NewConflict("email is linked to another google account")
		}
		if err := s.users.LinkGoogle(ctx, u.ID, subject); err != nil {
			return nil, userErr(err)
		}
		u.GoogleID = &subject
		s.log.Info("google account linked", slog.String("user_id", u.ID))
		return u, nil
	case errors.Is(err, repository.ErrUserNotFound):
	default:
		return nil, apperrors.NewInternal(err)
	}

	u = &model.User{
		Email:    email,
		Name:     defaultName(name, email),
		Role:     model.RoleUser,
		GoogleID: &subject,
		Provider: model.ProviderGoogle,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, userErr(err)
	}
	s.log.Info("google account created", slog.String("user_id", u.ID))
	return u, nil
}

func subjectOf(u *model.User) utils.Subject {
	return utils.Subject{ID: u.ID, Email: u.Email, Role: u.Role}
}

// startSession issues a fresh token pair in a new refresh family.
func (s *IdentityService) startSession(ctx context.Context, u *model.User) (*Session, error) {
	access, err := s.codec.IssueAccess(subjectOf(u))
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	refresh, err := s.issueRefresh(ctx, u, "")
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Access: access, Refresh: &refresh}, nil
}

func (s *IdentityService) issueRefresh(ctx context.Context, u *model.User, family string) (utils.Token, error) {
	tok, err := s.codec.IssueRefresh(subjectOf(u), family)
	if err != nil {
		return utils.Token{}, apperrors.NewInternal(err)
	}
	if s.tokens != nil {
		if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashTokenID(tok.ID), tok.Family, tok.Exp); err != nil {
			return utils.Token{}, apperrors.NewInternal(err)
		}
	}
	return tok, nil
}

// Refresh exchanges a refresh token for a new access token.  In stateless
// mode the refresh token is reused until it expires.  In rotation mode it
// is replaced on every use, and presenting an already-rotated token revokes
// its whole family.
func (s *IdentityService) Refresh(ctx context.Context, raw string) (*Session, error) {
	if raw == "" {
		return nil, apperrors.NewUnauthorized("refresh token missing")
	}
	claims, err := s.codec.VerifyRefresh(raw)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid refresh token")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if s.tokens != nil {
		if err := s.consumeRefresh(ctx, claims); err != nil {
			return nil, err
		}
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.NewUnauthorized("invalid refresh token")
		}
		return nil, apperrors.NewInternal(err)
	}
	access, err := s.codec.IssueAccess(subjectOf(u))
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	sess := &Session{User: u, Access: access}
	if s.tokens != nil {
		next, err := s.issueRefresh(ctx, u, claims.Family)
		if err != nil {
			return nil, err
		}
		sess.Refresh = &next
	}
	return sess, nil
}

// consumeRefresh revokes the presented token, or the whole family when the
// token was already used.
func (s *IdentityService) consumeRefresh(ctx context.Context, claims *utils.Claims) error {
	hash := utils.HashTokenID(claims.ID)
	rec, err := s.tokens.Lookup(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return apperrors.NewUnauthorized("invalid refresh token")
		}
		return apperrors.NewInternal(err)
	}
	if rec.UserID != claims.UserID {
		return apperrors.NewUnauthorized("invalid refresh token")
	}
	if rec.RevokedAt != nil {
		if err := s.tokens.RevokeFamily(ctx, rec.Family); err != nil {
			return apperrors.NewInternal(err)
		}
		s.log.Warn("refresh token reuse detected, family revoked",
			slog.String("user_id", rec.UserID), slog.String("family", rec.Family))
		return apperrors.NewUnauthorized("refresh token has been revoked")
	}
	revoked, err := s.tokens.RevokeByHash(ctx, hash)
	if err != nil {
		return apperrors.NewInternal(err)
	}
	if !revoked {
		// lost a race with a concurrent refresh of the same token
		return apperrors.NewUnauthorized("refresh token has been revoked")
	}
	return nil
}

// Logout ends the session.  The caller clears the cookie; in rotation mode
// the presented refresh token is also revoked.  Logout never fails on a
// bad or missing token.
func (s *IdentityService) Logout(ctx context.Context, raw string) {
	if s.tokens == nil || raw == "" {
		return
	}
	claims, err := s.codec.VerifyRefresh(raw)
	if err != nil {
		return
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if _, err := s.tokens.RevokeByHash(ctx, utils.HashTokenID(claims.ID)); err != nil {
		s.log.Error("revoke on logout failed", slog.String("user_id", claims.UserID), slog.String("error", err.Error()))
	}
}

// SetPassword gives an OAuth-only account a local password and switches its
// provider to local.  It fails for accounts that already have a password.
func (s *IdentityService) SetPassword(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewInvalidInput("new password is required")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return userErr(err)
	}
	if !u.OAuthOnly() {
		return apperrors.NewInvalidInput("password already exists")
	}
	if !utils.StrongPassword(newPassword) {
		return apperrors.NewInvalidInput(weakPasswordMsg)
	}
	hash, err := utils.HashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		return apperrors.NewInternal(err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash, model.ProviderLocal); err != nil {
		return userErr(err)
	}
	s.log.Info("password set", slog.String("user_id", u.ID))
	return nil
}

// ChangePassword replaces the password of an account that has one.  In
// rotation mode every outstanding refresh token of the user is revoked.
func (s *IdentityService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperrors.NewInvalidInput("all fields are required")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return userErr(err)
	}
	if !u.HasPassword() {
		return apperrors.NewNoPassword("account has no password, use set-password")
	}
	if !utils.VerifyPassword(u.PasswordHash, oldPassword) {
		return apperrors.NewInvalidCredentials("old password is incorrect")
	}
	if !utils.StrongPassword(newPassword) {
		return apperrors.NewInvalidInput(weakPasswordMsg)
	}
	hash, err := utils.HashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		return apperrors.NewInternal(err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash, u.Provider); err != nil {
		return userErr(err)
	}
	if s.tokens != nil {
		if err := s.tokens.RevokeAllForUser(ctx, u.ID); err != nil {
			s.log.Error("revoke sessions after password change failed", slog.String("user_id", u.ID), slog.String("error", err.Error()))
		}
	}
	s.log.Info("password changed", slog.String("user_id", u.ID))
	return nil
}

// Profile returns the account of userID.
func (s *IdentityService) Profile(ctx context.Context, userID string) (*model.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}
	return u, nil
}

// UpdateProfile edits name, age, address and contact.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID string, p model.Profile) (*model.User, error) {
	if p.Empty() {
		return nil, apperrors.NewInvalidInput("no valid fields to update")
	}
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			return nil, apperrors.NewInvalidInput("name must not be empty")
		}
		p.Name = &n
	}
	if p.Age != nil && *p.Age < 1 {
		return nil, apperrors.NewInvalidInput("age must be greater than 0")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	u, err := s.users.UpdateProfile(ctx, userID, p)
	if err != nil {
		return nil, userErr(err)
	}
	return u, nil
}

// ListUsers returns every account, newest first.
func (s *IdentityService) ListUsers(ctx context.Context) ([]model.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// UpdateRole changes the role of another account.  Callers must already
// hold the admin role.
func (s *IdentityService) UpdateRole(ctx context.Context, userID, role string) (*model.User, error) {
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, apperrors.NewInvalidInput("invalid role")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	u, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, userErr(err)
	}
	s.log.Info("role updated", slog.String("user_id", u.ID), slog.String("role", role))
	return u, nil
}

// RequireRole allows claims that carry one of roles.
func RequireRole(claims *utils.Claims, roles ...string) error {
	if claims == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	for _, r := range roles {
		if claims.Role == r {
			return nil
		}
	}
	return apperrors.NewForbidden("forbidden")
}
