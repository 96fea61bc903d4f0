// Package services contains the business logic of the backend. UserService
// covers registration, login, the password-reset flow, profile updates and
// the authentication of bearer tokens.
package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/logging"
	"github.com/dmitrijs2005/tours/internal/server/auth"
	"github.com/dmitrijs2005/tours/internal/server/config"
	"github.com/dmitrijs2005/tours/internal/server/mail"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/dmitrijs2005/tours/internal/server/repositories/repomanager"
)

// AuthResult is returned by every flow that ends in a fresh access token.
type AuthResult struct {
	Token string
	User  *models.User
}

type UserService struct {
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenManager
	resets      *auth.ResetTokenGenerator
	mailer      mail.Sender
	logger      logging.Logger
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService wires the credential primitives from cfg. A nil now uses
// time.Now.
func NewUserService(m repomanager.RepositoryManager, mailer mail.Sender, logger logging.Logger, cfg *config.Config, now func() time.Time) *UserService {
	if now == nil {
		now = time.Now
	}
	return &UserService{
		repomanager: m,
		hasher:      auth.NewPasswordHasher(cfg.PasswordHashCost),
		tokens:      auth.NewTokenManager([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration, now),
		resets:      auth.NewResetTokenGenerator(cfg.ResetTokenValidityDuration, now),
		mailer:      mailer,
		logger:      logger.With("module", "users"),
		now:         now,
	}
}

// Signup validates the input, hashes the password and stores the user.
// A taken email yields common.ErrorConflict.
func (s *UserService) Signup(ctx context.Context, in models.SignupInput) (*AuthResult, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := models.Validate(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error(ctx, "hash password", "error", err)
		return nil, fmt.Errorf("%w: unable to register", common.ErrorInternal)
	}

	user, err := s.repomanager.Users().Create(ctx, &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Photo:        in.Photo,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, user)
}

// Login never tells an unknown email from a wrong password: both yield
// common.ErrorUnauthorized after a bcrypt comparison.
func (s *UserService) Login(ctx context.Context, in models.LoginInput) (*AuthResult, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Compare(in.Password, s.dummy())
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	if !s.hasher.Compare(in.Password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	return s.issue(ctx, user)
}

// dummy is a hash compared against when the email is unknown, so that
// both login failures cost one bcrypt comparison.
func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(hex.EncodeToString(common.GenerateRandByteArray(16)))
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// ForgotPassword stores a fresh reset token for email and mails the plain
// token as a link under resetURL. If delivery fails the token is cleared.
func (s *UserService) ForgotPassword(ctx context.Context, email, resetURL string) error {
	repo := s.repomanager.Users()

	user, err := repo.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: there is no user with that email address", common.ErrorNotFound)
		}
		return err
	}

	token, err := s.resets.Generate()
	if err != nil {
		s.logger.Error(ctx, "generate reset token", "error", err)
		return common.ErrorInternal
	}

	if err := repo.SetResetToken(ctx, user.ID, token.Digest, token.ExpiresAt); err != nil {
		return err
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %d mins)", int(s.resets.Validity().Minutes())),
		Body: fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password to: %s%s\n"+
			"If you didn't forget your password, please ignore this email!", resetURL, token.Plain),
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error(ctx, "send reset mail", "user_id", user.ID, "error", err)
		if cerr := repo.ClearResetToken(ctx, user.ID); cerr != nil {
			s.logger.Error(ctx, "clear reset token", "user_id", user.ID, "error", cerr)
		}
		return fmt.Errorf("%w: there was an error sending the email, try again later", common.ErrorDependency)
	}

	return nil
}

// ResetPassword redeems a reset token and sets a new password. Unknown,
// expired and already used tokens all yield
// common.ErrInvalidOrExpiredResetToken.
func (s *UserService) ResetPassword(ctx context.Context, plainToken string, in models.PasswordInput) (*AuthResult, error) {
	repo := s.repomanager.Users()

	digest := auth.DigestResetToken(plainToken)
	user, err := repo.GetByResetTokenHash(ctx, digest)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpiredResetToken
		}
		return nil, err
	}
	if !s.resets.Redeem(plainToken, user) {
		return nil, common.ErrInvalidOrExpiredResetToken
	}

	if err := models.Validate(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error(ctx, "hash password", "error", err)
		return nil, common.ErrorInternal
	}

	// The write re-checks the token, so of two concurrent redemptions only
	// one succeeds.
	if err := repo.ResetPassword(ctx, user.ID, digest, hash, s.now()); err != nil {
		return nil, err
	}

	user, err = repo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, user)
}

// Authenticate resolves the Authorization header to the current user.
// Every rejection is the same common.ErrorUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, header string) (*models.User, error) {
	token, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return nil, common.ErrorUnauthorized
	}

	claims, err := s.tokens.Verify(strings.TrimSpace(token))
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "error", err)
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	if user.PasswordChangedAfter(claims.IssuedAt.Unix()) {
		return nil, common.ErrorUnauthorized
	}

	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users().GetByID(ctx, id)
}

// UpdateDetails changes name, email or photo. Passwords only change through
// the reset flow.
func (s *UserService) UpdateDetails(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	if upd.Password != nil {
		return nil, fmt.Errorf("%w: this route is not for updating the password, please use /reset-password", common.ErrorValidation)
	}
	if upd.Email != nil {
		e := models.NormalizeEmail(*upd.Email)
		upd.Email = &e
	}
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		upd.Name = &n
	}
	if err := models.Validate(upd); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users()
	if upd.Empty() {
		return repo.GetByID(ctx, id)
	}
	return repo.Update(ctx, id, upd)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.repomanager.Users().Delete(ctx, id)
}

func (s *UserService) issue(ctx context.Context, user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error(ctx, "sign token", "error", err)
		return nil, common.ErrorInternal
	}
	return &AuthResult{Token: token, User: user}, nil
}
