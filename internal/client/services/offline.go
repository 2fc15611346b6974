package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/vposukhov/stockpilot/internal/client/models"
	"github.com/vposukhov/stockpilot/internal/client/repositories/metadata"
	"github.com/vposukhov/stockpilot/internal/client/repositories/users"
	"github.com/vposukhov/stockpilot/internal/common"
	"github.com/vposukhov/stockpilot/internal/cryptox"
	"github.com/vposukhov/stockpilot/internal/logging"
)

// MinPasswordLength is the syntactic threshold for the offline path.
const MinPasswordLength = 6

// OfflineAuthService implements the local authentication path on top of the
// local credential store: sign-in-or-provision, current-session tracking,
// and sign-out.
//
// Unless verifyPasswords is enabled, the password is only length-checked,
// never compared against a stored secret. An existing local email
// authenticates with any password of sufficient length.
type OfflineAuthService struct {
	users           users.Repository
	meta            metadata.Repository
	log             logging.Logger
	verifyPasswords bool
}

func NewOfflineAuthService(userRepo users.Repository, meta metadata.Repository, log logging.Logger, verifyPasswords bool) *OfflineAuthService {
	return &OfflineAuthService{
		users:           userRepo,
		meta:            meta,
		log:             log,
		verifyPasswords: verifyPasswords,
	}
}

// Authenticate validates the credentials syntactically, then signs in the
// local user for email, provisioning a record on first use. The failure is
// always common.ErrInvalidCredentials: callers cannot tell which field was
// rejected.
func (s *OfflineAuthService) Authenticate(ctx context.Context, email string, password []byte) (*models.LocalUser, error) {
	if !common.IsValidEmail(email) || len(password) < MinPasswordLength {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, common.ErrNotFound):
		user, err = s.provision(ctx, email, password)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := s.checkPassword(user, password); err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		if err := s.users.TouchLastSignIn(ctx, user.ID, now); err != nil {
			return nil, err
		}
		user.LastSignIn = now
	}

	if err := s.meta.Set(ctx, common.MetaKeyOfflineSession, []byte(user.ID)); err != nil {
		return nil, fmt.Errorf("failed to persist offline session: %w", err)
	}

	s.log.Info(ctx, "offline sign-in", "email", email)
	return user, nil
}

func (s *OfflineAuthService) provision(ctx context.Context, email string, password []byte) (*models.LocalUser, error) {
	user, err := s.users.Add(ctx, email)
	if err != nil {
		return nil, err
	}

	if s.verifyPasswords {
		salt := common.GenerateRandByteArray(32)
		verifier := cryptox.MakeVerifier(cryptox.DeriveKey(password, salt))
		if err := s.users.SetCredential(ctx, user.ID, salt, verifier); err != nil {
			return nil, err
		}
		user.Salt, user.Verifier = salt, verifier
	}

	s.log.Info(ctx, "provisioned local user", "email", email)
	return user, nil
}

func (s *OfflineAuthService) checkPassword(user *models.LocalUser, password []byte) error {
	if !s.verifyPasswords || len(user.Verifier) == 0 {
		return nil
	}
	candidate := cryptox.MakeVerifier(cryptox.DeriveKey(password, user.Salt))
	if subtle.ConstantTimeCompare(user.Verifier, candidate) == 0 {
		return common.ErrInvalidCredentials
	}
	return nil
}

// CurrentUser resolves the persisted session pointer, or returns (nil, nil)
// when nobody is signed in locally. A dangling pointer is dropped.
func (s *OfflineAuthService) CurrentUser(ctx context.Context) (*models.LocalUser, error) {
	id, err := s.meta.Get(ctx, common.MetaKeyOfflineSession)
	if err != nil {
		return nil, err
	}
	if len(id) == 0 {
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, string(id))
	if errors.Is(err, common.ErrNotFound) {
		_ = s.meta.Delete(ctx, common.MetaKeyOfflineSession)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// IsAuthenticated reports whether an offline session is active.
func (s *OfflineAuthService) IsAuthenticated(ctx context.Context) (bool, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// SignOut clears the session pointer only; the local user record stays in
// the store for future re-authentication. Safe to call when already signed
// out.
func (s *OfflineAuthService) SignOut(ctx context.Context) error {
	return s.meta.Delete(ctx, common.MetaKeyOfflineSession)
}
