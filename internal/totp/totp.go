// Package totp implements time-based one-time password enrollment and
// verification for the 2FA-gated route tier. Secrets and hashed recovery
// codes live in the gateway store; verification itself happens here.
package totp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/theceo1/trustbank-gateway/internal/models"
	"github.com/theceo1/trustbank-gateway/internal/redis"
)

const (
	// RecoveryCodeCount is how many single-use codes an enrollment issues.
	RecoveryCodeCount = 8
	// recoveryCodeLength is the length of each recovery code.
	recoveryCodeLength = 10
)

// codePattern is the required shape of a one-time code: 6 numeric digits.
var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Errors returned by verification.
var (
	// ErrNotEnrolled is returned when the user has no TOTP secret.
	ErrNotEnrolled = errors.New("user has not enrolled a one-time password secret")
	// ErrInvalidCode is returned when a presented code fails verification.
	ErrInvalidCode = errors.New("invalid one-time code")
)

// Service owns TOTP enrollment and verification.
type Service struct {
	store  redis.Store
	issuer string
	logger *logrus.Logger
}

// NewService creates a TOTP service. The issuer appears in authenticator
// apps next to the account name.
func NewService(store redis.Store, issuer string, logger *logrus.Logger) *Service {
	return &Service{
		store:  store,
		issuer: issuer,
		logger: logger,
	}
}

// Enroll generates a fresh secret and recovery codes for a user. The plain
// recovery codes are returned exactly once; only bcrypt hashes are stored.
// Re-enrolling replaces any previous secret.
func (s *Service) Enroll(ctx context.Context, userID string) (*models.TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	codes := make([]string, RecoveryCodeCount)
	hashes := make([]string, RecoveryCodeCount)
	for i := range codes {
		code, codeErr := randomCode(recoveryCodeLength)
		if codeErr != nil {
			return nil, fmt.Errorf("failed to generate recovery code: %w", codeErr)
		}
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if hashErr != nil {
			return nil, fmt.Errorf("failed to hash recovery code: %w", hashErr)
		}
		codes[i] = code
		hashes[i] = string(hash)
	}

	if err := s.store.StoreTOTPSecret(ctx, userID, key.Secret()); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceRecoveryCodes(ctx, userID, hashes); err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", userID).Info("TOTP enrollment created")

	return &models.TOTPEnrollment{
		Secret:        key.Secret(),
		OTPAuthURL:    key.URL(),
		RecoveryCodes: codes,
	}, nil
}

// Verify checks a 6-digit one-time code against the user's secret.
// Malformed codes fail without a store lookup.
func (s *Service) Verify(ctx context.Context, userID, code string) error {
	if !codePattern.MatchString(code) {
		return ErrInvalidCode
	}

	secret, err := s.store.GetTOTPSecret(ctx, userID)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return ErrNotEnrolled
		}
		return err
	}

	if !totp.Validate(code, secret) {
		return ErrInvalidCode
	}
	return nil
}

// VerifyRecoveryCode checks a single-use recovery code and consumes it on
// success.
func (s *Service) VerifyRecoveryCode(ctx context.Context, userID, code string) error {
	hashes, err := s.store.GetRecoveryCodes(ctx, userID)
	if err != nil {
		return err
	}

	for i, hash := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil {
			remaining := append(hashes[:i:i], hashes[i+1:]...)
			if replaceErr := s.store.ReplaceRecoveryCodes(ctx, userID, remaining); replaceErr != nil {
				return replaceErr
			}
			s.logger.WithFields(logrus.Fields{
				"user_id":   userID,
				"remaining": len(remaining),
			}).Info("Recovery code consumed")
			return nil
		}
	}

	return ErrInvalidCode
}

// Enrolled reports whether the user has a TOTP secret on file.
func (s *Service) Enrolled(ctx context.Context, userID string) (bool, error) {
	_, err := s.store.GetTOTPSecret(ctx, userID)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Unenroll removes the user's secret and recovery codes.
func (s *Service) Unenroll(ctx context.Context, userID string) error {
	return s.store.DeleteTOTPSecret(ctx, userID)
}

// randomCode generates an uppercase alphanumeric code of the given length.
func randomCode(length int) (string, error) {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, b := range buf {
		sb.WriteByte(charset[int(b)%len(charset)])
	}
	return sb.String(), nil
}
