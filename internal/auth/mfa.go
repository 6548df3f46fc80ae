package auth

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// GenerateMFAKey creates a fresh TOTP key for enrollment. The key's URL is
// rendered as a QR code (or shown as text) on the setup screen; the secret
// is only persisted once the user confirms a valid code.
func GenerateMFAKey(issuer, accountName string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
}

// ValidateMFACode checks a submitted one-time code against a TOTP secret.
func ValidateMFACode(code, secret string) bool {
	return totp.Validate(code, secret)
}

// VerifyMFALogin validates a one-time code during the login challenge for an
// enrolled user. Returns ErrMFANotEnrolled when the user has no confirmed
// secret and ErrInvalidMFACode on mismatch.
func (s *Service) VerifyMFALogin(userID uint64, code string) error {
	secret, err := s.mfaSecret(userID)
	if err != nil {
		return err
	}

	if secret == "" {
		return ErrMFANotEnrolled
	}

	if !ValidateMFACode(code, secret) {
		return ErrInvalidMFACode
	}

	return nil
}

func (s *Service) mfaSecret(userID uint64) (string, error) {
	var row struct {
		MFASecret  string
		MFAEnabled bool
	}

	err := s.db.Table("users").
		Select("mfa_secret, mfa_enabled").
		Where("id = ?", userID).
		Take(&row).Error
	if err != nil {
		return "", err
	}

	if !row.MFAEnabled {
		return "", nil
	}

	return row.MFASecret, nil
}
