package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	TOTPPeriod = 30
	// TOTPSkew accepts codes from ±2 time steps to absorb authenticator clock drift.
	TOTPSkew = 2
)

var totpOpts = totp.ValidateOpts{
	Period:    TOTPPeriod,
	Skew:      TOTPSkew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// VerifyMFAToken validates a 6-digit TOTP code against a base32 secret at the current time.
func VerifyMFAToken(token, secret string) bool {
	return VerifyMFATokenAt(token, secret, time.Now())
}

// VerifyMFATokenAt validates a TOTP code as of t.
func VerifyMFATokenAt(token, secret string, t time.Time) bool {
	token = strings.TrimSpace(token)
	if len(token) != 6 || !isNumeric(token) || secret == "" {
		return false
	}

	valid, err := totp.ValidateCustom(token, normalizeSecret(secret), t.UTC(), totpOpts)
	if err != nil {
		return false
	}
	return valid
}

// GenerateMFAToken returns the code for secret at t. Used by the setup tool to
// confirm enrolment.
func GenerateMFAToken(secret string, t time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(normalizeSecret(secret), t.UTC(), totp.ValidateOpts{
		Period:    TOTPPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP code: %w", err)
	}
	return code, nil
}

// MFAEnrollment is a freshly generated TOTP secret with its provisioning artefacts.
type MFAEnrollment struct {
	Secret string // base32
	URL    string // otpauth:// provisioning URL
	QRCode []byte // PNG
}

// GenerateSecretWithQR creates a new TOTP secret and a QR code for authenticator apps.
func GenerateSecretWithQR(issuer, accountName string) (*MFAEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		SecretSize:  32, // 256 bits
		Period:      TOTPPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	qr, err := qrcode.New(key.URL(), qrcode.Highest)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return &MFAEnrollment{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: png,
	}, nil
}

// normalizeSecret accepts secrets copied with spaces or in lower case.
func normalizeSecret(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
