package gateway

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds login and MFA request bodies
const maxBodyBytes = 16 << 10

// LoginRequest is the body of POST /admin-login
type LoginRequest struct {
	Username string `json:"username" validate:"max=128"`
	Password string `json:"password" validate:"required,max=72"`
}

// MFARequest is the body of POST /admin-mfa
type MFARequest struct {
	Token string `json:"token" validate:"required,len=6,numeric"`
}

var validate = validator.New()

var errEmptyBody = errors.New("empty request body")

// decodeBody reads a JSON object that is either sent as-is or base64-encoded
// by the edge envelope
func decodeBody(r *http.Request, dst interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(raw) > maxBodyBytes {
		return fmt.Errorf("request body too large")
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return errEmptyBody
	}

	if raw[0] != '{' {
		decoded, err := base64.StdEncoding.DecodeString(string(raw))
		if err != nil {
			decoded, err = base64.RawURLEncoding.DecodeString(string(raw))
		}
		if err != nil {
			return fmt.Errorf("request body is neither JSON nor base64")
		}
		raw = bytes.TrimSpace(decoded)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// ValidateRequest validates a request struct and returns the first field error
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return fmt.Errorf("validation failed: %s: %s", ve[0].Field(), formatValidationError(ve[0]))
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "numeric":
		return "must contain digits only"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
