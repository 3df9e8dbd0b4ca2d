package models

import (
	"errors"
	"strings"
)

// AdminRole is the role store record attached to an administrative
// principal. A user without a record holds no admin privileges.
type AdminRole struct {
	// Name is the role name, e.g. "admin" or "super_admin".
	Name string `json:"name"`
	// Permissions enumerates the granted permission strings.
	Permissions []string `json:"permissions"`
}

// IsAdmin reports whether the role grants admin console access.
func (r *AdminRole) IsAdmin() bool {
	return r != nil && (r.Name == "admin" || r.Name == "super_admin")
}

// LoginRequest carries user credentials for sign-in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login request fields.
func (req *LoginRequest) Validate() error {
	if strings.TrimSpace(req.Email) == "" {
		return errors.New("email is required")
	}
	if req.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// RefreshRequest exchanges a refresh token for a rotated session.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate checks the refresh request fields.
func (req *RefreshRequest) Validate() error {
	if req.RefreshToken == "" {
		return errors.New("refresh token is required")
	}
	return nil
}

// LoginResponse is returned on successful sign-in.
type LoginResponse struct {
	Session *Session `json:"session"`
	Message string   `json:"message"`
}

// LogoutResponse is returned on sign-out.
type LogoutResponse struct {
	Message string `json:"message"`
}

// RefreshResponse is returned on successful token rotation.
type RefreshResponse struct {
	Session *Session `json:"session"`
	Message string   `json:"message"`
}

// TOTPEnrollment is returned when a user enrolls a TOTP secret.
type TOTPEnrollment struct {
	// Secret is the base32-encoded shared secret for authenticator apps.
	Secret string `json:"secret"`
	// OTPAuthURL is the otpauth:// provisioning URI.
	OTPAuthURL string `json:"otpauth_url"`
	// RecoveryCodes are single-use fallback codes, shown once.
	RecoveryCodes []string `json:"recovery_codes"`
}
