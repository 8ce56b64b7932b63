package backend

import "encoding/json"

// Envelope wraps every backend response.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Endpoint paths.
const (
	PathLogin          = "/auth/login"
	PathRegister       = "/auth/register"
	PathProviderPrefix = "/auth/"
	PathForgotPassword = "/auth/forgot-password"
	PathResetPassword  = "/auth/reset-password"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProviderLoginRequest struct {
	OpaqueCredential string `json:"opaqueCredential"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	NewPassword        string `json:"newPassword"`
	NewPasswordConfirm string `json:"newPasswordConfirm"`
}
