package dto

import "github.com/taekwondodev/go-BaaS-Client/internal/models"

// TokenResponse is returned by the token and signup endpoints. Signup with
// email confirmation enabled returns only the user fields.
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// ErrorResponse covers both GoTrue error layouts (msg/error_code and
// error/error_description) and the storage layout (statusCode/error/message).
type ErrorResponse struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type AuthResponse struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

type OAuthResponse struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
