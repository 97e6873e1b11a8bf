package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
	"github.com/taekwondodev/go-BaaS-Client/internal/dto"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
)

// GoTrue speaks the auth REST API mounted at <service URL>/auth/v1.
type GoTrue interface {
	SignUp(ctx context.Context, req dto.PasswordRequest, redirectTo string) (*dto.TokenResponse, error)
	SignInWithPassword(ctx context.Context, req dto.PasswordRequest) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	ExchangeCode(ctx context.Context, req dto.PKCERequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Recover(ctx context.Context, req dto.RecoverRequest, redirectTo string) error
	GetUser(ctx context.Context, accessToken string) (*models.User, error)
	UpdateUser(ctx context.Context, accessToken string, req dto.UpdateUserRequest) (*models.User, error)
	AuthorizeURL(provider, redirectTo, scopes, codeChallenge string) string
}

type goTrue struct {
	baseURL    string
	apiKey     string
	clientInfo string
	http       *http.Client
}

func NewGoTrue(baseURL, apiKey, clientInfo string, timeout time.Duration) GoTrue {
	return &goTrue{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		clientInfo: clientInfo,
		http:       &http.Client{Timeout: timeout},
	}
}

// legacy GoTrue versions only send a description
var legacyErrorCodes = map[string]string{
	"Invalid login credentials":             customerrors.CodeInvalidCredentials,
	"Email not confirmed":                   customerrors.CodeEmailNotConfirmed,
	"Signups not allowed for this instance": customerrors.CodeSignupDisabled,
	"User already registered":               customerrors.CodeUserAlreadyExists,
}

func (g *goTrue) SignUp(ctx context.Context, req dto.PasswordRequest, redirectTo string) (*dto.TokenResponse, error) {
	path := "/signup"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	var raw json.RawMessage
	if err := g.do(ctx, http.MethodPost, path, "", req, &raw); err != nil {
		return nil, err
	}

	// with email confirmation on, the body is the bare user
	var res dto.TokenResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	if res.AccessToken == "" && res.User == nil {
		var user models.User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, fmt.Errorf("decode signup user: %w", err)
		}
		res.User = &user
	}
	return &res, nil
}

func (g *goTrue) SignInWithPassword(ctx context.Context, req dto.PasswordRequest) (*dto.TokenResponse, error) {
	var res dto.TokenResponse
	if err := g.do(ctx, http.MethodPost, "/token?grant_type=password", "", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (g *goTrue) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	var res dto.TokenResponse
	body := dto.RefreshTokenRequest{RefreshToken: refreshToken}
	if err := g.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (g *goTrue) ExchangeCode(ctx context.Context, req dto.PKCERequest) (*dto.TokenResponse, error) {
	var res dto.TokenResponse
	if err := g.do(ctx, http.MethodPost, "/token?grant_type=pkce", "", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (g *goTrue) Logout(ctx context.Context, accessToken string) error {
	return g.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

func (g *goTrue) Recover(ctx context.Context, req dto.RecoverRequest, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return g.do(ctx, http.MethodPost, path, "", req, nil)
}

func (g *goTrue) GetUser(ctx context.Context, accessToken string) (*models.User, error) {
	var user models.User
	if err := g.do(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *goTrue) UpdateUser(ctx context.Context, accessToken string, req dto.UpdateUserRequest) (*models.User, error) {
	var user models.User
	if err := g.do(ctx, http.MethodPut, "/user", accessToken, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *goTrue) AuthorizeURL(provider, redirectTo, scopes, codeChallenge string) string {
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	if scopes != "" {
		q.Set("scopes", scopes)
	}
	if codeChallenge != "" {
		q.Set("code_challenge", codeChallenge)
		q.Set("code_challenge_method", "s256")
	}
	return g.baseURL + "/authorize?" + q.Encode()
}

func (g *goTrue) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}

	bearer := accessToken
	if bearer == "" {
		bearer = g.apiKey
	}
	req.Header.Set("apikey", g.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("X-Client-Info", g.clientInfo)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read auth response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeBackendError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}

func decodeBackendError(status int, data []byte) error {
	var res dto.ErrorResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return &customerrors.BackendError{Status: status, Message: strings.TrimSpace(string(data))}
	}

	message := firstNonEmpty(res.Msg, res.Message, res.ErrorDescription, res.Error)

	code := res.ErrorCode
	if code == "" {
		if c, ok := res.Code.(string); ok {
			code = c
		}
	}
	if code == "" {
		code = legacyErrorCodes[message]
	}
	if code == "" {
		code = res.Error
	}

	return &customerrors.BackendError{Status: status, Code: code, Message: message}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
