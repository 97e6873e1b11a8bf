package client

import (
	"context"

	"github.com/taekwondodev/go-BaaS-Client/internal/dto"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
	"github.com/taekwondodev/go-BaaS-Client/internal/service"
)

// Auth unwraps every auth call into its data or a normalized error.
type Auth struct {
	c *Client
}

func (a *Auth) SignUp(ctx context.Context, email, password string, opts service.SignUpOptions) (*dto.AuthResponse, error) {
	return call(ctx, a.c, "auth.signup", func(ctx context.Context) (*dto.AuthResponse, error) {
		return a.c.auth.SignUp(ctx, email, password, opts)
	})
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	return call(ctx, a.c, "auth.signin", func(ctx context.Context) (*dto.AuthResponse, error) {
		return a.c.auth.SignIn(ctx, email, password)
	})
}

func (a *Auth) SignOut(ctx context.Context) error {
	return run(ctx, a.c, "auth.signout", a.c.auth.SignOut)
}

func (a *Auth) ResetPassword(ctx context.Context, email, redirectTo string) error {
	return run(ctx, a.c, "auth.reset_password", func(ctx context.Context) error {
		return a.c.auth.ResetPassword(ctx, email, redirectTo)
	})
}

func (a *Auth) SignInWithOAuth(ctx context.Context, provider string, opts service.OAuthOptions) (*dto.OAuthResponse, error) {
	return call(ctx, a.c, "auth.oauth", func(ctx context.Context) (*dto.OAuthResponse, error) {
		return a.c.auth.SignInWithOAuth(ctx, provider, opts)
	})
}

func (a *Auth) ExchangeCodeForSession(ctx context.Context, code string) (*dto.AuthResponse, error) {
	return call(ctx, a.c, "auth.exchange_code", func(ctx context.Context) (*dto.AuthResponse, error) {
		return a.c.auth.ExchangeCodeForSession(ctx, code)
	})
}

func (a *Auth) GetSession(ctx context.Context) (*models.Session, error) {
	return call(ctx, a.c, "auth.session", a.c.auth.GetSession)
}

func (a *Auth) RefreshSession(ctx context.Context) (*models.Session, error) {
	return call(ctx, a.c, "auth.refresh", a.c.auth.RefreshSession)
}

func (a *Auth) GetUser(ctx context.Context) (*models.User, error) {
	return call(ctx, a.c, "auth.user", a.c.auth.GetUser)
}

func (a *Auth) UpdateUser(ctx context.Context, attrs dto.UpdateUserRequest) (*models.User, error) {
	return call(ctx, a.c, "auth.update_user", func(ctx context.Context) (*models.User, error) {
		return a.c.auth.UpdateUser(ctx, attrs)
	})
}

func (a *Auth) IsAuthenticated(ctx context.Context) (bool, error) {
	return call(ctx, a.c, "auth.is_authenticated", a.c.auth.IsAuthenticated)
}

// OnAuthStateChange registers l for every auth event and returns the
// function that removes it.
func (a *Auth) OnAuthStateChange(l service.AuthListener) (unsubscribe func()) {
	return a.c.auth.Events().Subscribe(l)
}
