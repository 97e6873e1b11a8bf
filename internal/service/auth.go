package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
	"github.com/taekwondodev/go-BaaS-Client/internal/dto"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
	"github.com/taekwondodev/go-BaaS-Client/internal/repository"
	"github.com/taekwondodev/go-BaaS-Client/pkg"
	"golang.org/x/oauth2"
)

// RefreshMargin is how close to expiry a stored session is refreshed on read.
const RefreshMargin = 10 * time.Second

const FlowPKCE = "pkce"

type AuthService interface {
	SignUp(ctx context.Context, email, password string, opts SignUpOptions) (*dto.AuthResponse, error)
	SignIn(ctx context.Context, email, password string) (*dto.AuthResponse, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email, redirectTo string) error
	SignInWithOAuth(ctx context.Context, provider string, opts OAuthOptions) (*dto.OAuthResponse, error)
	ExchangeCodeForSession(ctx context.Context, code string) (*dto.AuthResponse, error)
	GetSession(ctx context.Context) (*models.Session, error)
	RefreshSession(ctx context.Context) (*models.Session, error)
	GetUser(ctx context.Context) (*models.User, error)
	UpdateUser(ctx context.Context, attrs dto.UpdateUserRequest) (*models.User, error)
	IsAuthenticated(ctx context.Context) (bool, error)
	Events() *Events
}

type SignUpOptions struct {
	Data            map[string]any
	EmailRedirectTo string
}

type OAuthOptions struct {
	RedirectTo string
	Scopes     string
}

type AuthOptions struct {
	AutoRefresh bool
	FlowType    string
	RedirectURL string
	Debug       bool
}

// pendingFlow is a PKCE verifier waiting for its code. At most one OAuth and
// one recovery flow are pending at a time.
type pendingFlow struct {
	verifier string
	recovery bool
}

type authService struct {
	gotrue   GoTrue
	sessions repository.SessionStore
	tokens   repository.TokenStore
	revoked  repository.RevocationList
	jwt      pkg.Token
	events   *Events
	opts     AuthOptions
	log      *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending []*pendingFlow
}

func NewAuth(
	gotrue GoTrue,
	sessions repository.SessionStore,
	tokens repository.TokenStore,
	revoked repository.RevocationList,
	jwt pkg.Token,
	opts AuthOptions,
	log *slog.Logger,
) AuthService {
	if revoked == nil {
		revoked = repository.NoopRevocationList()
	}
	s := &authService{
		gotrue:   gotrue,
		sessions: sessions,
		tokens:   tokens,
		revoked:  revoked,
		jwt:      jwt,
		events:   NewEvents(),
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
	if opts.Debug {
		s.events.Subscribe(LogAuthEvents(log))
	}
	return s
}

func (s *authService) Events() *Events {
	return s.events
}

func (s *authService) SignUp(ctx context.Context, email, password string, opts SignUpOptions) (*dto.AuthResponse, error) {
	res, err := s.gotrue.SignUp(ctx, dto.PasswordRequest{
		Email:    email,
		Password: password,
		Data:     opts.Data,
	}, opts.EmailRedirectTo)
	if err != nil {
		return nil, err
	}

	if res.AccessToken == "" {
		return &dto.AuthResponse{User: res.User}, nil
	}
	return s.establish(ctx, res, models.EventSignedIn)
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	res, err := s.gotrue.SignInWithPassword(ctx, dto.PasswordRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, res, models.EventSignedIn)
}

// SignOut ends the remote session, revokes the access token until it expires
// and clears the local session and token.
func (s *authService) SignOut(ctx context.Context) error {
	session, err := s.sessions.LoadSession(ctx)
	if err != nil {
		return err
	}

	if session != nil && session.AccessToken != "" {
		if err := s.gotrue.Logout(ctx, session.AccessToken); err != nil && !isSessionGone(err) {
			return err
		}
		if err := s.revoked.RevokeToken(ctx, session.AccessToken, session.ExpiresAt); err != nil {
			s.log.Warn("failed to revoke access token", "error", err)
		}
	}

	if err := s.clear(ctx); err != nil {
		return err
	}
	s.events.Emit(models.EventSignedOut, nil)
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, email, redirectTo string) error {
	if redirectTo == "" {
		redirectTo = s.opts.RedirectURL
	}

	req := dto.RecoverRequest{Email: email}
	if s.opts.FlowType == FlowPKCE {
		verifier := oauth2.GenerateVerifier()
		req.CodeChallenge = oauth2.S256ChallengeFromVerifier(verifier)
		req.CodeChallengeMethod = "s256"
		s.setPending(&pendingFlow{verifier: verifier, recovery: true})
	}

	return s.gotrue.Recover(ctx, req, redirectTo)
}

// SignInWithOAuth returns the provider authorize URL. In the PKCE flow the
// code verifier is kept until ExchangeCodeForSession.
func (s *authService) SignInWithOAuth(_ context.Context, provider string, opts OAuthOptions) (*dto.OAuthResponse, error) {
	if provider == "" {
		return nil, customerrors.ErrBadRequest
	}

	redirectTo := opts.RedirectTo
	if redirectTo == "" {
		redirectTo = s.opts.RedirectURL
	}

	var challenge string
	if s.opts.FlowType == FlowPKCE {
		verifier := oauth2.GenerateVerifier()
		challenge = oauth2.S256ChallengeFromVerifier(verifier)
		s.setPending(&pendingFlow{verifier: verifier})
	}

	return &dto.OAuthResponse{
		Provider: provider,
		URL:      s.gotrue.AuthorizeURL(provider, redirectTo, opts.Scopes, challenge),
	}, nil
}

// ExchangeCodeForSession tries the pending verifiers newest first; a verifier
// the backend rejects is skipped for the next one.
func (s *authService) ExchangeCodeForSession(ctx context.Context, code string) (*dto.AuthResponse, error) {
	s.mu.Lock()
	candidates := slices.Clone(s.pending)
	s.mu.Unlock()

	if code == "" || len(candidates) == 0 {
		return nil, customerrors.ErrBadRequest
	}

	var lastErr error
	for _, pending := range candidates {
		res, err := s.gotrue.ExchangeCode(ctx, dto.PKCERequest{
			AuthCode:     code,
			CodeVerifier: pending.verifier,
		})
		if err != nil {
			if !isVerifierRejected(err) {
				return nil, err
			}
			lastErr = err
			continue
		}

		s.dropPending(pending)

		event := models.EventSignedIn
		if pending.recovery {
			event = models.EventPasswordRecovery
		}
		return s.establish(ctx, res, event)
	}

	return nil, lastErr
}

// GetSession returns the stored session or nil. A revoked session is
// discarded; one about to expire is refreshed when auto refresh is on.
func (s *authService) GetSession(ctx context.Context) (*models.Session, error) {
	session, err := s.sessions.LoadSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}

	revoked, err := s.revoked.IsTokenRevoked(ctx, session.AccessToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		s.log.Debug("stored session was revoked")
		return nil, s.clear(ctx)
	}

	if s.opts.AutoRefresh && session.ExpiresWithin(s.now(), RefreshMargin) {
		return s.refresh(ctx, session)
	}
	return session, nil
}

func (s *authService) RefreshSession(ctx context.Context) (*models.Session, error) {
	session, err := s.sessions.LoadSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || session.RefreshToken == "" {
		return nil, customerrors.ErrUnauthorized
	}
	return s.refresh(ctx, session)
}

func (s *authService) GetUser(ctx context.Context) (*models.User, error) {
	session, err := s.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, customerrors.ErrUnauthorized
	}
	return s.gotrue.GetUser(ctx, session.AccessToken)
}

func (s *authService) UpdateUser(ctx context.Context, attrs dto.UpdateUserRequest) (*models.User, error) {
	session, err := s.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, customerrors.ErrUnauthorized
	}

	user, err := s.gotrue.UpdateUser(ctx, session.AccessToken, attrs)
	if err != nil {
		return nil, err
	}

	session.User = user
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	s.events.Emit(models.EventUserUpdated, session)
	return user, nil
}

func (s *authService) IsAuthenticated(ctx context.Context) (bool, error) {
	session, err := s.GetSession(ctx)
	if err != nil {
		return false, err
	}
	return session != nil && session.AccessToken != "", nil
}

func (s *authService) refresh(ctx context.Context, current *models.Session) (*models.Session, error) {
	res, err := s.gotrue.RefreshToken(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}

	if res.User == nil {
		res.User = current.User
	}
	session, err := s.toSession(res)
	if err != nil {
		return nil, err
	}

	if err := s.store(ctx, session); err != nil {
		return nil, err
	}
	s.events.Emit(models.EventTokenRefreshed, session)
	return session, nil
}

func (s *authService) establish(ctx context.Context, res *dto.TokenResponse, event models.AuthEvent) (*dto.AuthResponse, error) {
	session, err := s.toSession(res)
	if err != nil {
		return nil, err
	}

	if err := s.store(ctx, session); err != nil {
		return nil, err
	}
	s.events.Emit(event, session)

	return &dto.AuthResponse{User: session.User, Session: session}, nil
}

// toSession checks the access token and fills the expiry and user from its
// claims when the response leaves them out.
func (s *authService) toSession(res *dto.TokenResponse) (*models.Session, error) {
	claims, err := s.jwt.ParseJWT(res.AccessToken)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		ExpiresIn:    res.ExpiresIn,
		User:         res.User,
	}

	switch {
	case res.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(res.ExpiresAt, 0)
	case res.ExpiresIn > 0:
		session.ExpiresAt = s.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	case claims.ExpiresAt != nil:
		session.ExpiresAt = claims.ExpiresAt.Time
	}

	if session.User == nil {
		id, err := claims.UserID()
		if err != nil {
			return nil, err
		}
		session.User = &models.User{ID: id, Email: claims.Email, Role: claims.Role}
	}

	return session, nil
}

func (s *authService) store(ctx context.Context, session *models.Session) error {
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return err
	}
	return s.tokens.SetToken(ctx, session.AccessToken)
}

func (s *authService) clear(ctx context.Context) error {
	if err := s.sessions.DeleteSession(ctx); err != nil {
		return err
	}
	return s.tokens.DeleteToken(ctx)
}

// setPending replaces the pending flow of the same kind.
func (s *authService) setPending(p *pendingFlow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = slices.DeleteFunc(s.pending, func(f *pendingFlow) bool {
		return f.recovery == p.recovery
	})
	s.pending = append([]*pendingFlow{p}, s.pending...)
}

func (s *authService) dropPending(p *pendingFlow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = slices.DeleteFunc(s.pending, func(f *pendingFlow) bool {
		return f == p
	})
}

// isVerifierRejected reports a code exchange refused for this verifier.
func isVerifierRejected(err error) bool {
	var backendErr *customerrors.BackendError
	if !errors.As(err, &backendErr) {
		return false
	}
	return backendErr.Status == 400 || backendErr.Status == 403 || backendErr.Status == 404
}

// isSessionGone reports a logout rejected because the session already ended.
func isSessionGone(err error) bool {
	var backendErr *customerrors.BackendError
	if !errors.As(err, &backendErr) {
		return false
	}
	return backendErr.Status == 401 || backendErr.Status == 403 || backendErr.Status == 404
}
