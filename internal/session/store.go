// Package session owns the client's authentication state and is the single
// chokepoint for authenticated requests to the remote API.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cabanalodge/adminctl/internal/errs"
	"github.com/cabanalodge/adminctl/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultLoginTimeout bounds a login/register attempt when Options does not.
const DefaultLoginTimeout = 10 * time.Second

// Navigator receives the redirect issued when the session ends.
type Navigator interface {
	NavigateToSignIn()
}

// NavigatorFunc adapts a plain function to the Navigator interface.
type NavigatorFunc func()

func (f NavigatorFunc) NavigateToSignIn() { f() }

// Options configures a Store.
type Options struct {
	// BaseURL is the root of the remote API, e.g. "https://api.example.com".
	BaseURL string
	// Navigator is told to go to the sign-in screen on logout/expiry. Optional.
	Navigator Navigator
	// Logger defaults to a nop logger.
	Logger *zap.Logger
	// LoginTimeout bounds login/register attempts. Defaults to DefaultLoginTimeout.
	LoginTimeout time.Duration
	// HTTPClient, when set, is used for all requests; its Jar is replaced.
	HTTPClient *http.Client
	// Jar carries the session cookie. Defaults to an in-memory jar.
	Jar http.CookieJar
}

// Store is the single source of truth for who is signed in and the sole
// authority for issuing authenticated requests. Methods are safe for
// concurrent use; when resolutions overlap, the most recently completed
// one wins and stale completions are discarded.
type Store struct {
	mu       sync.Mutex
	state    model.State
	identity *model.Identity
	loading  bool
	gen      uint64 // last resolution started
	done     uint64 // last resolution applied

	base         *url.URL
	client       *http.Client
	jar          http.CookieJar
	nav          Navigator
	log          *zap.Logger
	loginTimeout time.Duration
}

// New builds a Store. The session starts in StateUnknown with the loading
// flag up, mirroring a fresh page load before the first resolution.
func New(opts Options) (*Store, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", opts.BaseURL)
	}

	jar := opts.Jar
	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	client.Jar = jar

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	lt := opts.LoginTimeout
	if lt <= 0 {
		lt = DefaultLoginTimeout
	}

	return &Store{
		state:        model.StateUnknown,
		loading:      true,
		base:         base,
		client:       client,
		jar:          jar,
		nav:          opts.Navigator,
		log:          log,
		loginTimeout: lt,
	}, nil
}

// State returns the current session state.
func (s *Store) State() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns a copy of the signed-in identity, or nil.
func (s *Store) Identity() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	cp := *s.identity
	return &cp
}

// Loading reports whether a resolution or auth attempt is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Resolve asks the API who the ambient session belongs to and settles the
// state accordingly. It never returns an error: any failure becomes
// StateUnauthenticated. The loading flag drops exactly once per call, when
// its resolution is applied or discarded.
func (s *Store) Resolve(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.mu.Unlock()

	s.apply(gen, s.fetchIdentity(ctx))
}

// fetchIdentity calls GET /auth/me. Nil means "no session", whatever the cause.
func (s *Store) fetchIdentity(ctx context.Context) *model.Identity {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("/auth/me"), nil)
	if err != nil {
		return nil
	}
	s.decorate(req)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Debug("whoami failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil
	}
	var id model.Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		s.log.Debug("whoami decode failed", zap.Error(err))
		return nil
	}
	return &id
}

// apply commits a resolution under the last-completed-wins rule.
func (s *Store) apply(gen uint64, id *model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen < s.done {
		s.log.Debug("stale resolution discarded", zap.Uint64("gen", gen))
		return
	}
	s.done = gen
	if id != nil {
		s.state = model.StateAuthenticated
		s.identity = id
	} else {
		s.state = model.StateUnauthenticated
		s.identity = nil
	}
	if gen == s.gen {
		s.loading = false
	}
}

// Login exchanges credentials for a session cookie. The attempt is bounded by
// the login timeout; every failure comes back as an Outcome, never an error.
func (s *Store) Login(ctx context.Context, email, password string) model.Outcome {
	if email == "" || password == "" {
		return model.Outcome{Message: "email and password are required"}
	}
	return s.authenticate(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Register creates an account and signs it in on success.
func (s *Store) Register(ctx context.Context, name, email, password string) model.Outcome {
	if name == "" || email == "" || password == "" {
		return model.Outcome{Message: "name, email and password are required"}
	}
	return s.authenticate(ctx, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
}

func (s *Store) authenticate(ctx context.Context, path string, creds map[string]string) model.Outcome {
	s.setLoading(true)
	defer s.setLoading(false)

	ctx, cancel := context.WithTimeout(ctx, s.loginTimeout)
	defer cancel()

	body, err := json.Marshal(creds)
	if err != nil {
		return s.settle(model.Outcome{Message: "could not build the request"})
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return s.settle(model.Outcome{Message: "could not build the request"})
	}
	req.Header.Set("Content-Type", "application/json")
	s.decorate(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.settle(outcomeFromTransport(err))
	}
	defer resp.Body.Close()

	var env model.Envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.FailureMessage()
		if msg == "" {
			if resp.StatusCode == http.StatusUnauthorized {
				msg = "invalid email or password"
			} else {
				msg = fmt.Sprintf("the server reported an error (HTTP %d)", resp.StatusCode)
			}
		}
		return s.settle(model.Outcome{Message: msg})
	}
	if decodeErr != nil || len(env.Data) == 0 {
		s.log.Warn("malformed auth response", zap.String("path", path), zap.Error(decodeErr))
		return s.settle(model.Outcome{Message: "unexpected response from the server"})
	}
	var id model.Identity
	if err := json.Unmarshal(env.Data, &id); err != nil {
		s.log.Warn("malformed identity in auth response", zap.Error(err))
		return s.settle(model.Outcome{Message: "unexpected response from the server"})
	}

	s.mu.Lock()
	s.state = model.StateAuthenticated
	s.identity = &id
	s.mu.Unlock()

	s.log.Info("signed in", zap.Int64("user", id.ID), zap.String("role", id.Role))
	return model.Outcome{Success: true, Identity: &id}
}

// settle pins the state after a failed attempt so it is never left Unknown
// once the call resolves.
func (s *Store) settle(out model.Outcome) model.Outcome {
	s.mu.Lock()
	if s.state == model.StateUnknown {
		s.state = model.StateUnauthenticated
	}
	s.mu.Unlock()
	return out
}

// Logout tears the session down. The remote call is best-effort: local state
// clears and the navigator fires regardless of the remote outcome.
func (s *Store) Logout(ctx context.Context) {
	if req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("/auth/logout"), nil); err == nil {
		s.decorate(req)
		if resp, err := s.client.Do(req); err != nil {
			s.log.Warn("remote logout failed", zap.Error(err))
		} else {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}

	s.mu.Lock()
	s.state = model.StateUnauthenticated
	s.identity = nil
	s.loading = false
	s.mu.Unlock()
	s.dropCookies()

	if s.nav != nil {
		s.nav.NavigateToSignIn()
	}
}

// expire performs the logout teardown in response to an authorization
// failure. The navigator fires only on the Authenticated -> Unauthenticated
// transition, so concurrent 401s redirect once.
func (s *Store) expire() {
	s.mu.Lock()
	was := s.state
	s.state = model.StateUnauthenticated
	s.identity = nil
	s.loading = false
	s.mu.Unlock()
	s.dropCookies()

	if was == model.StateAuthenticated {
		s.log.Info("session expired, returning to sign-in")
		if s.nav != nil {
			s.nav.NavigateToSignIn()
		}
	}
}

// RequestOption mutates an outgoing request before it is sent.
type RequestOption func(*http.Request)

// WithHeader sets a header on the request.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// APIError carries a non-success response for the caller to interpret.
type APIError struct {
	Status   int
	Envelope model.Envelope
}

func (e *APIError) Error() string {
	if msg := e.Envelope.FailureMessage(); msg != "" {
		return fmt.Sprintf("api: %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
}

// Do issues an authenticated request and returns the raw JSON body. The
// ambient session cookie rides along on every call, uploads included. A 401
// triggers the same teardown as Logout before the error is returned, so one
// stale session cannot leave the rest of the UI looking signed in. Other
// non-2xx statuses come back as *APIError; transport failures are wrapped
// with the errs sentinels.
func (s *Store) Do(ctx context.Context, method, path string, body io.Reader, opts ...RequestOption) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	s.decorate(req)
	for _, opt := range opts {
		opt(req)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, wrapTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrBadResponse, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		s.expire()
		return nil, fmt.Errorf("%s %s: %w", method, path, errs.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", method, path, errs.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		var env model.Envelope
		_ = json.Unmarshal(raw, &env)
		return nil, &APIError{Status: resp.StatusCode, Envelope: env}
	}
	return raw, nil
}

// SessionExpiry reports when the session credential lapses, provided the
// session cookie value is a JWT with a readable exp claim. The token is not
// verified here (only the server can do that); the expiry is used purely to
// skip redundant revalidation.
func (s *Store) SessionExpiry() (time.Time, bool) {
	for _, c := range s.jar.Cookies(s.base) {
		var claims jwt.RegisteredClaims
		if _, _, err := jwt.NewParser().ParseUnverified(c.Value, &claims); err != nil {
			continue
		}
		if claims.ExpiresAt != nil {
			return claims.ExpiresAt.Time, true
		}
	}
	return time.Time{}, false
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// decorate attaches per-request metadata. Credentials are not set here: the
// session cookie comes from the client jar.
func (s *Store) decorate(req *http.Request) {
	if id, err := uuid.NewV4(); err == nil {
		req.Header.Set("X-Request-ID", id.String())
	}
	req.Header.Set("Accept", "application/json")
}

func (s *Store) endpoint(path string) string {
	return strings.TrimRight(s.base.String(), "/") + path
}

// dropCookies expires everything held for the API origin.
func (s *Store) dropCookies() {
	for _, c := range s.jar.Cookies(s.base) {
		s.jar.SetCookies(s.base, []*http.Cookie{{Name: c.Name, Value: "", MaxAge: -1}})
	}
}

func outcomeFromTransport(err error) model.Outcome {
	switch {
	case isTimeout(err):
		return model.Outcome{Message: "the request timed out, try again"}
	case errors.Is(err, context.Canceled):
		return model.Outcome{Message: "the request was cancelled"}
	default:
		return model.Outcome{Message: "cannot reach the server, check your connection"}
	}
}

func wrapTransport(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", errs.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}
