// Package guard gates protected screens behind the session state and keeps
// the gate re-evaluated across navigation.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/cabanalodge/adminctl/internal/model"
	"go.uber.org/zap"
)

// State is the guard's own machine, distinct from the session state.
//
//	INIT -> CHECKING -> {AUTHED, ANON}
//	AUTHED: on route change -> CHECKING
//	ANON:   redirect issued; left only after a fresh sign-in
type State int

const (
	StateInit State = iota
	StateChecking
	StateAuthed
	StateAnon
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthed:
		return "authed"
	case StateAnon:
		return "anon"
	default:
		return "init"
	}
}

// Render is the guard's verdict on what the front end may show.
type Render int

const (
	// RenderSkeleton: show the placeholder; the session is still unknown.
	RenderSkeleton Render = iota
	// RenderNothing: show nothing; a redirect to sign-in is in flight.
	RenderNothing
	// RenderContent: show the protected content.
	RenderContent
)

// Session is the slice of the session store the guard needs.
type Session interface {
	State() model.State
	Resolve(ctx context.Context)
	SessionExpiry() (time.Time, bool)
}

// Navigator receives the redirect issued for unauthenticated viewers.
type Navigator interface {
	NavigateToSignIn()
}

// NavigatorFunc adapts a plain function to the Navigator interface.
type NavigatorFunc func()

func (f NavigatorFunc) NavigateToSignIn() { f() }

// Options configures a Guard.
type Options struct {
	Session   Session
	Navigator Navigator
	Logger    *zap.Logger

	// RecheckInterval floors revalidation coalescing: a route change always
	// revalidates when this much time has passed since the last completed
	// check, whatever the credential expiry says. Defaults to 30s.
	RecheckInterval time.Duration
	// ExpiryMargin is how close to the credential expiry a route change stops
	// being skippable. Defaults to 1m.
	ExpiryMargin time.Duration

	now func() time.Time // test hook
}

// Guard wraps protected screens. It asks the session store to resolve on
// start, revalidates on every route change, and answers Render so callers
// never show protected content while the session is unknown.
type Guard struct {
	mu        sync.Mutex
	state     State
	ready     bool // hydration flag, set exactly once by Start
	stopped   bool
	route     string
	lastCheck time.Time

	sess    Session
	nav     Navigator
	log     *zap.Logger
	recheck time.Duration
	margin  time.Duration
	now     func() time.Time
}

// New builds a Guard in StateInit.
func New(opts Options) *Guard {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	recheck := opts.RecheckInterval
	if recheck <= 0 {
		recheck = 30 * time.Second
	}
	margin := opts.ExpiryMargin
	if margin <= 0 {
		margin = time.Minute
	}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	return &Guard{
		state:   StateInit,
		sess:    opts.Session,
		nav:     opts.Navigator,
		log:     log,
		recheck: recheck,
		margin:  margin,
		now:     now,
	}
}

// Start marks the guard ready (the hydration step, once) and kicks the first
// session resolution in the background. Until that resolution completes,
// Render answers RenderSkeleton.
func (g *Guard) Start(ctx context.Context) {
	g.mu.Lock()
	if g.ready {
		g.mu.Unlock()
		return
	}
	g.ready = true
	g.state = StateChecking
	g.mu.Unlock()

	go g.check(ctx)
}

// RouteChanged records a navigation inside the protected area and
// revalidates the session, unless the previous check is recent and the
// session credential is comfortably far from expiry.
func (g *Guard) RouteChanged(ctx context.Context, route string) {
	g.mu.Lock()
	g.route = route
	if g.state == StateAuthed && g.skippable() {
		g.mu.Unlock()
		g.log.Debug("revalidation coalesced", zap.String("route", route))
		return
	}
	g.state = StateChecking
	g.mu.Unlock()

	go g.check(ctx)
}

// skippable is called with g.mu held.
func (g *Guard) skippable() bool {
	if g.now().Sub(g.lastCheck) >= g.recheck {
		return false
	}
	exp, ok := g.sess.SessionExpiry()
	return ok && exp.Sub(g.now()) > g.margin
}

// Stop makes the guard ignore any late-arriving resolution. Idempotent.
func (g *Guard) Stop() {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()
}

// check resolves the session and settles the machine. A result that lands
// after Stop is dropped on the floor.
func (g *Guard) check(ctx context.Context) {
	g.sess.Resolve(ctx)

	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.lastCheck = g.now()
	redirect := false
	switch g.sess.State() {
	case model.StateAuthenticated:
		g.state = StateAuthed
	default:
		redirect = g.state != StateAnon
		g.state = StateAnon
	}
	route := g.route
	g.mu.Unlock()

	if redirect {
		g.log.Info("no session, redirecting to sign-in", zap.String("route", route))
		if g.nav != nil {
			g.nav.NavigateToSignIn()
		}
	}
}

// State returns the guard machine state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Render reports what may be shown right now. The rule follows the session
// state, so content keeps rendering during a route-change revalidation of a
// still-authenticated session and is pulled the moment the session drops.
func (g *Guard) Render() Render {
	g.mu.Lock()
	ready := g.ready
	g.mu.Unlock()

	if !ready {
		return RenderSkeleton
	}
	switch g.sess.State() {
	case model.StateAuthenticated:
		return RenderContent
	case model.StateUnauthenticated:
		return RenderNothing
	default:
		return RenderSkeleton
	}
}
