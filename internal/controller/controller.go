// Package controller owns a user's list state: it loads the list through the
// gateway, applies actions with the reducer and schedules a persist after
// every change.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pkt.systems/pslog"

	"github.com/idilsaglam/tada/internal/gateway"
	"github.com/idilsaglam/tada/internal/logx"
	"github.com/idilsaglam/tada/internal/model"
)

// ErrNotReady is returned by Dispatch before the list has loaded, or after
// loading failed.
var ErrNotReady = errors.New("list not ready")

// Phase is the controller's lifecycle state.
type Phase int

const (
	Loading Phase = iota
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is a snapshot of the controller.
type State struct {
	Phase Phase
	List  model.List
	Err   error
	// Missing is set when the list started empty because no document existed.
	Missing bool
}

// ListGateway is the part of the gateway the controller needs.
type ListGateway interface {
	FetchInitialList(ctx context.Context, userID string) (model.List, error)
	Persist(ctx context.Context, userID string, list model.List)
}

// Option configures a Controller.
type Option func(*Controller)

// WithAllocator injects the id allocator (tests use this to pin ids).
func WithAllocator(ids *model.Allocator) Option {
	return func(c *Controller) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// AllowMissing makes a missing document load as an empty list (flagged via
// State.Missing) instead of failing. This is the local-only mode.
func AllowMissing(allow bool) Option {
	return func(c *Controller) { c.allowMissing = allow }
}

// WithLogger sets the logger. Without one the context logger is used.
func WithLogger(logger pslog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// Controller drives a single user's list.
type Controller struct {
	userID       string
	gw           ListGateway
	ids          *model.Allocator
	reducer      model.Reducer
	allowMissing bool
	logger       pslog.Logger

	mu    sync.Mutex
	state State
}

// New returns a controller in the Loading phase.
func New(userID string, gw ListGateway, opts ...Option) *Controller {
	c := &Controller{
		userID: userID,
		gw:     gw,
		ids:    model.NewAllocator(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.reducer = model.NewReducer(c.ids)
	return c
}

func (c *Controller) log(ctx context.Context) pslog.Logger {
	return logx.WithUser(logx.Or(ctx, c.logger), c.userID)
}

// Load fetches the initial list and moves to Ready or Failed. It blocks until
// the fetch settles. Calling it outside the Loading phase is a no-op.
func (c *Controller) Load(ctx context.Context) State {
	c.mu.Lock()
	if c.state.Phase != Loading {
		st := c.snapshot()
		c.mu.Unlock()
		return st
	}
	c.mu.Unlock()

	list, err := c.gw.FetchInitialList(ctx, c.userID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != Loading {
		return c.snapshot()
	}
	switch {
	case err == nil:
		c.ids.Observe(list)
		c.state = State{Phase: Ready, List: list.Clone()}
	case c.allowMissing && errors.Is(err, gateway.ErrDocumentNotFound):
		c.state = State{Phase: Ready, List: model.List{}, Missing: true}
	default:
		c.state = State{Phase: Failed, Err: err}
		c.log(ctx).Warn("todo list failed to load", "err", err)
		return c.snapshot()
	}
	c.log(ctx).Debug("todo list ready", "items", len(c.state.List), "missing", c.state.Missing)
	return c.snapshot()
}

// Dispatch applies action to the current list. On success the new list
// becomes current and a persist is scheduled but not awaited. Reducer errors
// leave the state untouched.
func (c *Controller) Dispatch(ctx context.Context, action model.Action) (State, error) {
	c.mu.Lock()
	if c.state.Phase != Ready {
		st := c.snapshot()
		c.mu.Unlock()
		return st, fmt.Errorf("%w (%s)", ErrNotReady, st.Phase)
	}
	next, err := c.reducer.Reduce(c.state.List, action)
	if err != nil {
		st := c.snapshot()
		c.mu.Unlock()
		return st, err
	}
	c.state.List = next
	st := c.snapshot()
	// schedule under the lock so persists are issued in dispatch order
	c.gw.Persist(ctx, c.userID, next)
	c.mu.Unlock()
	return st, nil
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	st := c.state
	if st.List != nil {
		st.List = st.List.Clone()
	}
	return st
}
