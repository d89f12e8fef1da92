// Package gateway moves a user's todo list between memory and the remote
// per-user document (users/<id>, field "todos").
//
// Reads are memoized per user: the first FetchInitialList issues the only
// remote read for that user and every caller, concurrent or later, sees the
// same settled outcome. Writes are fire-and-forget full overwrites; two
// overlapping persists may complete in either order and the last one to land
// wins.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
	"pkt.systems/pslog"

	"github.com/idilsaglam/tada/internal/docstore"
	"github.com/idilsaglam/tada/internal/logx"
	"github.com/idilsaglam/tada/internal/model"
)

const (
	// Collection holds one document per user id.
	Collection = "users"
	// TodosField is the document field carrying the serialized list.
	TodosField = "todos"
)

// Status is the state of a memoized fetch.
type Status int

const (
	// StatusUnknown: no fetch was ever requested for the user.
	StatusUnknown Status = iota
	StatusPending
	StatusOK
	StatusErr
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusOK:
		return "ok"
	case StatusErr:
		return "err"
	}
	return "unknown"
}

// Result is the outcome of a fetch as seen by Peek.
type Result struct {
	Status Status
	List   model.List
	Err    error
}

// PersistEvent reports how a persist ended. Seq orders persists by the time
// they were scheduled, not by completion.
type PersistEvent struct {
	UserID string
	Seq    uint64
	List   model.List
	Err    error
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. Without one the caller's context logger is used.
func WithLogger(logger pslog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// WithPersistObserver registers fn to be called after every persist settles.
// fn runs on the persist goroutine.
func WithPersistObserver(fn func(PersistEvent)) Option {
	return func(g *Gateway) { g.onPersist = fn }
}

// Gateway bridges a docstore.Store and in-memory lists.
type Gateway struct {
	store     docstore.Store
	logger    pslog.Logger
	onPersist func(PersistEvent)

	group   singleflight.Group
	mu      sync.Mutex
	settled map[string]Result
	pending map[string]struct{}
	seq     uint64

	persists sync.WaitGroup
}

// New returns a gateway over store.
func New(store docstore.Store, opts ...Option) *Gateway {
	g := &Gateway{
		store:   store,
		settled: make(map[string]Result),
		pending: make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// FetchInitialList returns the user's persisted list, blocking until the
// remote read settles. ctx bounds only this caller's wait; the read itself is
// never cancelled. A missing document yields ErrDocumentNotFound.
func (g *Gateway) FetchInitialList(ctx context.Context, userID string) (model.List, error) {
	if userID == "" {
		return nil, ErrMissingIdentity
	}
	g.mu.Lock()
	r, ok := g.settled[userID]
	if !ok {
		// visible to Peek before the flight goroutine is scheduled
		g.pending[userID] = struct{}{}
	}
	g.mu.Unlock()
	if ok {
		if r.Err != nil {
			return nil, r.Err
		}
		return r.List.Clone(), nil
	}

	readCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(userID, func() (any, error) {
		return g.fetchOnce(readCtx, userID), nil
	})
	select {
	case res := <-ch:
		r := res.Val.(Result)
		if r.Err != nil {
			return nil, r.Err
		}
		return r.List.Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetchOnce runs under the singleflight key. The settled check is repeated
// here so a caller that raced past the fast path after a flight finished
// still doesn't issue a second read.
func (g *Gateway) fetchOnce(ctx context.Context, userID string) Result {
	g.mu.Lock()
	if r, ok := g.settled[userID]; ok {
		delete(g.pending, userID)
		g.mu.Unlock()
		return r
	}
	g.mu.Unlock()

	log := logx.WithUser(logx.Or(ctx, g.logger), userID)
	log.Debug("fetching todo list")
	list, err := g.read(ctx, userID)
	r := Result{Status: StatusOK, List: list}
	if err != nil {
		r = Result{Status: StatusErr, Err: err}
		if errors.Is(err, ErrDocumentNotFound) {
			log.Info("todo document missing")
		} else {
			log.Error("todo fetch failed", "err", err)
		}
	} else {
		log.Debug("todo list fetched", "items", len(list))
	}

	g.mu.Lock()
	delete(g.pending, userID)
	g.settled[userID] = r
	g.mu.Unlock()
	return r
}

func (g *Gateway) read(ctx context.Context, userID string) (model.List, error) {
	doc, err := g.store.Get(ctx, Collection, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", Collection, userID, ErrDocumentNotFound)
		}
		return nil, &FetchError{UserID: userID, Err: err}
	}
	var list model.List
	if _, err := doc.Field(TodosField, &list); err != nil {
		return nil, &FetchError{UserID: userID, Err: err}
	}
	if err := checkUnique(list); err != nil {
		return nil, &FetchError{UserID: userID, Err: err}
	}
	return list.Clone(), nil
}

func checkUnique(list model.List) error {
	seen := make(map[model.ID]struct{}, len(list))
	for _, it := range list {
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("duplicate todo id %d", it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}

// Peek reports the memoized state for userID without blocking.
func (g *Gateway) Peek(userID string) Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.settled[userID]; ok {
		r.List = r.List.Clone()
		return r
	}
	if _, ok := g.pending[userID]; ok {
		return Result{Status: StatusPending}
	}
	return Result{Status: StatusUnknown}
}

// Invalidate drops a settled outcome so the next fetch reads again. An
// in-flight read is left alone.
func (g *Gateway) Invalidate(userID string) {
	g.mu.Lock()
	delete(g.settled, userID)
	g.mu.Unlock()
}

// Persist overwrites the user's todos with list in the background. It returns
// immediately; failures are logged and reported to the persist observer,
// never retried.
func (g *Gateway) Persist(ctx context.Context, userID string, list model.List) {
	snapshot := list.Clone()
	g.mu.Lock()
	g.seq++
	seq := g.seq
	g.mu.Unlock()

	log := logx.WithUser(logx.Or(ctx, g.logger), userID)
	if userID == "" {
		err := &PersistError{Err: ErrMissingIdentity}
		log.Error("todo persist skipped", "err", err)
		g.notify(PersistEvent{Seq: seq, List: snapshot, Err: err})
		return
	}

	writeCtx := context.WithoutCancel(ctx)
	g.persists.Add(1)
	go func() {
		defer g.persists.Done()
		err := g.write(writeCtx, userID, snapshot)
		if err != nil {
			log.Error("todo persist failed", "seq", seq, "err", err)
		} else {
			log.Debug("todo list persisted", "seq", seq, "items", len(snapshot))
		}
		g.notify(PersistEvent{UserID: userID, Seq: seq, List: snapshot, Err: err})
	}()
}

func (g *Gateway) write(ctx context.Context, userID string, list model.List) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return &PersistError{UserID: userID, Err: err}
	}
	if err := g.store.Set(ctx, Collection, userID, docstore.Fields{TodosField: raw}); err != nil {
		return &PersistError{UserID: userID, Err: err}
	}
	return nil
}

// Create writes an empty list for userID unless a document already exists.
// It is an explicit user action; FetchInitialList never creates documents.
// The memoized outcome for userID is dropped when a document is written.
func (g *Gateway) Create(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, ErrMissingIdentity
	}
	_, err := g.store.Get(ctx, Collection, userID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, docstore.ErrNotFound):
		return false, &FetchError{UserID: userID, Err: err}
	}
	if err := g.write(ctx, userID, model.List{}); err != nil {
		return false, err
	}
	g.Invalidate(userID)
	logx.WithUser(logx.Or(ctx, g.logger), userID).Info("todo document created")
	return true, nil
}

func (g *Gateway) notify(ev PersistEvent) {
	if g.onPersist != nil {
		g.onPersist(ev)
	}
}

// Wait blocks until every scheduled persist has settled.
func (g *Gateway) Wait() {
	g.persists.Wait()
}
