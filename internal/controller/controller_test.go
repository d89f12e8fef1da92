package controller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/idilsaglam/tada/internal/docstore"
	"github.com/idilsaglam/tada/internal/gateway"
	"github.com/idilsaglam/tada/internal/model"
)

type fakeGateway struct {
	list     model.List
	err      error
	fetched  chan struct{}
	release  chan struct{}
	mu       sync.Mutex
	persists []model.List
}

func (f *fakeGateway) FetchInitialList(ctx context.Context, userID string) (model.List, error) {
	if f.fetched != nil {
		close(f.fetched)
	}
	if f.release != nil {
		<-f.release
	}
	return f.list, f.err
}

func (f *fakeGateway) Persist(ctx context.Context, userID string, list model.List) {
	f.mu.Lock()
	f.persists = append(f.persists, list)
	f.mu.Unlock()
}

func (f *fakeGateway) persisted() []model.List {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.List(nil), f.persists...)
}

type noopAction struct{}

func (noopAction) Tag() string { return "NOOP" }

func TestStartsLoadingAndRejectsActions(t *testing.T) {
	gw := &fakeGateway{fetched: make(chan struct{}), release: make(chan struct{})}
	c := New("u1", gw)
	if st := c.State(); st.Phase != Loading {
		t.Fatalf("expected loading, got %v", st.Phase)
	}

	done := make(chan State)
	go func() { done <- c.Load(context.Background()) }()
	<-gw.fetched
	if _, err := c.Dispatch(context.Background(), model.Add{Text: "early"}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady while loading, got %v", err)
	}
	close(gw.release)
	if st := <-done; st.Phase != Ready {
		t.Fatalf("expected ready, got %v", st.Phase)
	}
	if len(gw.persisted()) != 0 {
		t.Fatalf("rejected action must not persist")
	}
}

func TestLoadFailure(t *testing.T) {
	boom := &gateway.FetchError{UserID: "u1", Err: errors.New("offline")}
	gw := &fakeGateway{err: boom}
	c := New("u1", gw)

	st := c.Load(context.Background())
	if st.Phase != Failed || !errors.Is(st.Err, gateway.ErrFetchFailed) {
		t.Fatalf("expected failed with fetch error, got %+v", st)
	}
	if _, err := c.Dispatch(context.Background(), model.Add{Text: "x"}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady after failure, got %v", err)
	}
	// Load again doesn't leave Failed
	if st := c.Load(context.Background()); st.Phase != Failed {
		t.Fatalf("expected failed to stick, got %v", st.Phase)
	}
}

func TestMissingDocumentFailsInRemoteMode(t *testing.T) {
	gw := &fakeGateway{err: gateway.ErrDocumentNotFound}
	st := New("u2", gw).Load(context.Background())
	if st.Phase != Failed || !errors.Is(st.Err, gateway.ErrDocumentNotFound) {
		t.Fatalf("expected Failed(DocumentNotFound), got %+v", st)
	}
}

func TestMissingDocumentIsFlaggedInLocalMode(t *testing.T) {
	gw := &fakeGateway{err: gateway.ErrDocumentNotFound}
	st := New("u2", gw, AllowMissing(true)).Load(context.Background())
	if st.Phase != Ready || !st.Missing || len(st.List) != 0 {
		t.Fatalf("expected flagged empty ready state, got %+v", st)
	}
}

func TestUnknownActionKeepsState(t *testing.T) {
	gw := &fakeGateway{list: model.List{{ID: 1, Text: "a"}}}
	c := New("u1", gw)
	c.Load(context.Background())

	st, err := c.Dispatch(context.Background(), noopAction{})
	var ua *model.UnknownActionError
	if !errors.As(err, &ua) || ua.Tag != "NOOP" {
		t.Fatalf("expected UnknownAction(NOOP), got %v", err)
	}
	if st.Phase != Ready || len(st.List) != 1 {
		t.Fatalf("state changed: %+v", st)
	}
	if len(gw.persisted()) != 0 {
		t.Fatalf("unknown action must not persist")
	}
}

func TestNewIDsSkipLoadedOnes(t *testing.T) {
	gw := &fakeGateway{list: model.List{{ID: 5, Text: "a"}, {ID: 2, Text: "b"}}}
	c := New("u1", gw)
	c.Load(context.Background())

	st, err := c.Dispatch(context.Background(), model.Add{Text: "c"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := st.List[2].ID; got != 6 {
		t.Fatalf("expected id 6, got %d", got)
	}
}

func TestStateIsACopy(t *testing.T) {
	gw := &fakeGateway{list: model.List{{ID: 1, Text: "a"}}}
	c := New("u1", gw)
	st := c.Load(context.Background())
	st.List[0].Text = "scribbled"
	if c.State().List[0].Text != "a" {
		t.Fatalf("snapshot aliases controller state")
	}
}

func TestEndToEndWithGateway(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()
	if err := store.Set(ctx, gateway.Collection, "u1", docstore.Fields{gateway.TodosField: json.RawMessage(`[]`)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var (
		mu       sync.Mutex
		persists []model.List
	)
	gw := gateway.New(store, gateway.WithPersistObserver(func(ev gateway.PersistEvent) {
		mu.Lock()
		persists = append(persists, ev.List)
		mu.Unlock()
	}))
	c := New("u1", gw)

	st := c.Load(ctx)
	if st.Phase != Ready || len(st.List) != 0 || st.Missing {
		t.Fatalf("expected Ready([]), got %+v", st)
	}

	st, err := c.Dispatch(ctx, model.Add{Text: "buy milk"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	want := model.List{{ID: 1, Text: "buy milk"}}
	if !st.List.Equal(want) {
		t.Fatalf("expected %+v, got %+v", want, st.List)
	}
	gw.Wait()
	mu.Lock()
	if len(persists) != 1 || !persists[0].Equal(want) {
		t.Fatalf("expected persist of %+v, got %+v", want, persists)
	}
	mu.Unlock()

	st, err = c.Dispatch(ctx, model.Remove{Item: model.Item{ID: 1, Text: "buy milk"}})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(st.List) != 0 {
		t.Fatalf("expected empty list, got %+v", st.List)
	}
	gw.Wait()
	mu.Lock()
	defer mu.Unlock()
	if len(persists) != 2 || len(persists[1]) != 0 {
		t.Fatalf("expected second persist of [], got %+v", persists)
	}

	doc, err := store.Get(ctx, gateway.Collection, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(doc.Fields[gateway.TodosField]) != "[]" {
		t.Fatalf("expected stored [], got %s", doc.Fields[gateway.TodosField])
	}
}

func TestEndToEndMissingDocument(t *testing.T) {
	gw := gateway.New(docstore.NewMemory())
	st := New("u2", gw).Load(context.Background())
	if st.Phase != Failed || !errors.Is(st.Err, gateway.ErrDocumentNotFound) {
		t.Fatalf("expected Failed(DocumentNotFound), got %+v", st)
	}
}
