// Package docserver exposes a docstore.Store over HTTP so several clients can
// share per-user documents.
package docserver

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"pkt.systems/pslog"

	"github.com/idilsaglam/tada/internal/docstore"
)

const maxBody = 4 << 20

// ownerCollection holds one token binding per document. Collections starting
// with "_" are not reachable over HTTP.
const ownerCollection = "_owners"

// Server routes document reads and writes to a backing store.
//
// The first PUT to a document binds the request's bearer token to it; later
// reads and writes of that document must present the same token. Documents
// never written through the server are readable without a token.
type Server struct {
	store  docstore.Store
	logger pslog.Logger
	router *mux.Router

	bindMu sync.Mutex
}

// New builds a server over store. logger may be nil.
func New(store docstore.Store, logger pslog.Logger) *Server {
	s := &Server{store: store, logger: logger}
	r := mux.NewRouter()
	r.Use(s.accessLog)
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.health)
	r.Methods(http.MethodGet).Path("/v1/{collection}/{id}").HandlerFunc(s.getDocument)
	r.Methods(http.MethodPut).Path("/v1/{collection}/{id}").HandlerFunc(s.putDocument)
	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	s.log(ctx).Info("docserver listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		_ = httpServer.Close()
		return err
	}
	s.log(ctx).Info("docserver stopped")
	return nil
}

func (s *Server) log(ctx context.Context) pslog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return pslog.Ctx(ctx)
}

func (s *Server) accessLog(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		m := httpsnoop.CaptureMetrics(handler, writer, request)
		s.log(request.Context()).Info("handled",
			"method", request.Method,
			"url", request.URL.String(),
			"duration", m.Duration,
			"status", m.Code,
			"bytes", m.Written,
		)
	})
}

func (s *Server) health(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(writer, "ok")
}

func (s *Server) getDocument(writer http.ResponseWriter, request *http.Request) {
	vars := mux.Vars(request)
	collection, id := vars["collection"], vars["id"]
	if status := s.authorize(request, collection, id, false); status != http.StatusOK {
		writer.WriteHeader(status)
		return
	}
	doc, err := s.store.Get(request.Context(), collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writer.WriteHeader(http.StatusNotFound)
			return
		}
		s.log(request.Context()).Error("failed to read document", "collection", collection, "id", id, "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(doc.Fields); err != nil {
		s.log(request.Context()).Error("failed to write out", "err", err)
	}
}

func (s *Server) putDocument(writer http.ResponseWriter, request *http.Request) {
	vars := mux.Vars(request)
	collection, id := vars["collection"], vars["id"]
	var fields docstore.Fields
	if err := json.NewDecoder(io.LimitReader(request.Body, maxBody)).Decode(&fields); err != nil || fields == nil {
		http.Error(writer, "invalid json object", http.StatusBadRequest)
		return
	}
	if status := s.authorize(request, collection, id, true); status != http.StatusOK {
		writer.WriteHeader(status)
		return
	}
	if err := s.store.Set(request.Context(), collection, id, fields); err != nil {
		s.log(request.Context()).Error("failed to write document", "collection", collection, "id", id, "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

// authorize checks the bearer token against the document's binding and binds
// it on the first write. It returns http.StatusOK when the request may proceed.
func (s *Server) authorize(request *http.Request, collection, id string, write bool) int {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return http.StatusBadRequest
	}
	if strings.HasPrefix(collection, "_") {
		return http.StatusNotFound
	}
	ctx := request.Context()
	token := bearerToken(request)
	key := collection + ":" + id

	s.bindMu.Lock()
	defer s.bindMu.Unlock()
	doc, err := s.store.Get(ctx, ownerCollection, key)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		if !write {
			return http.StatusOK
		}
		if token == "" {
			return http.StatusUnauthorized
		}
		raw, _ := json.Marshal(tokenHash(token))
		if err := s.store.Set(ctx, ownerCollection, key, docstore.Fields{"token_sha256": raw}); err != nil {
			s.log(ctx).Error("failed to bind token", "collection", collection, "id", id, "err", err)
			return http.StatusInternalServerError
		}
		s.log(ctx).Info("document owner bound", "collection", collection, "id", id)
		return http.StatusOK
	case err != nil:
		s.log(ctx).Error("failed to read owner", "collection", collection, "id", id, "err", err)
		return http.StatusInternalServerError
	}

	var want string
	if _, err := doc.Field("token_sha256", &want); err != nil {
		s.log(ctx).Error("failed to decode owner", "collection", collection, "id", id, "err", err)
		return http.StatusInternalServerError
	}
	if token == "" {
		return http.StatusUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(tokenHash(token)), []byte(want)) != 1 {
		return http.StatusForbidden
	}
	return http.StatusOK
}

func bearerToken(request *http.Request) string {
	h := strings.TrimSpace(request.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
