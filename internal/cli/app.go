package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pkt.systems/pslog"

	"github.com/idilsaglam/tada/internal/appconfig"
	"github.com/idilsaglam/tada/internal/auth"
	"github.com/idilsaglam/tada/internal/controller"
	"github.com/idilsaglam/tada/internal/docstore"
	"github.com/idilsaglam/tada/internal/gateway"
	"github.com/idilsaglam/tada/internal/logx"
	"github.com/idilsaglam/tada/internal/store/httpstore"
	"github.com/idilsaglam/tada/internal/store/jsonstore"
	"github.com/idilsaglam/tada/internal/store/sqlitestore"
)

// app wires config, identity, store and gateway for one command run.
type app struct {
	cfg    appconfig.Config
	creds  *auth.Store
	ident  auth.Identity
	store  docstore.Store
	gw     *gateway.Gateway
	logger pslog.Logger
	ctx    context.Context

	closeStore func() error
}

type appOptions struct {
	logOut    io.Writer
	gwOptions []gateway.Option
}

func openApp(ctx context.Context, flags *rootFlags, opt appOptions) (*app, error) {
	cfg, err := appconfig.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if opt.logOut == nil {
		opt.logOut = os.Stderr
	}
	logger := pslog.NewWithOptions(opt.logOut, logx.Options(cfg.Logging.Level, cfg.Logging.Structured))
	ctx = pslog.ContextWithLogger(ctx, logger)

	a := &app{
		cfg:    cfg,
		creds:  auth.NewStore(cfg.Auth.Dir),
		logger: logger,
		ctx:    ctx,
	}

	// Anonymous sign-in on boot; a failure leaves the app without identity and
	// the gateway reports it.
	token := ""
	ti, err := a.creds.SignInAnonymously()
	if err != nil {
		logger.Warn("anonymous sign-in failed", "err", err)
	} else {
		a.ident, token = ti, ti.Token
	}
	if id := a.userID(); id != "" {
		a.ctx = logx.ContextWithUser(a.ctx, id)
	}

	store, closer, err := openStore(cfg.Store.Backend, cfg, token)
	if err != nil {
		return nil, err
	}
	a.store, a.closeStore = store, closer

	gwOpts := append([]gateway.Option{gateway.WithLogger(logger)}, opt.gwOptions...)
	a.gw = gateway.New(store, gwOpts...)
	return a, nil
}

// openStore builds the document store for backend.
func openStore(backend string, cfg appconfig.Config, token string) (docstore.Store, func() error, error) {
	noop := func() error { return nil }
	switch backend {
	case appconfig.BackendFile:
		s, err := jsonstore.New(cfg.DataDir)
		return s, noop, err
	case appconfig.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o700); err != nil {
			return nil, nil, fmt.Errorf("mkdir: %w", err)
		}
		s, err := sqlitestore.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case appconfig.BackendHTTP:
		s, err := httpstore.New(cfg.Store.URL, httpstore.WithToken(token))
		return s, noop, err
	case appconfig.BackendMemory:
		return docstore.NewMemory(), noop, nil
	}
	return nil, nil, fmt.Errorf("unsupported store backend %q", backend)
}

// userID is empty when no identity could be established.
func (a *app) userID() string {
	if a.ident == nil {
		return ""
	}
	id, _ := a.ident.CurrentUserID()
	return id
}

// controller returns a controller for the signed-in user.
func (a *app) controller() *controller.Controller {
	return controller.New(a.userID(), a.gw,
		controller.AllowMissing(!a.cfg.Sync.Remote),
		controller.WithLogger(a.logger),
	)
}

// load returns a Ready controller or the load error.
func (a *app) load() (*controller.Controller, controller.State, error) {
	c := a.controller()
	st := c.Load(a.ctx)
	if st.Phase != controller.Ready {
		return c, st, st.Err
	}
	return c, st, nil
}

// Close waits for background persists, then releases the store.
func (a *app) Close() error {
	a.gw.Wait()
	if a.closeStore != nil {
		return a.closeStore()
	}
	return nil
}
