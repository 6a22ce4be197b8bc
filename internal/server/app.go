// Package server wires configuration, key material, storage and the HTTP API
// into a runnable application.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/securefiles/internal/contentstore"
	"github.com/dmitrijs2005/securefiles/internal/cryptox"
	"github.com/dmitrijs2005/securefiles/internal/logging"
	"github.com/dmitrijs2005/securefiles/internal/server/config"
	"github.com/dmitrijs2005/securefiles/internal/server/httpapi"
	"github.com/dmitrijs2005/securefiles/internal/server/metrics"
	"github.com/dmitrijs2005/securefiles/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/securefiles/internal/server/services"
)

// openDB is a seam for tests.
var openDB = repomanager.OpenDB

// Components are the long-lived dependencies shared by the server and the
// operator CLI.
type Components struct {
	Config      *config.Config
	Logger      logging.Logger
	Metrics     *metrics.Metrics
	Cipher      *cryptox.Cipher
	Store       contentstore.Store
	DB          *sql.DB
	RepoManager repomanager.RepositoryManager
	Files       *services.SecureFileService

	closers []func() error
}

// NewCipher builds the cipher from the configured secrets and reports
// fallback use and failures to m. Bad key material fails with
// common.ErrConfiguration.
func NewCipher(c *config.Config, logger logging.Logger, m *metrics.Metrics) (*cryptox.Cipher, error) {
	ring, err := c.KeyRing()
	if err != nil {
		return nil, err
	}
	return cryptox.NewCipher(ring,
		cryptox.WithLogger(logger),
		cryptox.WithFallbackHook(func(_ context.Context, position int) {
			m.FallbackDecryptions.WithLabelValues(strconv.Itoa(position)).Inc()
		}),
		cryptox.WithFailureHook(func(context.Context) {
			m.DecryptionFailures.Inc()
		}),
	)
}

// Bootstrap builds every component from c. Key material is checked before
// anything touches the network. On error everything opened so far is closed.
func Bootstrap(ctx context.Context, c *config.Config) (_ *Components, err error) {
	logger, err := logging.New(c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	m, err := metrics.New(nil)
	if err != nil {
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	cipher, err := NewCipher(c, logger, m)
	if err != nil {
		return nil, err
	}

	comp := &Components{
		Config:      c,
		Logger:      logger,
		Metrics:     m,
		Cipher:      cipher,
		RepoManager: repomanager.NewPostgresRepositoryManager(),
	}
	defer func() {
		if err != nil {
			_ = comp.Close()
		}
	}()

	store, closeStore, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}
	comp.Store = store
	comp.closers = append(comp.closers, closeStore)

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	comp.DB = db
	comp.closers = append(comp.closers, db.Close)

	comp.Files = services.NewSecureFileService(db, comp.RepoManager, cipher, store, logger,
		services.WithMetrics(m),
		services.WithStorageTimeout(c.StorageTimeout),
		services.WithMaxUploadSize(c.MaxUploadSize),
	)

	return comp, nil
}

// Close releases the database and the content store.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

// App is the HTTP server process.
type App struct {
	components *Components
	logger     logging.Logger
	config     *config.Config
	jwtKey     []byte
}

// NewApp checks the bearer token secret and then bootstraps the components.
// A missing or weak secret fails with common.ErrConfiguration before
// anything is opened.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	jwtKey, err := c.JWTKey()
	if err != nil {
		return nil, err
	}
	comp, err := Bootstrap(ctx, c)
	if err != nil {
		return nil, err
	}
	return &App{components: comp, logger: comp.Logger, config: c, jwtKey: jwtKey}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.components.Files,
		string(app.jwtKey), app.config.MaxUploadSize, app.components.Metrics.Handler())

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Run migrates the schema, serves HTTP until a signal arrives and closes
// every component on the way out. A server that cannot serve (for example
// a busy port) makes Run return its error.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer func() {
		if err := app.components.Close(); err != nil {
			app.logger.Error(ctx, "close failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting app...", "storage", app.components.Store.Provider())

	if err := app.components.RepoManager.RunMigrations(ctx, app.components.DB); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var (
		wg      sync.WaitGroup
		httpErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		httpErr = app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	return httpErr
}
