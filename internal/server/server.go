package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/gorilla/handlers"

	"github.com/Brownie44l1/catdog-api/internal/config"
	apihandlers "github.com/Brownie44l1/catdog-api/internal/handlers"
	"github.com/Brownie44l1/catdog-api/internal/model"
	"github.com/Brownie44l1/catdog-api/internal/storage"
)

// Run loads every model, then serves until ctx is cancelled.
func Run(ctx context.Context, opts *config.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	log := logr.FromContextOrDiscard(ctx)

	runtime, err := model.NewRuntime(ctx, opts.OnnxLib)
	if err != nil {
		return err
	}
	defer runtime.Close()

	registry, err := model.LoadRegistry(ctx, opts.ModelDir, runtime.Load)
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Close(); err != nil {
			log.Error(err, "failed to close models")
		}
	}()

	store, err := storage.NewStore(ctx, opts.Storage)
	if err != nil {
		return fmt.Errorf("init upload storage: %w", err)
	}

	handler := NewHandler(log, registry, model.NewDispatcher(opts.Workers, opts.InferenceTimeout), store, opts)

	server := &http.Server{
		Addr:    opts.Listen,
		Handler: handler,
		// requests keep the logger but are not cancelled by the shutdown signal, so they can drain
		BaseContext: func(l net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
	listener, err := net.Listen("tcp", opts.Listen)
	if err != nil {
		return err
	}

	log.Info("server listening", "http", opts.Listen, "models", registry.Names(), "workers", opts.Workers)
	return serve(ctx, server, listener, opts.ShutdownTimeout)
}

// serve runs server on listener until ctx is cancelled and returns only once in-flight
// requests have drained or the timeout has passed.
func serve(ctx context.Context, server *http.Server, listener net.Listener, timeout time.Duration) error {
	log := logr.FromContextOrDiscard(ctx)

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()

		shutdownCtx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, timeout)
			defer cancel()
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error(err, "graceful shutdown incomplete, closing connections")
			server.Close()
		}
	}()

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-drained
	return nil
}

// NewHandler builds the routed handler with access logging, CORS and panic recovery.
func NewHandler(log logr.Logger, registry *model.Registry, dispatcher *model.Dispatcher, store storage.Store, opts *config.Options) http.Handler {
	h := apihandlers.NewHandler(registry, dispatcher, store, apihandlers.Options{
		MaxUploadSize: opts.MaxUploadSize,
		KeepUploads:   opts.KeepUploads,
	})

	var handler http.Handler = h.Routes()
	handler = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(handler)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log: log}),
	)(handler)
	return handlers.CombinedLoggingHandler(os.Stdout, handler)
}

type recoveryLogger struct {
	log logr.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error(fmt.Errorf("%v", fmt.Sprint(v...)), "recovered from panic")
}

// NewLogger returns the stdr-backed logger used by the server.
func NewLogger() logr.Logger {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return stdr.NewWithOptions(log.Default(), stdr.Options{LogCaller: stdr.Error})
}
