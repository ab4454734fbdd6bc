package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sourcegraph/conc/pool"

	server "github.com/kazz187/taskboard/internal"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/event"
	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/internal/pushnotification"
	pushsubrepo "github.com/kazz187/taskboard/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/taskboard/internal/task"
	taskrepo "github.com/kazz187/taskboard/internal/task/repositoryimpl"
	"github.com/kazz187/taskboard/internal/task/taskserver"
	"github.com/kazz187/taskboard/pkg/clog"
	"github.com/kazz187/taskboard/pkg/panicerr"
	"github.com/kazz187/taskboard/pkg/storage"
)

var (
	app  = kingpin.New("taskboard-server", "Task board server: task API and live change events.")
	host = app.Flag("host", "Address to bind to (overrides TASKBOARD_HTTP_HOST).").String()
	port = app.Flag("port", "Port to bind to (overrides TASKBOARD_HTTP_PORT).").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}
	if *host != "" {
		env.HTTPHost = *host
	}
	if *port != "" {
		env.HTTPPort = *port
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewConnectTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	if err := run(env); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(env *config.Env) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Setup storage
	store, err := openStorage(ctx, config.StorageEnvFromEnv(env))
	if err != nil {
		return err
	}
	taskRepo, closeRepo, err := openTaskRepository(ctx, config.StorageEnvFromEnv(env), store)
	if err != nil {
		return err
	}
	defer closeRepo()

	// Setup event bus and task service
	bus := eventbus.New()
	taskService := task.NewService(taskRepo, bus)

	// Setup push notification
	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)
	pushSender := pushnotification.NewSender(vapidEnv, pushSubRepo, nil)
	pushNotificationServer := pushnotification.NewServer(vapidEnv, pushSubRepo, pushSender)
	pushDispatcher := pushnotification.NewDispatcher(bus, pushSender)

	srv := server.NewServer(
		config.BaseEnvFromEnv(env),
		taskserver.NewServer(taskService),
		event.NewServer(bus, env.BufferSize),
		pushNotificationServer,
	)
	if env.APIKey == "" {
		slog.Warn("TASKBOARD_API_KEY is empty, authentication disabled")
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(panicerr.SafeContext(func(ctx context.Context) error {
		pushDispatcher.Start(ctx)
		return nil
	}))
	p.Go(panicerr.SafeContext(func(ctx context.Context) error {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}))
	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		slog.Info("shutting down server")
		// Give active connections time to finish after stream contexts are cancelled.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	return p.Wait()
}

func openStorage(ctx context.Context, env *config.StorageEnv) (storage.Storage, error) {
	switch env.Type {
	case "s3":
		s, err := storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		return s, nil
	default:
		s, err := storage.NewLocalStorage(env.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		return s, nil
	}
}

// openTaskRepository picks the task store. Push subscriptions always live in
// the object store; only tasks move to SQLite.
func openTaskRepository(ctx context.Context, env *config.StorageEnv, store storage.Storage) (task.Repository, func(), error) {
	if env.Type != "sqlite" {
		return taskrepo.NewYAMLRepository(store), func() {}, nil
	}
	repo, err := taskrepo.OpenSQLite(ctx, env.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using sqlite task store", "path", env.SQLitePath)
	return repo, func() {
		if err := repo.Close(); err != nil {
			slog.Error("failed to close sqlite database", "error", err)
		}
	}, nil
}
