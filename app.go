package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	cleanups       []func()
	closers        []func() error
	workers        []func(context.Context) error
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	config, err := LoadAndInitConfigs("./config.yml", "./config.env", GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	// ensure the logs folder exists and Setup the logging module.
	err = os.MkdirAll(config.LogFolder, 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	clock := NewClock(config.IsProduction)
	logFile := NewRotatingLogFile(config, clock)
	logger, flusher := SetupLogging(config, logFile, clock)

	app := &App{
		logger: logger,
		config: config,
		cleanups: []func(){
			func() { _ = flusher() },
			func() {
				if cerr := logFile.Close(); cerr != nil {
					fmt.Println("error during closing of log file: ", cerr)
				}
			},
		},
	}

	// Setup the client of the libros backend.
	librosClient := NewLibrosClient(config.Backend.BaseURL, &http.Client{Timeout: config.Backend.Timeout})

	// Setup the writes journal pipeline if enabled.
	var queue Queuer
	var journal JournalStorage
	if config.Journal.Enable {
		redisClient, err := GetRedisClient(config)
		if err != nil {
			app.Clean()
			return nil, fmt.Errorf("failed to connect to redis server: %s", err)
		}
		app.closers = append(app.closers, redisClient.Close)

		boltDBClient, err := GetBoltDBClient(config)
		if err != nil {
			_ = redisClient.Close()
			app.Clean()
			return nil, fmt.Errorf("failed to connect to boltDB server: %s", err)
		}
		boltJournal := NewBoltJournalStorage(logger, &config.BoltDB, boltDBClient)
		app.closers = append(app.closers, boltJournal.Close)
		if n, cerr := boltJournal.Count(context.Background()); cerr == nil {
			logger.Info("journal storage opened", zap.String("boltdb.path", config.BoltDB.FilePath), zap.Int("journal.events", n))
		}

		queue = NewRedisQueue(redisClient)
		journal = boltJournal
		consumer := NewJournalConsumer(logger, queue, journal)
		app.workers = append(app.workers, func(ctx context.Context) error {
			return consumer.Consume(ctx, JournalQueues...)
		})
	}

	ids := NewIDsHandler()
	bookService := NewBookService(logger, clock, ids, librosClient, queue)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		ids,
		bookService,
		journal,
	)

	// Forget idle callers of the rate limiter in background.
	if limiter := apiService.limiter; limiter != nil {
		app.workers = append(app.workers, func(ctx context.Context) error {
			return limiter.Run(ctx, logger, config.RateLimit.IdleTimeout)
		})
	}

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	// Build the api server definition.
	app.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}

	logger.Info("app initialized",
		zap.String("backend.url", librosClient.BaseURL()),
		zap.Bool("journal.enabled", config.Journal.Enable),
		zap.Bool("ratelimit.enabled", config.RateLimit.Enable),
	)
	return app, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.run(nCtx)
}

// run serves until nCtx is done or a goroutine of the group fails.
func (app *App) run(nCtx context.Context) error {
	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.StartWorkers(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.Close()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Close releases the journal resources. It must run once all workers returned.
func (app *App) Close() {
	for _, closer := range app.closers {
		if cerr := closer(); cerr != nil {
			app.logger.Error("failed to close journal resource", zap.Error(cerr))
		}
	}
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
		)
		err := app.server.ListenAndServe()
		if err == http.ErrServerClosed {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch err {
		case nil, http.ErrServerClosed:
			app.logger.Info("api server graceful shutdown succeeded")
		case context.DeadlineExceeded:
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		return nil
	}
}

// StartWorkers runs all background workers (queue consumers, limiter sweeper)
// into separate controlled goroutines.
func (app *App) StartWorkers(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, work := range app.workers {
			work := work
			g.Go(func() error {
				return work(gCtx)
			})
		}
		return nil
	}
}
