package main

import (
	"embed"
	"html/template"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

//go:embed views/*.html
var viewsFS embed.FS

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// Maintenance holds app maintenance mode infos.
type Maintenance struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	message string
	started time.Time
}

// APIHandler defines the API handler.
type APIHandler struct {
	logger      *zap.Logger
	config      *Config
	stats       *Statistics
	mode        *Maintenance
	clock       Clocker
	idsHandler  UIDHandler
	views       *template.Template
	limiter     *IPRateLimiter
	bookService BookServiceProvider
	journal     JournalStorage
}

// NewAPIHandler provides a new instance of APIHandler. The journal may be nil
// when the writes journal is disabled.
func NewAPIHandler(
	logger *zap.Logger,
	config *Config,
	stats *Statistics,
	clock Clocker,
	ids UIDHandler,
	bs BookServiceProvider,
	journal JournalStorage,
) *APIHandler {
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}
	api := &APIHandler{
		logger:      logger,
		config:      config,
		stats:       stats,
		mode:        &Maintenance{},
		clock:       clock,
		idsHandler:  ids,
		views:       template.Must(template.ParseFS(viewsFS, "views/*.html")),
		bookService: bs,
		journal:     journal,
	}
	if config != nil && config.RateLimit.Enable {
		// proxies list is already validated when loading the configuration.
		trusted, _ := ParseTrustedProxies(config.RateLimit.TrustedProxies)
		api.limiter = NewIPRateLimiter(config.RateLimit.Rate, config.RateLimit.Burst, trusted, clock)
	}
	return api
}
