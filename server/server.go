// Package server is the local console: a JSON and redirect surface over the
// storefront state for a thin browser shell.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/course-storefront/admin"
	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/cart"
	"github.com/jrsteele09/course-storefront/catalog"
	"github.com/jrsteele09/course-storefront/checkout"
	"github.com/jrsteele09/course-storefront/internal/config"
	"github.com/jrsteele09/course-storefront/server/wizardrepo"
	"github.com/jrsteele09/course-storefront/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	wizardMaxIdle = time.Hour
	catalogTTL    = 30 * time.Second
)

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	pageSize int

	client      *api.Client
	store       *sessions.Store
	counter     *cart.Counter
	loader      *catalog.Loader
	checkout    *checkout.Checkout
	courses     *admin.Courses
	instructors *admin.Instructors
	dashboard   *admin.Dashboard
	wizards     wizardrepo.Repo

	storefrontView *catalog.State
	adminView      *catalog.State
	catalogCache   catalogCache

	callbacksLock sync.Mutex
	callbacks     map[string]*sessions.GoogleCallback
}

type Option func(*Server)

// WithNowTime sets the clock the catalog cache expires against.
func WithNowTime(now func() time.Time) Option {
	return func(s *Server) {
		s.catalogCache.nowTime = now
	}
}

// New wires the console. client must already carry the store as its token
// source; the store is expected to have been loaded.
func New(cfg config.Config, client *api.Client, store *sessions.Store, counter *cart.Counter, wizards wizardrepo.Repo, opts ...Option) (*Server, error) {
	if client == nil || store == nil || counter == nil || wizards == nil {
		return nil, errors.New("[server.New] client, store, counter and wizards are required")
	}
	taxRate, err := decimal.NewFromString(cfg.GetTaxRate())
	if err != nil {
		log.Warn().Err(err).Str("taxRate", cfg.GetTaxRate()).Msg("invalid tax rate, using default")
		taxRate = checkout.DefaultTaxRate
	}
	co, err := checkout.New(client, counter, checkout.WithTaxRate(taxRate))
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] checkout")
	}
	courses, err := admin.NewCourses(client)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] courses")
	}
	instructors, err := admin.NewInstructors(client)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] instructors")
	}
	dashboard, err := admin.NewDashboard(client)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] dashboard")
	}

	s := &Server{
		env:            cfg.GetEnv(),
		mux:            http.NewServeMux(),
		config:         cfg,
		pageSize:       cfg.GetPageSize(),
		client:         client,
		store:          store,
		counter:        counter,
		loader:         catalog.NewLoader(client),
		checkout:       co,
		courses:        courses,
		instructors:    instructors,
		dashboard:      dashboard,
		wizards:        wizards,
		storefrontView: catalog.NewState(catalog.StorefrontFilter()),
		adminView:      catalog.NewState(catalog.Filter{}),
		catalogCache:   catalogCache{ttl: catalogTTL, nowTime: time.Now},
		callbacks:      make(map[string]*sessions.GoogleCallback),
	}
	for _, opt := range opts {
		opt(s)
	}

	// A lost session takes the cart badge and any open editors with it.
	store.Subscribe(func(snap sessions.Snapshot) {
		if snap.Status == sessions.StatusAnonymous {
			s.counter.Reset()
			s.wizards.CloseAll()
		}
	})

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func logError(method, path, errMsg string) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+errMsg+ResetColor)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// catalogCache holds the last full catalog fetch for ttl, or until a console
// write changes the catalog.
type catalogCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	nowTime func() time.Time
	full    *catalog.Snapshot
	fetched time.Time
}

func (c *catalogCache) get() *catalog.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full != nil && c.nowTime().Sub(c.fetched) >= c.ttl {
		c.full = nil
	}
	return c.full
}

func (c *catalogCache) put(snap *catalog.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = snap
	c.fetched = c.nowTime()
}

func (c *catalogCache) invalidate() {
	c.put(nil)
}
