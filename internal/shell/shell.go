// Package shell composes feature modules into one application: it registers
// their entities with the data access layer, merges their locale catalogs
// and navigation, and serves the JSON API.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/iancoleman/strcase"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tordrt/scaffold/internal/crud"
	"github.com/tordrt/scaffold/internal/db"
	"github.com/tordrt/scaffold/internal/i18n"
	"github.com/tordrt/scaffold/internal/schema"
)

const shutdownTimeout = 5 * time.Second

// Route is a client-side page contributed by a module.
type Route struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

// NavItem is one entry of the application navigation.
type NavItem struct {
	Module string `json:"module"`
	Label  string `json:"label"`
	Path   string `json:"path"`
	Icon   string `json:"icon,omitempty"`
}

// Module is the descriptor a feature module hands to the shell.
type Module struct {
	Name       string
	Routes     []Route
	Navigation []NavItem
	Schemas    []*schema.Schema

	// Locales holds locales/<locale>/<namespace>.yaml catalogs. Optional.
	Locales fs.FS

	// Validators are keyed by schema name.
	Validators map[string]crud.Validator
}

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Shell) { s.logger = l }
}

// WithPageSize sets the default page size of every entity.
func WithPageSize(n uint64) Option {
	return func(s *Shell) { s.pageSize = n }
}

// Shell holds the registered modules. Register every module before calling
// Handler or Serve; the shell is read-only afterwards.
type Shell struct {
	db       db.Querier
	registry *crud.Registry
	bundle   *i18n.Bundle
	logger   *zap.Logger
	pageSize uint64

	modules  []Module
	routes   map[string]string
	entities map[string]map[string]*crud.Crud
}

// New creates an empty shell over q.
func New(q db.Querier, opts ...Option) *Shell {
	s := &Shell{
		db:       q,
		registry: crud.NewRegistry(),
		bundle:   i18n.NewBundle(),
		logger:   zap.NewNop(),
		pageSize: crud.DefaultPageSize,
		routes:   make(map[string]string),
		entities: make(map[string]map[string]*crud.Crud),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EntityPath is the URL segment of a schema, e.g. TodoList -> todo-list.
func EntityPath(s *schema.Schema) string {
	return strcase.ToKebab(s.Name)
}

// Register adds a module. Module names, route paths and entity names must be
// unique across modules.
func (s *Shell) Register(m Module) error {
	if m.Name == "" {
		return fmt.Errorf("module name is required")
	}
	if _, exists := s.entities[m.Name]; exists {
		return fmt.Errorf("module %s is already registered", m.Name)
	}
	for _, r := range m.Routes {
		if owner, exists := s.routes[r.Path]; exists {
			return fmt.Errorf("module %s: route %s is already registered by %s", m.Name, r.Path, owner)
		}
	}

	entities := make(map[string]*crud.Crud, len(m.Schemas))
	for _, sc := range m.Schemas {
		opts := []crud.Option{
			crud.WithLogger(s.logger.With(zap.String("module", m.Name))),
			crud.WithPageSize(s.pageSize),
		}
		if v, ok := m.Validators[sc.Name]; ok {
			opts = append(opts, crud.WithValidator(v))
		}

		c, err := crud.New(sc, s.db, opts...)
		if err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}
		if err := s.registry.Register(c); err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}
		entities[EntityPath(sc)] = c
	}

	if m.Locales != nil {
		if err := s.bundle.AddFS(m.Locales); err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}
	}

	for _, r := range m.Routes {
		s.routes[r.Path] = m.Name
	}
	s.entities[m.Name] = entities
	s.modules = append(s.modules, m)

	s.logger.Info("registered module",
		zap.String("module", m.Name),
		zap.Int("entities", len(entities)),
		zap.Int("routes", len(m.Routes)))
	return nil
}

// Validate checks relations across every registered module.
func (s *Shell) Validate() error {
	return s.registry.Validate()
}

// Registry returns the entity registry.
func (s *Shell) Registry() *crud.Registry {
	return s.registry
}

// Bundle returns the merged locale catalogs.
func (s *Shell) Bundle() *i18n.Bundle {
	return s.bundle
}

// Modules returns the registered modules in registration order.
func (s *Shell) Modules() []Module {
	return s.modules
}

// Entity returns the Crud served under /api/{module}/{entity}.
func (s *Shell) Entity(module, entity string) (*crud.Crud, bool) {
	c, ok := s.entities[module][entity]
	return c, ok
}

// Navigation returns the navigation of every module in registration order.
func (s *Shell) Navigation() []NavItem {
	var out []NavItem
	for _, m := range s.modules {
		for _, item := range m.Navigation {
			item.Module = m.Name
			out = append(out, item)
		}
	}
	return out
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Shell) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves the API on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Shell) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.Validate(); err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("serving", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
