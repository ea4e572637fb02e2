package flexi

import (
	"log/slog"

	"github.com/flexireact/flexi/pkg/router"
)

// InternalPrefix is the reserved URL prefix for framework endpoints: built
// asset serving, server-action invocation, and the dev live-reload socket.
const InternalPrefix = "/_flexi/"

// Config is the resolved application configuration. The core never parses
// configuration files itself; internal/config produces this object from
// flexi.yaml and the environment.
type Config struct {
	// Routes configures route discovery.
	Routes RoutesConfig

	// Static configures public asset serving.
	Static StaticConfig

	// Islands configures partial hydration.
	Islands IslandsConfig

	// Server configures the listen address.
	Server ServerConfig

	// DevMode enables per-request route rescanning, module cache
	// invalidation, error details in 500 responses, and live reload.
	// Never enable in production.
	DevMode bool

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// RoutesConfig configures the routing conventions. Each directory is
// optional; an empty value disables that convention.
type RoutesConfig struct {
	// RoutesDir is the dedicated routes tree (highest priority).
	RoutesDir string

	// AppDir is the app-style tree.
	AppDir string

	// PagesDir is the legacy pages tree (lowest priority).
	PagesDir string

	// Extensions are the file extensions treated as route modules.
	// Defaults to [".go"].
	Extensions []string
}

// ConventionRoots returns the configured conventions in priority order.
func (c RoutesConfig) ConventionRoots() []router.ConventionRoot {
	var roots []router.ConventionRoot
	if c.RoutesDir != "" {
		roots = append(roots, router.ConventionRoot{Convention: router.ConventionRoutes, Dir: c.RoutesDir})
	}
	if c.AppDir != "" {
		roots = append(roots, router.ConventionRoot{Convention: router.ConventionApp, Dir: c.AppDir})
	}
	if c.PagesDir != "" {
		roots = append(roots, router.ConventionRoot{Convention: router.ConventionPages, Dir: c.PagesDir})
	}
	return roots
}

// StaticConfig configures public asset serving.
type StaticConfig struct {
	// Dir is the public-assets root (e.g. "public").
	Dir string

	// BuildDir is where built client bundles live, served under
	// /_flexi/assets/.
	BuildDir string

	// Headers are extra headers applied to every static response.
	Headers map[string]string
}

// IslandsConfig configures partial hydration.
type IslandsConfig struct {
	// Enabled turns island hydration script emission on.
	Enabled bool
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string
	Port int
}

// DefaultRoutesConfig returns the default route discovery configuration.
func DefaultRoutesConfig() RoutesConfig {
	return RoutesConfig{
		RoutesDir:  "app/routes",
		Extensions: []string{".go"},
	}
}

// DefaultServerConfig returns the default listener configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{Host: "127.0.0.1", Port: 3000}
}
