// Package config loads project configuration from flexi.yaml and the
// environment, producing the resolved flexi.Config the app runs on.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/flexireact/flexi"
)

const (
	// FileName is the base name of the configuration file.
	FileName = "flexi"

	// EnvPrefix namespaces environment overrides, e.g. FLEXI_SERVER_PORT.
	EnvPrefix = "FLEXI"
)

// fileConfig is the on-disk schema of flexi.yaml.
type fileConfig struct {
	Routes struct {
		RoutesDir  string   `mapstructure:"routesDir"`
		AppDir     string   `mapstructure:"appDir"`
		PagesDir   string   `mapstructure:"pagesDir"`
		Extensions []string `mapstructure:"extensions"`
	} `mapstructure:"routes"`

	Static struct {
		Dir      string            `mapstructure:"dir"`
		BuildDir string            `mapstructure:"buildDir"`
		Headers  map[string]string `mapstructure:"headers"`
	} `mapstructure:"static"`

	Islands struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"islands"`

	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Dev bool `mapstructure:"dev"`
}

// Load reads flexi.yaml from dir (or the working directory when dir is
// empty), applies environment overrides, and returns the resolved app
// configuration. A missing file yields pure defaults, not an error.
func Load(dir string, logger *slog.Logger) (flexi.Config, error) {
	v := viper.New()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	} else {
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return flexi.Config{}, fmt.Errorf("reading config: %w", err)
		}
	} else if logger != nil {
		logger.Info("loaded config", "file", v.ConfigFileUsed())
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return flexi.Config{}, fmt.Errorf("parsing config: %w", err)
	}

	return flexi.Config{
		Routes: flexi.RoutesConfig{
			RoutesDir:  fc.Routes.RoutesDir,
			AppDir:     fc.Routes.AppDir,
			PagesDir:   fc.Routes.PagesDir,
			Extensions: fc.Routes.Extensions,
		},
		Static: flexi.StaticConfig{
			Dir:      fc.Static.Dir,
			BuildDir: fc.Static.BuildDir,
			Headers:  fc.Static.Headers,
		},
		Islands: flexi.IslandsConfig{Enabled: fc.Islands.Enabled},
		Server: flexi.ServerConfig{
			Host: fc.Server.Host,
			Port: fc.Server.Port,
		},
		DevMode: fc.Dev,
		Logger:  logger,
	}, nil
}

// setDefaults installs the documented defaults so a bare project serves
// routes from app/routes on localhost:3000.
func setDefaults(v *viper.Viper) {
	defaults := flexi.DefaultRoutesConfig()
	server := flexi.DefaultServerConfig()

	v.SetDefault("routes.routesDir", defaults.RoutesDir)
	v.SetDefault("routes.extensions", defaults.Extensions)
	v.SetDefault("static.dir", "public")
	v.SetDefault("static.buildDir", "dist")
	v.SetDefault("islands.enabled", true)
	v.SetDefault("server.host", server.Host)
	v.SetDefault("server.port", server.Port)
	v.SetDefault("dev", false)
}
