// Package config holds the options shared by the provisioning stages.
package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/apex/log"
	"github.com/joho/godotenv"

	"github.com/leapcode/vpnprov/internal/model"
	"github.com/leapcode/vpnprov/internal/render"
)

// Environment variables consulted by [WithEnvironment].
const (
	EnvStateDir = "VPNPROV_STATE_DIR"
	EnvConfig   = "VPNPROV_CONFIG"
	EnvTemplate = "VPNPROV_TEMPLATE"
)

// Config contains options for generating obfs4 state and assembling configs.
type Config struct {
	// logger will be used to log events.
	logger model.Logger

	// stateDir is the obfs4 state directory.
	stateDir string

	// sourcePath is the provider source document.
	sourcePath string

	// templatePath is the template to render.
	templatePath string

	// selector picks the rendered document.
	selector model.FileSelector

	// engine renders templates.
	engine render.Engine

	// verifyCert checks patched certificates with an obfs4 client.
	verifyCert bool
}

// NewConfig returns a Config with the given options applied.
func NewConfig(options ...Option) *Config {
	cfg := &Config{
		logger: log.Log,
		engine: render.NewEngine(),
	}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// Option is an option you can pass to [NewConfig].
type Option func(config *Config)

// WithLogger configures the passed [model.Logger].
func WithLogger(logger model.Logger) Option {
	return func(config *Config) {
		config.logger = logger
	}
}

// Logger returns the configured logger.
func (c *Config) Logger() model.Logger {
	return c.logger
}

// WithStateDir configures the obfs4 state directory.
func WithStateDir(dir string) Option {
	return func(config *Config) {
		config.stateDir = dir
	}
}

// StateDir returns the obfs4 state directory, which may be empty.
func (c *Config) StateDir() string {
	return c.stateDir
}

// WithSourcePath configures the provider source document.
func WithSourcePath(path string) Option {
	return func(config *Config) {
		config.sourcePath = path
	}
}

// SourcePath returns the provider source document path.
func (c *Config) SourcePath() string {
	return c.sourcePath
}

// WithTemplatePath configures the template to render.
func WithTemplatePath(path string) Option {
	return func(config *Config) {
		config.templatePath = path
	}
}

// TemplatePath returns the template path.
func (c *Config) TemplatePath() string {
	return c.templatePath
}

// WithSelector configures which document is rendered.
func WithSelector(selector model.FileSelector) Option {
	return func(config *Config) {
		config.selector = selector
	}
}

// Selector returns the configured selector.
func (c *Config) Selector() model.FileSelector {
	return c.selector
}

// WithEngine configures the template [render.Engine].
func WithEngine(engine render.Engine) Option {
	return func(config *Config) {
		config.engine = engine
	}
}

// Engine returns the template engine.
func (c *Config) Engine() render.Engine {
	return c.engine
}

// WithVerifyCert enables checking every patched obfs4 transport with an
// obfs4 client before rendering.
func WithVerifyCert(verify bool) Option {
	return func(config *Config) {
		config.verifyCert = verify
	}
}

// VerifyCert returns whether patched certificates are checked.
func (c *Config) VerifyCert() bool {
	return c.verifyCert
}

// WithEnvironment fills the state directory, source and template paths
// that are still unset from the environment. When dotenv is not empty the
// file is loaded first; variables already set in the process environment
// take precedence over the file. Pass it after the options it may fill.
func WithEnvironment(dotenv string) Option {
	return func(config *Config) {
		if dotenv != "" {
			if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
				config.logger.Warnf("cannot load %s: %s", dotenv, err)
			}
		}
		fallbackToEnv(&config.stateDir, EnvStateDir)
		fallbackToEnv(&config.sourcePath, EnvConfig)
		fallbackToEnv(&config.templatePath, EnvTemplate)
	}
}

func fallbackToEnv(variable *string, envVar string) {
	if *variable != "" {
		return
	}
	if val, exists := os.LookupEnv(envVar); exists && val != "" {
		*variable = val
	}
}
