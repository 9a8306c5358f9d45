package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lydakis/richpresence/internal/config"
	"github.com/lydakis/richpresence/internal/control"
	"github.com/lydakis/richpresence/internal/ipc"
	"github.com/lydakis/richpresence/internal/logging"
	"github.com/lydakis/richpresence/internal/paths"
	"github.com/lydakis/richpresence/internal/session"
)

type commandContext struct {
	// args is the raw argv, used to re-exec a detached holder.
	args []string

	configPath string
	clientID   string
	socket     string
	logLevel   string
	logFormat  string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(args []string) *commandContext {
	return &commandContext{args: args}
}

// ensureConfig loads the config file once and applies flag overrides.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var (
			cfg *config.Config
			err error
		)
		if path := strings.TrimSpace(c.configPath); path != "" {
			cfg, err = config.LoadFrom(path)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			c.configErr = err
			return
		}

		if v := strings.TrimSpace(c.clientID); v != "" {
			cfg.ClientID = v
		}
		if v := strings.TrimSpace(c.socket); v != "" {
			cfg.Socket = v
		}
		if v := strings.TrimSpace(c.logLevel); v != "" {
			cfg.Log.Level = v
		}
		if v := strings.TrimSpace(c.logFormat); v != "" {
			cfg.Log.Format = v
		}

		if !logging.ValidLevel(cfg.Log.Level) {
			c.configErr = usageErrorf("log level: unsupported value %q (debug, info, warn, error)", cfg.Log.Level)
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: rootStderr,
		})
		if err != nil {
			c.configErr = &usageError{err: err}
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

// sessionConfig returns a config that is complete enough to open a session.
func (c *commandContext) sessionConfig() (*config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, &usageError{err: fmt.Errorf("invalid config: %w", err)}
	}
	return cfg, nil
}

func (c *commandContext) log() *slog.Logger {
	if c.logger == nil {
		return logging.NewNop()
	}
	return c.logger
}

func (c *commandContext) locator(cfg *config.Config) ipc.Locator {
	if cfg.Socket != "" {
		return &ipc.StaticLocator{Paths: []string{cfg.Socket}, Logger: c.log()}
	}
	return ipc.DefaultLocator(c.log())
}

func (c *commandContext) dial(cfg *config.Config) (*session.Session, error) {
	return session.Dial(cfg.ClientID,
		session.WithLocator(c.locator(cfg)),
		session.WithLogger(c.log()),
	)
}

func (c *commandContext) holderClient() *control.Client {
	return control.NewClient(paths.ControlSocketPath())
}

// sendHolder forwards req to a running holder and turns its response into an
// error when the holder reports a failure.
func sendHolder(client *control.Client, req *control.Request) (*control.Response, error) {
	resp, err := client.Send(req)
	if err != nil {
		return nil, err
	}
	switch resp.ExitCode {
	case control.ExitOK:
		return resp, nil
	case control.ExitUsageErr:
		return nil, usageErrorf("holder: %s", resp.Stderr)
	default:
		return nil, fmt.Errorf("holder: %s", resp.Stderr)
	}
}
