package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chzyer/readline"
	"github.com/redis/go-redis/v9"

	"github.com/Cyclone1070/sysmate/internal/classifier"
	"github.com/Cyclone1070/sysmate/internal/config"
	"github.com/Cyclone1070/sysmate/internal/logging"
	"github.com/Cyclone1070/sysmate/internal/orchestrator"
	"github.com/Cyclone1070/sysmate/internal/policy"
	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/provider/factory"
	"github.com/Cyclone1070/sysmate/internal/router"
	"github.com/Cyclone1070/sysmate/internal/session"
	"github.com/Cyclone1070/sysmate/internal/tool"
	"github.com/Cyclone1070/sysmate/internal/tool/file"
	"github.com/Cyclone1070/sysmate/internal/tool/git"
	"github.com/Cyclone1070/sysmate/internal/tool/shell"
	"github.com/Cyclone1070/sysmate/internal/tool/sysinfo"
	"github.com/Cyclone1070/sysmate/internal/ui"
)

// chatCommands are completed at the prompt.
var chatCommands = []string{"/help", "/clear", "/provider", "/tools", "exit"}

// app holds the components of an interactive run.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	orchestrator *orchestrator.Orchestrator
	dispatcher   *tool.Dispatcher
	console      *ui.Console
	input        *ui.Input
	renderer     *ui.Renderer

	// buildErrors lists providers that could not be created.
	buildErrors []error
	closers     []io.Closer
}

// Close releases everything the app opened, in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Backends builds the provider backends.
type Backends func(ctx context.Context, cfgs map[string]config.ProviderConfig) (map[string]provider.Provider, []error)

// newApp wires the full stack: logging, tools, providers, the policy gate
// with a terminal confirmer, and the orchestrator.
func newApp(ctx context.Context, opts *rootOptions, build Backends) (_ *app, err error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	logger, logCloser, err := logging.New(logging.Options{Dir: cfg.Logging.Dir, Level: cfg.Logging.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize file logging: %v\n", err)
		logger = logging.Discard()
	} else {
		a.closers = append(a.closers, logCloser)
	}
	slog.SetDefault(logger)
	a.logger = logger

	rl, err := ui.NewReadline(historyFile(), chatCommands...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal input: %w", err)
	}
	a.closers = append(a.closers, rl)

	styles := ui.NewStyles(cfg.UI.Color && !opts.noColor)
	a.console = ui.NewConsole(os.Stdout, styles, readline.GetScreenWidth())
	a.input = ui.NewInput(rl)

	var markdown ui.MarkdownRenderer
	if cfg.UI.RenderMarkdown {
		markdown = ui.NewGlamourRenderer("")
	}
	a.renderer = ui.NewRenderer(a.console, markdown)
	a.renderer.Verbose = opts.verbose

	a.dispatcher, err = newDispatcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, storeCloser, err := newStore(cfg.Session)
	if err != nil {
		return nil, err
	}
	if storeCloser != nil {
		a.closers = append(a.closers, storeCloser)
	}

	mode, err := policy.ParseMode(cfg.Policy.Mode)
	if err != nil {
		return nil, err
	}
	gate := policy.NewGate(
		policy.NewEngine(cfg.Policy.Whitelist),
		mode,
		ui.NewConfirmer(a.console, a.input),
		policy.WithTimeout(time.Duration(cfg.Policy.ConfirmTimeoutSeconds)*time.Second),
		policy.WithLogger(logger),
	)

	built, buildErrs := build(ctx, cfg.Providers)
	for _, e := range buildErrs {
		logger.Warn("provider unavailable", "error", e)
	}
	a.buildErrors = buildErrs

	a.orchestrator, err = orchestrator.New(orchestrator.Options{
		Dispatcher:    a.dispatcher,
		Classifier:    classifier.New(cfg.Classifier.MinConfidence),
		Router:        newRouter(cfg.Routing),
		Gate:          gate,
		Backends:      newBackends(cfg.Providers, built),
		Store:         store,
		Budget:        session.Budget{MaxMessages: cfg.Context.MaxMessages, MaxTokens: cfg.Context.MaxTokens},
		MaxIterations: cfg.Orchestrator.MaxIterations,
		ToolTimeout:   time.Duration(cfg.Orchestrator.ToolTimeoutSeconds) * time.Second,
		HealthTimeout: time.Duration(cfg.Orchestrator.HealthTimeoutMs) * time.Millisecond,
		SystemPrompt:  cfg.Orchestrator.SystemPrompt,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// newDispatcher registers every tool server.
func newDispatcher(cfg *config.Config, logger *slog.Logger) (*tool.Dispatcher, error) {
	d := tool.NewDispatcher(tool.NewRegistry(), logger)

	files, err := file.New(file.Options{
		Root:           cfg.Tools.WorkspaceRoot,
		MaxFileSize:    cfg.Tools.MaxFileSize,
		MaxListEntries: cfg.Tools.MaxListEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file tools: %w", err)
	}
	sh := shell.New(shell.Options{
		Shell:          cfg.Tools.Shell,
		Dir:            cfg.Tools.WorkspaceRoot,
		DefaultTimeout: time.Duration(cfg.Tools.DefaultShellTimeout) * time.Second,
		MaxOutputSize:  cfg.Tools.MaxCommandOutputSize,
	})

	servers := []func() (tool.Server, error){
		func() (tool.Server, error) { return files.Server() },
		func() (tool.Server, error) { return sh.Server() },
		func() (tool.Server, error) { return git.New(cfg.Tools.WorkspaceRoot).Server() },
		func() (tool.Server, error) { return sysinfo.New().Server() },
	}
	for _, newServer := range servers {
		srv, err := newServer()
		if err != nil {
			return nil, err
		}
		if err := d.AddServer(srv); err != nil {
			return nil, err
		}
	}
	d.Registry().Seal()
	return d, nil
}

func newRouter(cfg config.RoutingConfig) *router.Router {
	routes := make(map[tool.Capability]string, len(cfg.Capabilities))
	for capability, id := range cfg.Capabilities {
		routes[tool.Capability(capability)] = id
	}
	return router.New(routes, cfg.Default)
}

func newBackends(cfgs map[string]config.ProviderConfig, built map[string]provider.Provider) map[string]orchestrator.Backend {
	backends := make(map[string]orchestrator.Backend, len(built))
	for id, p := range built {
		backends[id] = orchestrator.Backend{Provider: p, HealthCheck: cfgs[id].HealthCheck}
	}
	return backends
}

// newStore opens the configured transcript store. The closer is nil for
// the memory store.
func newStore(cfg config.SessionConfig) (session.Store, io.Closer, error) {
	switch cfg.Store {
	case "", "memory":
		return session.NewMemoryStore(), nil, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store := session.NewRedisStore(rdb, session.RedisOptions{
			KeyPrefix: cfg.KeyPrefix,
			TTL:       time.Duration(cfg.TTLSeconds) * time.Second,
		})
		return store, rdb, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

func historyFile() string {
	dir, err := config.NewLoader().Dir()
	if err != nil {
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

func defaultBackends() Backends {
	return factory.New().BuildAll
}
