package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/theimaginaryfoundation/chat-profiler/profiling/fileutils"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

// exitError carries a specific process exit code. A nil err means the message was
// already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// run executes the CLI and returns the process exit code: 0 on success, 1 for runtime
// failures, 2 for usage and configuration errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	a := &app{stdout: stdout, stderr: stderr, getenv: getenv}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, ee.err.Error())
		}
		return ee.code
	}
	fmt.Fprintln(stderr, err.Error())
	return 2
}

// app holds state shared by all subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	configPath string
	verbose    bool
	overrides  flagOverrides

	logger *slog.Logger
}

// flagOverrides are the persistent flags that override config values when set.
type flagOverrides struct {
	backend          string
	endpoint         string
	model            string
	timeoutSeconds   int
	maxConversations int
	structured       bool
	noSniff          bool
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chat-profiler",
		Short:         "Extract user profiles from exported chat conversations",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = a.newLogger(cmd.Name())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a TOML config file (default ~/.config/chat-profiler/config.toml if present)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")
	pf.StringVar(&a.overrides.backend, "backend", "", "Model backend: ollama, openai or none")
	pf.StringVar(&a.overrides.endpoint, "endpoint", "", "Model server base URL")
	pf.StringVar(&a.overrides.model, "model", "", "Model name")
	pf.IntVar(&a.overrides.timeoutSeconds, "timeout", 0, "Per-call model timeout in seconds")
	pf.IntVar(&a.overrides.maxConversations, "max-conversations", 0, "Conversations scanned per export (0 = unlimited)")
	pf.BoolVar(&a.overrides.structured, "structured-output", false, "Send the profile JSON schema to the model")
	pf.BoolVar(&a.overrides.noSniff, "no-sniff", false, "Never ask the model to infer an unknown export layout")

	root.AddCommand(a.extractCmd())
	root.AddCommand(a.aggregateCmd())
	root.AddCommand(a.promptCmd())
	root.AddCommand(a.flattenCmd())
	return root
}

func (a *app) newLogger(command string) *slog.Logger {
	lvl := slog.LevelInfo
	if a.verbose {
		lvl = slog.LevelDebug
	}
	handler := slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("run_id", uuid.NewString(), "command", command)
}

// loadConfig layers defaults, the config file, the environment and changed flags, then
// validates the result.
func (a *app) loadConfig(cmd *cobra.Command) (Config, error) {
	cfg := defaultConfig()

	path := a.configPath
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath(a.getenv)
	}
	switch {
	case path != "" && fileutils.FileExists(path):
		if err := loadConfigFile(&cfg, path); err != nil {
			return Config{}, err
		}
	case explicit:
		return Config{}, fmt.Errorf("config %s: file not found", path)
	}

	applyEnv(&cfg, a.getenv)

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = a.overrides.backend
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = a.overrides.endpoint
	}
	if flags.Changed("model") {
		cfg.Model = a.overrides.model
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSeconds = a.overrides.timeoutSeconds
	}
	if flags.Changed("max-conversations") {
		cfg.MaxConversations = a.overrides.maxConversations
	}
	if flags.Changed("structured-output") {
		cfg.StructuredOutput = a.overrides.structured
	}
	if flags.Changed("no-sniff") {
		cfg.Sniff = !a.overrides.noSniff
	}

	cfg.resolveDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
