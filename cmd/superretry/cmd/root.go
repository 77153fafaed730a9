package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jzx17/superretry/pkg/strategy"
)

type contextKey string

const (
	ContextKeyFileSystem contextKey = "filesystem"
	ContextKeyHTTPClient contextKey = "http_client"
	ContextKeyLogger     contextKey = "logger"
)

type globalOptions struct {
	LogLevel LogLevel
}

func NewRootCmd() *cobra.Command {
	options := globalOptions{}
	cmd := &cobra.Command{
		Use:           "superretry",
		Short:         "Run operations with retries and pluggable backoff strategies.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Context() == nil {
				cmd.SetContext(context.Background())
			}

			options.LogLevel = resolveLogLevel(cmd, &options)
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: options.LogLevel.SlogLevel(),
			}))
			cmd.SetContext(context.WithValue(cmd.Context(), ContextKeyLogger, logger))

			return registerStrategies()
		},
	}

	cmd.PersistentFlags().Var(&options.LogLevel, "log-level", "set the log level")

	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewStrategiesCmd())
	return cmd
}

// registerStrategies makes the extra delay functions available by name
func registerStrategies() error {
	extra := map[string]strategy.Func{
		"linear":    strategy.Linear,
		"quadratic": strategy.Quadratic,
		"fibonacci": strategy.Fibonacci,
		"jittered":  strategy.Jittered(0.5, 0),
	}

	for name, fn := range extra {
		if strategy.Default().Has(name) {
			continue
		}
		if err := strategy.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func getFileSystem(ctx context.Context) afero.Fs {
	if fs, ok := ctx.Value(ContextKeyFileSystem).(afero.Fs); ok {
		return fs
	}
	return afero.NewOsFs()
}

func getHTTPClient(ctx context.Context) *http.Client {
	if client, ok := ctx.Value(ContextKeyHTTPClient).(*http.Client); ok {
		return client
	}
	return http.DefaultClient
}

func getLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ContextKeyLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func (e *LogLevel) String() string {
	if e == nil {
		return ""
	}
	return string(*e)
}

func (e *LogLevel) Set(v string) error {
	for _, level := range []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError} {
		if v == string(level) {
			*e = level
			return nil
		}
	}
	return errors.New(`must be one of "debug", "info", "warn", or "error"`)
}

func (e *LogLevel) Type() string {
	return "log-level"
}

func (e *LogLevel) SlogLevel() slog.Level {
	switch *e {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	}

	return slog.LevelWarn
}

func resolveLogLevel(cmd *cobra.Command, options *globalOptions) LogLevel {
	if cmd.Flags().Changed("log-level") {
		return options.LogLevel
	}

	var level LogLevel
	if err := level.Set(os.Getenv("SUPERRETRY_LOG_LEVEL")); err == nil {
		return level
	}

	return LogLevelWarn
}
