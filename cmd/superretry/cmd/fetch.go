package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jzx17/superretry/pkg/config"
	"github.com/jzx17/superretry/pkg/middleware"
	"github.com/jzx17/superretry/pkg/retry"
	"github.com/jzx17/superretry/pkg/types"
)

type fetchOptions struct {
	ConfigPath   string
	Strategy     string
	MaxAttempts  int
	InitialDelay time.Duration
	FailureRate  float64
	Timeout      time.Duration
}

// statusError is a response the server may answer differently next time
type statusError struct {
	Status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("request failed with status %d %s", e.Status, http.StatusText(e.Status))
}

// permanentError is a failure that retrying cannot fix
type permanentError struct {
	Reason string
}

func (e *permanentError) Error() string {
	return "PERMANENT: " + e.Reason
}

func NewFetchCmd() *cobra.Command {
	options := fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "GET a URL with retries and print the JSON response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args[0], &options)
		},
	}

	cmd.Flags().StringVarP(&options.ConfigPath, "config", "c", "", "retry policy file (YAML)")
	cmd.Flags().StringVar(&options.Strategy, "strategy", "", "backoff strategy name")
	cmd.Flags().IntVar(&options.MaxAttempts, "max-attempts", 0, "maximum number of attempts")
	cmd.Flags().DurationVar(&options.InitialDelay, "initial-delay", 0, "base delay between attempts")
	cmd.Flags().Float64Var(&options.FailureRate, "failure-rate", 0, "probability of a simulated failure per attempt")
	cmd.Flags().DurationVar(&options.Timeout, "timeout", 0, "overall deadline, zero disables it")

	return cmd
}

func runFetch(cmd *cobra.Command, url string, options *fetchOptions) error {
	ctx := cmd.Context()
	logger := getLogger(ctx)

	cfg, err := resolveConfig(cmd, options)
	if err != nil {
		return err
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	notPermanent := retry.Not(retry.IfErrorAs[*permanentError]())
	if opts.RetryIf != nil {
		configured := opts.RetryIf
		opts.RetryIf = func(err error) bool {
			return notPermanent(err) && configured(err)
		}
	} else {
		opts.RetryIf = notPermanent
	}

	r, err := retry.New(opts, retry.WithLogger(logger))
	if err != nil {
		return err
	}

	r.Use(middleware.Logging(logger))
	if options.FailureRate > 0 {
		r.Use(middleware.FailureInjection(options.FailureRate, nil))
	}

	stderr := cmd.ErrOrStderr()
	_, err = r.On(retry.EventRetry, func(ctx context.Context, event retry.Event) {
		if e, ok := event.(retry.AttemptFailed); ok {
			fmt.Fprintf(stderr, "Attempt %d failed: %v\nRetrying in %v...\n", e.Attempt, e.Err, e.Delay)
		}
	})
	if err != nil {
		return err
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	client := getHTTPClient(ctx)
	body, err := retry.ExecuteWithName(r, ctx, "fetch", func(ctx context.Context) (json.RawMessage, error) {
		return fetchJSON(ctx, client, url)
	})
	if err != nil {
		return describeFailure(err, options.Timeout)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	pretty.WriteByte('\n')

	_, err = cmd.OutOrStdout().Write(pretty.Bytes())
	return err
}

// resolveConfig layers defaults, the config file, the environment and flags
func resolveConfig(cmd *cobra.Command, options *fetchOptions) (*config.Config, error) {
	cfg := config.Default()
	if options.ConfigPath != "" {
		loaded, err := config.Load(getFileSystem(cmd.Context()), options.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("strategy") {
		cfg = cfg.WithStrategy(options.Strategy)
	}
	if cmd.Flags().Changed("max-attempts") {
		cfg = cfg.WithMaxAttempts(options.MaxAttempts)
	}
	if cmd.Flags().Changed("initial-delay") {
		cfg = cfg.WithInitialDelay(options.InitialDelay)
	}

	return cfg, nil
}

func fetchJSON(ctx context.Context, client *http.Client, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &permanentError{Reason: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return nil, &statusError{Status: resp.StatusCode}
	case resp.StatusCode >= 400:
		return nil, &permanentError{
			Reason: fmt.Sprintf("request failed with status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	if !json.Valid(body) {
		return nil, errors.New("response is not valid JSON")
	}
	return json.RawMessage(body), nil
}

// describeFailure names why the execution stopped
func describeFailure(err error, timeout time.Duration) error {
	var unknown *types.UnknownStrategyError
	var permanent *permanentError

	switch {
	case errors.As(err, &unknown):
		return fmt.Errorf("cannot schedule retry: %w", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("timed out after %v: %w", timeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("interrupted: %w", err)
	case errors.As(err, &permanent):
		return fmt.Errorf("request not retried: %w", err)
	default:
		return fmt.Errorf("all attempts failed: %w", err)
	}
}
