package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jzx17/superretry/pkg/strategy"
)

type strategiesOptions struct {
	Attempts int
	Base     time.Duration
}

func NewStrategiesCmd() *cobra.Command {
	options := strategiesOptions{}
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List registered backoff strategies and their delay schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if options.Attempts < 1 {
				return fmt.Errorf("--attempts must be at least 1")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STRATEGY\tDELAYS")

			for _, name := range strategy.Names() {
				fn, err := strategy.Resolve(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n", name, schedule(fn, options.Attempts, options.Base))
			}

			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&options.Attempts, "attempts", 5, "number of delays to show")
	cmd.Flags().DurationVar(&options.Base, "base", 100*time.Millisecond, "initial delay")

	return cmd
}

func schedule(fn strategy.Func, attempts int, base time.Duration) string {
	delays := make([]string, 0, attempts)
	for attempt := 1; attempt <= attempts; attempt++ {
		delays = append(delays, fn(attempt, base).String())
	}
	return strings.Join(delays, " ")
}
