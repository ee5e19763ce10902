package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"sqlpanel/internal/logging"
)

func newCheckCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and ping configured dependencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logging.Component("check")

			deps, err := buildDependencies(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer deps.close(log)

			results := pingAll(cmd.Context(), deps.pingers(), timeout)
			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			failed := 0
			for _, name := range names {
				if err := results[name]; err != nil {
					failed++
					fmt.Fprintf(out, "%-10s FAIL  %v\n", name, err)
					continue
				}
				fmt.Fprintf(out, "%-10s ok\n", name)
			}
			if deps.store != nil {
				fmt.Fprintf(out, "%-10s ok\n", "storage")
			}
			if failed > 0 {
				return fmt.Errorf("%d dependency check(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "ping deadline")
	return cmd
}
