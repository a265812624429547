// cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/climber/internal/activity"
	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/browser/session"
	"github.com/xkilldash9x/climber/internal/config"
	"github.com/xkilldash9x/climber/internal/observability"
	"github.com/xkilldash9x/climber/internal/orchestrator"
)

const shutdownTimeout = 15 * time.Second

// browserSession is what a run needs from the browser.
type browserSession interface {
	browser.Driver
	activity.Pauser
	Close(ctx context.Context) error
}

// newBrowserSession is replaced in tests.
var newBrowserSession = func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browserSession, error) {
	return session.New(ctx, cfg, logger)
}

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Log in and complete every assignment (or one module with --module-url)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}
			logger := observability.GetLogger()

			sess, err := newBrowserSession(ctx, cfg.Browser, logger)
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				if err := sess.Close(shutdownCtx); err != nil {
					logger.Warn("Error during browser shutdown", zap.Error(err))
				}
			}()

			orch, err := orchestrator.New(cfg, sess, sess, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize run: %w", err)
			}
			report, runErr := orch.Run(ctx)

			if cfg.Run.ReportPath != "" && report != nil {
				if err := orchestrator.WriteReport(cfg.Run.ReportPath, report); err != nil {
					logger.Error("Could not write run report", zap.Error(err))
				}
			}
			printSummary(cmd, report)

			if runErr != nil {
				if errors.Is(runErr, context.Canceled) {
					logger.Warn("Run aborted by signal")
				}
				return runErr
			}
			return nil
		},
	}

	runCmd.Flags().String("method", "", "Login method: first_party or federated. (Overrides config/env)")
	runCmd.Flags().String("module-url", "", "Walk this module directly instead of the dashboard.")
	runCmd.Flags().Bool("headless", false, "Run the browser headless. (Overrides config/env)")
	runCmd.Flags().StringP("report", "o", "", "Write the JSON run report to this path ('-' for stdout).")
	runCmd.Flags().String("screenshot", "", "Screenshot path on fatal error. (Overrides config/env)")
	runCmd.Flags().String("profile", "", "Selector profile ref, name or name@version. (Overrides config/env)")
	runCmd.Flags().String("profile-file", "", "Additional selector profile YAML file.")
	runCmd.Flags().String("answers", "", "YAML answer table; enables the table answer strategy.")
	runCmd.Flags().String("log-level", "", "Log level. (Overrides config/env)")
	runCmd.Flags().Int("max-activities", 0, "Activity budget per module. (Overrides config/env)")
	return runCmd
}

func printSummary(cmd *cobra.Command, r *orchestrator.Report) {
	if r == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nRun %s (%s) ", r.RunID, r.Mode)
	if r.Error != "" {
		fmt.Fprintf(out, "failed: %s\n", r.Error)
	} else {
		fmt.Fprintln(out, "complete.")
	}
	if r.Dashboard != nil {
		for _, a := range r.Dashboard.Assignments {
			status := "ok"
			if a.Error != "" {
				status = a.Error
			}
			fmt.Fprintf(out, "  %-40s %3d activities  %s\n", a.Title, a.Module.Processed, status)
		}
	}
	fmt.Fprintf(out, "Activities processed: %d\n", r.Activities())
	if r.Screenshot != "" {
		fmt.Fprintf(out, "Screenshot saved to %s\n", r.Screenshot)
	}
}
