// cmd/profiles.go
package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/climber/internal/config"
	"github.com/xkilldash9x/climber/internal/selector"
)

// errUnmatchedTargets is returned by `profiles check` when a target matched
// nothing in the snapshot.
var errUnmatchedTargets = errors.New("profile targets unmatched in snapshot")

func newProfilesCmd() *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect the selector profiles",
	}
	profilesCmd.AddCommand(newProfilesListCmd(), newProfilesShowCmd(), newProfilesCheckCmd())
	return profilesCmd
}

// registryFor loads the built-in profiles plus the configured profile file.
func registryFor(cfg *config.Config) (*selector.Registry, error) {
	reg, err := selector.DefaultRegistry()
	if err != nil {
		return nil, err
	}
	if cfg.Selectors.File != "" {
		if err := reg.LoadFile(cfg.Selectors.File); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// resolveProfile looks up args[0], falling back to the configured profile.
func resolveProfile(cmd *cobra.Command, args []string) (selector.Profile, error) {
	cfg, err := configFrom(cmd.Context())
	if err != nil {
		return selector.Profile{}, err
	}
	reg, err := registryFor(cfg)
	if err != nil {
		return selector.Profile{}, err
	}
	ref := cfg.Selectors.Profile
	if len(args) > 0 {
		ref = args[0]
	}
	return reg.Lookup(ref)
}

func newProfilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			reg, err := registryFor(cfg)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tDESCRIPTION")
			for _, p := range reg.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Version, p.Description)
			}
			return w.Flush()
		},
	}
}

func newProfilesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name[@version]]",
		Short: "Print a profile as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveProfile(cmd, args)
			if err != nil {
				return err
			}
			data, err := selector.Encode(p)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newProfilesCheckCmd() *cobra.Command {
	var snapshot string
	checkCmd := &cobra.Command{
		Use:   "check [name[@version]] --html page.html",
		Short: "Evaluate a profile against a saved page without a browser",
		Long: `Evaluates every XPath candidate of the profile against a saved DOM snapshot
and reports the match counts. CSS candidates cannot be evaluated offline and are
listed as skipped. Exits non-zero when a target matched nothing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveProfile(cmd, args)
			if err != nil {
				return err
			}
			f, err := os.Open(snapshot)
			if err != nil {
				return fmt.Errorf("failed to open snapshot: %w", err)
			}
			defer f.Close()
			doc, err := selector.ParseSnapshot(f)
			if err != nil {
				return err
			}

			report := selector.Inspect(doc, p)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TARGET\tLOCATOR\tMATCHES")
			for _, fd := range report.Findings {
				matches := fmt.Sprint(fd.Matches)
				switch {
				case fd.Err != nil:
					matches = "error: " + fd.Err.Error()
				case fd.Skipped:
					matches = "skipped"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", fd.Target, fd.Locator, matches)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nContent frames: %d, relay frames: %d\n", report.ContentFrames, report.RelayFrames)

			if unmatched := report.Unmatched(); len(unmatched) > 0 {
				return fmt.Errorf("%w: %v", errUnmatchedTargets, unmatched)
			}
			return nil
		},
	}
	checkCmd.Flags().StringVar(&snapshot, "html", "", "Saved HTML snapshot to check against")
	_ = checkCmd.MarkFlagRequired("html")
	return checkCmd
}
