package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"garland/internal/catalog"
	"garland/internal/importer"
	"garland/internal/services"
	"garland/internal/titles"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import movies from a spreadsheet",
	}

	importCmd.AddCommand(newImportScanCommand(ctx))
	importCmd.AddCommand(newImportCommitCommand(ctx))
	importCmd.AddCommand(newImportSearchCommand(ctx))

	return importCmd
}

func newImportScanCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var planPath string

	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Match spreadsheet rows against TMDB and write a review plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := importer.ParseFile(args[0])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("no importable rows in %s", args[0])
			}

			var batch *importer.Batch
			err = ctx.withStore(func(store *catalog.Store) error {
				rec, err := ctx.newReconciler(store, importer.WithProgress(func(done, total int) {
					fmt.Fprintf(cmd.ErrOrStderr(), "\rmatching %d/%d", done, total)
					if done == total {
						fmt.Fprintln(cmd.ErrOrStderr())
					}
				}))
				if err != nil {
					return err
				}
				batch, err = rec.Scan(cmd.Context(), userID, rows)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderCandidateTable(batch.Candidates))
			fmt.Fprintf(out, "%d of %d rows selected for import\n", batch.SelectedCount(), len(batch.Candidates))

			target, err := ctx.resolvePlanPath(planPath, batch.ID)
			if err != nil {
				return err
			}
			if err := writePlanFile(target, importer.NewPlan(batch)); err != nil {
				return err
			}
			fmt.Fprintf(out, "Review plan written to %s\n", target)
			fmt.Fprintln(out, "Edit selected/override_tmdb_id as needed, then run `garland import commit` on the plan.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User whose collection receives the import")
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Destination for the review plan JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newImportCommitCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "commit <plan.json>",
		Short: "Persist the selected rows of a reviewed plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := readPlanFile(args[0])
			if err != nil {
				return err
			}
			if userID != "" && userID != plan.UserID {
				return fmt.Errorf("plan belongs to user %q, not %q", plan.UserID, userID)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire import lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another import commit is in progress (lock %s)", cfg.LockPath())
			}
			defer lock.Unlock()

			var summary *importer.Summary
			err = ctx.withStore(func(store *catalog.Store) error {
				rec, err := ctx.newReconciler(store)
				if err != nil {
					return err
				}
				batch, err := plan.Resolve(cmd.Context(), rec)
				if err != nil {
					return err
				}
				summary, err = rec.Commit(cmd.Context(), batch)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d, failed %d, skipped %d\n", summary.Imported, summary.Failed, summary.Skipped)
			for _, failure := range summary.Failures {
				fmt.Fprintf(out, "  row %d (%s): %s\n", failure.RowIndex, failure.Title, failure.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Expected plan owner; rejected when it differs")
	return cmd
}

func newImportSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search TMDB for manual override candidates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			searcher, err := ctx.newSearcher()
			if err != nil {
				return err
			}
			response, err := searcher.SearchMovie(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(response.Results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results")
				return nil
			}

			rows := make([][]string, 0, len(response.Results))
			for _, result := range response.Results {
				rows = append(rows, []string{
					strconv.FormatInt(result.ID, 10),
					result.Title,
					titles.Year(result.ReleaseDate),
					fmt.Sprintf("%.1f", result.VoteAverage),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"TMDB ID", "Title", "Year", "Rating"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight}))
			return nil
		},
	}
}

func renderCandidateTable(candidates []importer.Candidate) string {
	rows := make([][]string, 0, len(candidates))
	for _, candidate := range candidates {
		matchTitle := ""
		matchYear := ""
		if candidate.Match != nil {
			matchTitle = candidate.Match.Title
			matchYear = titles.Year(candidate.Match.ReleaseDate)
		}
		rows = append(rows, []string{
			strconv.Itoa(candidate.Row.Index + 1),
			candidate.Row.Title,
			matchTitle,
			matchYear,
			strconv.Itoa(candidate.Confidence),
			string(candidate.Status),
			yesNo(candidate.Selected),
		})
	}
	return renderTable(
		[]string{"Row", "Title", "Match", "Year", "Confidence", "Status", "Selected"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft})
}

func (c *commandContext) resolvePlanPath(flagValue, batchID string) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return filepath.Abs(flagValue)
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg.Paths.PlanDir, "plan-"+batchID+".json"), nil
}

func writePlanFile(path string, plan *importer.Plan) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plan directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plan file: %w", err)
	}
	defer file.Close()
	return importer.WritePlan(file, plan)
}

func readPlanFile(path string) (*importer.Plan, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "review", "open plan", path, err)
		}
		return nil, fmt.Errorf("open plan file: %w", err)
	}
	defer file.Close()
	return importer.ReadPlan(file)
}
