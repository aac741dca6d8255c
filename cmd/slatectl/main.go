// Command slatectl runs contest operations from the shell: provider
// ingestion, grading, settlement, contest setup and backups.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"perfect-slate/app"
	"perfect-slate/config"
	"perfect-slate/logging"
	"perfect-slate/models"
	"perfect-slate/slate"

	"github.com/spf13/cobra"
)

var application *app.App

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slatectl",
		Short:         "Operate Perfect Slate contests",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Configure(cfg.ToLoggingConfig())
			application, err = app.New(cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if application != nil {
				application.Close()
			}
			logging.Sync()
		},
	}

	root.AddCommand(
		ingestOddsCmd(),
		updateScoresCmd(),
		gradeGameCmd(),
		finalizeContestCmd(),
		createContestCmd(),
		lockStatusCmd(),
		createUserCmd(),
		backupCmd(),
		listBackupsCmd(),
		restoreCmd(),
	)
	return root
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sportFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "sport", "MLB", "sport: NFL, NCAAF or MLB")
}

func ingestOddsCmd() *cobra.Command {
	var sport string
	cmd := &cobra.Command{
		Use:   "ingest-odds",
		Short: "Load current lines into the open contest",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := models.ParseSport(sport)
			if err != nil {
				return err
			}
			summary, err := application.Odds.Ingest(cmd.Context(), s)
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
	sportFlag(cmd, &sport)
	return cmd
}

func updateScoresCmd() *cobra.Command {
	var sport string
	cmd := &cobra.Command{
		Use:   "update-scores",
		Short: "Refresh scores, grade finished games and settle finished contests",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := models.ParseSport(sport)
			if err != nil {
				return err
			}
			summary, err := application.Scores.Update(cmd.Context(), s)
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
	sportFlag(cmd, &sport)
	return cmd
}

func gradeGameCmd() *cobra.Command {
	var gameID int64
	cmd := &cobra.Command{
		Use:   "grade-game",
		Short: "Grade the picks of a completed game",
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := application.Grading.GradeGame(cmd.Context(), gameID)
			if err != nil {
				return err
			}
			return printJSON(cmd, results)
		},
	}
	cmd.Flags().Int64Var(&gameID, "game", 0, "game ID")
	cmd.MarkFlagRequired("game")
	return cmd
}

func finalizeContestCmd() *cobra.Command {
	var contestID int64
	cmd := &cobra.Command{
		Use:   "finalize-contest",
		Short: "Grade slates, pay perfect slates and roll over an unwon pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := application.Grading.FinalizeContest(cmd.Context(), contestID)
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
	cmd.Flags().Int64Var(&contestID, "contest", 0, "contest ID")
	cmd.MarkFlagRequired("contest")
	return cmd
}

func createContestCmd() *cobra.Command {
	var (
		sport, open, lock, closeAt, pool, sponsor string
		week                                      int
	)
	cmd := &cobra.Command{
		Use:   "create-contest",
		Short: "Open a new contest, absorbing any pending rollover",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := models.ParseSport(sport)
			if err != nil {
				return err
			}
			req := models.CreateContestRequest{
				Sport:         s,
				WeekNumber:    week,
				BasePrizePool: pool,
				SponsorBonus:  sponsor,
			}
			for _, f := range []struct {
				name  string
				value string
				dst   *time.Time
			}{
				{"open", open, &req.OpenTime},
				{"lock", lock, &req.LockTime},
				{"close", closeAt, &req.CloseTime},
			} {
				t, err := time.Parse(time.RFC3339, f.value)
				if err != nil {
					return fmt.Errorf("--%s must be RFC3339: %w", f.name, err)
				}
				*f.dst = t
			}

			contest, err := application.Contests.CreateContest(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, contest)
		},
	}
	sportFlag(cmd, &sport)
	cmd.Flags().IntVar(&week, "week", 0, "week number")
	cmd.Flags().StringVar(&open, "open", "", "open time (RFC3339)")
	cmd.Flags().StringVar(&lock, "lock", "", "lock time (RFC3339)")
	cmd.Flags().StringVar(&closeAt, "close", "", "close time (RFC3339)")
	cmd.Flags().StringVar(&pool, "pool", "", "base prize pool in dollars, e.g. 1000.00")
	cmd.Flags().StringVar(&sponsor, "sponsor", "", "sponsor bonus in dollars")
	for _, name := range []string{"open", "lock", "close", "pool"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

func lockStatusCmd() *cobra.Command {
	var sport string
	cmd := &cobra.Command{
		Use:   "lock-status",
		Short: "Show the current contest's lock state",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := models.ParseSport(sport)
			if err != nil {
				return err
			}
			data, err := application.Contests.Current(cmd.Context(), s)
			if err != nil {
				return err
			}
			lock := data.Lock(time.Now())
			return printJSON(cmd, struct {
				ContestID        int64        `json:"contestId"`
				Status           slate.Status `json:"status"`
				Deadline         time.Time    `json:"deadline,omitempty"`
				RemainingSeconds int64        `json:"remainingSeconds"`
				Display          string       `json:"display"`
				Games            int          `json:"games"`
			}{data.Contest.ID, lock.Status, lock.Deadline, lock.RemainingSeconds(), lock.Display, len(data.Games)})
		},
	}
	sportFlag(cmd, &sport)
	return cmd
}

func createUserCmd() *cobra.Command {
	var email, password, username string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account and its profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := application.Auth.SignUp(cmd.Context(), models.SignUpRequest{
				Email:    email,
				Password: password,
				Username: username,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp.User)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&username, "username", "", "display name (defaults to the email local part)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot every collection and prune expired backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := application.Backups.CreateBackup(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
}

func listBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-backups",
		Short: "List backups on disk, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := application.Backups.ListBackups()
			if err != nil {
				return err
			}
			return printJSON(cmd, backups)
		},
	}
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup_YYYY-MM-DD_HH-MM-SS>",
		Short: "Upsert a backup's documents back into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			restored, err := application.Backups.RestoreBackup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, restored)
		},
	}
}
