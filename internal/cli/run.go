package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/config"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/engine"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

func newRunCmd() *cobra.Command {
	var (
		team    string
		input   string
		quality string
		taskCap float64
		timeout time.Duration
		roles   []string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a team against an input",
		RunE: func(cmd *cobra.Command, args []string) error {
			if team == "" {
				return errors.New("--team is required")
			}
			if input == "" {
				return errors.New("--input is required")
			}
			if quality != "" && !models.ValidPreference(quality) {
				return fmt.Errorf("quality must be one of fast, balanced, premium, cost_optimized")
			}
			home := config.MustHomeFrom(cmd.Context())
			st, err := openStore(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			settings := config.FromEnv()
			eng := engine.New(st, config.BuildRegistry(settings), settings.MaxConcurrent, settings.CallTimeout)

			opts := engine.Options{Preference: quality, Timeout: timeout, Roles: roles}
			if cmd.Flags().Changed("task-cap") {
				opts.PerTaskCap = &taskCap
			}

			exec, err := eng.Run(cmd.Context(), team, input, opts)
			if exec != nil {
				printExecution(cmd, exec)
			}
			if err != nil && !errors.Is(err, engine.ErrRunFailed) {
				return err
			}
			if errors.Is(err, engine.ErrRunFailed) {
				return fmt.Errorf("run %s: %w", exec.ExecutionID, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "Team name")
	cmd.Flags().StringVar(&input, "input", "", "Task input for the team")
	cmd.Flags().StringVar(&quality, "quality", models.PreferBalanced, "Quality preference: fast, balanced, premium, or cost_optimized")
	cmd.Flags().Float64Var(&taskCap, "task-cap", 0, "Per-task spend ceiling in USD")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Run-level timeout (e.g. 5m)")
	cmd.Flags().StringSliceVar(&roles, "roles", nil, "Run only these role titles")
	return cmd
}

func printExecution(cmd *cobra.Command, exec *models.TeamExecution) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Execution %s: %s (cost $%.4f, %d tokens)\n",
		exec.ExecutionID, exec.Status, exec.TotalCost, exec.TotalTokens)
	for _, o := range exec.Breakdown {
		switch o.Status {
		case models.TaskCompleted:
			_, _ = fmt.Fprintf(out, "  [%s] %s via %s ($%.4f, %d tokens)\n",
				o.Status, o.Role.Title, o.Result.Provider, o.Result.Cost, o.Result.Tokens)
		default:
			_, _ = fmt.Fprintf(out, "  [%s] %s: %s\n", o.Status, o.Role.Title, o.Result.Error)
		}
	}
	if exec.Error != "" {
		_, _ = fmt.Fprintf(out, "Error: %s\n", exec.Error)
	}
}
