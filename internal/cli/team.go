package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/config"
)

func newTeamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage teams",
	}
	cmd.AddCommand(newTeamAddCmd())
	cmd.AddCommand(newTeamListCmd())
	cmd.AddCommand(newTeamRemoveCmd())
	cmd.AddCommand(newTeamBudgetCmd())
	return cmd
}

func newTeamAddCmd() *cobra.Command {
	var (
		name        string
		description string
		budget      float64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a team with a monthly budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			st, err := openStore(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			t, err := st.CreateTeam(cmd.Context(), name, description, budget)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created team %q (%s) with monthly budget $%.2f\n", t.Name, t.TeamID, t.MonthlyBudget)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Team name")
	cmd.Flags().StringVar(&description, "description", "", "Team description")
	cmd.Flags().Float64Var(&budget, "budget", 0, "Monthly budget in USD")
	return cmd
}

func newTeamListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := openStore(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			teams, err := st.ListTeams(cmd.Context())
			if err != nil {
				return err
			}
			if len(teams) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No teams.")
				return nil
			}
			for _, t := range teams {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "- %s (roles=%d spend=$%.2f/$%.2f status=%s)\n",
					t.Name, t.RoleCount, t.CurrentSpend, t.MonthlyBudget, t.Status)
			}
			return nil
		},
	}
	return cmd
}

func newTeamRemoveCmd() *cobra.Command {
	var (
		name string
		yes  bool
	)
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a team and its data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			if !yes {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Remove team %q and all its data? Type the team name to confirm:\n", name)
				in := bufio.NewReader(cmd.InOrStdin())
				line, err := in.ReadString('\n')
				if err != nil && !strings.Contains(err.Error(), "EOF") {
					return err
				}
				if strings.TrimSpace(line) != name {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			home := config.MustHomeFrom(cmd.Context())
			st, err := openStore(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.DeleteTeam(cmd.Context(), name); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Removed.")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Team name")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip confirmation prompt")
	return cmd
}

func newTeamBudgetCmd() *cobra.Command {
	var (
		name   string
		budget float64
	)
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Set a team's monthly budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			if budget < 0 {
				return errors.New("--budget must be >= 0")
			}
			home := config.MustHomeFrom(cmd.Context())
			st, err := openStore(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.SetTeamBudget(cmd.Context(), name, budget); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set monthly budget for %q to $%.2f\n", name, budget)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Team name")
	cmd.Flags().Float64Var(&budget, "budget", 0, "Monthly budget in USD")
	return cmd
}
