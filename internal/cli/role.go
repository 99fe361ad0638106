package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/config"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage team roles",
	}
	cmd.AddCommand(newRoleAddCmd())
	cmd.AddCommand(newRoleListCmd())
	cmd.AddCommand(newRoleDisableCmd())
	return cmd
}

func newRoleAddCmd() *cobra.Command {
	var (
		team      string
		title     string
		expertise string
		provider  string
		goals     string
		persona   string
		tools     []string
		dependsOn string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a role to a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			if team == "" || title == "" {
				return errors.New("--team and --title are required")
			}
			switch expertise {
			case "", models.ExpertiseJunior, models.ExpertiseIntermediate, models.ExpertiseSenior, models.ExpertiseExpert:
			default:
				return fmt.Errorf("expertise must be one of junior, intermediate, senior, expert")
			}
			home := config.MustHomeFrom(cmd.Context())
			st, err := openStore(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			role, err := st.CreateRole(cmd.Context(), team, models.Role{
				Title:     title,
				Expertise: expertise,
				Provider:  provider,
				Goals:     goals,
				Persona:   persona,
				Tools:     tools,
				DependsOn: dependsOn,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added role %q (%s) to team %q\n", role.Title, role.Expertise, team)
			return nil
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "Team name")
	cmd.Flags().StringVar(&title, "title", "", "Role title")
	cmd.Flags().StringVar(&expertise, "expertise", models.ExpertiseIntermediate, "Expertise: junior, intermediate, senior, or expert")
	cmd.Flags().StringVar(&provider, "provider", "", "Preferred backend identifier (advisory)")
	cmd.Flags().StringVar(&goals, "goals", "", "Role goals")
	cmd.Flags().StringVar(&persona, "persona", "", "Role persona (backstory)")
	cmd.Flags().StringSliceVar(&tools, "tools", nil, "Tool names available to the role")
	cmd.Flags().StringVar(&dependsOn, "depends-on", "", "Title of an earlier role whose output feeds this one")
	return cmd
}

func newRoleListCmd() *cobra.Command {
	var team string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a team's roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if team == "" {
				return errors.New("--team is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			st, err := openStore(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			roles, err := st.ListRoles(cmd.Context(), team)
			if err != nil {
				return err
			}
			if len(roles) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No roles.")
				return nil
			}
			for _, r := range roles {
				state := "active"
				if !r.Active {
					state = "inactive"
				}
				line := fmt.Sprintf("- %s (%s, %s)", r.Title, r.Expertise, state)
				if r.Provider != "" {
					line += " prefers " + r.Provider
				}
				if r.DependsOn != "" {
					line += " after " + r.DependsOn
				}
				if len(r.Tools) > 0 {
					line += " tools=" + strings.Join(r.Tools, ",")
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "Team name")
	return cmd
}

func newRoleDisableCmd() *cobra.Command {
	var (
		team   string
		title  string
		enable bool
	)
	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Disable a role (or re-enable with --enable)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if team == "" || title == "" {
				return errors.New("--team and --title are required")
			}
			home := config.MustHomeFrom(cmd.Context())
			st, err := openStore(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.SetRoleActive(cmd.Context(), team, title, enable); err != nil {
				return err
			}
			if enable {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Enabled role %q\n", title)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Disabled role %q\n", title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "Team name")
	cmd.Flags().StringVar(&title, "title", "", "Role title")
	cmd.Flags().BoolVar(&enable, "enable", false, "Re-enable instead of disabling")
	return cmd
}
