// Package cli implements the workforce command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/config"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/store"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/store/postgres"
)

func NewRootCmd(version string) *cobra.Command {
	var homeOverride string

	cmd := &cobra.Command{
		Use:          "workforce",
		Short:        "WorkForce -- AI role teams with budget-aware model routing",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithHome(cmd.Context(), home))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override WorkForce home directory (default: ~/.workforce, env: WORKFORCE_HOME)")

	cmd.AddCommand(newTeamCmd())
	cmd.AddCommand(newRoleCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}

// openStore opens the store per environment settings (postgres when
// configured, sqlite at home otherwise).
func openStore(home string) (store.Store, error) {
	s := config.FromEnv()
	if s.DBDriver == "postgres" {
		return postgres.Open(s.DBURL)
	}
	if s.DBURL != "" {
		return store.OpenWithOptions(store.OpenOptions{DSN: s.DBURL})
	}
	return store.Open(home)
}
