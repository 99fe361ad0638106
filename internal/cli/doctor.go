package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/config"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/provider"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify provider configuration and reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			settings := config.FromEnv()
			out := cmd.OutOrStdout()

			var problems []string

			if st, err := openStore(home); err != nil {
				problems = append(problems, fmt.Sprintf("store: %v", err))
			} else {
				_ = st.Close()
				_, _ = fmt.Fprintf(out, "store: ok (%s)\n", settings.DBDriver)
			}

			pingCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			local := &provider.Local{BaseURL: settings.OllamaBaseURL}
			if err := local.Ping(pingCtx); err != nil {
				problems = append(problems, fmt.Sprintf("ollama at %s unreachable: %v", settings.OllamaBaseURL, err))
			} else {
				_, _ = fmt.Fprintf(out, "ollama: ok (%s)\n", settings.OllamaBaseURL)
			}

			if settings.OpenAIAPIKey == "" {
				_, _ = fmt.Fprintln(out, "openai: no API key; gpt-4 and gpt-3.5-turbo unavailable")
			} else {
				_, _ = fmt.Fprintln(out, "openai: configured")
			}
			if settings.AnthropicAPIKey == "" {
				_, _ = fmt.Fprintln(out, "anthropic: no API key; claude-3-haiku unavailable")
			} else {
				_, _ = fmt.Fprintln(out, "anthropic: configured")
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}
			_, _ = fmt.Fprintln(out, "ok")
			return nil
		},
	}
	return cmd
}
