package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/waabox/councildeck/internal/auth"
	"github.com/waabox/councildeck/internal/domain"
	"github.com/waabox/councildeck/internal/fakeserver"
	"github.com/waabox/councildeck/internal/logging"
	"github.com/waabox/councildeck/internal/output"
	"github.com/waabox/councildeck/internal/tui"
)

func newLoginCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Open the Copilot connection screen",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLogin(rt)
		},
	}
}

// runLogin runs the TUI. It logs to the configured file, never to the terminal.
func runLogin(rt *runtime) error {
	logFile, err := logging.OpenFile(rt.cfg.Log.File)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log := logging.New(rt.cfg.LogLevelOrDefault(), logFile)

	client, err := rt.newClient(log)
	if err != nil {
		return err
	}
	log.Info().Str("base_url", client.BaseURL()).Msg("starting councildeck")

	var program *tea.Program
	coord := auth.NewCoordinator(client,
		auth.WithLogger(log),
		auth.WithPollTimeout(rt.cfg.PollTimeoutOrDefault()),
		auth.WithObserver(func(s domain.AuthStatus) {
			// only invoked from commands, which run after program.Run has started
			program.Send(tui.StatusChangedMsg{Status: s})
		}),
	)
	program = tui.NewProgram(tui.NewAppModel(coord, client))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func newStatusCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the backend is connected to Copilot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := rt.newClient(rt.log)
			if err != nil {
				return err
			}
			status, err := client.GetStatus(cmd.Context())
			if err != nil {
				return err
			}
			if rt.format == output.FormatTable {
				output.WriteStatusTable(rt.out, status)
				return nil
			}
			return output.WriteObject(rt.out, rt.format, status)
		},
	}
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the backend's Copilot credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := rt.newClient(rt.log)
			if err != nil {
				return err
			}
			if err := client.Logout(cmd.Context()); err != nil {
				return err
			}
			if rt.format == output.FormatTable {
				_, _ = fmt.Fprintln(rt.out, "Logged out.")
				return nil
			}
			return output.WriteObject(rt.out, rt.format, domain.PollResult{Success: true, Message: "Logged out"})
		},
	}
}

func newProvidersCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List model providers and their availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := rt.newClient(rt.log)
			if err != nil {
				return err
			}
			providers, err := client.GetProviders(cmd.Context())
			if err != nil {
				return err
			}
			if rt.format == output.FormatTable {
				output.WriteProviderTable(rt.out, providers)
				return nil
			}
			return output.WriteObject(rt.out, rt.format, providers)
		},
	}
}

func newModelsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models offered by available providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := rt.newClient(rt.log)
			if err != nil {
				return err
			}
			models, err := client.GetModels(cmd.Context())
			if err != nil {
				return err
			}
			if rt.format == output.FormatTable {
				output.WriteModelTable(rt.out, models)
				return nil
			}
			return output.WriteObject(rt.out, rt.format, models)
		},
	}
}

func newCouncilCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "council",
		Short: "Show the council configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := rt.newClient(rt.log)
			if err != nil {
				return err
			}
			cfg, err := client.GetCouncilConfig(cmd.Context())
			if err != nil {
				return err
			}
			if rt.format == output.FormatTable {
				output.WriteCouncilTable(rt.out, cfg)
				return nil
			}
			return output.WriteObject(rt.out, rt.format, cfg)
		},
	}
}

func newFakeServerCommand(rt *runtime) *cobra.Command {
	var (
		addr        string
		autoApprove time.Duration
		maxWait     time.Duration
		codeTTL     time.Duration
		openRouter  bool
	)
	cmd := &cobra.Command{
		Use:   "fake-server",
		Short: "Run an in-memory council backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fake := fakeserver.New(fakeserver.Options{
				AutoApprove: autoApprove,
				MaxWait:     maxWait,
				CodeTTL:     codeTTL,
				OpenRouter:  openRouter,
				Logger:      rt.log,
			})
			srv := &http.Server{
				Addr:              addr,
				Handler:           fake.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				rt.log.Info().Str("addr", addr).Msg("fake council backend listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			rt.log.Info().Msg("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8001", "Listen address")
	cmd.Flags().DurationVar(&autoApprove, "auto-approve", 0, "Approve every device flow after this delay (0 waits for manual approval)")
	cmd.Flags().DurationVar(&maxWait, "max-wait", 2*time.Minute, "How long the token endpoint waits for approval")
	cmd.Flags().DurationVar(&codeTTL, "code-ttl", 15*time.Minute, "How long a device code stays valid")
	cmd.Flags().BoolVar(&openRouter, "openrouter", false, "Report the OpenRouter provider as configured")
	return cmd
}
