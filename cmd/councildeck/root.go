package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/waabox/councildeck/internal/config"
	"github.com/waabox/councildeck/internal/council"
	"github.com/waabox/councildeck/internal/logging"
	"github.com/waabox/councildeck/internal/output"
)

// runtime is the state shared by every subcommand once flags are parsed.
type runtime struct {
	configPath string
	baseURL    string
	outputFlag string

	cfg    config.Config
	format output.Format
	log    zerolog.Logger
	out    io.Writer
	errOut io.Writer
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	rt := &runtime{configPath: config.DefaultConfigPath(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:          "councildeck",
		Short:        "Connect the LLM Council backend to GitHub Copilot",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return rt.load()
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLogin(rt)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVar(&rt.baseURL, "base-url", "", "Council backend URL (overrides config and COUNCIL_API_URL)")
	root.PersistentFlags().StringVarP(&rt.outputFlag, "output", "o", "", "Output format: table, json, yaml")

	root.AddCommand(
		newLoginCommand(rt),
		newStatusCommand(rt),
		newLogoutCommand(rt),
		newProvidersCommand(rt),
		newModelsCommand(rt),
		newCouncilCommand(rt),
		newFakeServerCommand(rt),
		newConfigCommand(rt),
	)
	return root
}

func (rt *runtime) load() error {
	cfg, err := config.LoadFrom(rt.configPath)
	if err != nil {
		return err
	}
	if rt.baseURL != "" {
		cfg.BaseURL = rt.baseURL
	}
	rt.cfg = cfg

	name := rt.outputFlag
	if name == "" {
		name = cfg.OutputOrDefault()
	}
	if rt.format, err = output.ParseFormat(name); err != nil {
		return err
	}
	rt.log = logging.NewConsole(cfg.LogLevelOrDefault(), rt.errOut)
	return nil
}

func (rt *runtime) newClient(log zerolog.Logger) (*council.Client, error) {
	ua := rt.cfg.UserAgent
	if ua == "" {
		ua = "councildeck/" + version
	}
	opts := []council.Option{
		council.WithBaseURL(rt.cfg.BaseURLOrDefault()),
		council.WithUserAgent(ua),
		council.WithLogger(log),
	}
	if rt.cfg.Timeout.Duration > 0 {
		opts = append(opts, council.WithTimeout(rt.cfg.Timeout.Duration))
	}
	return council.New(opts...)
}
