package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowsweep/flowsweep/pkg/flowsweep/config"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

type runtimeState struct {
	configPath     string
	cfg            *config.Config
	outputFormat   string
	logDirOverride string
	nonInteractive bool
	assumeYes      bool
	verbose        bool
	writer         io.Writer
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:   "flowsweep",
		Short: "Salesforce flow version cleanup",
		Long:  "flowsweep deletes obsolete Salesforce flow versions across one or more orgs,\nauthenticating per org through a browser-based OAuth handshake.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("FLOWSWEEP_OUTPUT")
			}
			if rt.logDirOverride == "" {
				rt.logDirOverride = os.Getenv("FLOWSWEEP_LOG_DIR")
			}
			if !rt.nonInteractive {
				rt.nonInteractive = strings.EqualFold(os.Getenv("FLOWSWEEP_NON_INTERACTIVE"), "true")
			}
			if !rt.assumeYes {
				rt.assumeYes = strings.EqualFold(os.Getenv("FLOWSWEEP_YES"), "true")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("FLOWSWEEP_VERBOSE"), "true")
			}

			// Skip config loading for commands that don't need it
			if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "orgs" {
				return nil
			}
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			loaded, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			rt.cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().StringVar(&rt.logDirOverride, "log-dir", "", "Directory for session logs and deletion reports")
	root.PersistentFlags().BoolVar(&rt.nonInteractive, "non-interactive", false, "Never prompt; production orgs are skipped unless auto-confirmed")
	root.PersistentFlags().BoolVarP(&rt.assumeYes, "yes", "y", false, "Answer all confirmation prompts with yes")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable verbose logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewRunCommand(),
		NewListCommand(),
		NewOrgsCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) OutputFormat() string {
	if rt.outputFormat != "" {
		return rt.outputFormat
	}
	if rt.cfg != nil && rt.cfg.Settings.OutputFormat != "" {
		return rt.cfg.Settings.OutputFormat
	}
	return "table"
}

func (rt *runtimeState) LogDir() string {
	if rt.logDirOverride != "" {
		return rt.logDirOverride
	}
	if rt.cfg != nil {
		return rt.cfg.Settings.LogDir
	}
	return ""
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) configPathValue() string {
	if rt.configPath == "" {
		return config.DefaultConfigPath()
	}
	return rt.configPath
}

// selectOrgs filters the configured orgs down to the instances named on the
// command line. No arguments selects every org.
func selectOrgs(cfg *config.Config, args []string) ([]config.Org, error) {
	if len(args) == 0 {
		return cfg.Orgs, nil
	}
	byInstance := make(map[string]config.Org, len(cfg.Orgs))
	for _, org := range cfg.Orgs {
		byInstance[org.Instance] = org
	}
	selected := make([]config.Org, 0, len(args))
	for _, arg := range args {
		org, ok := byInstance[config.NormalizeInstanceURL(arg)]
		if !ok {
			return nil, errors.New("org not configured: " + arg)
		}
		selected = append(selected, org)
	}
	return selected, nil
}
