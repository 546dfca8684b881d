package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowsweep/flowsweep/pkg/flowsweep/auth"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/config"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/output"
)

func NewOrgsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "Manage the configured orgs",
	}
	cmd.AddCommand(
		newOrgsListCommand(),
		newOrgsInitCommand(),
		newOrgsSetSecretCommand(),
	)
	return cmd
}

func newOrgsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured orgs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format := output.Format(rt.OutputFormat())
			switch format {
			case output.FormatJSON, output.FormatYAML:
				return output.WriteObject(rt.Writer(), format, rt.cfg.Orgs)
			case output.FormatTable, output.FormatWide:
				output.WriteOrgTable(rt.Writer(), rt.cfg.Orgs)
				return nil
			default:
				return fmt.Errorf("unknown output format: %s", format)
			}
		},
	}
}

func newOrgsInitCommand() *cobra.Command {
	var (
		instance string
		clientID string
		policy   string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a flowsweep config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPathValue()
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s", path)
				}
			}
			cfg := &config.Config{
				Orgs: []config.Org{{
					Instance:            config.NormalizeInstanceURL(instance),
					ClientID:            clientID,
					ClientSecretKeyring: config.NormalizeInstanceURL(instance),
					Policy:              policy,
					CallbackPort:        config.DefaultCallbackPort,
				}},
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			_, _ = fmt.Fprintf(rt.Writer(), "Store the connected app secret with: flowsweep orgs set-secret %s\n", cfg.Orgs[0].Instance)
			return nil
		},
	}

	cmd.Flags().StringVar(&instance, "instance", "", "Salesforce instance URL")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Connected app consumer key")
	cmd.Flags().StringVar(&policy, "policy", config.PolicyAllOldVersions, "Cleanup policy: all-old-versions or named-flows")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")

	_ = cmd.MarkFlagRequired("instance")
	_ = cmd.MarkFlagRequired("client-id")
	return cmd
}

func newOrgsSetSecretCommand() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "set-secret INSTANCE",
		Short: "Store a connected app secret in the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			instance := config.NormalizeInstanceURL(args[0])
			var key string
			found := false
			for _, org := range rt.cfg.Orgs {
				if org.Instance == instance {
					key = org.ClientSecretKeyring
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("org not configured: %s", instance)
			}
			if key == "" {
				return fmt.Errorf("org %s has no client_secret_keyring configured", instance)
			}
			if secret == "" {
				in := bufio.NewReader(cmd.InOrStdin())
				_, _ = fmt.Fprint(rt.Writer(), "Connected app secret: ")
				line, err := in.ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no secret provided")
				}
				secret = strings.TrimSpace(line)
			}
			if secret == "" {
				return errors.New("no secret provided")
			}
			if err := auth.StoreClientSecret(key, secret); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Secret stored for %s\n", instance)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Secret value (prompted when omitted)")
	return cmd
}
