package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowsweep/flowsweep/pkg/flowsweep/cleanup"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/output"
)

func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [INSTANCE...]",
		Short: "Show deletable flow versions without deleting anything",
		Long: "Authenticate against each selected org and print the flow versions the\n" +
			"run command would delete. Nothing is modified.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			orgs, err := selectOrgs(rt.cfg, args)
			if err != nil {
				return err
			}

			authenticator := &cleanup.BrowserAuthenticator{Output: rt.Writer()}
			newAPI := cleanup.NewRESTFactory()
			format := output.Format(rt.OutputFormat())

			for _, org := range orgs {
				ts, err := authenticator.Login(cmd.Context(), org)
				if err != nil {
					return fmt.Errorf("%s: authentication failed: %w", org.Instance, err)
				}
				api, err := newAPI(ts)
				if err != nil {
					return err
				}
				versions, err := cleanup.ResolveCandidates(cmd.Context(), org, api)
				if err != nil {
					return fmt.Errorf("%s: %w", org.Instance, err)
				}

				switch format {
				case output.FormatJSON, output.FormatYAML:
					if err := output.WriteObject(rt.Writer(), format, versions); err != nil {
						return err
					}
				case output.FormatTable:
					_, _ = fmt.Fprintf(rt.Writer(), "%s: %d deletable flow version(s)\n", org.Instance, len(versions))
					output.WriteVersionTable(rt.Writer(), versions)
				case output.FormatWide:
					_, _ = fmt.Fprintf(rt.Writer(), "%s: %d deletable flow version(s)\n", org.Instance, len(versions))
					output.WriteVersionTableWide(rt.Writer(), versions)
				default:
					return fmt.Errorf("unknown output format: %s", format)
				}
			}
			return nil
		},
	}
}
