package cleanup

import (
	"context"
	"io"

	"github.com/flowsweep/flowsweep/pkg/flowsweep/auth"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/config"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/salesforce"
)

// BrowserAuthenticator performs the real browser-driven handshake for each
// org, resolving the client secret from whichever source the org configures.
type BrowserAuthenticator struct {
	// Output receives the handshake progress messages.
	Output io.Writer
	// RetryOnMismatch forwards the listener's state-mismatch policy.
	RetryOnMismatch bool
	// OpenBrowser overrides browser launching, for tests.
	OpenBrowser func(url string) error
}

func (a *BrowserAuthenticator) Login(ctx context.Context, org config.Org) (*auth.TokenSet, error) {
	secret, err := auth.ResolveClientSecret(org.ClientSecret, org.ClientSecretEnv, org.ClientSecretFile, org.ClientSecretKeyring)
	if err != nil {
		return nil, err
	}
	return auth.Login(ctx, auth.Config{
		InstanceURL:  org.Instance,
		ClientID:     org.ClientID,
		ClientSecret: secret,
	}, auth.LoginOptions{
		Port:            org.CallbackPort,
		Timeout:         org.Timeout(),
		RetryOnMismatch: a.RetryOnMismatch,
		OpenBrowser:     a.OpenBrowser,
		Output:          a.Output,
	})
}

// restAPI binds the pipeline's API surface to a salesforce.Client.
type restAPI struct {
	client *salesforce.Client
}

// NewRESTFactory returns an APIFactory that builds an instance-scoped client
// from each org's token set.
func NewRESTFactory(opts ...salesforce.Option) APIFactory {
	return func(ts *auth.TokenSet) (API, error) {
		options := append([]salesforce.Option{
			salesforce.WithInstanceURL(ts.InstanceURL),
			salesforce.WithToken(ts.AccessToken),
		}, opts...)
		client, err := salesforce.New(options...)
		if err != nil {
			return nil, err
		}
		return &restAPI{client: client}, nil
	}
}

func (a *restAPI) DescribeOrganization(ctx context.Context) (*salesforce.OrgProfile, error) {
	return a.client.Organization().Describe(ctx)
}

func (a *restAPI) OldVersions(ctx context.Context) ([]salesforce.FlowVersion, error) {
	return a.client.Flows().OldVersions(ctx)
}

func (a *restAPI) OldVersionsByName(ctx context.Context, names []string) ([]salesforce.FlowVersion, error) {
	return a.client.Flows().OldVersionsByName(ctx, names)
}

func (a *restAPI) DeleteVersions(ctx context.Context, versions []salesforce.FlowVersion) ([]salesforce.VersionResult, error) {
	return a.client.Flows().DeleteVersions(ctx, versions)
}
