package cleanup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/flowsweep/flowsweep/pkg/flowsweep/auth"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/config"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/salesforce"
)

// Authenticator produces an access token for one org.
type Authenticator interface {
	Login(ctx context.Context, org config.Org) (*auth.TokenSet, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, org config.Org) (*auth.TokenSet, error)

func (f AuthenticatorFunc) Login(ctx context.Context, org config.Org) (*auth.TokenSet, error) {
	return f(ctx, org)
}

// API is the slice of the Salesforce surface the pipeline consumes.
type API interface {
	DescribeOrganization(ctx context.Context) (*salesforce.OrgProfile, error)
	OldVersions(ctx context.Context) ([]salesforce.FlowVersion, error)
	OldVersionsByName(ctx context.Context, names []string) ([]salesforce.FlowVersion, error)
	DeleteVersions(ctx context.Context, versions []salesforce.FlowVersion) ([]salesforce.VersionResult, error)
}

// APIFactory builds an API client bound to one org's token set.
type APIFactory func(ts *auth.TokenSet) (API, error)

// ConfirmProductionFunc is the yield point for production orgs: the
// surrounding layer answers whether deletion may proceed. In batch use this
// is a static answer; interactively it is a prompt. Declining is a skip, not
// an error.
type ConfirmProductionFunc func(org config.Org, profile *salesforce.OrgProfile) (bool, error)

// ConfirmDeletionFunc is the final confirmation over the resolved candidate
// list. Declining marks every candidate skipped.
type ConfirmDeletionFunc func(org config.Org, versions []salesforce.FlowVersion) (bool, error)

// Orchestrator runs the cleanup pipeline once per org, strictly sequentially
// so only one callback listener holds a local port at a time.
type Orchestrator struct {
	Auth   Authenticator
	NewAPI APIFactory
	// ConfirmProduction resolves the production gate. Nil declines, which is
	// the safe answer for unattended runs.
	ConfirmProduction ConfirmProductionFunc
	// ConfirmDeletion, when set, is asked before any delete is issued.
	ConfirmDeletion ConfirmDeletionFunc
	// OnCandidates observes the resolved candidate list before deletion, e.g.
	// to persist the deletion report.
	OnCandidates func(org config.Org, versions []salesforce.FlowVersion)
	Logger       *zap.Logger
}

// Run executes the pipeline for every org in input order. Errors are
// recovered at the org boundary: each org yields exactly one RunResult and
// the batch always completes.
func (o *Orchestrator) Run(ctx context.Context, orgs []config.Org) []RunResult {
	results := make([]RunResult, 0, len(orgs))
	for i, org := range orgs {
		log := o.logger().With(zap.String("instance", org.Instance))
		log.Info("processing org", zap.Int("position", i+1), zap.Int("total", len(orgs)))
		result := o.runOrg(ctx, org, log)
		if result.Failed() {
			log.Error("org run failed", zap.Error(result.Err))
		} else if result.Skipped {
			log.Info("org run skipped", zap.String("reason", result.SkipReason))
		} else {
			summary := result.Summary()
			log.Info("org run complete",
				zap.Int("deleted", summary.Deleted),
				zap.Int("failed", summary.Failed),
				zap.Int("skipped", summary.Skipped))
		}
		results = append(results, result)
	}
	return results
}

func (o *Orchestrator) runOrg(ctx context.Context, org config.Org, log *zap.Logger) RunResult {
	result := RunResult{Instance: org.Instance, Records: []DeletionRecord{}}

	ts, err := o.Auth.Login(ctx, org)
	if err != nil {
		result.fail(fmt.Errorf("authentication failed: %w", err))
		return result
	}
	result.Authenticated = true
	log.Info("authenticated", zap.String("accessToken", auth.Mask(ts.AccessToken)))

	api, err := o.NewAPI(ts)
	if err != nil {
		result.fail(err)
		return result
	}

	if proceed, reason, err := o.passProductionGate(ctx, org, api, log); err != nil {
		result.fail(err)
		return result
	} else if !proceed {
		result.Skipped = true
		result.SkipReason = reason
		return result
	}

	versions, err := ResolveCandidates(ctx, org, api)
	if err != nil {
		result.fail(fmt.Errorf("flow version resolution failed: %w", err))
		return result
	}
	if len(versions) == 0 {
		log.Info("no deletable flow versions found")
		return result
	}
	log.Info("resolved deletion candidates", zap.Int("count", len(versions)))

	if o.OnCandidates != nil {
		o.OnCandidates(org, versions)
	}

	if o.ConfirmDeletion != nil {
		ok, err := o.ConfirmDeletion(org, versions)
		if err != nil {
			result.fail(err)
			return result
		}
		if !ok {
			for _, version := range versions {
				result.Records = append(result.Records, DeletionRecord{
					Flow:    version,
					Outcome: OutcomeSkipped,
					Reason:  "deletion not confirmed",
				})
			}
			return result
		}
	}

	deleteResults, err := api.DeleteVersions(ctx, versions)
	result.Records = append(result.Records, reconcile(deleteResults)...)
	if err != nil {
		result.fail(fmt.Errorf("bulk delete aborted: %w", err))
	}
	return result
}

// passProductionGate applies the safety policy. The classification query is
// skipped entirely when the org opts out of the check. A failed
// classification assumes production.
func (o *Orchestrator) passProductionGate(ctx context.Context, org config.Org, api API, log *zap.Logger) (bool, string, error) {
	if org.SkipProductionCheck {
		log.Warn("production check skipped by configuration")
		return true, "", nil
	}
	profile, err := api.DescribeOrganization(ctx)
	if err != nil {
		log.Warn("could not classify org, assuming production", zap.Error(err))
		profile = &salesforce.OrgProfile{IsSandbox: false}
	}
	if profile.IsSandbox {
		log.Info("sandbox org detected", zap.String("org", profile.Name))
		return true, "", nil
	}
	log.Warn("production org detected", zap.String("org", profile.Name))
	if org.AutoConfirmProduction {
		log.Info("auto-confirming production deletion")
		return true, "", nil
	}
	if o.ConfirmProduction == nil {
		return false, "production org; auto_confirm_production not set", nil
	}
	ok, err := o.ConfirmProduction(org, profile)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, "production deletion declined", nil
	}
	return true, "", nil
}

// ResolveCandidates applies the org's retention policy and returns the
// deletable versions.
func ResolveCandidates(ctx context.Context, org config.Org, api API) ([]salesforce.FlowVersion, error) {
	switch org.Policy {
	case config.PolicyNamedFlows:
		return api.OldVersionsByName(ctx, org.FlowNames)
	default:
		return api.OldVersions(ctx)
	}
}

// reconcile maps the engine's per-candidate results onto audit records,
// exactly one per candidate.
func reconcile(results []salesforce.VersionResult) []DeletionRecord {
	records := make([]DeletionRecord, 0, len(results))
	for _, r := range results {
		record := DeletionRecord{Flow: r.Version, HTTPStatus: r.StatusCode}
		if r.Deleted() {
			record.Outcome = OutcomeDeleted
		} else {
			record.Outcome = OutcomeFailed
			if r.Err != nil {
				record.Reason = r.Err.Error()
			}
		}
		records = append(records, record)
	}
	return records
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}
