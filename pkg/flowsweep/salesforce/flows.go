package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// CompositeBatchLimit is the Tooling composite API's maximum number of
// sub-requests per call.
const CompositeBatchLimit = 25

// FlowVersion is one deletable version candidate. Produced by the resolver,
// consumed by the deletion engine, never mutated.
type FlowVersion struct {
	ID            string `json:"id"`
	DefinitionID  string `json:"definitionId"`
	APIName       string `json:"apiName"`
	Label         string `json:"label"`
	VersionNumber int    `json:"versionNumber"`
	Status        string `json:"status"`
}

// Active reports whether the version is the org's live one.
func (v FlowVersion) Active() bool { return v.Status == "Active" }

// VersionResult is the reconciled outcome for exactly one candidate after the
// composite calls complete.
type VersionResult struct {
	Version    FlowVersion
	StatusCode int
	Err        error
}

// Deleted reports whether the sub-request succeeded (composite delete answers
// 204 per removed record).
func (r VersionResult) Deleted() bool {
	return r.Err == nil && r.StatusCode == http.StatusNoContent
}

type FlowService struct {
	client *Client
}

func (c *Client) Flows() *FlowService {
	return &FlowService{client: c}
}

const flowVersionFields = "Id, MasterLabel, VersionNumber, Status, DefinitionId, Definition.DeveloperName, Definition.MasterLabel"

type flowRecord struct {
	ID            string `json:"Id"`
	MasterLabel   string `json:"MasterLabel"`
	VersionNumber int    `json:"VersionNumber"`
	Status        string `json:"Status"`
	DefinitionID  string `json:"DefinitionId"`
	Definition    struct {
		DeveloperName string `json:"DeveloperName"`
		MasterLabel   string `json:"MasterLabel"`
	} `json:"Definition"`
}

// OldVersions resolves every inactive flow version that is not the latest
// version of its definition. An empty result is valid.
func (s *FlowService) OldVersions(ctx context.Context) ([]FlowVersion, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Flow WHERE Status != 'Active' ORDER BY Definition.DeveloperName, VersionNumber DESC",
		flowVersionFields)
	return s.resolve(ctx, soql)
}

// OldVersionsByName is OldVersions restricted to the given definition API
// names. Names without a matching definition simply contribute no candidates.
func (s *FlowService) OldVersionsByName(ctx context.Context, names []string) ([]FlowVersion, error) {
	if len(names) == 0 {
		return nil, nil
	}
	conditions := make([]string, 0, len(names))
	for _, name := range names {
		conditions = append(conditions, fmt.Sprintf("Definition.DeveloperName = '%s'", escapeSOQL(name)))
	}
	soql := fmt.Sprintf(
		"SELECT %s FROM Flow WHERE (%s) AND Status != 'Active' ORDER BY Definition.DeveloperName, VersionNumber DESC",
		flowVersionFields, strings.Join(conditions, " OR "))
	return s.resolve(ctx, soql)
}

func (s *FlowService) resolve(ctx context.Context, soql string) ([]FlowVersion, error) {
	var result struct {
		Records []flowRecord `json:"records"`
	}
	if err := s.client.toolingQuery(ctx, soql, &result); err != nil {
		return nil, err
	}
	versions := make([]FlowVersion, 0, len(result.Records))
	for _, record := range result.Records {
		versions = append(versions, FlowVersion{
			ID:            record.ID,
			DefinitionID:  record.DefinitionID,
			APIName:       record.Definition.DeveloperName,
			Label:         record.Definition.MasterLabel,
			VersionNumber: record.VersionNumber,
			Status:        record.Status,
		})
	}
	return filterOldVersions(versions), nil
}

// filterOldVersions drops the latest version of each definition and anything
// active, preserving input order so repeated runs are deterministic.
func filterOldVersions(versions []FlowVersion) []FlowVersion {
	latest := map[string]int{}
	for _, v := range versions {
		if v.VersionNumber > latest[v.DefinitionID] {
			latest[v.DefinitionID] = v.VersionNumber
		}
	}
	var candidates []FlowVersion
	for _, v := range versions {
		if v.Active() || v.VersionNumber >= latest[v.DefinitionID] {
			continue
		}
		candidates = append(candidates, v)
	}
	return candidates
}

func escapeSOQL(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

type compositeSubRequest struct {
	Method      string `json:"method"`
	URL         string `json:"url"`
	ReferenceID string `json:"referenceId"`
}

type compositeRequest struct {
	AllOrNone        bool                  `json:"allOrNone"`
	CompositeRequest []compositeSubRequest `json:"compositeRequest"`
}

type compositeSubResponse struct {
	ReferenceID    string          `json:"referenceId"`
	HTTPStatusCode int             `json:"httpStatusCode"`
	Body           json.RawMessage `json:"body"`
}

type compositeResponse struct {
	CompositeResponse []compositeSubResponse `json:"compositeResponse"`
}

// DeleteVersions removes the given versions through the Tooling composite API
// in stable-order batches of at most CompositeBatchLimit. Sub-requests execute
// independently (allOrNone=false), so one batch can mix successes and
// failures. Every input candidate maps to exactly one VersionResult: a batch
// rejected as a whole marks all its candidates failed with a BatchError, and
// the remaining batches still run. Failed items are reported, never retried.
func (s *FlowService) DeleteVersions(ctx context.Context, versions []FlowVersion) ([]VersionResult, error) {
	results := make([]VersionResult, 0, len(versions))
	endpoint := fmt.Sprintf("/services/data/%s/tooling/composite", s.client.apiVersion)
	for batchNum := 0; len(versions) > 0; batchNum++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		batch := versions
		if len(batch) > CompositeBatchLimit {
			batch = batch[:CompositeBatchLimit]
		}
		versions = versions[len(batch):]

		request := compositeRequest{CompositeRequest: make([]compositeSubRequest, 0, len(batch))}
		refs := make(map[string]int, len(batch))
		for i, version := range batch {
			ref := uuid.NewString()
			refs[ref] = i
			request.CompositeRequest = append(request.CompositeRequest, compositeSubRequest{
				Method:      http.MethodDelete,
				URL:         fmt.Sprintf("/services/data/%s/tooling/sobjects/Flow/%s", s.client.apiVersion, version.ID),
				ReferenceID: ref,
			})
		}

		var response compositeResponse
		if err := s.client.do(ctx, http.MethodPost, endpoint, nil, request, &response); err != nil {
			batchErr := &BatchError{Batch: batchNum + 1, Err: err}
			for _, version := range batch {
				results = append(results, VersionResult{Version: version, Err: batchErr})
			}
			continue
		}

		batchResults := make([]VersionResult, len(batch))
		for i, version := range batch {
			batchResults[i] = VersionResult{
				Version: version,
				Err:     fmt.Errorf("no result returned for flow version %s", version.ID),
			}
		}
		for _, sub := range response.CompositeResponse {
			i, ok := refs[sub.ReferenceID]
			if !ok {
				continue
			}
			result := VersionResult{Version: batch[i], StatusCode: sub.HTTPStatusCode}
			if sub.HTTPStatusCode != http.StatusNoContent {
				result.Err = fmt.Errorf("delete rejected: %s", subErrorMessage(sub))
			}
			batchResults[i] = result
		}
		results = append(results, batchResults...)
	}
	return results, nil
}

func subErrorMessage(sub compositeSubResponse) string {
	var parsed []apiErrorBody
	if len(sub.Body) > 0 && json.Unmarshal(sub.Body, &parsed) == nil && len(parsed) > 0 {
		if parsed[0].ErrorCode != "" {
			return fmt.Sprintf("%s: %s", parsed[0].ErrorCode, parsed[0].Message)
		}
		return parsed[0].Message
	}
	return fmt.Sprintf("status %d", sub.HTTPStatusCode)
}
