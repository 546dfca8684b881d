package salesforce

import (
	"context"
	"errors"
)

// OrgProfile classifies an org. Derived once per run, read-only afterwards.
type OrgProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsSandbox bool   `json:"isSandbox"`
}

type OrganizationService struct {
	client *Client
}

func (c *Client) Organization() *OrganizationService {
	return &OrganizationService{client: c}
}

// Describe classifies the org via the Organization sObject's IsSandbox field.
// URL heuristics are deliberately not used; custom domains make them
// unreliable.
func (s *OrganizationService) Describe(ctx context.Context) (*OrgProfile, error) {
	soql := "SELECT Id, Name, IsSandbox FROM Organization LIMIT 1"
	var result struct {
		Records []struct {
			ID        string `json:"Id"`
			Name      string `json:"Name"`
			IsSandbox bool   `json:"IsSandbox"`
		} `json:"records"`
	}
	if err := s.client.query(ctx, soql, &result); err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, &QueryError{SOQL: soql, Err: errors.New("no organization record returned")}
	}
	record := result.Records[0]
	return &OrgProfile{
		ID:        record.ID,
		Name:      record.Name,
		IsSandbox: record.IsSandbox,
	}, nil
}
