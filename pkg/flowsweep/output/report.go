package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flowsweep/flowsweep/pkg/flowsweep/salesforce"
)

// DeletionList is the on-disk record of what a run was about to delete,
// written before any delete request is sent.
type DeletionList struct {
	SessionID   string             `json:"session_id"`
	Timestamp   string             `json:"timestamp"`
	InstanceURL string             `json:"instance_url"`
	TotalFlows  int                `json:"total_flows"`
	Flows       []DeletionListItem `json:"flows"`
}

type DeletionListItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Label        string `json:"label"`
	Version      int    `json:"version"`
	Status       string `json:"status"`
	DefinitionID string `json:"definition_id"`
}

// SaveDeletionList writes the candidate list to dir and returns the file path.
// Nothing is written when the list is empty.
func SaveDeletionList(dir, sessionID, instanceURL string, versions []salesforce.FlowVersion) (string, error) {
	if len(versions) == 0 {
		return "", nil
	}

	list := DeletionList{
		SessionID:   sessionID,
		Timestamp:   time.Now().Format("2006-01-02 15:04:05"),
		InstanceURL: instanceURL,
		TotalFlows:  len(versions),
		Flows:       make([]DeletionListItem, 0, len(versions)),
	}
	for _, v := range versions {
		list.Flows = append(list.Flows, DeletionListItem{
			ID:           v.ID,
			Name:         v.APIName,
			Label:        v.Label,
			Version:      v.VersionNumber,
			Status:       v.Status,
			DefinitionID: v.DefinitionID,
		})
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", err
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create report directory: %w", err)
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("flows_to_delete_%s.json", sessionID))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write deletion list: %w", err)
	}
	return path, nil
}
