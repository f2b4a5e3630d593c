// Package file provides file-based persistence for flows and credentials,
// one JSON document per record under the configured root directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/flowdeckhq/flowdeck/pkg/models"
	"github.com/flowdeckhq/flowdeck/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on the file
// system. Suitable for local development and single-instance deployments.
type Persistence struct {
	root string
}

// NewPersistence creates a file persistence rooted at the given directory.
// A file:// prefix is accepted and stripped.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Flows returns paginated and filtered flows with in-memory operations.
func (p *Persistence) Flows(ctx context.Context, opts persistence.ListFlowsOptions) (*persistence.FlowListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}
	if !allowedSorts[opts.SortBy] {
		return nil, fmt.Errorf("invalid sort field: %s", opts.SortBy)
	}

	ids, err := p.listIDs("flows")
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Flow, 0, len(ids))

	for _, id := range ids {
		flow, err := p.FlowByID(ctx, id)
		if persistence.IsFlowNotFound(err) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to load flow %s: %w", id, err)
		}

		if opts.Owner != "" && flow.Owner != opts.Owner {
			continue
		}

		if opts.Status != nil && flow.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, flow)
	}

	sortFlows(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))
	startIdx := opts.Offset
	endIdx := opts.Offset + opts.Limit

	if startIdx >= len(filtered) {
		return &persistence.FlowListResult{
			Flows:       make([]*models.Flow, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	if endIdx > len(filtered) {
		endIdx = len(filtered)
	}

	return &persistence.FlowListResult{
		Flows:       filtered[startIdx:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(filtered),
	}, nil
}

func sortFlows(flows []*models.Flow, sortBy, sortOrder string) {
	sort.Slice(flows, func(i, j int) bool {
		var less bool

		switch sortBy {
		case "updated_at":
			less = flows[i].UpdatedAt.Before(flows[j].UpdatedAt)
		case "name":
			less = flows[i].Name < flows[j].Name
		default:
			less = flows[i].CreatedAt.Before(flows[j].CreatedAt)
		}

		if sortOrder == "desc" {
			return !less
		}

		return less
	})
}

// FlowByID loads one flow document. Soft-deleted flows are reported as not
// found.
func (p *Persistence) FlowByID(_ context.Context, id string) (*models.Flow, error) {
	filePath := filepath.Clean(path.Join(p.root, "flows", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
		}

		return nil, fmt.Errorf("failed to read flow %s: %w", id, err)
	}

	var flow models.Flow

	if err := json.Unmarshal(body, &flow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow %s: %w", id, err)
	}

	if flow.DeletedAt != nil {
		return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
	}

	return &flow, nil
}

// SaveFlow writes the flow document, stamping timestamps.
func (p *Persistence) SaveFlow(_ context.Context, flow *models.Flow) error {
	if err := os.MkdirAll(path.Join(p.root, "flows"), 0750); err != nil {
		return fmt.Errorf("failed to create flows directory: %w", err)
	}

	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow %s: %w", flow.ID, err)
	}

	filePath := path.Join(p.root, "flows", flow.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// DeleteFlow soft deletes by stamping deleted_at, keeping the document for
// recovery.
func (p *Persistence) DeleteFlow(ctx context.Context, id string) error {
	flow, err := p.FlowByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	flow.DeletedAt = &now

	return p.SaveFlow(ctx, flow)
}

// Credentials returns every stored credential descriptor.
func (p *Persistence) Credentials(ctx context.Context) ([]*models.Credential, error) {
	ids, err := p.listIDs("credentials")
	if err != nil {
		return nil, err
	}

	credentials := make([]*models.Credential, 0, len(ids))

	for _, id := range ids {
		credential, err := p.credentialByID(id)
		if err != nil {
			return nil, err
		}

		credentials = append(credentials, credential)
	}

	sort.Slice(credentials, func(i, j int) bool {
		return credentials[i].Name < credentials[j].Name
	})

	return credentials, nil
}

// CredentialsByProvider filters credentials for one app or provider key.
func (p *Persistence) CredentialsByProvider(ctx context.Context, provider string) ([]*models.Credential, error) {
	all, err := p.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Credential, 0)

	for _, credential := range all {
		if credential.Provider == provider {
			matched = append(matched, credential)
		}
	}

	return matched, nil
}

// SaveCredential writes one credential descriptor.
func (p *Persistence) SaveCredential(_ context.Context, credential *models.Credential) error {
	if err := os.MkdirAll(path.Join(p.root, "credentials"), 0750); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	now := time.Now().UTC()
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = now
	}

	credential.UpdatedAt = now

	data, err := json.MarshalIndent(credential, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential %s: %w", credential.ID, err)
	}

	filePath := path.Join(p.root, "credentials", credential.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

func (p *Persistence) credentialByID(id string) (*models.Credential, error) {
	filePath := filepath.Clean(path.Join(p.root, "credentials", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrCredentialNotFound
		}

		return nil, fmt.Errorf("failed to read credential %s: %w", id, err)
	}

	var credential models.Credential

	if err := json.Unmarshal(body, &credential); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential %s: %w", id, err)
	}

	return &credential, nil
}

func (p *Persistence) listIDs(kind string) ([]string, error) {
	root := os.DirFS(path.Join(p.root, kind))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", kind, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
