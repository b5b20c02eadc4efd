// Package tenant resolves widget handles to tenant configuration.
package tenant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supabase-community/supabase-go"

	"github.com/longhornrumble/widget-backend/internal/model"
)

// Store loads tenant configuration by public widget handle.
type Store interface {
	Resolve(ctx context.Context, handle string) (*model.TenantConfig, error)
}

// SupabaseStore implements Store against the tenant configuration tables.
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabaseStore creates a Supabase-backed tenant store.
func NewSupabaseStore(url, apiKey string) (*SupabaseStore, error) {
	if url == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}

	client, err := supabase.NewClient(url, apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &SupabaseStore{client: client}, nil
}

type handleRow struct {
	Handle   string `json:"handle"`
	TenantID string `json:"tenant_id"`
}

type configRow struct {
	TenantID string          `json:"tenant_id"`
	Config   json.RawMessage `json:"config"`
}

// Resolve maps the opaque widget handle to a tenant id, then loads that
// tenant's configuration. Config lookup tries the current tenant_configs
// table first and falls back to the legacy tenants table before giving up.
func (s *SupabaseStore) Resolve(ctx context.Context, handle string) (*model.TenantConfig, error) {
	var handles []handleRow
	_, err := s.client.From("widget_handles").
		Select("*", "", false).
		Eq("handle", handle).
		ExecuteTo(&handles)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve handle: %w", err)
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("handle not found: %s", handle)
	}

	tenantID := handles[0].TenantID

	cfg, err := s.loadConfig(tenantID, "tenant_configs")
	if err != nil {
		cfg, err = s.loadConfig(tenantID, "tenants")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config for tenant %s: %w", tenantID, err)
	}

	cfg.TenantID = tenantID
	return cfg, nil
}

func (s *SupabaseStore) loadConfig(tenantID, table string) (*model.TenantConfig, error) {
	var rows []configRow
	_, err := s.client.From(table).
		Select("*", "", false).
		Eq("tenant_id", tenantID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no config row in %s", table)
	}

	var cfg model.TenantConfig
	if err := json.Unmarshal(rows[0].Config, &cfg); err != nil {
		return nil, fmt.Errorf("malformed config: %w", err)
	}
	return &cfg, nil
}
