// Package access resolves what the current identity may do: the
// permission catalog the backend supports, the subset granted to the
// signed-in admin, and the store's feature and billing flags. The
// layer is advisory; every load degrades to a safe default instead of
// failing, so a gate can always be evaluated.
package access

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sellhub/shopctl/internal/api"
	"github.com/sellhub/shopctl/internal/observability"
	"github.com/sellhub/shopctl/internal/output"
)

// CatalogEntry is one permission the backend knows about.
type CatalogEntry struct {
	Code    string
	Name    string
	Group   string
	Enabled bool
}

// PermissionCatalog is the full permission set, refreshed from the
// backend on every load.
type PermissionCatalog struct {
	Entries []CatalogEntry
}

// Resolver hydrates and caches access state for one session.
type Resolver struct {
	client *api.Client
	log    *observability.Log

	mu       sync.RWMutex
	catalog  PermissionCatalog
	granted  map[string]struct{}
	features *StoreFeatures
}

// NewResolver creates a resolver backed by the given client.
func NewResolver(client *api.Client, log *observability.Log) *Resolver {
	return &Resolver{
		client:  client,
		log:     log,
		granted: make(map[string]struct{}),
	}
}

// LoadPermissionCatalog fetches every permission the backend supports
// for the store. Any failure resolves to an empty catalog.
func (r *Resolver) LoadPermissionCatalog(ctx context.Context, storeID, branchID string) PermissionCatalog {
	resp, err := r.client.Execute(ctx, api.RequestContext{
		Endpoint: "/permissions",
		Method:   http.MethodGet,
		StoreID:  storeID,
		BranchID: branchID,
	})
	if err != nil {
		r.warn("permission catalog", err)
		r.setCatalog(PermissionCatalog{})
		return PermissionCatalog{}
	}

	catalog := parseCatalog(resp)
	r.setCatalog(catalog)
	return catalog
}

// LoadGrantedPermissions fetches the permission codes held by the
// current identity. Any failure resolves to an empty set.
func (r *Resolver) LoadGrantedPermissions(ctx context.Context, storeID, branchID string) []string {
	resp, err := r.client.Execute(ctx, api.RequestContext{
		Endpoint: "/permissions/me",
		Method:   http.MethodGet,
		StoreID:  storeID,
		BranchID: branchID,
	})
	if err != nil {
		r.warn("granted permissions", err)
		r.setGranted(nil)
		return nil
	}

	codes := parseGranted(resp)
	r.setGranted(codes)
	return codes
}

// LoadStoreFeatures fetches the store's feature and billing flags. A
// billing rejection resolves to the conservative expired-everything-off
// default; any other failure leaves the state unset so callers can
// distinguish "unknown" from "disabled".
func (r *Resolver) LoadStoreFeatures(ctx context.Context, storeID, branchID string) *StoreFeatures {
	resp, err := r.client.Execute(ctx, api.RequestContext{
		Endpoint: "/stores/" + storeID,
		Method:   http.MethodGet,
		StoreID:  storeID,
		BranchID: branchID,
	})
	if err != nil {
		if oe := output.AsError(err); oe != nil && (oe.Code == output.CodeBilling || output.IsBillingMessage(oe.Message)) {
			features := expiredDefault()
			r.setFeatures(features)
			return features
		}
		r.warn("store features", err)
		r.setFeatures(nil)
		return nil
	}

	features := parseFeatureResponse(resp)
	r.setFeatures(features)
	return features
}

// HasPermission tests membership in the last-loaded granted set.
func (r *Resolver) HasPermission(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.granted[code]
	return ok
}

// IsFeatureEnabled reports whether a feature flag is on. Unknown
// names, and unloaded feature state, are off.
func (r *Resolver) IsFeatureEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.features.Enabled(name)
}

// Features returns the last-loaded feature state, nil when unknown.
func (r *Resolver) Features() *StoreFeatures {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.features
}

// Catalog returns the last-loaded permission catalog.
func (r *Resolver) Catalog() PermissionCatalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// CheckBillingAccess reports whether the store's subscription state
// currently permits feature use.
func (r *Resolver) CheckBillingAccess() BillingAccess {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return checkBilling(r.features, time.Now())
}

func (r *Resolver) setCatalog(c PermissionCatalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = c
}

func (r *Resolver) setGranted(codes []string) {
	granted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		granted[code] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.granted = granted
}

func (r *Resolver) setFeatures(f *StoreFeatures) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.features = f
}

func (r *Resolver) warn(what string, err error) {
	r.log.Record(observability.Event{
		Level: observability.LevelWarn,
		Err:   fmt.Errorf("loading %s: %w", what, err),
	})
}

// parseCatalog handles both envelope shapes the permissions endpoint
// produces: data as a bare array, or data as {permissions: [...]}.
func parseCatalog(resp *api.Response) PermissionCatalog {
	env, err := resp.Envelope()
	if err != nil {
		return PermissionCatalog{}
	}

	type wireEntry struct {
		Code    string `json:"code"`
		Name    string `json:"name"`
		Group   string `json:"group"`
		Enabled any    `json:"enabled"`
	}

	var entries []wireEntry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		var wrapped struct {
			Permissions []wireEntry `json:"permissions"`
		}
		if err := json.Unmarshal(env.Data, &wrapped); err != nil {
			return PermissionCatalog{}
		}
		entries = wrapped.Permissions
	}

	catalog := PermissionCatalog{Entries: make([]CatalogEntry, 0, len(entries))}
	for _, e := range entries {
		if e.Code == "" {
			continue
		}
		catalog.Entries = append(catalog.Entries, CatalogEntry{
			Code:    e.Code,
			Name:    e.Name,
			Group:   e.Group,
			Enabled: NormalizeFlag(e.Enabled),
		})
	}
	return catalog
}

// parseGranted accepts data as a string array or as
// {permissions: [...]}.
func parseGranted(resp *api.Response) []string {
	env, err := resp.Envelope()
	if err != nil {
		return nil
	}

	var codes []string
	if err := json.Unmarshal(env.Data, &codes); err == nil {
		return codes
	}
	var wrapped struct {
		Permissions []string `json:"permissions"`
	}
	if err := json.Unmarshal(env.Data, &wrapped); err != nil {
		return nil
	}
	return wrapped.Permissions
}

func parseFeatureResponse(resp *api.Response) *StoreFeatures {
	env, err := resp.Envelope()
	if err != nil {
		return nil
	}
	features, err := parseStoreFeatures(env.Data)
	if err != nil {
		return nil
	}
	return features
}
