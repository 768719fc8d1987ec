package access

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellhub/shopctl/internal/api"
	"github.com/sellhub/shopctl/internal/auth"
	"github.com/sellhub/shopctl/internal/config"
	"github.com/sellhub/shopctl/internal/credstore"
)

func newResolver(t *testing.T, handler http.Handler) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("SHOPCTL_NO_KEYRING", "1")
	store := credstore.NewStore(t.TempDir())
	require.NoError(t, store.Save(&credstore.Credentials{
		Identity:     credstore.Identity{UserID: "1", StoreID: "5"},
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}))

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	mgr := auth.NewManager(cfg, store, &http.Client{}, nil)
	return NewResolver(api.NewClient(cfg, mgr, store, nil, nil), nil)
}

func TestNormalizeFlag(t *testing.T) {
	enabled := []any{true, float64(1), 1, "1", "true", json.Number("1")}
	for _, v := range enabled {
		if !NormalizeFlag(v) {
			t.Errorf("NormalizeFlag(%#v) = false, want true", v)
		}
	}

	disabled := []any{false, float64(0), 0, "0", "false", nil, "yes", float64(2), "TRUE", " true", []any{1}, map[string]any{}}
	for _, v := range disabled {
		if NormalizeFlag(v) {
			t.Errorf("NormalizeFlag(%#v) = true, want false", v)
		}
	}
}

func TestLoadStoreFeatures(t *testing.T) {
	resolver := newResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stores/5", r.URL.Path)
		require.Equal(t, "5", r.Header.Get("X-Store-ID"))
		require.Equal(t, "2", r.Header.Get("X-Branch-ID"))
		w.Write([]byte(`{"success":true,"data":{
			"id": 5,
			"name": "Main store",
			"billing_status": "active",
			"billing_paid_until": "2099-05-01",
			"multi_branch": "1",
			"loyalty": 1,
			"analytics": "true",
			"pos": "yes",
			"wholesale": 0
		}}`))
	}))

	features := resolver.LoadStoreFeatures(context.Background(), "5", "2")
	require.NotNil(t, features)
	assert.Equal(t, BillingActive, features.BillingStatus)
	require.NotNil(t, features.BillingPaidUntil)
	assert.Equal(t, 2099, features.BillingPaidUntil.Year())

	assert.True(t, resolver.IsFeatureEnabled("multi_branch"))
	assert.True(t, resolver.IsFeatureEnabled("loyalty"))
	assert.True(t, resolver.IsFeatureEnabled("analytics"))
	assert.False(t, resolver.IsFeatureEnabled("pos"), `"yes" is not a whitelisted truthy value`)
	assert.False(t, resolver.IsFeatureEnabled("wholesale"))
	assert.False(t, resolver.IsFeatureEnabled("never_heard_of_it"))
}

func TestLoadStoreFeaturesBillingRejection(t *testing.T) {
	resolver := newResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"message":"Billing period has ended, please renew"}`))
	}))

	features := resolver.LoadStoreFeatures(context.Background(), "5", "")
	require.NotNil(t, features, "billing rejection must resolve, not fail")
	assert.Equal(t, BillingExpired, features.BillingStatus)
	assert.False(t, resolver.IsFeatureEnabled("multi_branch"))

	got := resolver.CheckBillingAccess()
	assert.False(t, got.HasAccess)
}

func TestLoadStoreFeaturesOtherErrorLeavesUnset(t *testing.T) {
	resolver := newResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"message":"DB down"}`))
	}))

	features := resolver.LoadStoreFeatures(context.Background(), "5", "")
	assert.Nil(t, features, "non-billing failure must leave features unknown")
	assert.Nil(t, resolver.Features())
}

func TestLoadPermissionCatalog(t *testing.T) {
	resolver := newResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/permissions", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":[
			{"code":"orders.view","name":"View orders","group":"orders","enabled":"1"},
			{"code":"orders.refund","name":"Refund orders","group":"orders","enabled":0},
			{"code":"reports.sales","name":"Sales reports","group":"reports","enabled":true}
		]}`))
	}))

	catalog := resolver.LoadPermissionCatalog(context.Background(), "5", "")
	require.Len(t, catalog.Entries, 3)
	assert.True(t, catalog.Entries[0].Enabled)
	assert.False(t, catalog.Entries[1].Enabled)
	assert.Equal(t, "reports", catalog.Entries[2].Group)
}

func TestLoadPermissionCatalogWrappedShape(t *testing.T) {
	resolver := newResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"permissions":[{"code":"orders.view","group":"orders","enabled":1}]}}`))
	}))

	catalog := resolver.LoadPermissionCatalog(context.Background(), "5", "")
	require.Len(t, catalog.Entries, 1)
	assert.Equal(t, "orders.view", catalog.Entries[0].Code)
}

func TestLoadPermissionCatalogErrorResolvesEmpty(t *testing.T) {
	resolver := newResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"message":"Billing locked"}`))
	}))

	catalog := resolver.LoadPermissionCatalog(context.Background(), "5", "")
	assert.Empty(t, catalog.Entries)
}

func TestLoadGrantedPermissions(t *testing.T) {
	resolver := newResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/permissions/me", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":["orders.view","products.edit"]}`))
	}))

	codes := resolver.LoadGrantedPermissions(context.Background(), "5", "")
	assert.Equal(t, []string{"orders.view", "products.edit"}, codes)
	assert.True(t, resolver.HasPermission("orders.view"))
	assert.False(t, resolver.HasPermission("orders.refund"))
}

func TestLoadGrantedPermissionsErrorResolvesEmpty(t *testing.T) {
	resolver := newResolver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	codes := resolver.LoadGrantedPermissions(context.Background(), "5", "")
	assert.Empty(t, codes)
	assert.False(t, resolver.HasPermission("orders.view"))
}

func TestCheckBilling(t *testing.T) {
	date := func(y int, m time.Month, d, hh, mm int) time.Time {
		return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
	}
	paid := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name     string
		features *StoreFeatures
		now      time.Time
		want     bool
	}{
		{"not loaded", nil, date(2026, 3, 10, 12, 0), false},
		{"suspended", &StoreFeatures{BillingStatus: BillingSuspended}, date(2026, 3, 10, 12, 0), false},
		{"pending", &StoreFeatures{BillingStatus: BillingPending}, date(2026, 3, 10, 12, 0), false},
		{"active no paid-until", &StoreFeatures{BillingStatus: BillingActive}, date(2026, 3, 10, 12, 0), true},
		{
			"paid until yesterday",
			&StoreFeatures{BillingStatus: BillingActive, BillingPaidUntil: paid(date(2026, 3, 9, 18, 0))},
			date(2026, 3, 10, 1, 0),
			false,
		},
		{
			"paid until today late evening, now early morning",
			&StoreFeatures{BillingStatus: BillingActive, BillingPaidUntil: paid(date(2026, 3, 10, 23, 59))},
			date(2026, 3, 10, 0, 1),
			true,
		},
		{
			"paid until today early morning, now late evening",
			&StoreFeatures{BillingStatus: BillingActive, BillingPaidUntil: paid(date(2026, 3, 10, 0, 1))},
			date(2026, 3, 10, 23, 59),
			true,
		},
		{
			"paid until tomorrow",
			&StoreFeatures{BillingStatus: BillingActive, BillingPaidUntil: paid(date(2026, 3, 11, 0, 0))},
			date(2026, 3, 10, 12, 0),
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkBilling(tt.features, tt.now)
			assert.Equal(t, tt.want, got.HasAccess)
			if !tt.want {
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}

func TestCheckBillingReasonCarriesStatus(t *testing.T) {
	got := checkBilling(&StoreFeatures{BillingStatus: BillingSuspended}, time.Now())
	assert.Contains(t, got.Reason, BillingSuspended)
}

func TestParsePaidUntilLayouts(t *testing.T) {
	for _, s := range []string{"2026-05-01", "2026-05-01 00:00:00", "2026-05-01T00:00:00Z"} {
		got := parsePaidUntil(s)
		require.NotNil(t, got, s)
		assert.Equal(t, time.May, got.Month())
	}
	assert.Nil(t, parsePaidUntil("soon"))
	assert.Nil(t, parsePaidUntil(nil))
	assert.Nil(t, parsePaidUntil(""))
}

func TestGroupMetadata(t *testing.T) {
	assert.Equal(t, "Orders", groupLabel("orders"))
	assert.Equal(t, "custom_thing", groupLabel("custom_thing"))
	require.NotEmpty(t, Groups())
	assert.Equal(t, "orders", Groups()[0].Key)
}

func TestGroupedEntries(t *testing.T) {
	catalog := PermissionCatalog{Entries: []CatalogEntry{
		{Code: "reports.sales", Group: "reports"},
		{Code: "orders.view", Group: "orders"},
		{Code: "beta.x", Group: "beta"},
	}}

	grouped := catalog.GroupedEntries()
	require.Len(t, grouped, 3)
	assert.Equal(t, "orders", grouped[0].Group.Key, "known groups come in display order")
	assert.Equal(t, "reports", grouped[1].Group.Key)
	assert.Equal(t, "beta", grouped[2].Group.Key, "unknown groups trail")
}
