package access

import (
	"encoding/json"
	"time"
)

// Billing status values reported by the store-detail endpoint.
const (
	BillingActive    = "active"
	BillingPending   = "pending"
	BillingSuspended = "suspended"
	BillingExpired   = "expired"
)

// StoreFeatures is the store's billing state plus its feature flags,
// normalized to strict booleans.
type StoreFeatures struct {
	BillingStatus    string
	BillingPaidUntil *time.Time
	Flags            map[string]bool
}

// Enabled reports whether a feature flag is on. Unknown names are off.
func (f *StoreFeatures) Enabled(name string) bool {
	if f == nil {
		return false
	}
	return f.Flags[name]
}

// expiredDefault is the conservative fallback used when the backend
// rejects the request for billing reasons: subscription treated as
// expired, every known feature off.
func expiredDefault() *StoreFeatures {
	return &StoreFeatures{
		BillingStatus: BillingExpired,
		Flags:         map[string]bool{},
	}
}

// billingPaidUntil layouts accepted from the backend, tried in order.
var paidUntilLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseStoreFeatures extracts billing state and feature flags from the
// store-detail payload. Fields that are not billing metadata are
// treated as feature flags and normalized.
func parseStoreFeatures(data json.RawMessage) (*StoreFeatures, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	features := &StoreFeatures{Flags: make(map[string]bool)}
	for key, value := range raw {
		switch key {
		case "billing_status":
			if s, ok := value.(string); ok {
				features.BillingStatus = s
			}
		case "billing_paid_until":
			features.BillingPaidUntil = parsePaidUntil(value)
		case "id", "name", "store_id", "created_at", "updated_at":
			// Store metadata, not a flag.
		default:
			features.Flags[key] = NormalizeFlag(value)
		}
	}
	return features, nil
}

func parsePaidUntil(value any) *time.Time {
	s, ok := value.(string)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range paidUntilLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// BillingAccess is the outcome of a billing check.
type BillingAccess struct {
	HasAccess bool
	Reason    string
}

// checkBilling applies the billing decision table against now. The
// paid-until comparison is done at day granularity so a subscription
// paid through today remains valid until midnight regardless of
// time-of-day on either side.
func checkBilling(features *StoreFeatures, now time.Time) BillingAccess {
	if features == nil {
		return BillingAccess{HasAccess: false, Reason: "store features not loaded"}
	}
	if features.BillingStatus != BillingActive {
		return BillingAccess{HasAccess: false, Reason: "billing status is " + features.BillingStatus}
	}
	if features.BillingPaidUntil != nil {
		paid := dateOnly(*features.BillingPaidUntil)
		today := dateOnly(now)
		if paid.Before(today) {
			return BillingAccess{HasAccess: false, Reason: "billing period expired"}
		}
	}
	return BillingAccess{HasAccess: true}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
