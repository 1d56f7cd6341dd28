package identity

import (
	"context"
	"errors"
	"log"
	"math"
	"strconv"

	"github.com/LarinhaPrates/canteen-orders/internal/domain"
)

var ErrOrganizationNotResolved = errors.New("buyer organization could not be resolved")

// Buyer is what the authentication collaborator hands us: the authenticated
// id plus whatever metadata the auth provider attached at sign-up.
type Buyer struct {
	ID       string
	Metadata map[string]any
}

// LegacyOrgMetadataKeys is the fixed order in which auth metadata is consulted
// for an organization id. Historical sign-up forms wrote the field under
// different names, so the precedence is part of the contract.
var LegacyOrgMetadataKeys = []string{"organization_id", "org_id", "orgId"}

// ProfileStore looks up the buyer's profile row.
type ProfileStore interface {
	OrganizationForBuyer(ctx context.Context, buyerID string) (int64, error)
}

// VendorOrgLookup resolves a vendor to the organization it belongs to.
type VendorOrgLookup interface {
	OrganizationForVendor(ctx context.Context, vendorID int64) (int64, error)
}

type strategy func(ctx context.Context, buyer Buyer, snap domain.CartSnapshot) (int64, bool)

// Resolver tries each strategy in fixed priority order and returns the first
// organization id found. Individual lookup failures degrade to a miss and
// fall through to the next strategy; only all three missing is an error.
type Resolver struct {
	profiles   ProfileStore
	vendors    VendorOrgLookup
	strategies []strategy
}

func NewResolver(profiles ProfileStore, vendors VendorOrgLookup) *Resolver {
	r := &Resolver{profiles: profiles, vendors: vendors}
	r.strategies = []strategy{
		r.fromProfile,
		r.fromLegacyMetadata,
		r.fromCartVendor,
	}
	return r
}

// Resolve returns the buyer's organization id or ErrOrganizationNotResolved.
// No order header may be written without a resolved organization.
func (r *Resolver) Resolve(ctx context.Context, buyer Buyer, snap domain.CartSnapshot) (int64, error) {
	for _, try := range r.strategies {
		if orgID, ok := try(ctx, buyer, snap); ok {
			return orgID, nil
		}
	}
	return 0, ErrOrganizationNotResolved
}

func (r *Resolver) fromProfile(ctx context.Context, buyer Buyer, _ domain.CartSnapshot) (int64, bool) {
	orgID, err := r.profiles.OrganizationForBuyer(ctx, buyer.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Printf("identity: profile lookup for buyer %s failed, falling back: %v", buyer.ID, err)
		}
		return 0, false
	}
	return orgID, orgID > 0
}

func (r *Resolver) fromLegacyMetadata(_ context.Context, buyer Buyer, _ domain.CartSnapshot) (int64, bool) {
	for _, key := range LegacyOrgMetadataKeys {
		if orgID, ok := orgIDFromMetadataValue(buyer.Metadata[key]); ok {
			return orgID, true
		}
	}
	return 0, false
}

func (r *Resolver) fromCartVendor(ctx context.Context, _ Buyer, snap domain.CartSnapshot) (int64, bool) {
	if snap.Empty() {
		return 0, false
	}
	vendorID := snap.Items[0].VendorID
	if vendorID == 0 {
		return 0, false
	}
	orgID, err := r.vendors.OrganizationForVendor(ctx, vendorID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Printf("identity: vendor %d organization lookup failed: %v", vendorID, err)
		}
		return 0, false
	}
	return orgID, orgID > 0
}

// Metadata arrives through JSON, so numbers show up as float64 and older
// records stored the id as a string.
func orgIDFromMetadataValue(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, t > 0
	case int:
		return int64(t), t > 0
	case float64:
		// Fractional values are garbage, not an id to truncate.
		if t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), t >= 1
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, n > 0
	default:
		return 0, false
	}
}
