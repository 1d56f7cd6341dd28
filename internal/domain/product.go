package domain

import "github.com/shopspring/decimal"

// Product is a catalog row owned by a vendor.
type Product struct {
	ID          int64           `json:"id"`
	VendorID    int64           `json:"vendor_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

// Vendor is the canteen/shop entity owning products. It carries its own
// organization id, which the identity resolver leans on as a last resort.
type Vendor struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Name           string `json:"name"`
}
