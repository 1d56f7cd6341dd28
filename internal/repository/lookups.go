package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/LarinhaPrates/canteen-orders/internal/domain"
)

// OrganizationForBuyer reads the buyer's profile row. Missing profile is
// domain.ErrNotFound; the identity resolver falls through to its next
// strategy.
func (r *Repository) OrganizationForBuyer(ctx context.Context, buyerID string) (int64, error) {
	query := `SELECT organization_id FROM profile WHERE buyer_id = $1 LIMIT 1`
	var orgID int64
	err := r.db.QueryRowContext(ctx, query, buyerID).Scan(&orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query profile for buyer %s: %w", buyerID, err)
	}
	return orgID, nil
}

func (r *Repository) OrganizationForVendor(ctx context.Context, vendorID int64) (int64, error) {
	query := `SELECT organization_id FROM vendor WHERE id = $1`
	var orgID int64
	err := r.db.QueryRowContext(ctx, query, vendorID).Scan(&orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query vendor %d: %w", vendorID, err)
	}
	return orgID, nil
}

func (r *Repository) ProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT id, vendor_id, name, description, price FROM product WHERE id = $1`
	var p domain.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product %d: %w", id, err)
	}
	return &p, nil
}

func (r *Repository) ProductsByVendor(ctx context.Context, vendorID int64) ([]domain.Product, error) {
	query := `SELECT id, vendor_id, name, description, price FROM product WHERE vendor_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, vendorID)
	if err != nil {
		return nil, fmt.Errorf("query products for vendor %d: %w", vendorID, err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &p.Price); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}
