package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/LarinhaPrates/canteen-orders/internal/domain"
)

// InsertHeader writes the order header and returns the generated id. This
// statement stands alone: it is never wrapped in a transaction with the
// line batch, so a header without lines is a reachable, documented state.
func (r *Repository) InsertHeader(ctx context.Context, header *domain.OrderHeader) (uuid.UUID, error) {
	query := `INSERT INTO order_header
	            (buyer_id, organization_id, vendor_id, status, total, items_summary, lines_expected, idempotency_key, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	          RETURNING id`

	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, query,
		header.BuyerID,
		header.OrganizationID,
		header.VendorID,
		header.Status,
		header.Total,
		header.ItemsSummary,
		header.LinesExpected,
		header.IdempotencyKey,
	).Scan(&id)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return uuid.Nil, domain.ErrDuplicateSubmission
		}
		return uuid.Nil, fmt.Errorf("insert order header: %w", err)
	}
	return id, nil
}

// InsertLines batch-inserts the normalized line rows in one statement.
func (r *Repository) InsertLines(ctx context.Context, lines []domain.OrderLineRecord) error {
	if len(lines) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO order_line (order_id, product_id, quantity, unit_price) VALUES `)
	args := make([]any, 0, len(lines)*4)
	for i, line := range lines {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 4
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4)
		args = append(args, line.OrderID, line.ProductID, line.Quantity, line.UnitPrice)
	}

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}
	return nil
}

const headerColumns = `id, buyer_id, organization_id, vendor_id, status, total, items_summary, lines_expected, idempotency_key, created_at, updated_at`

func scanHeader(row interface{ Scan(...any) error }) (*domain.OrderHeader, error) {
	var h domain.OrderHeader
	err := row.Scan(
		&h.ID,
		&h.BuyerID,
		&h.OrganizationID,
		&h.VendorID,
		&h.Status,
		&h.Total,
		&h.ItemsSummary,
		&h.LinesExpected,
		&h.IdempotencyKey,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *Repository) HeaderByID(ctx context.Context, id uuid.UUID) (*domain.OrderHeader, error) {
	query := `SELECT ` + headerColumns + ` FROM order_header WHERE id = $1`
	h, err := scanHeader(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order header by id: %w", err)
	}
	return h, nil
}

func (r *Repository) HeaderByIdempotencyKey(ctx context.Context, key string) (*domain.OrderHeader, error) {
	query := `SELECT ` + headerColumns + ` FROM order_header WHERE idempotency_key = $1`
	h, err := scanHeader(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order header by idempotency key: %w", err)
	}
	return h, nil
}

func (r *Repository) ListHeadersByBuyer(ctx context.Context, buyerID string) ([]*domain.OrderHeader, error) {
	query := `SELECT ` + headerColumns + ` FROM order_header WHERE buyer_id = $1 ORDER BY created_at DESC`
	return r.listHeaders(ctx, query, buyerID)
}

func (r *Repository) ListHeadersByOrganization(ctx context.Context, orgID int64) ([]*domain.OrderHeader, error) {
	query := `SELECT ` + headerColumns + ` FROM order_header WHERE organization_id = $1 ORDER BY created_at DESC`
	return r.listHeaders(ctx, query, orgID)
}

func (r *Repository) listHeaders(ctx context.Context, query string, arg any) ([]*domain.OrderHeader, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query order headers: %w", err)
	}
	defer rows.Close()

	var headers []*domain.OrderHeader
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order header row: %w", err)
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return headers, nil
}

func (r *Repository) LinesByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLineRecord, error) {
	query := `SELECT order_id, product_id, quantity, unit_price FROM order_line WHERE order_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLineRecord
	for rows.Next() {
		var l domain.OrderLineRecord
		if err := rows.Scan(&l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line row: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}

// UpdateHeaderStatus settles an order. The WHERE clause re-checks the
// current status so two concurrent settlements cannot both win.
func (r *Repository) UpdateHeaderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	query := `UPDATE order_header SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
