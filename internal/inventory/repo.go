package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yardtrackpro/yardtrack-backend/pkg/db"
	"github.com/yardtrackpro/yardtrack-backend/pkg/db/models"
)

// Repository persists stock levels and their audit rows.
type Repository interface {
	// Increase adds tons to the product, creating the row when missing, and
	// returns the resulting stock.
	Increase(ctx context.Context, productID string, tons decimal.Decimal, at time.Time) (decimal.Decimal, error)
	// Decrease subtracts tons only when enough stock exists. ok is false when
	// the guard rejected the update; nothing is changed in that case.
	Decrease(ctx context.Context, productID string, tons decimal.Decimal, at time.Time) (newStock decimal.Decimal, ok bool, err error)
	// Available returns the current stock, zero for unknown products.
	Available(ctx context.Context, productID string) (decimal.Decimal, error)
	CreateInboundTicket(ctx context.Context, ticket *models.InboundTicket) error
	// RecordSale writes the sale behind a manual decrease. Sales carrying a
	// Square payment id upsert on it so the webhook and order paths converge
	// on the same row.
	RecordSale(ctx context.Context, sale *models.YardSale) error
}

type repository struct {
	provider db.Provider
}

// NewRepository binds the ledger to the shared connection provider.
func NewRepository(provider db.Provider) Repository {
	return &repository{provider: provider}
}

const increaseSQL = `
INSERT INTO product_stocks (product_id, current_stock, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (product_id) DO UPDATE
SET current_stock = product_stocks.current_stock + excluded.current_stock,
    updated_at = excluded.updated_at
RETURNING current_stock`

const decreaseSQL = `
UPDATE product_stocks
SET current_stock = current_stock - ?, updated_at = ?
WHERE product_id = ? AND current_stock >= ?
RETURNING current_stock`

type stockRow struct {
	CurrentStock decimal.Decimal `gorm:"column:current_stock"`
}

func (r *repository) conn(ctx context.Context) (*gorm.DB, error) {
	client, err := r.provider.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return client.DB().WithContext(ctx), nil
}

func (r *repository) Increase(ctx context.Context, productID string, tons decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	var rows []stockRow
	if err := conn.Raw(increaseSQL, productID, tons, at.UTC()).Scan(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	if len(rows) == 0 {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	return rows[0].CurrentStock, nil
}

func (r *repository) Decrease(ctx context.Context, productID string, tons decimal.Decimal, at time.Time) (decimal.Decimal, bool, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}
	var rows []stockRow
	if err := conn.Raw(decreaseSQL, tons, at.UTC(), productID, tons).Scan(&rows).Error; err != nil {
		return decimal.Zero, false, err
	}
	if len(rows) == 0 {
		return decimal.Zero, false, nil
	}
	return rows[0].CurrentStock, true, nil
}

func (r *repository) Available(ctx context.Context, productID string) (decimal.Decimal, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	var rows []stockRow
	err = conn.Model(&models.ProductStock{}).
		Select("current_stock").
		Where("product_id = ?", productID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return rows[0].CurrentStock, nil
}

func (r *repository) CreateInboundTicket(ctx context.Context, ticket *models.InboundTicket) error {
	conn, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return conn.Create(ticket).Error
}

func (r *repository) RecordSale(ctx context.Context, sale *models.YardSale) error {
	conn, err := r.conn(ctx)
	if err != nil {
		return err
	}
	if sale.SquarePaymentID == nil {
		return conn.Create(sale).Error
	}
	return conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "square_payment_id"}},
		DoUpdates: saleDetailUpdates(),
	}).Create(sale).Error
}

// saleDetailUpdates fills product details on a row another writer created
// first; payment and commission columns stay with that writer.
func saleDetailUpdates() clause.Set {
	return clause.Assignments(map[string]any{
		"product_id":     gorm.Expr("COALESCE(yard_sales.product_id, excluded.product_id)"),
		"tons":           gorm.Expr("COALESCE(yard_sales.tons, excluded.tons)"),
		"items":          gorm.Expr("COALESCE(yard_sales.items, excluded.items)"),
		"customer_name":  gorm.Expr("CASE WHEN yard_sales.customer_name IN ('', 'Walk-in') THEN excluded.customer_name ELSE yard_sales.customer_name END"),
		"customer_email": gorm.Expr("CASE WHEN yard_sales.customer_email = '' THEN excluded.customer_email ELSE yard_sales.customer_email END"),
		"customer_phone": gorm.Expr("CASE WHEN yard_sales.customer_phone = '' THEN excluded.customer_phone ELSE yard_sales.customer_phone END"),
		"updated_at":     gorm.Expr("excluded.updated_at"),
	})
}
