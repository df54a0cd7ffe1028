// Package sales stores yard-sale and commission records. Both the order
// path and the Square webhook write here, keyed by the Square payment id, so
// every write is an idempotent upsert.
package sales

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yardtrackpro/yardtrack-backend/pkg/db"
	"github.com/yardtrackpro/yardtrack-backend/pkg/db/models"
)

type Repository interface {
	// RecordCharge upserts the full order written right after a card charge.
	// A row created earlier by the webhook is completed, never duplicated.
	RecordCharge(ctx context.Context, sale *models.YardSale) error
	// RecordConfirmation upserts the webhook view of a payment and its
	// commission in one transaction. Existing order details are kept.
	RecordConfirmation(ctx context.Context, sale *models.YardSale, commission *models.Commission) error
	FindBySquarePaymentID(ctx context.Context, paymentID string) (*models.YardSale, error)
	FindCommissionBySaleID(ctx context.Context, saleID string) (*models.Commission, error)
}

type repository struct {
	provider db.Provider
}

func NewRepository(provider db.Provider) Repository {
	return &repository{provider: provider}
}

var errPaymentIDRequired = errors.New("square payment id is required")

var conflictOnPayment = []clause.Column{{Name: "square_payment_id"}}

// paymentStatusNoRegress keeps a completed payment completed when a late or
// out-of-order write reports pending.
const paymentStatusNoRegress = "CASE WHEN yard_sales.payment_status = 'completed' THEN yard_sales.payment_status ELSE excluded.payment_status END"

func chargeUpdates() clause.Set {
	return clause.Assignments(map[string]any{
		"order_number":    gorm.Expr("excluded.order_number"),
		"order_type":      gorm.Expr("excluded.order_type"),
		"source":          gorm.Expr("excluded.source"),
		"customer_name":   gorm.Expr("excluded.customer_name"),
		"customer_email":  gorm.Expr("excluded.customer_email"),
		"customer_phone":  gorm.Expr("excluded.customer_phone"),
		"items":           gorm.Expr("excluded.items"),
		"delivery_date":   gorm.Expr("excluded.delivery_date"),
		"delivery_status": gorm.Expr("excluded.delivery_status"),
		"subtotal":        gorm.Expr("excluded.subtotal"),
		"total":           gorm.Expr("excluded.total"),
		"payment_method":  gorm.Expr("excluded.payment_method"),
		"payment_status":  gorm.Expr(paymentStatusNoRegress),
		"status":          gorm.Expr("excluded.status"),
		"receipt_url":     gorm.Expr("COALESCE(excluded.receipt_url, yard_sales.receipt_url)"),
		"location_id":     gorm.Expr("COALESCE(excluded.location_id, yard_sales.location_id)"),
		"completed_at":    gorm.Expr("COALESCE(yard_sales.completed_at, excluded.completed_at)"),
		"salesperson":     gorm.Expr("excluded.salesperson"),
		"notes":           gorm.Expr("excluded.notes"),
		"updated_at":      gorm.Expr("excluded.updated_at"),
	})
}

func confirmationUpdates() clause.Set {
	return clause.Assignments(map[string]any{
		"order_number":   gorm.Expr("COALESCE(yard_sales.order_number, excluded.order_number)"),
		"customer_name":  gorm.Expr("CASE WHEN yard_sales.customer_name IN ('', 'Walk-in') THEN excluded.customer_name ELSE yard_sales.customer_name END"),
		"salesperson":    gorm.Expr("CASE WHEN yard_sales.salesperson IN ('', 'Unknown') THEN excluded.salesperson ELSE yard_sales.salesperson END"),
		"subtotal":       gorm.Expr("excluded.subtotal"),
		"total":          gorm.Expr("excluded.total"),
		"payment_status": gorm.Expr(paymentStatusNoRegress),
		"status":         gorm.Expr("excluded.status"),
		"receipt_url":    gorm.Expr("COALESCE(excluded.receipt_url, yard_sales.receipt_url)"),
		"location_id":    gorm.Expr("COALESCE(excluded.location_id, yard_sales.location_id)"),
		"completed_at":   gorm.Expr("COALESCE(yard_sales.completed_at, excluded.completed_at)"),
		"commission":     gorm.Expr("excluded.commission"),
		"updated_at":     gorm.Expr("excluded.updated_at"),
	})
}

func (r *repository) client(ctx context.Context) (*db.Client, error) {
	return r.provider.Conn(ctx)
}

func (r *repository) RecordCharge(ctx context.Context, sale *models.YardSale) error {
	if sale == nil || sale.SquarePaymentID == nil || strings.TrimSpace(*sale.SquarePaymentID) == "" {
		return errPaymentIDRequired
	}
	client, err := r.client(ctx)
	if err != nil {
		return err
	}
	return client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{Columns: conflictOnPayment, DoUpdates: chargeUpdates()}).
		Create(sale).Error
}

func (r *repository) RecordConfirmation(ctx context.Context, sale *models.YardSale, commission *models.Commission) error {
	if sale == nil || sale.SquarePaymentID == nil || strings.TrimSpace(*sale.SquarePaymentID) == "" {
		return errPaymentIDRequired
	}
	client, err := r.client(ctx)
	if err != nil {
		return err
	}
	return client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.OnConflict{Columns: conflictOnPayment, DoUpdates: confirmationUpdates()}).
			Create(sale).Error; err != nil {
			return err
		}
		if commission == nil {
			return nil
		}
		return tx.
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "sale_id"}}, DoNothing: true}).
			Create(commission).Error
	})
}

func (r *repository) FindBySquarePaymentID(ctx context.Context, paymentID string) (*models.YardSale, error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	var sale models.YardSale
	err = client.DB().WithContext(ctx).
		Where("square_payment_id = ?", paymentID).
		First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindCommissionBySaleID(ctx context.Context, saleID string) (*models.Commission, error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	var commission models.Commission
	err = client.DB().WithContext(ctx).
		Where("sale_id = ?", saleID).
		First(&commission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &commission, nil
}
