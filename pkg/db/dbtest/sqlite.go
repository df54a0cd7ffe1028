// Package dbtest opens throwaway sqlite databases carrying the service schema
// for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yardtrackpro/yardtrack-backend/pkg/db"
)

// Schema mirrors the goose migrations in a dialect sqlite accepts.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS product_stocks (
  product_id TEXT PRIMARY KEY,
  current_stock NUMERIC NOT NULL DEFAULT 0 CHECK (current_stock >= 0),
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS inbound_tickets (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  tons NUMERIC NOT NULL,
  vendor TEXT NOT NULL,
  material TEXT NOT NULL,
  ticket_number TEXT,
  truck TEXT,
  ticket_date TEXT NOT NULL,
  captured_by TEXT NOT NULL,
  captured_at DATETIME NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS yard_sales (
  id TEXT PRIMARY KEY,
  order_number TEXT,
  order_type TEXT NOT NULL DEFAULT 'yard_sale',
  source TEXT NOT NULL,
  customer_name TEXT NOT NULL DEFAULT '',
  customer_email TEXT NOT NULL DEFAULT '',
  customer_phone TEXT NOT NULL DEFAULT '',
  items TEXT,
  product_id TEXT,
  tons NUMERIC,
  subtotal NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL DEFAULT 0,
  delivery_date TEXT,
  delivery_status TEXT,
  payment_method TEXT NOT NULL DEFAULT 'card',
  payment_status TEXT NOT NULL,
  square_payment_id TEXT,
  receipt_url TEXT,
  location_id TEXT,
  completed_at DATETIME,
  salesperson TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  commission NUMERIC,
  notes TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_yard_sales_order_number ON yard_sales (order_number);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_yard_sales_square_payment_id ON yard_sales (square_payment_id);`,
	`CREATE TABLE IF NOT EXISTS commissions (
  id TEXT PRIMARY KEY,
  salesperson TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  sale_id TEXT NOT NULL,
  sale_type TEXT NOT NULL,
  sale_total NUMERIC NOT NULL,
  sale_date TEXT NOT NULL,
  recorded_at DATETIME NOT NULL
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_commissions_sale_id ON commissions (sale_id);`,
	`CREATE TABLE IF NOT EXISTS trucks (
  id TEXT PRIMARY KEY,
  truck_id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  active INTEGER NOT NULL DEFAULT 1
);`,
	`CREATE TABLE IF NOT EXISTS delivery_schedule (
  id TEXT PRIMARY KEY,
  truck_id TEXT NOT NULL,
  delivery_date TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'scheduled',
  order_number TEXT
);`,
}

// Open returns a fresh shared-cache in-memory database with the schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// Serializes writers; sqlite shared cache reports SQLITE_LOCKED otherwise.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range Schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in the db.Client used by repositories.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.FromGorm(Open(t))
}
