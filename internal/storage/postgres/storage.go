package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/repository"
	"github.com/velostore/ordercore/internal/domain/status"
)

// pgxPool is the subset of pgxpool.Pool the storage needs; tests substitute
// a pgxmock pool through newPgxPool.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

type paymentRepository struct {
	storage *Storage
}

type inventoryRepository struct {
	storage *Storage
}

type loyaltyRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Payments() repository.PaymentRepository {
	return &paymentRepository{storage: s}
}

func (s *Storage) Inventory() repository.InventoryRepository {
	return &inventoryRepository{storage: s}
}

func (s *Storage) Loyalty() repository.LoyaltyRepository {
	return &loyaltyRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS product_variants (
            id BIGSERIAL PRIMARY KEY,
            product_name TEXT NOT NULL,
            variant_name TEXT NOT NULL DEFAULT '',
            sku TEXT UNIQUE NOT NULL,
            price DOUBLE PRECISION NOT NULL,
            stock INT NOT NULL DEFAULT 0,
            available_stock INT NOT NULL DEFAULT 0,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (stock >= 0),
            CHECK (available_stock >= 0)
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id BIGSERIAL PRIMARY KEY,
            number TEXT UNIQUE NOT NULL,
            user_id BIGINT NOT NULL,
            address_id BIGINT NOT NULL,
            subtotal DOUBLE PRECISION NOT NULL,
            shipping_fee DOUBLE PRECISION NOT NULL DEFAULT 0,
            discount_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
            points_spent BIGINT NOT NULL DEFAULT 0,
            total DOUBLE PRECISION NOT NULL,
            status TEXT NOT NULL,
            payment_state TEXT NOT NULL,
            payment_method TEXT NOT NULL,
            note TEXT NOT NULL DEFAULT '',
            locked_until TIMESTAMPTZ,
            confirmed_at TIMESTAMPTZ,
            shipped_at TIMESTAMPTZ,
            delivered_at TIMESTAMPTZ,
            cancelled_at TIMESTAMPTZ,
            completed_at TIMESTAMPTZ,
            refunded_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            variant_id BIGINT NOT NULL,
            product_name TEXT NOT NULL,
            variant_name TEXT NOT NULL DEFAULT '',
            sku TEXT NOT NULL,
            unit_price DOUBLE PRECISION NOT NULL,
            quantity INT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS order_status_history (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            from_status TEXT NOT NULL DEFAULT '',
            to_status TEXT NOT NULL,
            actor TEXT NOT NULL,
            note TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT UNIQUE NOT NULL REFERENCES orders(id),
            amount DOUBLE PRECISION NOT NULL,
            status TEXT NOT NULL,
            transaction_id TEXT NOT NULL DEFAULT '',
            bank_code TEXT NOT NULL DEFAULT '',
            raw_callback TEXT NOT NULL DEFAULT '',
            paid_at TIMESTAMPTZ,
            failed_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS stock_reservations (
            id BIGSERIAL PRIMARY KEY,
            variant_id BIGINT NOT NULL REFERENCES product_variants(id),
            order_id BIGINT NOT NULL,
            quantity INT NOT NULL,
            lock_key TEXT NOT NULL,
            lock_token TEXT NOT NULL,
            expires_at TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (variant_id, order_id)
        )`,
		`CREATE TABLE IF NOT EXISTS loyalty_tiers (
            id BIGSERIAL PRIMARY KEY,
            name TEXT UNIQUE NOT NULL,
            min_points BIGINT NOT NULL DEFAULT 0,
            multiplier DOUBLE PRECISION NOT NULL DEFAULT 1,
            discount_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
            monthly_limit INT NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS loyalty_accounts (
            user_id BIGINT PRIMARY KEY,
            tier_id BIGINT NOT NULL DEFAULT 1,
            points BIGINT NOT NULL DEFAULT 0,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS discount_usages (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            tier_id BIGINT NOT NULL,
            month INT NOT NULL,
            year INT NOT NULL,
            used INT NOT NULL DEFAULT 0,
            UNIQUE (user_id, tier_id, month, year)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_history_order ON order_status_history(order_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_order ON stock_reservations(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_expiry ON stock_reservations(expires_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

const orderColumns = `id, number, user_id, address_id, subtotal, shipping_fee, discount_amount, points_spent, total,
                      status, payment_state, payment_method, note, locked_until,
                      confirmed_at, shipped_at, delivered_at, cancelled_at, completed_at, refunded_at,
                      created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.AddressID, &o.Subtotal, &o.ShippingFee,
		&o.DiscountAmount, &o.PointsSpent, &o.Total, &o.Status, &o.PaymentState, &o.PaymentMethod, &o.Note,
		&o.LockedUntil, &o.ConfirmedAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt,
		&o.CompletedAt, &o.RefundedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()
	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const insertOrder = `INSERT INTO orders
            (number, user_id, address_id, subtotal, shipping_fee, discount_amount, points_spent, total,
             status, payment_state, payment_method, note, locked_until)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
            RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, insertOrder,
			order.Number, order.UserID, order.AddressID, order.Subtotal, order.ShippingFee,
			order.DiscountAmount, order.PointsSpent, order.Total, order.Status, order.PaymentState,
			order.PaymentMethod, order.Note, order.LockedUntil,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domainErrors.ErrAlreadyExists
			}
			return err
		}

		const insertItem = `INSERT INTO order_items
            (order_id, variant_id, product_name, variant_name, sku, unit_price, quantity)
            VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`
		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			if err := tx.QueryRow(ctx, insertItem, order.ID, item.VariantID, item.ProductName,
				item.VariantName, item.SKU, item.UnitPrice, item.Quantity).Scan(&item.ID); err != nil {
				return err
			}
		}

		const insertHistory = `INSERT INTO order_status_history (order_id, from_status, to_status, actor, note)
            VALUES ($1,$2,$3,$4,$5)`
		_, err = tx.Exec(ctx, insertHistory, order.ID, "", order.Status, status.RoleSystem, "order created")
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	order, err := scanOrder(r.storage.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	order, err := scanOrder(r.storage.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE number=$1`, number))
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT id, order_id, variant_id, product_name, variant_name, sku, unit_price, quantity
         FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.ProductName,
			&it.VariantName, &it.SKU, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) ApplyTransition(ctx context.Context, orderID int64, upd repository.OrderUpdate, change model.StatusChange) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		// The from-status guard rejects writes made from a stale snapshot:
		// when two transitions race, only the first one finds the row still
		// in the status it read.
		ct, err := tx.Exec(ctx,
			`UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`,
			upd.Status, orderID, change.FromStatus)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return domainErrors.ErrConflict
		}

		if upd.PaymentState != nil {
			if _, err := tx.Exec(ctx, `UPDATE orders SET payment_state=$1 WHERE id=$2`, *upd.PaymentState, orderID); err != nil {
				return err
			}
		}
		if upd.ClearLock {
			if _, err := tx.Exec(ctx, `UPDATE orders SET locked_until=NULL WHERE id=$1`, orderID); err != nil {
				return err
			}
		}

		stamps := []struct {
			column string
			value  *time.Time
		}{
			{"confirmed_at", upd.ConfirmedAt},
			{"shipped_at", upd.ShippedAt},
			{"delivered_at", upd.DeliveredAt},
			{"cancelled_at", upd.CancelledAt},
			{"completed_at", upd.CompletedAt},
			{"refunded_at", upd.RefundedAt},
		}
		for _, stamp := range stamps {
			if stamp.value == nil {
				continue
			}
			query := fmt.Sprintf(`UPDATE orders SET %s=$1 WHERE id=$2`, stamp.column)
			if _, err := tx.Exec(ctx, query, *stamp.value, orderID); err != nil {
				return err
			}
		}

		const insertHistory = `INSERT INTO order_status_history (order_id, from_status, to_status, actor, note)
            VALUES ($1,$2,$3,$4,$5)`
		_, err = tx.Exec(ctx, insertHistory, orderID, change.FromStatus, change.ToStatus, change.Actor, change.Note)
		return err
	})
}

func (r *orderRepository) History(ctx context.Context, orderID int64) ([]model.StatusChange, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT id, order_id, from_status, to_status, actor, note, created_at
         FROM order_status_history WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.StatusChange
	for rows.Next() {
		var c model.StatusChange
		if err := rows.Scan(&c.ID, &c.OrderID, &c.FromStatus, &c.ToStatus, &c.Actor, &c.Note, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *orderRepository) SetPaymentState(ctx context.Context, orderID int64, state model.PaymentState) error {
	ct, err := r.storage.pool.Exec(ctx,
		`UPDATE orders SET payment_state=$1, updated_at=NOW() WHERE id=$2`, state, orderID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, orderID int64) error {
	_, err := r.storage.pool.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID)
	return err
}

func (r *orderRepository) ListExpiredPendingPayment(ctx context.Context, now time.Time, limit int) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
         WHERE status=$1 AND locked_until IS NOT NULL AND locked_until < $2
           AND payment_state NOT IN ($3, $4)
         ORDER BY locked_until LIMIT $5`,
		status.PendingPayment, now, model.PaymentStatePaid, model.PaymentStateCODCollected, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) ListDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
         WHERE status=$1 AND delivered_at IS NOT NULL AND delivered_at < $2
         ORDER BY delivered_at LIMIT $3`,
		status.Delivered, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) ListRefundedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
         WHERE status=$1 AND refunded_at IS NOT NULL AND refunded_at < $2
         ORDER BY refunded_at LIMIT $3`,
		status.Refunded, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// --- PaymentRepository implementation ---

const paymentColumns = `id, order_id, amount, status, transaction_id, bank_code, raw_callback, paid_at, failed_at, created_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Status, &p.TransactionID, &p.BankCode,
		&p.RawCallback, &p.PaidAt, &p.FailedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) GetOrCreate(ctx context.Context, orderID int64, amount float64) (*model.Payment, error) {
	const insert = `INSERT INTO payments (order_id, amount, status) VALUES ($1, $2, $3)
                    ON CONFLICT (order_id) DO NOTHING
                    RETURNING ` + paymentColumns
	payment, err := scanPayment(r.storage.pool.QueryRow(ctx, insert, orderID, amount, model.PaymentStatusPending))
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}
	return r.GetByOrder(ctx, orderID)
}

func (r *paymentRepository) GetByOrder(ctx context.Context, orderID int64) (*model.Payment, error) {
	return scanPayment(r.storage.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id=$1`, orderID))
}

func (r *paymentRepository) MarkPaid(ctx context.Context, paymentID int64, transactionID, bankCode, rawCallback string) (bool, error) {
	// A FAILED attempt may be followed by a successful retry within the
	// payment window, so the guard admits both.
	ct, err := r.storage.pool.Exec(ctx,
		`UPDATE payments SET status=$1, transaction_id=$2, bank_code=$3, raw_callback=$4, paid_at=NOW()
         WHERE id=$5 AND status IN ($6, $7)`,
		model.PaymentStatusPaid, transactionID, bankCode, rawCallback, paymentID,
		model.PaymentStatusPending, model.PaymentStatusFailed)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *paymentRepository) MarkFailed(ctx context.Context, paymentID int64, rawCallback string) (bool, error) {
	ct, err := r.storage.pool.Exec(ctx,
		`UPDATE payments SET status=$1, raw_callback=$2, failed_at=NOW() WHERE id=$3 AND status=$4`,
		model.PaymentStatusFailed, rawCallback, paymentID, model.PaymentStatusPending)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *paymentRepository) MarkCODCollected(ctx context.Context, paymentID int64) (bool, error) {
	ct, err := r.storage.pool.Exec(ctx,
		`UPDATE payments SET status=$1, paid_at=NOW() WHERE id=$2 AND status=$3`,
		model.PaymentStatusCODCollected, paymentID, model.PaymentStatusPending)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// --- InventoryRepository implementation ---

const variantColumns = `id, product_name, variant_name, sku, price, stock, available_stock, updated_at`

func scanVariant(row pgx.Row) (*model.ProductVariant, error) {
	var v model.ProductVariant
	err := row.Scan(&v.ID, &v.ProductName, &v.VariantName, &v.SKU, &v.Price, &v.Stock, &v.AvailableStock, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *inventoryRepository) GetVariant(ctx context.Context, variantID int64) (*model.ProductVariant, error) {
	return scanVariant(r.storage.pool.QueryRow(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE id=$1`, variantID))
}

func (r *inventoryRepository) GetVariants(ctx context.Context, variantIDs []int64) ([]model.ProductVariant, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE id = ANY($1) ORDER BY id`, variantIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.ProductVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	return result, rows.Err()
}

func (r *inventoryRepository) ReserveVariant(ctx context.Context, variantID, orderID int64, qty int, lockKey, lockToken string, expiresAt time.Time) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var available int
		err := tx.QueryRow(ctx,
			`SELECT available_stock FROM product_variants WHERE id=$1 FOR UPDATE`, variantID).Scan(&available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}
		if available < qty {
			return domainErrors.ErrInsufficientStock
		}

		if _, err := tx.Exec(ctx,
			`UPDATE product_variants SET available_stock = available_stock - $2, updated_at=NOW() WHERE id=$1`,
			variantID, qty); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO stock_reservations (variant_id, order_id, quantity, lock_key, lock_token, expires_at)
             VALUES ($1,$2,$3,$4,$5,$6)`,
			variantID, orderID, qty, lockKey, lockToken, expiresAt)
		return err
	})
}

const reservationColumns = `id, variant_id, order_id, quantity, lock_key, lock_token, expires_at, created_at`

func collectReservations(rows pgx.Rows) ([]model.StockReservation, error) {
	defer rows.Close()
	var result []model.StockReservation
	for rows.Next() {
		var res model.StockReservation
		if err := rows.Scan(&res.ID, &res.VariantID, &res.OrderID, &res.Quantity,
			&res.LockKey, &res.LockToken, &res.ExpiresAt, &res.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	return result, rows.Err()
}

func (r *inventoryRepository) ReleaseReservations(ctx context.Context, orderID int64) ([]model.StockReservation, error) {
	var released []model.StockReservation
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+reservationColumns+` FROM stock_reservations WHERE order_id=$1 FOR UPDATE`, orderID)
		if err != nil {
			return err
		}
		released, err = collectReservations(rows)
		if err != nil {
			return err
		}
		if len(released) == 0 {
			return nil
		}

		for _, res := range released {
			if _, err := tx.Exec(ctx,
				`UPDATE product_variants SET available_stock = available_stock + $2, updated_at=NOW() WHERE id=$1`,
				res.VariantID, res.Quantity); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `DELETE FROM stock_reservations WHERE order_id=$1`, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

func (r *inventoryRepository) ConfirmReservations(ctx context.Context, orderID int64) ([]model.StockReservation, error) {
	var confirmed []model.StockReservation
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+reservationColumns+` FROM stock_reservations WHERE order_id=$1 FOR UPDATE`, orderID)
		if err != nil {
			return err
		}
		confirmed, err = collectReservations(rows)
		if err != nil {
			return err
		}
		if len(confirmed) == 0 {
			return nil
		}

		for _, res := range confirmed {
			var stock int
			if err := tx.QueryRow(ctx,
				`SELECT stock FROM product_variants WHERE id=$1 FOR UPDATE`, res.VariantID).Scan(&stock); err != nil {
				return err
			}
			if stock < res.Quantity {
				return domainErrors.ErrInsufficientPhysicalStock
			}
			if _, err := tx.Exec(ctx,
				`UPDATE product_variants SET stock = stock - $2, updated_at=NOW() WHERE id=$1`,
				res.VariantID, res.Quantity); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `DELETE FROM stock_reservations WHERE order_id=$1`, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

func (r *inventoryRepository) RestockAvailable(ctx context.Context, variantID int64, qty int) error {
	_, err := r.storage.pool.Exec(ctx,
		`UPDATE product_variants SET available_stock = available_stock + $2, updated_at=NOW() WHERE id=$1`,
		variantID, qty)
	return err
}

func (r *inventoryRepository) RestockItems(ctx context.Context, items []repository.ItemQuantity) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		for _, it := range items {
			if _, err := tx.Exec(ctx,
				`UPDATE product_variants SET stock = stock + $2, available_stock = available_stock + $2, updated_at=NOW() WHERE id=$1`,
				it.VariantID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *inventoryRepository) ListReservationsByOrder(ctx context.Context, orderID int64) ([]model.StockReservation, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT `+reservationColumns+` FROM stock_reservations WHERE order_id=$1 ORDER BY variant_id`, orderID)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *inventoryRepository) ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]model.StockReservation, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT `+reservationColumns+` FROM stock_reservations WHERE expires_at < $1 ORDER BY expires_at LIMIT $2`,
		now, limit)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// --- LoyaltyRepository implementation ---

func (r *loyaltyRepository) GetAccount(ctx context.Context, userID int64) (*model.LoyaltyAccount, error) {
	var a model.LoyaltyAccount
	err := r.storage.pool.QueryRow(ctx,
		`SELECT user_id, tier_id, points, updated_at FROM loyalty_accounts WHERE user_id=$1`, userID).
		Scan(&a.UserID, &a.TierID, &a.Points, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *loyaltyRepository) GetTier(ctx context.Context, tierID int64) (*model.LoyaltyTier, error) {
	var t model.LoyaltyTier
	err := r.storage.pool.QueryRow(ctx,
		`SELECT id, name, min_points, multiplier, discount_percent, monthly_limit FROM loyalty_tiers WHERE id=$1`, tierID).
		Scan(&t.ID, &t.Name, &t.MinPoints, &t.Multiplier, &t.DiscountPercent, &t.MonthlyLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *loyaltyRepository) ListTiers(ctx context.Context) ([]model.LoyaltyTier, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT id, name, min_points, multiplier, discount_percent, monthly_limit FROM loyalty_tiers ORDER BY min_points`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.LoyaltyTier
	for rows.Next() {
		var t model.LoyaltyTier
		if err := rows.Scan(&t.ID, &t.Name, &t.MinPoints, &t.Multiplier, &t.DiscountPercent, &t.MonthlyLimit); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *loyaltyRepository) AddPoints(ctx context.Context, userID int64, delta int64) (int64, error) {
	const query = `INSERT INTO loyalty_accounts (user_id, points)
                   VALUES ($1, GREATEST($2, 0))
                   ON CONFLICT (user_id) DO UPDATE
                   SET points = GREATEST(loyalty_accounts.points + $2, 0), updated_at = NOW()
                   RETURNING points`
	var balance int64
	if err := r.storage.pool.QueryRow(ctx, query, userID, delta).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *loyaltyRepository) SetTier(ctx context.Context, userID, tierID int64) error {
	ct, err := r.storage.pool.Exec(ctx,
		`UPDATE loyalty_accounts SET tier_id=$2, updated_at=NOW() WHERE user_id=$1`, userID, tierID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *loyaltyRepository) GetUsage(ctx context.Context, userID, tierID int64, month, year int) (*model.DiscountUsage, error) {
	var u model.DiscountUsage
	err := r.storage.pool.QueryRow(ctx,
		`SELECT id, user_id, tier_id, month, year, used FROM discount_usages
         WHERE user_id=$1 AND tier_id=$2 AND month=$3 AND year=$4`,
		userID, tierID, month, year).
		Scan(&u.ID, &u.UserID, &u.TierID, &u.Month, &u.Year, &u.Used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *loyaltyRepository) IncrementUsage(ctx context.Context, userID, tierID int64, month, year, limit int) (bool, error) {
	// The WHERE on the conflict arm keeps the increment below the cap, so
	// two checkouts racing for the last slot cannot both get it.
	ct, err := r.storage.pool.Exec(ctx,
		`INSERT INTO discount_usages (user_id, tier_id, month, year, used)
         VALUES ($1,$2,$3,$4,1)
         ON CONFLICT (user_id, tier_id, month, year) DO UPDATE
         SET used = discount_usages.used + 1
         WHERE discount_usages.used < $5`,
		userID, tierID, month, year, limit)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *loyaltyRepository) DecrementUsage(ctx context.Context, userID, tierID int64, month, year int) error {
	_, err := r.storage.pool.Exec(ctx,
		`UPDATE discount_usages SET used = used - 1
         WHERE user_id=$1 AND tier_id=$2 AND month=$3 AND year=$4 AND used > 0`,
		userID, tierID, month, year)
	return err
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
