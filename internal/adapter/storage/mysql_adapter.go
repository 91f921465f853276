package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/campus-market/internal/core/domain"
)

var (
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrNoSuchUser     = errors.New("no such user")
	ErrNoSuchOrder    = errors.New("no such order")
)

const mysqlDuplicateEntry = 1062

//go:embed schema/mysql.sql
var mysqlSchema string

// MySQLAdapter requires a DSN with parseTime=true and clientFoundRows=true.
// Without clientFoundRows an UPDATE that changes nothing reports zero rows and
// is mistaken for a missing record.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates missing tables. Statements are idempotent.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(mysqlSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) CreateUser(ctx context.Context, user domain.User) error {
	cart, err := encodeCart(user.Cart)
	if err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, contact_number, cart, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.FirstName, user.LastName, user.ContactNumber, cart, user.CreatedAt,
	)
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, email, first_name, last_name, contact_number, cart, created_at`

func (m *MySQLAdapter) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	return scanUser(row)
}

func (m *MySQLAdapter) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (m *MySQLAdapter) GetUsers(ctx context.Context, userIDs []string) ([]domain.User, error) {
	if len(userIDs) == 0 {
		return []domain.User{}, nil
	}

	in, args := inClause(userIDs)
	rows, err := m.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id IN `+in, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (m *MySQLAdapter) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE users SET
			first_name = COALESCE(?, first_name),
			last_name = COALESCE(?, last_name),
			contact_number = COALESCE(?, contact_number)
		WHERE id = ?`,
		update.FirstName, update.LastName, update.ContactNumber, userID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if !matched(result) {
		return ErrNoSuchUser
	}
	return nil
}

func (m *MySQLAdapter) SaveCart(ctx context.Context, userID string, itemIDs []string) error {
	cart, err := encodeCart(itemIDs)
	if err != nil {
		return err
	}

	result, err := m.db.ExecContext(ctx, `UPDATE users SET cart = ? WHERE id = ?`, cart, userID)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	if !matched(result) {
		return ErrNoSuchUser
	}
	return nil
}

func (m *MySQLAdapter) CreateItem(ctx context.Context, item domain.Item) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO items (id, name, price, category, description, seller_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Price, item.Category, item.Description, item.SellerID, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

const itemColumns = `id, name, price, category, description, seller_id, created_at`

func (m *MySQLAdapter) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, itemID)
	return scanItem(row)
}

func (m *MySQLAdapter) GetItems(ctx context.Context, itemIDs []string) ([]domain.Item, error) {
	if len(itemIDs) == 0 {
		return []domain.Item{}, nil
	}
	in, args := inClause(itemIDs)
	return m.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE id IN `+in, args...)
}

func (m *MySQLAdapter) ListItems(ctx context.Context, categories []domain.Category) ([]domain.Item, error) {
	if len(categories) == 0 {
		return m.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at, id`)
	}

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	in, args := inClause(names)
	return m.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE category IN `+in+` ORDER BY created_at, id`, args...)
}

func (m *MySQLAdapter) ListItemIDsBySeller(ctx context.Context, sellerID string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id FROM items WHERE seller_id = ?`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("query seller items: %w", err)
	}
	return scanIDs(rows)
}

func (m *MySQLAdapter) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	result, err := m.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, itemID)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	return matched(result), nil
}

func (m *MySQLAdapter) queryItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, item_id, total_amount, status, otp_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.BuyerID, order.ItemID, order.TotalAmount, order.Status,
		nullableHash(order.OTPHash), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

const orderColumns = `id, buyer_id, item_id, total_amount, status, otp_hash, created_at, updated_at`

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID)
	return scanOrder(row)
}

func (m *MySQLAdapter) DeleteOrder(ctx context.Context, orderID string) (bool, error) {
	result, err := m.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}
	return matched(result), nil
}

func (m *MySQLAdapter) SetOTPHash(ctx context.Context, orderID string, hash []byte) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders SET otp_hash = ?, updated_at = UTC_TIMESTAMP(6) WHERE id = ?`,
		hash, orderID,
	)
	if err != nil {
		return fmt.Errorf("update otp hash: %w", err)
	}
	if !matched(result) {
		return ErrNoSuchOrder
	}
	return nil
}

func (m *MySQLAdapter) CompleteOrder(ctx context.Context, orderID string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = UTC_TIMESTAMP(6) WHERE id = ?`,
		domain.OrderStatusCompleted, orderID,
	)
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	if !matched(result) {
		return ErrNoSuchOrder
	}
	return nil
}

func (m *MySQLAdapter) ListOrdersByBuyer(ctx context.Context, buyerID string, status domain.OrderStatus) ([]domain.Order, error) {
	return m.queryOrders(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE buyer_id = ? AND status = ?
		ORDER BY created_at, id`, buyerID, status)
}

func (m *MySQLAdapter) ListOrdersByItems(ctx context.Context, itemIDs []string, status domain.OrderStatus) ([]domain.Order, error) {
	if len(itemIDs) == 0 {
		return []domain.Order{}, nil
	}

	in, args := inClause(itemIDs)
	query := `SELECT ` + orderColumns + ` FROM orders WHERE item_id IN ` + in
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	return m.queryOrders(ctx, query+` ORDER BY created_at, id`, args...)
}

func (m *MySQLAdapter) CompletedItemIDs(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT DISTINCT item_id FROM orders WHERE status = ?`, domain.OrderStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("query completed items: %w", err)
	}
	return scanIDs(rows)
}

func (m *MySQLAdapter) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (m *MySQLAdapter) CreateReview(ctx context.Context, review domain.Review) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO reviews (id, seller_id, reviewer_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		review.ID, review.SellerID, review.ReviewerID, review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListReviewsBySeller(ctx context.Context, sellerID string) ([]domain.Review, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, seller_id, reviewer_id, rating, comment, created_at
		FROM reviews WHERE seller_id = ?
		ORDER BY created_at DESC, id`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.SellerID, &r.ReviewerID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		u    domain.User
		cart []byte
	)
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.ContactNumber, &cart, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if err := json.Unmarshal(cart, &u.Cart); err != nil {
		return nil, fmt.Errorf("decode cart of %s: %w", u.ID, err)
	}
	if u.Cart == nil {
		u.Cart = []string{}
	}
	return &u, nil
}

func scanItem(row scanner) (*domain.Item, error) {
	var item domain.Item
	err := row.Scan(&item.ID, &item.Name, &item.Price, &item.Category, &item.Description, &item.SellerID, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}
	return &item, nil
}

func scanOrder(row scanner) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.BuyerID, &order.ItemID, &order.TotalAmount, &order.Status,
		&order.OTPHash, &order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &order, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func inClause(values []string) (string, []any) {
	values = dedupe(values)
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?,", len(values)), ",") + ")", args
}

func encodeCart(itemIDs []string) ([]byte, error) {
	if itemIDs == nil {
		itemIDs = []string{}
	}
	data, err := json.Marshal(itemIDs)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return data, nil
}

func nullableHash(hash []byte) any {
	if len(hash) == 0 {
		return nil
	}
	return hash
}

// matched reports whether an UPDATE/DELETE hit a row. MySQL counts only rows
// that changed, so the DSN should set clientFoundRows=true for UPDATEs that
// rewrite identical values.
func matched(result sql.Result) bool {
	rows, _ := result.RowsAffected()
	return rows > 0
}
