package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/feyxa/commerce/internal/dal/postgres"
	"github.com/feyxa/commerce/internal/service/models/orderitem"
)

// OrderItemRepository implements the order item repository for PostgreSQL.
type OrderItemRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

// NewOrderItemRepository creates a new order item repository on a pool or a transaction.
func NewOrderItemRepository(conn postgres.Conn) *OrderItemRepository {
	return &OrderItemRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// BulkInsert inserts all items in one statement.
func (r *OrderItemRepository) BulkInsert(
	ctx context.Context,
	orderItems []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	if len(orderItems) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	insert := r.sb.Insert("order_items").
		Columns("id", "order_id", "product_id", "product_name", "quantity", "unit_price", "total")
	for _, oi := range orderItems {
		insert = insert.Values(oi.ID, oi.OrderID, oi.ProductID, oi.ProductName, oi.Quantity, oi.UnitPrice, oi.Total)
	}

	sql, args, err := insert.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", err)
	}

	return orderItems, nil
}

// Query retrieves order items based on filter criteria.
func (r *OrderItemRepository) Query(
	ctx context.Context,
	filter *orderitem.QueryOrderItemsModel,
) ([]orderitem.OrderItem, error) {
	query := r.sb.
		Select(
			"id",
			"order_id",
			"product_id",
			"product_name",
			"quantity",
			"unit_price",
			"total",
		).
		From("order_items")

	if len(filter.IDs) > 0 {
		query = query.Where(sq.Eq{"id": filter.IDs})
	}

	if len(filter.OrderIDs) > 0 {
		query = query.Where(sq.Eq{"order_id": filter.OrderIDs})
	}

	if len(filter.ProductIDs) > 0 {
		query = query.Where(sq.Eq{"product_id": filter.ProductIDs})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	result := make([]orderitem.OrderItem, 0)
	for rows.Next() {
		var oi orderitem.OrderItem
		err := rows.Scan(
			&oi.ID,
			&oi.OrderID,
			&oi.ProductID,
			&oi.ProductName,
			&oi.Quantity,
			&oi.UnitPrice,
			&oi.Total,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, oi)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
