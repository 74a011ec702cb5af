package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/feyxa/commerce/internal/dal/postgres"
	"github.com/feyxa/commerce/internal/service/models/currency"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var orderColumns = []string{
	"id",
	"store_id",
	"store_name",
	"order_number",
	"customer_id",
	"subtotal",
	"shipping_cost",
	"total",
	"currency",
	"status",
	"payment_status",
	"payment_method",
	"tracking_token",
	"shipping_name",
	"shipping_phone",
	"shipping_email",
	"shipping_address",
	"shipping_city",
	"shipping_commune",
	"shipping_country",
	"delivery_method",
	"relay_point_id",
	"notes",
	"checkout_session_id",
	"created_at",
	"updated_at",
}

// OrderDal represents order data access layer model
type OrderDal struct {
	ID                uuid.UUID
	StoreID           uuid.UUID
	StoreName         string
	OrderNumber       string
	CustomerID        uuid.UUID
	Subtotal          int64
	ShippingCost      int64
	Total             int64
	Currency          string
	Status            string
	PaymentStatus     string
	PaymentMethod     string
	TrackingToken     string
	ShippingName      string
	ShippingPhone     string
	ShippingEmail     string
	ShippingAddress   string
	ShippingCity      string
	ShippingCommune   string
	ShippingCountry   string
	DeliveryMethod    string
	RelayPointID      string
	Notes             string
	CheckoutSessionID *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (d *OrderDal) scanTargets() []any {
	return []any{
		&d.ID,
		&d.StoreID,
		&d.StoreName,
		&d.OrderNumber,
		&d.CustomerID,
		&d.Subtotal,
		&d.ShippingCost,
		&d.Total,
		&d.Currency,
		&d.Status,
		&d.PaymentStatus,
		&d.PaymentMethod,
		&d.TrackingToken,
		&d.ShippingName,
		&d.ShippingPhone,
		&d.ShippingEmail,
		&d.ShippingAddress,
		&d.ShippingCity,
		&d.ShippingCommune,
		&d.ShippingCountry,
		&d.DeliveryMethod,
		&d.RelayPointID,
		&d.Notes,
		&d.CheckoutSessionID,
		&d.CreatedAt,
		&d.UpdatedAt,
	}
}

func (d *OrderDal) values() []any {
	return []any{
		d.ID,
		d.StoreID,
		d.StoreName,
		d.OrderNumber,
		d.CustomerID,
		d.Subtotal,
		d.ShippingCost,
		d.Total,
		d.Currency,
		d.Status,
		d.PaymentStatus,
		d.PaymentMethod,
		d.TrackingToken,
		d.ShippingName,
		d.ShippingPhone,
		d.ShippingEmail,
		d.ShippingAddress,
		d.ShippingCity,
		d.ShippingCommune,
		d.ShippingCountry,
		d.DeliveryMethod,
		d.RelayPointID,
		d.Notes,
		d.CheckoutSessionID,
		d.CreatedAt,
		d.UpdatedAt,
	}
}

// ToModel converts OrderDal to service layer Order model
func (d *OrderDal) ToModel() (order.Order, error) {
	cur, err := currency.ParseCurrency(d.Currency)
	if err != nil {
		return order.Order{}, err
	}

	return order.Order{
		ID:            d.ID,
		StoreID:       d.StoreID,
		StoreName:     d.StoreName,
		OrderNumber:   d.OrderNumber,
		CustomerID:    d.CustomerID,
		Subtotal:      d.Subtotal,
		ShippingCost:  d.ShippingCost,
		Total:         d.Total,
		Currency:      cur,
		Status:        order.Status(d.Status),
		PaymentStatus: order.PaymentStatus(d.PaymentStatus),
		PaymentMethod: order.PaymentMethod(d.PaymentMethod),
		TrackingToken: d.TrackingToken,
		Shipping: order.Shipping{
			Name:           d.ShippingName,
			Phone:          d.ShippingPhone,
			Email:          d.ShippingEmail,
			Address:        d.ShippingAddress,
			City:           d.ShippingCity,
			Commune:        d.ShippingCommune,
			Country:        d.ShippingCountry,
			DeliveryMethod: order.DeliveryMethod(d.DeliveryMethod),
			RelayPointID:   d.RelayPointID,
		},
		Notes:             d.Notes,
		CheckoutSessionID: d.CheckoutSessionID,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

// OrderDalFromModel converts service layer Order model to OrderDal
func OrderDalFromModel(o order.Order) OrderDal {
	return OrderDal{
		ID:                o.ID,
		StoreID:           o.StoreID,
		StoreName:         o.StoreName,
		OrderNumber:       o.OrderNumber,
		CustomerID:        o.CustomerID,
		Subtotal:          o.Subtotal,
		ShippingCost:      o.ShippingCost,
		Total:             o.Total,
		Currency:          o.Currency.String(),
		Status:            string(o.Status),
		PaymentStatus:     string(o.PaymentStatus),
		PaymentMethod:     string(o.PaymentMethod),
		TrackingToken:     o.TrackingToken,
		ShippingName:      o.Shipping.Name,
		ShippingPhone:     o.Shipping.Phone,
		ShippingEmail:     o.Shipping.Email,
		ShippingAddress:   o.Shipping.Address,
		ShippingCity:      o.Shipping.City,
		ShippingCommune:   o.Shipping.Commune,
		ShippingCountry:   o.Shipping.Country,
		DeliveryMethod:    string(o.Shipping.DeliveryMethod),
		RelayPointID:      o.Shipping.RelayPointID,
		Notes:             o.Notes,
		CheckoutSessionID: o.CheckoutSessionID,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

// OrderRepository implements the order repository for PostgreSQL.
type OrderRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

// NewOrderRepository creates a new order repository on a pool or a transaction.
func NewOrderRepository(conn postgres.Conn) *OrderRepository {
	return &OrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert stores a new order and returns it as persisted.
func (r *OrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	dal := OrderDalFromModel(o)

	query, args, err := r.sb.Insert("orders").
		Columns(orderColumns...).
		Values(dal.values()...).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return o, nil
}

// Query retrieves orders based on filter criteria, newest first.
func (r *OrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	query := r.sb.Select(orderColumns...).From("orders").OrderBy("created_at DESC")

	if len(filter.IDs) > 0 {
		query = query.Where(sq.Eq{"id": filter.IDs})
	}
	if len(filter.StoreIDs) > 0 {
		query = query.Where(sq.Eq{"store_id": filter.StoreIDs})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where(sq.Eq{"status": statuses})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return r.queryOrders(ctx, sql, args...)
}

// GetByID returns order.ErrOrderNotFound when no row matches.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (order.Order, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// GetByTrackingToken returns order.ErrOrderNotFound when no row matches.
func (r *OrderRepository) GetByTrackingToken(ctx context.Context, token string) (order.Order, error) {
	return r.getOne(ctx, sq.Eq{"tracking_token": token})
}

// UpdateStatus is a compare-and-set on the status column.
func (r *OrderRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to order.Status,
	now time.Time,
) (bool, error) {
	query, args, err := r.sb.Update("orders").
		Set("status", string(to)).
		Set("updated_at", now).
		Where(sq.Eq{"id": id, "status": string(from)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepository) getOne(ctx context.Context, where sq.Eq) (order.Order, error) {
	sql, args, err := r.sb.Select(orderColumns...).From("orders").Where(where).Limit(1).ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build query: %w", err)
	}

	var dal OrderDal
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(dal.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, order.ErrOrderNotFound
		}

		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	return dal.ToModel()
}

func (r *OrderRepository) queryOrders(ctx context.Context, sql string, args ...any) ([]order.Order, error) {
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	result := make([]order.Order, 0)
	for rows.Next() {
		var dal OrderDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
