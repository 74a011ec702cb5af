package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/feyxa/commerce/internal/dal/postgres"
	"github.com/feyxa/commerce/internal/service/models/customer"
	"github.com/google/uuid"
)

// CustomerRepository implements the customer repository for PostgreSQL.
type CustomerRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

func NewCustomerRepository(conn postgres.Conn) *CustomerRepository {
	return &CustomerRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Upsert keys on (store_id, phone). Blank optional fields do not overwrite known values.
func (r *CustomerRepository) Upsert(ctx context.Context, c customer.Customer) (customer.Customer, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query, args, err := r.sb.Insert("customers").
		Columns("id", "store_id", "first_name", "last_name", "email", "phone", "city", "address", "created_at", "updated_at").
		Values(c.ID, c.StoreID, c.FirstName, c.LastName, c.Email, c.Phone, c.City, c.Address, c.CreatedAt, c.UpdatedAt).
		Suffix(`ON CONFLICT (store_id, phone) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), customers.last_name),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), customers.email),
			city = COALESCE(NULLIF(EXCLUDED.city, ''), customers.city),
			address = COALESCE(NULLIF(EXCLUDED.address, ''), customers.address),
			updated_at = EXCLUDED.updated_at
		RETURNING id, last_name, email, city, address, created_at, updated_at`).
		ToSql()
	if err != nil {
		return customer.Customer{}, fmt.Errorf("failed to build upsert query: %w", err)
	}

	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&c.ID,
		&c.LastName,
		&c.Email,
		&c.City,
		&c.Address,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return customer.Customer{}, fmt.Errorf("failed to upsert customer: %w", err)
	}

	return c, nil
}
