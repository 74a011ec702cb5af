package icustomerrepo

import (
	"context"

	"github.com/feyxa/commerce/internal/service/models/customer"
)

// ICustomerRepository stores customers scoped to a store.
type ICustomerRepository interface {
	// Upsert inserts or refreshes the customer identified by (store_id, phone) and returns the stored row.
	Upsert(ctx context.Context, c customer.Customer) (customer.Customer, error)
}
