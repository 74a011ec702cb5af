package postgresrepo

import (
	"context"
	"fmt"

	"github.com/feyxa/commerce/internal/dal/postgres"
	"github.com/google/uuid"
)

// StockGuard calls the decrement_stock SQL function, the single atomic check-and-decrement on stock.
type StockGuard struct {
	conn postgres.Conn
}

func NewStockGuard(conn postgres.Conn) *StockGuard {
	return &StockGuard{conn: conn}
}

// DecrementStock returns false when the product is unknown or has fewer than quantity units.
func (g *StockGuard) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	var ok bool
	if err := g.conn.QueryRow(ctx, "SELECT decrement_stock($1, $2)", productID, quantity).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	return ok, nil
}
