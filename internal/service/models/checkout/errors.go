package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrPersistence  = errors.New("your order could not be saved, please try again")
	ErrCartNotFound = errors.New("cart not found")
)

// ValidationError carries one message per invalid field.
type ValidationError struct {
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

// InsufficientStockError names the line item the stock guard refused.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}
