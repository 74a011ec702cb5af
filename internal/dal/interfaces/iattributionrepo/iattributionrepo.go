package iattributionrepo

import (
	"context"

	"github.com/feyxa/commerce/internal/service/models/attribution"
)

type IAttributionRepository interface {
	Insert(ctx context.Context, a attribution.Attribution) error
}
