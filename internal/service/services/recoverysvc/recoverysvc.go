package recoverysvc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/feyxa/commerce/internal/dal/interfaces/iabandonedcartrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/icouponrepo"
	"github.com/feyxa/commerce/internal/service/models/abandonedcart"
	"github.com/feyxa/commerce/internal/service/models/coupon"
	"github.com/feyxa/commerce/internal/service/models/mail"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const maxPageSize = 100

type mailer interface {
	SendEmail(ctx context.Context, msg mail.Message) error
}

// RecoveryService lets a vendor follow up on abandoned carts.
type RecoveryService struct {
	carts   iabandonedcartrepo.IAbandonedCartRepository
	coupons icouponrepo.ICouponRepository
	mailer  mailer
	random  io.Reader
	now     func() time.Time
}

// option is a function that configures the RecoveryService.
type option func(*RecoveryService)

// MustNewRecoveryService creates a new RecoveryService.
func MustNewRecoveryService(opts ...option) *RecoveryService {
	s := &RecoveryService{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.carts == nil || s.coupons == nil || s.mailer == nil {
		panic("recovery service needs cart and coupon repositories and a mailer")
	}

	return s
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithAbandonedCartRepository(repo iabandonedcartrepo.IAbandonedCartRepository) option {
	return func(s *RecoveryService) {
		s.carts = repo
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithCouponRepository(repo icouponrepo.ICouponRepository) option {
	return func(s *RecoveryService) {
		s.coupons = repo
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithMailer(m mailer) option {
	return func(s *RecoveryService) {
		s.mailer = m
	}
}

// WithRandom sets the source of recovery code characters.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRandom(r io.Reader) option {
	return func(s *RecoveryService) {
		s.random = r
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *RecoveryService) {
		s.now = now
	}
}

// List returns a store's abandoned carts, newest first, at most maxPageSize at a time.
func (s *RecoveryService) List(ctx context.Context, filter abandonedcart.QueryModel) ([]abandonedcart.AbandonedCart, error) {
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return s.carts.Query(ctx, filter)
}

// Recover marks the cart recovered and emails the shopper. The guarded status flip comes
// first, so of two concurrent recoveries only one creates a coupon and sends mail. With a
// discount, a one-use coupon carrying the code attached to the cart is stored next. The
// email is best-effort: EmailSent reports whether it was delivered.
func (s *RecoveryService) Recover(ctx context.Context, id uuid.UUID, withDiscount bool) (abandonedcart.Recovery, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Recovery.Recover")
	defer span.End()
	span.SetAttributes(
		attribute.String("abandoned_cart.id", id.String()),
		attribute.Bool("recovery.with_discount", withDiscount),
	)

	c, err := s.carts.GetByID(ctx, id)
	if err != nil {
		return abandonedcart.Recovery{}, err
	}
	if c.Status.IsTerminal() {
		return abandonedcart.Recovery{}, abandonedcart.ErrTerminal
	}

	now := s.now().UTC()

	var code string
	if withDiscount {
		code, err = coupon.NewRecoveryCode(s.random)
		if err != nil {
			return abandonedcart.Recovery{}, fmt.Errorf("failed to generate recovery code: %w", err)
		}
	}

	recovered, err := s.carts.MarkRecovered(ctx, c.ID, code, now)
	if err != nil {
		return abandonedcart.Recovery{}, err
	}

	if code != "" {
		if err := s.coupons.Insert(ctx, coupon.NewRecoveryCoupon(c.StoreID, code, now)); err != nil {
			return abandonedcart.Recovery{}, fmt.Errorf("failed to create recovery coupon: %w", err)
		}
	}

	emailSent := s.sendRecoveryEmail(ctx, recovered, code)

	slog.Info("Abandoned cart recovered", "id", c.ID, "store_id", c.StoreID, "with_discount", withDiscount, "email_sent", emailSent)

	return abandonedcart.Recovery{
		Cart:      recovered,
		Code:      code,
		EmailSent: emailSent,
	}, nil
}

func (s *RecoveryService) sendRecoveryEmail(ctx context.Context, c abandonedcart.AbandonedCart, code string) bool {
	if c.Contact.Email == "" {
		slog.Info("Abandoned cart has no email, relance not sent", "id", c.ID)

		return false
	}

	data := map[string]any{
		"customer_name": c.Contact.Name,
		"items":         c.Items,
		"total":         c.Total,
		"currency":      c.Currency,
	}
	if code != "" {
		data["recovery_code"] = code
		data["discount_percent"] = coupon.RecoveryDiscount
	}

	err := s.mailer.SendEmail(ctx, mail.Message{
		To:       c.Contact.Email,
		Subject:  "Votre panier vous attend",
		Template: mail.TemplateCartRecovery,
		Data:     data,
	})
	if err != nil {
		slog.Error("Failed to send recovery email", "id", c.ID, "error", err)

		return false
	}

	return true
}
