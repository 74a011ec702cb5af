package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	allowed := map[Status][]Status{
		StatusNew:       {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusPreparing, StatusCancelled},
		StatusPreparing: {StatusShipped, StatusCancelled},
		StatusShipped:   {StatusDelivered},
	}
	all := []Status{StatusNew, StatusConfirmed, StatusPreparing, StatusShipped, StatusDelivered, StatusCancelled}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseStatus("lost")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestInitialPaymentStatus(t *testing.T) {
	assert.Equal(t, PaymentStatusCOD, PaymentMethodCOD.InitialPaymentStatus())
	assert.Equal(t, PaymentStatusPending, PaymentMethodStripe.InitialPaymentStatus())
	assert.Equal(t, PaymentStatusPending, PaymentMethodFedaPay.InitialPaymentStatus())
}
