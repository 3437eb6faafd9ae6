package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubo-market/pix-charge-platform/internal/domain"
)

func TestTransitionPendingToPaid(t *testing.T) {
	c := domain.NewCharge("ext_1", decimal.NewFromInt(100), time.Now(), 30*time.Minute)
	now := time.Now()

	require.NoError(t, domain.Transition(c, domain.StatusPaid, true, decimal.NewFromInt(100), now))
	assert.Equal(t, domain.StatusPaid, c.Status)
	require.NotNil(t, c.PaidAt)
	assert.True(t, c.PaidAt.Equal(now))
}

func TestTransitionPendingToExpired(t *testing.T) {
	c := domain.NewCharge("ext_2", decimal.NewFromInt(50), time.Now(), 30*time.Minute)

	require.NoError(t, domain.Transition(c, domain.StatusExpired, false, decimal.Decimal{}, time.Now()))
	assert.Equal(t, domain.StatusExpired, c.Status)
	assert.Nil(t, c.PaidAt)
}

func TestTransitionToPaidRequiresArmed(t *testing.T) {
	c := domain.NewCharge("ext_paid_unarmed", decimal.NewFromInt(100), time.Now(), 30*time.Minute)

	err := domain.Transition(c, domain.StatusPaid, false, decimal.NewFromInt(100), time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StatusPending, c.Status, "failed guard must not mutate the charge")
}

func TestTransitionToPaidRequiresValueMatch(t *testing.T) {
	c := domain.NewCharge("ext_paid_mismatch", decimal.NewFromInt(100), time.Now(), 30*time.Minute)

	err := domain.Transition(c, domain.StatusPaid, true, decimal.NewFromInt(99), time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StatusPending, c.Status, "failed guard must not mutate the charge")
}

func TestTransitionToExpiredRequiresNotArmed(t *testing.T) {
	c := domain.NewCharge("ext_expired_armed", decimal.NewFromInt(100), time.Now(), 30*time.Minute)

	err := domain.Transition(c, domain.StatusExpired, true, decimal.Decimal{}, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StatusPending, c.Status, "failed guard must not mutate the charge")
}

func TestTerminalStatesAbsorbFurtherEvents(t *testing.T) {
	for _, terminal := range []domain.Status{domain.StatusPaid, domain.StatusExpired} {
		c := &domain.Charge{Status: terminal}
		err := domain.Transition(c, domain.StatusPaid, true, decimal.Zero, time.Now())
		assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
		assert.Equal(t, terminal, c.Status, "terminal charge must never mutate")
	}
}

func TestTransitionRejectsUnknownTarget(t *testing.T) {
	c := domain.NewCharge("ext_3", decimal.NewFromInt(1), time.Now(), time.Minute)
	err := domain.Transition(c, domain.StatusPending, true, decimal.NewFromInt(1), time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestValueEqualsIsExact(t *testing.T) {
	c := domain.NewCharge("ext_4", decimal.RequireFromString("100.00"), time.Now(), time.Minute)

	assert.True(t, c.ValueEquals(decimal.RequireFromString("100")))
	assert.True(t, c.ValueEquals(decimal.RequireFromString("100.0")))
	assert.False(t, c.ValueEquals(decimal.RequireFromString("100.01")))
}
