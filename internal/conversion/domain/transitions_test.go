package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfirmEvent(t *testing.T) {
	next, err := ConfirmEvent(ConversionEvent{Status: StatusPending})
	assert.NoError(t, err)
	assert.Equal(t, StatusConfirmed, next.Status)

	_, err = ConfirmEvent(ConversionEvent{Status: StatusCancelled})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelEvent(t *testing.T) {
	for _, status := range []ConversionStatus{StatusPending, StatusConfirmed} {
		next, err := CancelEvent(ConversionEvent{Status: status, ConversionType: TypeDirectPurchase})
		assert.NoError(t, err)
		assert.Equal(t, StatusCancelled, next.Status)
		assert.Equal(t, TypeCancelled, next.ConversionType)
	}

	_, err := CancelEvent(ConversionEvent{Status: StatusRefunded})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyRefundAccumulates(t *testing.T) {
	event := ConversionEvent{Status: StatusConfirmed, OrderAmount: 100, Quantity: 2}

	event, err := ApplyRefund(event, 40, 1)
	assert.NoError(t, err)
	assert.Equal(t, StatusPartialRefund, event.Status)
	assert.Equal(t, 40.0, event.RefundedAmount)
	assert.Equal(t, 1, event.RefundedQuantity)

	event, err = ApplyRefund(event, 60, 1)
	assert.NoError(t, err)
	assert.Equal(t, StatusRefunded, event.Status)
	assert.Equal(t, 100.0, event.RefundedAmount)
}

func TestApplyRefundRejectsInvalid(t *testing.T) {
	_, err := ApplyRefund(ConversionEvent{Status: StatusPending, OrderAmount: 100}, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = ApplyRefund(ConversionEvent{Status: StatusConfirmed, OrderAmount: 100}, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidRefund)

	_, err = ApplyRefund(ConversionEvent{Status: StatusConfirmed, OrderAmount: 100}, 150, 0)
	assert.ErrorIs(t, err, ErrInvalidRefund)
}
