package domain

// Status transitions are pure: each function takes the current event by
// value and returns the next state. Persisting the result is the caller's
// problem.

func ConfirmEvent(c ConversionEvent) (ConversionEvent, error) {
	if c.Status != StatusPending {
		return c, ErrInvalidTransition
	}
	c.Status = StatusConfirmed
	return c, nil
}

func CancelEvent(c ConversionEvent) (ConversionEvent, error) {
	switch c.Status {
	case StatusPending, StatusConfirmed:
		c.Status = StatusCancelled
		c.ConversionType = TypeCancelled
		return c, nil
	default:
		return c, ErrInvalidTransition
	}
}

// ApplyRefund accumulates a refund against a confirmed conversion. Once the
// cumulative refunded amount reaches the order amount the event is fully
// refunded; anything less is a partial refund.
func ApplyRefund(c ConversionEvent, amount float64, quantity int) (ConversionEvent, error) {
	if c.Status != StatusConfirmed && c.Status != StatusPartialRefund {
		return c, ErrInvalidTransition
	}
	if amount <= 0 || c.RefundedAmount+amount > c.OrderAmount {
		return c, ErrInvalidRefund
	}

	c.RefundedAmount += amount
	c.RefundedQuantity += quantity

	if c.RefundedAmount >= c.OrderAmount {
		c.Status = StatusRefunded
	} else {
		c.Status = StatusPartialRefund
	}
	return c, nil
}
