package service

import (
	"encoding/json"
	"math"
	"time"

	commissiondomain "github.com/neturelabs/affiliate/internal/commission/domain"
	policydomain "github.com/neturelabs/affiliate/internal/policy/domain"
	"gorm.io/datatypes"
)

// Calculate applies a resolved policy to one order line. Safe mode yields a
// zero commission with a snapshot still recording the resolution level, so
// the outcome stays auditable.
func Calculate(resolved policydomain.Resolved, price float64, quantity int, now time.Time) commissiondomain.Calculation {
	if quantity <= 0 {
		quantity = 1
	}

	if resolved.SafeMode() {
		return commissiondomain.Calculation{
			Snapshot: commissiondomain.AppliedSnapshot{
				ResolutionLevel: policydomain.LevelSafeMode,
				AppliedAt:       now,
			},
		}
	}

	p := resolved.Policy
	orderTotal := price * float64(quantity)

	var raw, rate float64
	switch p.Mechanism {
	case policydomain.MechanismPercentage:
		if p.Rate != nil {
			rate = *p.Rate
		}
		raw = orderTotal * rate / 100

	case policydomain.MechanismFixed:
		var unit float64
		if p.Amount != nil {
			unit = *p.Amount
		}
		raw = unit * float64(quantity)
		if orderTotal > 0 {
			rate = raw / orderTotal * 100
		}

	case policydomain.MechanismTiered:
		raw, rate = applyBracket(p, orderTotal)
	}

	// Caps apply to the raw figure, not per mechanism.
	if p.MinCommission != nil && raw < *p.MinCommission {
		raw = *p.MinCommission
	}
	if p.MaxCommission != nil && raw > *p.MaxCommission {
		raw = *p.MaxCommission
	}

	amount := round2(raw)

	return commissiondomain.Calculation{
		Amount: amount,
		Rate:   rate,
		Snapshot: commissiondomain.AppliedSnapshot{
			PolicyID:         &p.ID,
			PolicyCode:       p.Code,
			PolicyType:       p.PolicyType,
			Mechanism:        p.Mechanism,
			Rate:             p.Rate,
			Amount:           p.Amount,
			MinCommission:    p.MinCommission,
			MaxCommission:    p.MaxCommission,
			ResolutionLevel:  resolved.Level,
			CalculatedAmount: amount,
			AppliedAt:        now,
		},
	}
}

// applyBracket selects the [min, max) bracket containing the order total.
// No matching bracket means no commission.
func applyBracket(p *policydomain.CommissionPolicy, orderTotal float64) (raw, rate float64) {
	brackets, err := decodeBrackets(p.Brackets)
	if err != nil {
		return 0, 0
	}
	for _, b := range brackets {
		if orderTotal < b.MinAmount {
			continue
		}
		if b.MaxAmount != nil && orderTotal >= *b.MaxAmount {
			continue
		}
		switch {
		case b.Rate != nil:
			rate = *b.Rate
			raw = orderTotal * rate / 100
		case b.Amount != nil:
			raw = *b.Amount
			if orderTotal > 0 {
				rate = raw / orderTotal * 100
			}
		}
		return raw, rate
	}
	return 0, 0
}

func decodeBrackets(raw datatypes.JSON) ([]policydomain.Bracket, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []policydomain.Bracket
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
