package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	policydomain "github.com/neturelabs/affiliate/internal/policy/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func f(v float64) *float64 { return &v }

func percentagePolicy(rate float64) *policydomain.CommissionPolicy {
	return &policydomain.CommissionPolicy{
		ID:         snowflake.ID(1),
		Code:       "TEST",
		PolicyType: policydomain.PolicyTypeDefault,
		Status:     policydomain.PolicyStatusActive,
		Mechanism:  policydomain.MechanismPercentage,
		Rate:       f(rate),
	}
}

func TestCalculatePercentage(t *testing.T) {
	resolved := policydomain.Resolved{Policy: percentagePolicy(15), Level: policydomain.LevelSupplier}

	calc := Calculate(resolved, 100_000, 1, time.Now())

	assert.Equal(t, 15_000.0, calc.Amount)
	assert.Equal(t, 15.0, calc.Rate)
	assert.Equal(t, policydomain.LevelSupplier, calc.Snapshot.ResolutionLevel)
	assert.Equal(t, 15_000.0, calc.Snapshot.CalculatedAmount)
}

func TestCalculateMaxCap(t *testing.T) {
	policy := percentagePolicy(25)
	policy.MaxCommission = f(100_000)
	resolved := policydomain.Resolved{Policy: policy, Level: policydomain.LevelProduct}

	calc := Calculate(resolved, 1_000_000, 1, time.Now())

	// Raw 250,000 clamps to the cap.
	assert.Equal(t, 100_000.0, calc.Amount)
}

func TestCalculateMinCap(t *testing.T) {
	policy := percentagePolicy(1)
	policy.MinCommission = f(500)
	resolved := policydomain.Resolved{Policy: policy, Level: policydomain.LevelDefault}

	calc := Calculate(resolved, 1_000, 1, time.Now())

	assert.Equal(t, 500.0, calc.Amount)
}

func TestCalculateFixed(t *testing.T) {
	policy := &policydomain.CommissionPolicy{
		ID:        snowflake.ID(2),
		Status:    policydomain.PolicyStatusActive,
		Mechanism: policydomain.MechanismFixed,
		Amount:    f(250),
	}
	resolved := policydomain.Resolved{Policy: policy, Level: policydomain.LevelSupplier}

	calc := Calculate(resolved, 10_000, 3, time.Now())

	assert.Equal(t, 750.0, calc.Amount)
	assert.InDelta(t, 2.5, calc.Rate, 1e-9)
}

func TestCalculateTiered(t *testing.T) {
	brackets, err := json.Marshal([]policydomain.Bracket{
		{MinAmount: 0, MaxAmount: f(50_000), Rate: f(5)},
		{MinAmount: 50_000, MaxAmount: f(200_000), Rate: f(10)},
		{MinAmount: 200_000, Rate: f(12)},
	})
	require.NoError(t, err)

	policy := &policydomain.CommissionPolicy{
		ID:        snowflake.ID(3),
		Status:    policydomain.PolicyStatusActive,
		Mechanism: policydomain.MechanismTiered,
		Brackets:  datatypes.JSON(brackets),
	}
	resolved := policydomain.Resolved{Policy: policy, Level: policydomain.LevelSupplier}

	tests := []struct {
		name  string
		total float64
		want  float64
	}{
		{name: "first bracket", total: 40_000, want: 2_000},
		{name: "lower bound is inclusive", total: 50_000, want: 5_000},
		{name: "open-ended top bracket", total: 300_000, want: 36_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := Calculate(resolved, tt.total, 1, time.Now())
			assert.Equal(t, tt.want, calc.Amount)
		})
	}
}

func TestCalculateSafeMode(t *testing.T) {
	calc := Calculate(policydomain.Resolved{Level: policydomain.LevelSafeMode}, 100_000, 2, time.Now())

	assert.Equal(t, 0.0, calc.Amount)
	assert.Equal(t, 0.0, calc.Rate)
	assert.Equal(t, policydomain.LevelSafeMode, calc.Snapshot.ResolutionLevel)
	assert.Nil(t, calc.Snapshot.PolicyID)
}

func TestCalculateRounds(t *testing.T) {
	resolved := policydomain.Resolved{Policy: percentagePolicy(3.33), Level: policydomain.LevelDefault}

	calc := Calculate(resolved, 99.99, 1, time.Now())

	// 99.99 * 3.33% = 3.329667
	assert.Equal(t, 3.33, calc.Amount)
}
