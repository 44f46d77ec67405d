package wager

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBoxCostBelowTwoHorsesIsZero(t *testing.T) {
	for _, bt := range AllBetTypes() {
		for _, n := range []int{-1, 0, 1} {
			got := BoxCost(n, bt, dec("2"))
			assert.Truef(t, got.IsZero(), "BoxCost(%d, %s) = %s", n, bt, got)
		}
	}
}

func TestBoxCost(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		betType BetType
		amount  string
		want    string
	}{
		{"exacta three horses", 3, BetTypeExacta, "2", "12"},
		{"trifecta four horses", 4, BetTypeTrifecta, "2", "48"},
		{"superfecta five horses", 5, BetTypeSuperfecta, "1", "120"},
		{"exacta two horses", 2, BetTypeExacta, "1", "2"},
		{"trifecta short of arity", 2, BetTypeTrifecta, "2", "0"},
		{"superfecta short of arity", 3, BetTypeSuperfecta, "5", "0"},
		{"win falls back to exacta formula", 3, BetTypeWin, "2", "12"},
		{"pick three falls back to exacta formula", 4, BetTypePickThree, "1", "12"},
		{"fractional amount", 3, BetTypeExacta, "0.5", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BoxCost(tt.n, tt.betType, dec(tt.amount))
			assert.Truef(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestPermutations(t *testing.T) {
	assert.True(t, Permutations(5, 0).Equal(dec("1")))
	assert.True(t, Permutations(5, 2).Equal(dec("20")))
	assert.True(t, Permutations(5, 5).Equal(dec("120")))
	assert.True(t, Permutations(2, 3).IsZero())
	assert.True(t, Permutations(-1, 1).IsZero())
}

func TestPermutationsLargeFieldIsExact(t *testing.T) {
	// 70000*69999*69998*69997 does not fit in an int64
	got := Permutations(70000, 4)
	assert.Equal(t, "24007942053899580000", got.String())

	cost := BoxCost(100000, BetTypeSuperfecta, dec("1"))
	assert.Equal(t, "99994000109999400000", cost.String())
	assert.True(t, cost.IsPositive())
}

func TestValidateBoxSize(t *testing.T) {
	assert.NoError(t, ValidateBoxSize(0))
	assert.NoError(t, ValidateBoxSize(MaxFieldSize))

	err := ValidateBoxSize(MaxFieldSize + 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 0 and 24")
	assert.Error(t, ValidateBoxSize(-1))
}

func TestBoxLineAmountCarriesFullBoxCost(t *testing.T) {
	cost := BoxCost(3, BetTypeExacta, dec("2"))
	require.True(t, cost.Equal(dec("12")))
	assert.True(t, BoxLineAmount(cost, 3).Equal(dec("12")))
}

func TestBetTypeProperties(t *testing.T) {
	tests := []struct {
		betType       BetType
		arity         int
		combinatorial bool
		multiRace     bool
	}{
		{BetTypeWin, 1, false, false},
		{BetTypePlace, 1, false, false},
		{BetTypeShow, 1, false, false},
		{BetTypeWinPlaceShow, 1, false, false},
		{BetTypeWinPlace, 1, false, false},
		{BetTypeWinShow, 1, false, false},
		{BetTypePlaceShow, 1, false, false},
		{BetTypeExacta, 2, true, false},
		{BetTypeTrifecta, 3, true, false},
		{BetTypeSuperfecta, 4, true, false},
		{BetTypeDailyDouble, 1, false, true},
		{BetTypePickThree, 1, false, true},
	}

	require.Len(t, tests, len(AllBetTypes()))
	for _, tt := range tests {
		t.Run(string(tt.betType), func(t *testing.T) {
			assert.True(t, tt.betType.Valid())
			assert.Equal(t, tt.arity, tt.betType.Arity())
			assert.Equal(t, tt.combinatorial, tt.betType.IsCombinatorial())
			assert.Equal(t, tt.multiRace, tt.betType.IsMultiRace())
		})
	}
}

func TestParseBetType(t *testing.T) {
	bt, err := ParseBetType("trifecta")
	require.NoError(t, err)
	assert.Equal(t, BetTypeTrifecta, bt)

	_, err = ParseBetType("quinella")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quinella")

	assert.Equal(t, 0, BetType("quinella").Arity())
}
