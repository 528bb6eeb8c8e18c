package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelCost(t *testing.T) {
	model := Model{InputPriceMicro: 2500, OutputPriceMicro: 10000}

	assert.Equal(t, int64(0), model.Cost(0, 0))
	assert.Equal(t, int64(2500), model.Cost(1000, 0))
	assert.Equal(t, int64(10000), model.Cost(0, 1000))
	assert.Equal(t, int64(12500), model.Cost(1000, 1000))

	// Integer division floors sub-token remainders.
	assert.Equal(t, int64(2), model.Cost(1, 0))
	assert.Equal(t, int64(0), Model{InputPriceMicro: 100}.Cost(9, 0))
}

func TestModelCostFreeModel(t *testing.T) {
	assert.Equal(t, int64(0), Model{}.Cost(100000, 100000))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, int64(0), EstimateTokens(""))
	assert.Equal(t, int64(1), EstimateTokens("ab"))
	assert.Equal(t, int64(1), EstimateTokens("abcd"))
	assert.Equal(t, int64(2), EstimateTokens("abcdefgh"))
	assert.Equal(t, int64(25), EstimateTokens(string(make([]byte, 100))))
}
