package dsl

import (
	"context"
	"testing"

	"github.com/rushteam/ratingkit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *core.PredictionResult {
	return &core.PredictionResult{
		Status:              core.StatusSuccess,
		Database:            "NoSQL",
		ProductID:           1,
		CustomerID:          2,
		Price:               25,
		PredictedRating:     1.2,
		ProductReviewCount:  0,
		CustomerReviewCount: 3,
	}
}

func TestEval_Evaluate(t *testing.T) {
	features := map[string]float64{"price": 25, "count_product_avg": 0, "count_customer_avg": 3}
	input := resultInput(sampleResult())

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"low rating", `result.predicted_rating <= 1.5`, true},
		{"database tag", `result.database == "SQL"`, false},
		{"feature access", `features.price > 10.0 && features.count_product_avg == 0.0`, true},
		{"int field", `result.customer_review_count >= 3`, true},
		{"in operator", `"price" in features`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Compile(tt.name, tt.expr)
			require.NoError(t, err)
			got, err := e.Evaluate(features, input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile("syntax", `result.predicted_rating <=`)
	assert.Error(t, err)

	_, err = Compile("not bool", `features.price + 1.0`)
	assert.Error(t, err)

	_, err = Compile("unknown var", `item.score > 1.0`)
	assert.Error(t, err)
}

func TestAuditor(t *testing.T) {
	a, err := NewAuditor([]Rule{
		{Name: "low_rating", Expr: `result.predicted_rating <= 1.5`},
		{Name: "cold_product", Expr: `features.count_product_avg == 0.0`},
		{Name: "missing_key", Expr: `features.absent > 0.0`},
		{Name: "expensive", Expr: `features.price > 100.0`},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, a.Len())

	hits := a.Audit(context.Background(), map[string]float64{"price": 25, "count_product_avg": 0}, sampleResult())
	assert.Equal(t, []string{"low_rating", "cold_product"}, hits)
}

func TestAuditor_Empty(t *testing.T) {
	var a *Auditor
	assert.Nil(t, a.Audit(context.Background(), nil, sampleResult()))

	a, err := NewAuditor(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Len())
}

func TestNewAuditor_Duplicate(t *testing.T) {
	_, err := NewAuditor([]Rule{{Name: "a", Expr: "true"}, {Name: "a", Expr: "false"}})
	assert.Error(t, err)
}
