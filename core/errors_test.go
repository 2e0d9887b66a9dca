package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorMessage(t *testing.T) {
	e := NewDomainError(ModuleSource, ErrorCodeNotFound, "product 3 not found")
	assert.Equal(t, "product 3 not found", e.Error())

	cause := errors.New("dial tcp: connection refused")
	w := WrapDomainError(ModuleSource, ErrorCodeUnavailable, "sql store unavailable", cause)
	assert.Equal(t, "sql store unavailable: dial tcp: connection refused", w.Error())
	assert.ErrorIs(t, w, cause)
}

func TestDomainErrorIs(t *testing.T) {
	e := NewDomainError(ModuleSource, ErrorCodeNotFound, "x")
	assert.ErrorIs(t, e, ErrNotFound)
	assert.ErrorIs(t, e, &DomainError{Module: ModuleSource, Code: ErrorCodeNotFound})
	assert.NotErrorIs(t, e, &DomainError{Module: ModuleModel, Code: ErrorCodeNotFound})
	assert.NotErrorIs(t, e, ErrUnavailable)
}

func TestClassificationUsesOutermost(t *testing.T) {
	inner := NewDomainError(ModuleSource, ErrorCodeUnavailable, "sql store unavailable")
	outer := WrapDomainError(ModulePredict, ErrorCodeNotFound, "Product 1 not found in SQL database", inner)
	wrapped := fmt.Errorf("handler: %w", outer)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsUnavailable(wrapped))
	// errors.Is 仍可看到整条链上的原因
	assert.ErrorIs(t, wrapped, ErrUnavailable)
	assert.Equal(t, outer, GetDomainError(wrapped))
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", NewDomainError(ModuleSource, ErrorCodeNotFound, ""), IsNotFound, true},
		{"unavailable", NewDomainError(ModuleSource, ErrorCodeUnavailable, ""), IsUnavailable, true},
		{"invalid input", NewDomainError(ModulePredict, ErrorCodeInvalidInput, ""), IsInvalidInput, true},
		{"prediction failed", NewDomainError(ModuleModel, ErrorCodePredictionFailed, ""), IsPredictionFailed, true},
		{"plain error", errors.New("boom"), IsNotFound, false},
		{"nil", nil, IsInvalidInput, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
	assert.False(t, IsDomainError(errors.New("boom")))
	assert.Nil(t, GetDomainError(nil))
}

func TestVariantTag(t *testing.T) {
	assert.Equal(t, "SQL", VariantSQL.Tag())
	assert.Equal(t, "NoSQL", VariantDocument.Tag())
	assert.True(t, VariantSQL.Valid())
	assert.False(t, Variant("graph").Valid())
	assert.Equal(t, "graph", Variant("graph").Tag())
}
