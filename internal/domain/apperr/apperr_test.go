package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("title is required"), KindValidation},
		{"wrapped not found", fmt.Errorf("load: %w", NotFound("request", 7)), KindNotFound},
		{"transaction keeps outer kind", Transaction("process step", State("no pending progress")), KindTransaction},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestSentinels(t *testing.T) {
	err := fmt.Errorf("ctx: %w", NotFound("workflow", 3))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "workflow 3 not found", MessageOf(err))
}

func TestTransactionUnwrapsCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := Transaction("process workflow step", cause)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrTransaction))
	assert.False(t, IsClientError(err))
}
