package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		rejection bool
	}{
		{name: "nil", err: nil},
		{name: "transient", err: fmt.Errorf("put: %w", ErrTransient), transient: true},
		{name: "not found", err: fmt.Errorf("%w: %w", ErrRejected, ErrNotFound), rejection: true},
		{name: "plain", err: errors.New("boom")},
		{name: "validation", err: fmt.Errorf("%w: title is required", ErrValidation)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
			assert.Equal(t, tt.rejection, IsRejection(tt.err))
		})
	}
}
