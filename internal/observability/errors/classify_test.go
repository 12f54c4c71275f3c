package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

func TestClassifyUsesAppErrorCode(t *testing.T) {
	t.Parallel()

	err := apperrors.NotFound("run not found")
	assert.Equal(t, "not_found", Classify(err))

	// Wrapping must not hide the code.
	wrapped := fmt.Errorf("sweep org org-1: %w", apperrors.ValidationField("title", "required"))
	assert.Equal(t, "validation", Classify(wrapped))
}

func TestClassifyContextErrors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "timeout", Classify(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.Equal(t, "canceled", Classify(context.Canceled))
}

func TestClassifyFallsBackToTypeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "errors_errorstring", Classify(stderrors.New("boom")))
	assert.Empty(t, Classify(nil))
}
