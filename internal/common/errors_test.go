package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPipelineError_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("zip: not a valid zip file")
	err := NewPipelineError(ErrCorruptDocument, "문서를 읽을 수 없습니다", cause)

	assert.ErrorIs(t, err, ErrCorruptDocument)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "CORRUPT_DOCUMENT", err.Code)
	assert.Equal(t, "문서를 읽을 수 없습니다", UserMessage(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewPipelineError(ErrUnsupportedFormat, "x", nil), http.StatusBadRequest},
		{NewPipelineError(ErrFormatMismatch, "x", nil), http.StatusBadRequest},
		{NewPipelineError(ErrFileTooLarge, "x", nil), http.StatusRequestEntityTooLarge},
		{NewPipelineError(ErrCorruptDocument, "x", nil), http.StatusBadRequest},
		{NewPipelineError(ErrNoExtractableContent, "x", nil), http.StatusBadRequest},
		{NewPipelineError(ErrExtractionFailure, "x", nil), http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", ErrNotFound), http.StatusNotFound},
		{NewAppError("PATH_OUTSIDE_ROOTS", "x", ErrForbidden), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestErrorCode_FallsBackToSentinel(t *testing.T) {
	assert.Equal(t, "FILE_TOO_LARGE", ErrorCode(fmt.Errorf("save: %w", ErrFileTooLarge)))
	assert.Equal(t, "INTERNAL", ErrorCode(errors.New("boom")))
	assert.Equal(t, "처리 중 오류가 발생했습니다", UserMessage(errors.New("boom")))
}
