package s3

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	"github.com/gitcas/gitcas/pkg/errors"
)

func TestObjectKeyPrefixing(t *testing.T) {
	s := &Store{prefix: "blobs"}
	assert.Equal(t, "blobs/abc123", s.objectKey("abc123"))

	s = &Store{}
	assert.Equal(t, "abc123", s.objectKey("abc123"))
}

func TestTranslateErrorNotFound(t *testing.T) {
	s := &Store{logger: slog.Default()}

	apiErr := &smithy.GenericAPIError{Code: "NoSuchKey", Message: "no such key"}
	err := s.translateError(apiErr, "get", "abc123")

	e, ok := err.(*errors.EngineError)
	if !ok {
		t.Fatalf("expected EngineError, got %T", err)
	}
	assert.Equal(t, errors.ErrCodeBlobNotFound, e.Code)
}

func TestTranslateErrorByOperation(t *testing.T) {
	s := &Store{logger: slog.Default()}
	cause := fmt.Errorf("connection reset")

	tests := []struct {
		operation string
		want      errors.ErrorCode
	}{
		{"get", errors.ErrCodeStorageRead},
		{"exists", errors.ErrCodeStorageRead},
		{"put", errors.ErrCodeStorageWrite},
		{"delete", errors.ErrCodeStorageWrite},
	}

	for _, tt := range tests {
		err := s.translateError(cause, tt.operation, "key")
		e, ok := err.(*errors.EngineError)
		if !ok {
			t.Fatalf("%s: expected EngineError, got %T", tt.operation, err)
		}
		assert.Equal(t, tt.want, e.Code, tt.operation)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), &Config{}, nil)
	assert.Error(t, err)
}
