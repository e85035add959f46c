package snaperr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := StoreIO("save", "/tmp/x.txt", os.ErrPermission)
	assert.Equal(t, "STORE_IO_FAILURE: save: /tmp/x.txt: permission denied", err.Error())

	misuse := Misuse("promise already resolved")
	assert.Equal(t, "ASYNC_CONTINUATION_MISUSE: resolve: promise already resolved", misuse.Error())
}

func TestError_WrappedClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"unrenderable", Unrenderable("zero size", nil), IsUnrenderable},
		{"decode", Decode("png", errors.New("bad header")), IsDecode},
		{"misuse", Misuse("twice"), IsMisuse},
		{"timeout is misuse", Timeout("never resolved", nil), IsMisuse},
		{"timeout", Timeout("never resolved", nil), IsTimeout},
		{"store", StoreIO("load", "p", nil), IsStoreIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("assert: %w", tt.err)
			assert.True(t, tt.check(wrapped))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := StoreIO("load", "p", os.ErrNotExist)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.False(t, IsDecode(errors.New("plain")))
}
