package cask

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plyght/wax/internal/errs"
)

func TestRequireSupported(t *testing.T) {
	err := RequireSupported()
	if runtime.GOOS == "darwin" {
		assert.NoError(t, err)
		return
	}

	require.Error(t, err)
	var wantErr *errs.Error
	require.ErrorAs(t, err, &wantErr)
	assert.Equal(t, errs.PlatformNotSupported, wantErr.Kind)
}
