package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeCachesTag(t *testing.T) {
	p := NewProbe()
	tag1, err := p.DetectTag()
	if err != nil {
		t.Skipf("platform detection unavailable in this environment: %v", err)
	}
	tag2, err := p.DetectTag()
	require.NoError(t, err)
	assert.Equal(t, tag1, tag2)
}
