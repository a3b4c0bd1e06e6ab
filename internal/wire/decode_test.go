package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeToText(t *testing.T) {
	text, ok := DecodeToText("hello")
	require.True(t, ok)
	assert.Equal(t, "hello", text)

	text, ok = DecodeToText([]byte("hello"))
	require.True(t, ok)
	assert.Equal(t, "hello", text)

	_, ok = DecodeToText(42)
	assert.False(t, ok)

	_, ok = DecodeToText(nil)
	assert.False(t, ok)
}
