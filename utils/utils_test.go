package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCopyBytes(t *testing.T) {
	assert.Nil(t, CopyBytes(nil))
	src := []byte{1, 2, 3}
	dst := CopyBytes(src)
	dst[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, src)
}

func TestIncrementBytes(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x03}, IncrementBytes([]byte{0x01, 0x02}))
	assert.Equal(t, []byte{0x02}, IncrementBytes([]byte{0x01, 0xff}))
	assert.Nil(t, IncrementBytes([]byte{0xff, 0xff}))
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix([]byte("abc"), []byte("ab")))
	assert.False(t, HasPrefix([]byte("a"), []byte("ab")))
	assert.True(t, HasPrefix([]byte("a"), nil))
}
