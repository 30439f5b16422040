package crypto_util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlake3KnownVector(t *testing.T) {
	// 空输入的已知向量, 防止换库时哈希语义悄悄变掉
	assert.Equal(t,
		"af1349b9f5f9a1a6a0404dee36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		CalculateBlake3(nil))
}

func TestBlake3Deterministic(t *testing.T) {
	a := CalculateBlake3([]byte("1:42:auto"))
	b := CalculateBlake3([]byte("1:42:auto"))
	c := CalculateBlake3([]byte("1:42:other"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
