package keyvault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultRoundTrip(t *testing.T) {
	v, err := NewAESVault("unit-test-secret")
	require.NoError(t, err)

	material := []byte("m/44'/60'/0'/0/0 deadbeef private material")

	ct, err := v.Encrypt(material)
	require.NoError(t, err)
	assert.NotContains(t, ct, "deadbeef") // 密文不泄露明文

	pt, err := v.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, material, pt)
}

func TestVaultNonceUnique(t *testing.T) {
	v, _ := NewAESVault("unit-test-secret")

	// 同一明文两次加密必须产生不同密文 (随机 nonce)
	a, _ := v.Encrypt([]byte("same"))
	b, _ := v.Encrypt([]byte("same"))
	assert.NotEqual(t, a, b)
}

func TestVaultWrongSecret(t *testing.T) {
	v1, _ := NewAESVault("secret-a")
	v2, _ := NewAESVault("secret-b")

	ct, _ := v1.Encrypt([]byte("material"))
	_, err := v2.Decrypt(ct)
	assert.Error(t, err)
}

func TestVaultEmptySecret(t *testing.T) {
	_, err := NewAESVault("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestVaultBadCiphertext(t *testing.T) {
	v, _ := NewAESVault("secret")

	_, err := v.Decrypt("not-hex!!")
	assert.ErrorIs(t, err, ErrCiphertextBad)

	_, err = v.Decrypt("abcd") // 比 nonce 还短
	assert.ErrorIs(t, err, ErrCiphertextBad)
}
