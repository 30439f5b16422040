package keyvault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"settlement-core/pkg/safe_random"
)

// Vault 负责签名材料的静态加密。
// 这是一个抽象接口，允许后续替换为 HSM 或云端 KMS，当前实现是对称加密。
type Vault interface {
	// Encrypt 加密签名材料 (私钥/助记词/种子)，返回 Hex 编码的密文
	Encrypt(plaintext []byte) (string, error)
	// Decrypt 解密签名材料。调用方用完后不得记录或落盘明文。
	Decrypt(ciphertext string) ([]byte, error)
}

var (
	ErrEmptySecret   = errors.New("vault secret 未配置")
	ErrCiphertextBad = errors.New("密文格式错误")
)

// AESVault 是 Vault 的 AES-256-GCM 实现。
// 密钥用 HKDF-SHA256 从配置里的 secret 派生，info 绑定用途防止跨场景复用。
type AESVault struct {
	key []byte
}

func NewAESVault(secret string) (*AESVault, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("keyvault/aes-256-gcm"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return &AESVault{key: key}, nil
}

// Encrypt 返回 hex(nonce + ciphertext)
func (v *AESVault) Encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(safe_random.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return hex.EncodeToString(sealed), nil
}

func (v *AESVault) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrCiphertextBad
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(raw) < gcm.NonceSize() {
		return nil, ErrCiphertextBad
	}

	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}
