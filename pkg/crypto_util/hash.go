package crypto_util

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// CalculateBlake3 计算输入的 Blake3 哈希值。
// 用于生成分账执行的幂等键，比 SHA256 快且同样抗碰撞。
func CalculateBlake3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
