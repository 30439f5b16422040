package safe_random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
)

// GenerateRandomBytes 生成指定长度的安全随机字节切片。
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("生成随机字节失败: %w", err)
	}
	return b, nil
}

// GenerateRandomHexString 生成 n 字节的安全随机数并以 Hex 编码返回。
// 注意：返回字符串长度是 2n。
func GenerateRandomHexString(n int) (string, error) {
	b, err := GenerateRandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandomInt 生成一个 [0, max) 范围内的均匀随机值。
func GenerateRandomInt(max *big.Int) (*big.Int, error) {
	if max.Sign() <= 0 {
		return nil, fmt.Errorf("最大值必须为正数")
	}
	return rand.Int(rand.Reader, max)
}

// Reader 是一个全局共享的加密安全随机数生成器实例。
var Reader io.Reader = rand.Reader
