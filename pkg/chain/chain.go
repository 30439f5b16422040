package chain

import (
	"fmt"
	"strings"
)

// Tag 标识一条受支持的区块链
type Tag string

const (
	Ethereum Tag = "ethereum"
	Bitcoin  Tag = "bitcoin"
	Solana   Tag = "solana"
	Starknet Tag = "starknet"
	Stellar  Tag = "stellar"
	Polkadot Tag = "polkadot"
)

// Network 标识主网/测试网
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// tagSet 是显式的全量映射表。
// 不要用反射去枚举枚举值，未知输入必须返回类型化的错误。
var tagSet = map[string]Tag{
	"ethereum": Ethereum,
	"bitcoin":  Bitcoin,
	"solana":   Solana,
	"starknet": Starknet,
	"stellar":  Stellar,
	"polkadot": Polkadot,
}

// FromString 将自由文本转换为链标识。
// 大小写不敏感，未知链返回错误而不是空值。
func FromString(s string) (Tag, error) {
	tag, ok := tagSet[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("不支持的链: %q", s)
	}
	return tag, nil
}

// ParseNetwork 解析网络名，默认 mainnet
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mainnet", "main", "livenet":
		return Mainnet, nil
	case "testnet", "test", "sepolia", "devnet":
		return Testnet, nil
	default:
		return "", fmt.Errorf("不支持的网络: %q", s)
	}
}

// All 返回所有受支持的链 (顺序固定，方便遍历注册)
func All() []Tag {
	return []Tag{Ethereum, Bitcoin, Solana, Starknet, Stellar, Polkadot}
}

// NativeSymbol 返回链的原生代币符号 (用于询价)
func (t Tag) NativeSymbol() string {
	switch t {
	case Ethereum:
		return "ETH"
	case Bitcoin:
		return "BTC"
	case Solana:
		return "SOL"
	case Starknet:
		return "STRK"
	case Stellar:
		return "XLM"
	case Polkadot:
		return "DOT"
	default:
		return ""
	}
}

// NativeDecimals 返回原生代币的最小单位位数
// ETH: wei(18), BTC: satoshi(8), SOL: lamport(9), XLM: stroop(7), DOT: planck(10)
func (t Tag) NativeDecimals() int32 {
	switch t {
	case Ethereum, Starknet:
		return 18
	case Bitcoin:
		return 8
	case Solana:
		return 9
	case Stellar:
		return 7
	case Polkadot:
		return 10
	default:
		return 0
	}
}

func (t Tag) String() string {
	return string(t)
}
