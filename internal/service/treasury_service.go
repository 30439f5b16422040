package service

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"settlement-core/pkg/chain"
	"settlement-core/pkg/config"
	"settlement-core/pkg/errno"
	"settlement-core/pkg/logger"
	"settlement-core/pkg/monitor"
)

// TreasuryService 国库地址目录。
// 解析顺序: 环境变量 > 配置文件 > 内置默认值。
// 三层都没有就报 ErrTreasuryNotConfigured, 调用方决定延后还是放弃手续费腿。
type TreasuryService struct{}

var Treasury = &TreasuryService{}

// defaultTreasuries 内置兜底地址 (仅测试网)
var defaultTreasuries = map[chain.Tag]map[chain.Network]string{
	chain.Ethereum: {
		chain.Testnet: "0x36Ef586D3235Ae4BEb846E25d7ad3AC44f55bDc5",
	},
	chain.Bitcoin: {
		chain.Testnet: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
	},
	chain.Solana: {
		chain.Testnet: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
	},
}

// 地址格式的粗校验。校验失败只告警不拦截:
// 配置错误要暴露出来, 但不该让整条链的出账停摆。
var addressPatterns = map[chain.Tag]*regexp.Regexp{
	chain.Ethereum: regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`),
	chain.Bitcoin:  regexp.MustCompile(`^(bc1|tb1|[13mn2])[a-zA-HJ-NP-Z0-9]{25,62}$`),
	chain.Solana:   regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`),
	chain.Starknet: regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`),
	chain.Stellar:  regexp.MustCompile(`^G[A-Z2-7]{55}$`),
	chain.Polkadot: regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{46,48}$`),
}

// Resolve 解析某条链某个网络的国库地址
func (s *TreasuryService) Resolve(tag chain.Tag, network chain.Network) (string, error) {
	envKey := fmt.Sprintf("TREASURY_%s_%s", strings.ToUpper(string(tag)), strings.ToUpper(string(network)))
	if addr := strings.TrimSpace(os.Getenv(envKey)); addr != "" {
		s.validate(tag, addr, "env")
		return addr, nil
	}

	if byNetwork, ok := config.Global.Treasury.Addresses[string(tag)]; ok {
		if addr := strings.TrimSpace(byNetwork[string(network)]); addr != "" {
			s.validate(tag, addr, "config")
			return addr, nil
		}
	}

	if byNetwork, ok := defaultTreasuries[tag]; ok {
		if addr, ok := byNetwork[network]; ok {
			s.validate(tag, addr, "default")
			return addr, nil
		}
	}

	logger.Warn("国库地址未配置",
		zap.String("chain", string(tag)),
		zap.String("network", string(network)),
		zap.String("env_key", envKey))
	return "", errno.ErrTreasuryNotConfigured
}

// validate 只告警不报错
func (s *TreasuryService) validate(tag chain.Tag, addr, source string) {
	pattern, ok := addressPatterns[tag]
	if !ok {
		return
	}
	if !pattern.MatchString(addr) {
		monitor.Business.AddressValidationWarn.WithLabelValues(string(tag)).Inc()
		logger.Warn("国库地址格式可疑",
			zap.String("chain", string(tag)),
			zap.String("address", addr),
			zap.String("source", source))
	}
}

// ValidateAddress 对外暴露的格式校验 (CLI 用)
func (s *TreasuryService) ValidateAddress(tag chain.Tag, addr string) bool {
	pattern, ok := addressPatterns[tag]
	if !ok {
		return false
	}
	return pattern.MatchString(addr)
}
