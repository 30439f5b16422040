package server

import (
	"time"

	"settlement-core/internal/executor"
	"settlement-core/pkg/chain"
	"settlement-core/pkg/config"
)

// BuildRegistry 按配置为每条链建节点池和执行器。
// API 服务和归集 Worker 共用这套装配。
func BuildRegistry() (*executor.Registry, error) {
	chains := config.Global.Chains

	pool := func(tag chain.Tag, cfg config.ChainConfig) (*executor.EndpointPool, error) {
		return executor.NewEndpointPool(tag, cfg.Endpoints, time.Duration(cfg.HealthSec)*time.Second)
	}
	confirmWait := func(cfg config.ChainConfig) time.Duration {
		if cfg.ConfirmSec <= 0 {
			return 30 * time.Second
		}
		return time.Duration(cfg.ConfirmSec) * time.Second
	}

	ethPool, err := pool(chain.Ethereum, chains.Ethereum)
	if err != nil {
		return nil, err
	}
	btcPool, err := pool(chain.Bitcoin, chains.Bitcoin)
	if err != nil {
		return nil, err
	}
	solPool, err := pool(chain.Solana, chains.Solana)
	if err != nil {
		return nil, err
	}
	strkPool, err := pool(chain.Starknet, chains.Starknet)
	if err != nil {
		return nil, err
	}
	xlmPool, err := pool(chain.Stellar, chains.Stellar)
	if err != nil {
		return nil, err
	}
	dotPool, err := pool(chain.Polkadot, chains.Polkadot)
	if err != nil {
		return nil, err
	}

	btcNetwork, err := chain.ParseNetwork(chains.Bitcoin.Network)
	if err != nil {
		return nil, err
	}
	xlmNetwork, err := chain.ParseNetwork(chains.Stellar.Network)
	if err != nil {
		return nil, err
	}

	return executor.NewRegistry(
		executor.NewEVMExecutor(ethPool, chains.Ethereum.ChainID, confirmWait(chains.Ethereum)),
		executor.NewBitcoinExecutor(btcPool, btcNetwork, chains.Bitcoin.SatPerByte),
		executor.NewSolanaExecutor(solPool, time.Duration(chains.Solana.BatchDelayMs)*time.Millisecond),
		executor.NewStarknetExecutor(strkPool, confirmWait(chains.Starknet)),
		executor.NewStellarExecutor(xlmPool, xlmNetwork, confirmWait(chains.Stellar)),
		executor.NewPolkadotExecutor(dotPool, chains.Polkadot.SS58Prefix),
	)
}
