package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	DB       DBConfig       `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Treasury TreasuryConfig `mapstructure:"treasury"`
	Chains   ChainsConfig   `mapstructure:"chains"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// VaultConfig 签名材料加解密配置
// Secret 通过环境变量 VAULT_SECRET 传入，密钥 = SHA-256(Secret)
type VaultConfig struct {
	Secret string `mapstructure:"secret"`
}

type OracleConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	CacheTTLSec   int    `mapstructure:"cache_ttl_sec"`
	MaxConcurrent int    `mapstructure:"max_concurrent"`
}

// TreasuryConfig 各链国库收款地址
// 解析顺序: 环境变量 TREASURY_<CHAIN>_<NETWORK> > treasury.<chain>.<network> > 内置默认表
type TreasuryConfig struct {
	Addresses map[string]map[string]string `mapstructure:"addresses"`
}

// ChainConfig 单条链的接入配置
// Endpoints[0] 是主节点，其余为故障转移节点
type ChainConfig struct {
	Endpoints     []string `mapstructure:"endpoints"`
	ChainID       int64    `mapstructure:"chain_id"`        // EVM
	Network       string   `mapstructure:"network"`         // mainnet / testnet
	SatPerByte    int64    `mapstructure:"sat_per_byte"`    // Bitcoin
	ConfirmSec    int      `mapstructure:"confirm_sec"`     // 确认等待上限
	HealthSec     int      `mapstructure:"health_sec"`      // 节点健康检查超时
	SS58Prefix    uint16   `mapstructure:"ss58_prefix"`     // Polkadot
	BatchDelayMs  int      `mapstructure:"batch_delay_ms"`  // Solana 批量发送间隔
	StartHeight   uint64   `mapstructure:"start_height"`    // 充值扫描起始高度
	ObserverCount int      `mapstructure:"observer_count"`  // 充值扫描 worker 数
}

type ChainsConfig struct {
	Ethereum ChainConfig `mapstructure:"ethereum"`
	Bitcoin  ChainConfig `mapstructure:"bitcoin"`
	Solana   ChainConfig `mapstructure:"solana"`
	Starknet ChainConfig `mapstructure:"starknet"`
	Stellar  ChainConfig `mapstructure:"stellar"`
	Polkadot ChainConfig `mapstructure:"polkadot"`
}

type WorkerConfig struct {
	Concurrency  int    `mapstructure:"concurrency"`
	SweepCron    string `mapstructure:"sweep_cron"`
}

var Global Config

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// 环境变量设置
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "settlement_user")
	viper.SetDefault("db.password", "settlement_password")
	viper.SetDefault("db.name", "settlement_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("oracle.base_url", "https://api.coingecko.com/api/v3")
	viper.SetDefault("oracle.cache_ttl_sec", 30)
	viper.SetDefault("oracle.max_concurrent", 2)

	viper.SetDefault("chains.ethereum.endpoints", []string{"https://eth.llamarpc.com", "https://rpc.ankr.com/eth"})
	viper.SetDefault("chains.ethereum.chain_id", 1)
	viper.SetDefault("chains.ethereum.confirm_sec", 30)
	viper.SetDefault("chains.bitcoin.endpoints", []string{"https://blockstream.info/api", "https://mempool.space/api"})
	viper.SetDefault("chains.bitcoin.sat_per_byte", 12)
	viper.SetDefault("chains.solana.endpoints", []string{"https://api.mainnet-beta.solana.com"})
	viper.SetDefault("chains.solana.batch_delay_ms", 300)
	viper.SetDefault("chains.starknet.endpoints", []string{"https://starknet-mainnet.public.blastapi.io/rpc/v0_7"})
	viper.SetDefault("chains.stellar.endpoints", []string{"https://horizon.stellar.org"})
	viper.SetDefault("chains.polkadot.endpoints", []string{"wss://rpc.polkadot.io"})
	viper.SetDefault("chains.polkadot.ss58_prefix", 0)

	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.sweep_cron", "@every 5m")
}
