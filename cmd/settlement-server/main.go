package main

import (
	"context"
	"fmt"
	"time"

	"settlement-core/internal/model"
	"settlement-core/internal/server"
	"settlement-core/internal/service"
	"settlement-core/internal/service/mq"
	"settlement-core/internal/service/observer"
	"settlement-core/internal/worker"

	"settlement-core/pkg/cache"
	"settlement-core/pkg/config"
	"settlement-core/pkg/database"
	"settlement-core/pkg/keyvault"
	"settlement-core/pkg/logger"
	"settlement-core/pkg/validator"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	_ "settlement-core/docs/swagger"
)

// @title Settlement Core API
// @version 1.0
// @description Multi-chain settlement and fee collection API

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// 0. 初始化 Config
	config.Init()

	// 1. 初始化 Logger
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	validator.Init()

	// 2. 连接数据库
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Shanghai",
		config.Global.DB.Host,
		config.Global.DB.User,
		config.Global.DB.Password,
		config.Global.DB.Name,
		config.Global.DB.Port,
	)
	db, err := database.ConnectPostgres(dsn)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3. 连接 Redis
	rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}

	// 4. 数据库迁移 (开发环境用 AutoMigrate, 生产用 migrate 工具)
	if config.Global.App.Env == "development" {
		logger.Info("开发环境: 尝试自动迁移 Schema (GORM AutoMigrate)...")
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			logger.Fatal("数据库自动迁移失败", zap.Error(err))
		}
	} else {
		logger.Info("生产环境: 跳过 AutoMigrate，请使用 migrate 工具管理 Schema")
	}

	// 5. 签名材料保险库
	vault, err := keyvault.NewAESVault(config.Global.Vault.Secret)
	if err != nil {
		logger.Fatal("KeyVault 初始化失败", zap.Error(err))
	}

	// 6. 基础服务
	service.InitKeyWalletService(vault)
	service.InitPriceService()
	service.InitSplitCache(cache.NewMultiLevelCache(
		cache.NewMemoryCache(5*time.Minute, 10*time.Minute),
		cache.NewRedisCache(rdb),
	))

	// 7. 链执行器注册表
	registry, err := server.BuildRegistry()
	if err != nil {
		logger.Fatal("执行器注册表初始化失败", zap.Error(err))
	}
	logger.Info("链执行器已注册", zap.Any("chains", registry.Chains()))

	// 8. 异步手续费归集 (asynq)
	workerClient := worker.NewClient(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	service.InitSettlementService(registry, workerClient)

	workerServer := worker.NewServer(
		config.Global.Redis.Addr,
		config.Global.Redis.Password,
		config.Global.Redis.DB,
		config.Global.Worker.Concurrency,
		registry,
	)
	workerServer.Start()

	// 9. 消息队列
	mqType := config.Global.Redis.MQType
	var producer mq.Producer
	var newConsumer func() mq.Consumer

	if mqType == "kafka" {
		logger.Info("使用 Kafka 作为消息队列...")
		brokers := config.Global.Kafka.Brokers
		producer = mq.NewKafkaProducer(brokers)
		newConsumer = func() mq.Consumer {
			return mq.NewKafkaConsumer(brokers, "settlement_notifier_group")
		}
	} else {
		logger.Info("使用 Redis Streams 作为消息队列...")
		producer = mq.NewRedisProducer(rdb)
		newConsumer = func() mq.Consumer {
			return mq.NewRedisConsumer(rdb, "settlement_notifier", "notifier-0")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	// 10. Outbox 中继
	relay := service.NewRelayService(db, producer)
	go relay.Start(ctx)

	// 11. 事件消费 (通知扇出)
	notifier := service.NewNotifierService(newConsumer)
	notifier.Start(ctx)

	// 12. 充值扫描 (以太坊)
	ethCfg := config.Global.Chains.Ethereum
	if ethCfg.StartHeight > 0 {
		ethClient, err := ethclient.Dial(ethCfg.Endpoints[0])
		if err != nil {
			logger.Error("Observer 节点连接失败", zap.Error(err))
		} else {
			obs := observer.NewEthObserver(db, ethClient, producer, ethCfg.StartHeight, ethCfg.ObserverCount)
			obs.Start(ctx)
		}
	}

	// 13. 手续费补扫 (cron + redis 锁)
	sweeper := service.NewSweeperService(rdb, registry)
	sweeper.Start()

	// 14. HTTP 服务
	r := server.NewHTTPRouter()
	app := server.New(server.Config{HttpPort: config.Global.App.HttpPort}, r)

	app.OnShutdown(cancel)
	app.OnShutdown(sweeper.Stop)
	app.OnShutdown(workerServer.Stop)
	app.OnShutdown(func() { _ = workerClient.Close() })
	app.OnShutdown(func() { _ = producer.Close() })

	// 运行 (阻塞)
	app.Run()

	// 15. 退出后资源清理
	logger.Info("正在关闭数据库连接...")
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	rdb.Close()
	logger.Info("系统已退出")
}
