package main

import (
	"fmt"

	"settlement-core/internal/server"
	"settlement-core/internal/service"
	"settlement-core/internal/worker"

	"settlement-core/pkg/config"
	"settlement-core/pkg/database"
	"settlement-core/pkg/keyvault"
	"settlement-core/pkg/logger"

	"go.uber.org/zap"
)

// 手续费归集 Worker, 可独立于 API 服务部署。
// 它会解出签名材料, 是整套系统里最敏感的进程。
func main() {
	// 1. 初始化配置与日志
	config.Init()
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	logger.Info("启动手续费归集服务 (Collector Worker)...", zap.String("env", config.Global.App.Env))

	// 2. 数据库 (读写手续费 pending 行)
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Shanghai",
		config.Global.DB.Host,
		config.Global.DB.User,
		config.Global.DB.Password,
		config.Global.DB.Name,
		config.Global.DB.Port,
	)
	if _, err := database.ConnectPostgres(dsn); err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3. Redis (asynq 队列 + 补扫分布式锁)
	rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}

	// 4. 签名材料保险库
	vault, err := keyvault.NewAESVault(config.Global.Vault.Secret)
	if err != nil {
		logger.Fatal("KeyVault 初始化失败", zap.Error(err))
	}
	service.InitKeyWalletService(vault)
	service.InitPriceService()

	// 5. 链执行器
	registry, err := server.BuildRegistry()
	if err != nil {
		logger.Fatal("执行器注册表初始化失败", zap.Error(err))
	}

	// 6. 补扫定时任务 (与队列共用 CollectFee 逻辑)
	sweeper := service.NewSweeperService(rdb, registry)
	sweeper.Start()
	defer sweeper.Stop()

	// 7. 队列消费 (阻塞, asynq 自带信号处理)
	srv := worker.NewServer(
		config.Global.Redis.Addr,
		config.Global.Redis.Password,
		config.Global.Redis.DB,
		config.Global.Worker.Concurrency,
		registry,
	)
	if err := srv.Run(); err != nil {
		logger.Fatal("Worker 退出", zap.Error(err))
	}
}
