package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pumbaabetiverse/sendswin-core/internal/event"
	"github.com/pumbaabetiverse/sendswin-core/internal/gateway"
	"github.com/pumbaabetiverse/sendswin-core/internal/outcome"
	"github.com/pumbaabetiverse/sendswin-core/internal/service"
	"github.com/pumbaabetiverse/sendswin-core/internal/service/mq"
	"github.com/pumbaabetiverse/sendswin-core/internal/settings"
	"github.com/pumbaabetiverse/sendswin-core/internal/worker"
	"github.com/pumbaabetiverse/sendswin-core/pkg/config"
	"github.com/pumbaabetiverse/sendswin-core/pkg/database"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
	"github.com/pumbaabetiverse/sendswin-core/pkg/monitor"
	"github.com/pumbaabetiverse/sendswin-core/pkg/utils/lock"
)

func main() {
	// 0. 初始化 Config
	config.Init()

	// 1. 初始化 Logger
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	// 2. 初始化 Metrics
	monitor.Init()
	go func() {
		if err := monitor.Serve(":" + config.Global.App.MetricsPort); err != nil {
			logger.Error("Metrics 服务退出", zap.Error(err))
		}
	}()

	// 3. 连接数据库
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
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

	// 4. 连接 Redis
	rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}
	distLock := lock.NewRedisLock(rdb)

	// 5. 支付网关客户端
	api := gateway.NewClient(
		config.Global.Gateway.BaseURL,
		time.Duration(config.Global.Gateway.TimeoutSeconds)*time.Second,
		config.Global.Gateway.RecvWindow,
	)

	// 6. 存储层 + 动态配置
	store := service.NewGormStore(db)
	settingStore := settings.NewStore(db)

	// 7. 赔率引擎 (赔率/开关从 settings 热读，jackpot 从表读)
	engine := outcome.NewEngine(settingStore, outcome.NewDBJackpotSource(db))

	// 8. 消息队列 + 事件总线
	producer := mq.NewKafkaProducer(config.Global.Kafka.Brokers)
	defer producer.Close()
	bus := event.NewBus(producer)

	// 9. 任务队列客户端
	queue := worker.NewClient(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	defer queue.Close()

	// 10. 业务服务
	currency := config.Global.Core.Currency
	accountService := service.NewAccountService(db, api, distLock, currency)
	walletPool := service.NewWalletPool(store, api, currency, config.Global.Core.Network)
	proxyMonitor := service.NewProxyMonitor(accountService, api, bus)
	ingestService := service.NewIngestService(accountService, api, store, queue, distLock, currency)
	referralService := service.NewReferralService(store, store)
	settleService := service.NewSettleService(store, store, engine, queue, bus, referralService)
	withdrawService := service.NewWithdrawService(store, store, walletPool, bus)

	// 11. Worker Server (结算 + 出金消费者)
	workerServer := worker.NewServer(
		config.Global.Redis.Addr,
		config.Global.Redis.Password,
		config.Global.Redis.DB,
		config.Global.App.Concurrency,
		settleService.HandleTask,
		withdrawService.HandleTask,
	)
	workerServer.Start()
	defer workerServer.Stop()

	// 12. 定时任务 + 逐账户错峰 tick
	cronService := service.NewCronService(distLock, ingestService, accountService, walletPool, proxyMonitor)
	cronService.Start()
	defer cronService.Stop()

	tickCtx, cancelTicks := context.WithCancel(context.Background())
	go ingestService.StartFineTicks(tickCtx)

	logger.Info("Settler Server started",
		zap.String("currency", currency),
		zap.String("network", config.Global.Core.Network))

	// 13. 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// 14. 退出后资源清理
	logger.Info("收到退出信号，正在关闭...")
	cancelTicks()
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	rdb.Close()
	logger.Info("系统已退出")
}
