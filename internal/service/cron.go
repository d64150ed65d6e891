package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
	"github.com/pumbaabetiverse/sendswin-core/pkg/utils/lock"
)

// CronService 粗粒度周期任务入口。细粒度的逐账户 tick 由
// IngestService.StartFineTicks 自己的 1s loop 负责，不注册进 cron。
type CronService struct {
	cron     *cron.Cron
	distLock lock.DistributedLock

	ingest   *IngestService
	accounts *AccountService
	wallets  *WalletPool
	proxies  *ProxyMonitor
}

func NewCronService(distLock lock.DistributedLock, ingest *IngestService,
	accounts *AccountService, wallets *WalletPool, proxies *ProxyMonitor) *CronService {
	return &CronService{
		// 巡检一轮可能超过调度间隔 (单账号探测要重试)，上一轮没跑完就跳过本轮
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(logger.NewCronLogger()))),
		distLock: distLock,
		ingest:   ingest,
		accounts: accounts,
		wallets:  wallets,
		proxies:  proxies,
	}
}

func (s *CronService) Start() {
	// 注册任务
	_, _ = s.cron.AddFunc("@every 1m", s.ingestSweep)    // 收款账户拉单兜底扫描
	_, _ = s.cron.AddFunc("@every 5m", s.syncBalances)   // 收款账户 + 出金钱包余额同步
	_, _ = s.cron.AddFunc("@every 10m", s.proxySweep)    // 代理健康巡检
	_, _ = s.cron.AddFunc("@every 1h", s.rotateAccounts) // 各玩法收款账户轮换

	s.cron.Start()
	logger.Info("Cron Service started")
}

func (s *CronService) Stop() {
	s.cron.Stop()
	logger.Info("Cron Service stopped")
}

// withLock 多实例部署下同一任务只跑一份，抢不到锁就跳过本轮
func (s *CronService) withLock(key string, ttl time.Duration, fn func(ctx context.Context)) {
	ctx := context.Background()
	locked, err := s.distLock.Acquire(ctx, key, ttl)
	if err != nil || !locked {
		logger.Debug("cron 任务跳过: 锁被占用", zap.String("key", key))
		return
	}
	defer func() { _ = s.distLock.Release(ctx, key) }()

	fn(ctx)
}

func (s *CronService) ingestSweep() {
	s.withLock("cron:ingest_sweep", 50*time.Second, func(ctx context.Context) {
		s.ingest.PollAndEnqueue(ctx)
	})
}

func (s *CronService) syncBalances() {
	s.withLock("cron:balance_sync", 4*time.Minute, func(ctx context.Context) {
		s.accounts.SyncAllBalances(ctx)
		s.wallets.RefreshBalances(ctx)
	})
}

func (s *CronService) proxySweep() {
	// 不加分布式锁: 失败计数器是进程本地的，跨实例各巡各的。
	// 进程内的重叠由 SkipIfStillRunning 挡住，计数器本身也有互斥保护。
	ctx := context.Background()
	s.proxies.RunSweep(ctx)
}

func (s *CronService) rotateAccounts() {
	// RotateVariant 内部自带 rotate:<variant> 锁
	ctx := context.Background()
	for _, v := range model.AllVariants() {
		if err := s.accounts.RotateVariant(ctx, v); err != nil {
			logger.Error("账户轮换失败", zap.String("variant", string(v)), zap.Error(err))
		}
	}
}
