package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pumbaabetiverse/sendswin-core/internal/gateway"
	"github.com/pumbaabetiverse/sendswin-core/internal/model"
	"github.com/pumbaabetiverse/sendswin-core/internal/worker/tasks"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
	"github.com/pumbaabetiverse/sendswin-core/pkg/monitor"
	"github.com/pumbaabetiverse/sendswin-core/pkg/utils/lock"
)

// enqueuer 队列入口最小视图 (worker.Client 或测试假实现)
type enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// depositChecker 入金单号存在性预检 (advisory，正确性靠结算侧唯一索引)
type depositChecker interface {
	ByOrderID(ctx context.Context, orderID string) (*model.Deposit, error)
}

// IngestService 入金拉取与去重。
// 粗粒度: 每分钟整池扫一遍; 细粒度: 每个活跃账号在 60 秒窗口内
// 摊一个自己的错峰 tick，tick 之间用分布式锁互斥，抢不到锁直接跳过。
type IngestService struct {
	accounts accountPool
	api      gateway.API
	deposits depositChecker
	queue    enqueuer
	distLock lock.DistributedLock

	currency   string
	fetchLimit int
}

func NewIngestService(accounts accountPool, api gateway.API, deposits depositChecker,
	queue enqueuer, distLock lock.DistributedLock, currency string) *IngestService {
	return &IngestService{
		accounts:   accounts,
		api:        api,
		deposits:   deposits,
		queue:      queue,
		distLock:   distLock,
		currency:   currency,
		fetchLimit: 20,
	}
}

// PollAndEnqueue 整池扫描: 账号并行，单账号失败只记日志不挡兄弟账号
func (s *IngestService) PollAndEnqueue(ctx context.Context) {
	timer := prometheus.NewTimer(monitor.Business.IngestSweepDuration)
	defer timer.ObserveDuration()

	accounts, err := s.accounts.ListActive(nil)
	if err != nil {
		logger.Error("入金扫描: 列账号失败", zap.Error(err))
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range accounts {
		acc := accounts[i]
		g.Go(func() error {
			if err := s.pollAccount(ctx, &acc); err != nil {
				logger.Error("入金扫描: 账号拉取失败",
					zap.Uint64("account_id", acc.ID),
					zap.String("label", acc.Label),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// pollAccount 拉一个账号的近期交易，合格且未见过的入队结算
func (s *IngestService) pollAccount(ctx context.Context, acc *model.CollectionAccount) error {
	txs, err := s.api.RecentTransactions(ctx, gateway.CredentialsOf(acc), s.fetchLimit)
	if err != nil {
		return err
	}

	for _, tx := range txs {
		if !s.eligible(tx) {
			continue
		}

		// 预检: 已结算过的不再入队。并发窗口内漏网的重复，
		// 由结算侧 order_id 唯一索引最终拦截。
		existing, err := s.deposits.ByOrderID(ctx, tx.OrderID)
		if err != nil {
			logger.Error("入金预检查询失败", zap.String("order_id", tx.OrderID), zap.Error(err))
			continue
		}
		if existing != nil {
			monitor.Business.DuplicateDiscardedTotal.WithLabelValues("ingest").Inc()
			continue
		}

		task, err := tasks.NewSettleTask(tasks.SettlePayload{
			AccountID: acc.ID,
			Variant:   acc.Variant,
			Tx:        tx,
		})
		if err != nil {
			logger.Error("构造结算任务失败", zap.String("order_id", tx.OrderID), zap.Error(err))
			continue
		}

		if _, err := s.queue.Enqueue(task); err != nil {
			if errors.Is(err, asynq.ErrDuplicateTask) {
				monitor.Business.DuplicateDiscardedTotal.WithLabelValues("ingest").Inc()
				continue
			}
			logger.Error("结算任务入队失败", zap.String("order_id", tx.OrderID), zap.Error(err))
			continue
		}

		logger.Info("新入金入队",
			zap.String("order_id", tx.OrderID),
			zap.String("amount", tx.Amount.String()),
			zap.String("variant", string(acc.Variant)))
	}
	return nil
}

// eligible 结算资格: 点对点转账 + 结算币种 + 金额非负
func (s *IngestService) eligible(tx gateway.Transaction) bool {
	if tx.Type != gateway.TxTypeTransfer {
		return false
	}
	if tx.Currency != s.currency {
		return false
	}
	if tx.Amount.IsNegative() {
		return false
	}
	return true
}

// StartFineTicks 启动细粒度调度循环 (阻塞，调用方 go 起来)。
// 不给每个账号注册独立 schedule——每秒扫一次当前活跃集合，
// 就地算应不应该 tick: offset(i, N) = i*60/N，账号增删自动跟上。
func (s *IngestService) StartFineTicks(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			accounts, err := s.accounts.ListActive(nil)
			if err != nil {
				logger.Error("细粒度调度: 列账号失败", zap.Error(err))
				continue
			}
			sec := now.Second()
			for i := range accounts {
				if !tickDue(i, len(accounts), sec) {
					continue
				}
				acc := accounts[i]
				go s.tickAccount(ctx, &acc)
			}
		}
	}
}

// tickDue 第 i 个账号 (共 n 个) 在每分钟的 i*60/n 秒触发，错峰打散网关压力
func tickDue(i, n, sec int) bool {
	if n <= 0 {
		return false
	}
	return sec == i*60/n
}

// tickAccount 单账号 tick，按账号粒度加锁: 上一轮还没跑完就直接跳过，不排队
func (s *IngestService) tickAccount(ctx context.Context, acc *model.CollectionAccount) {
	key := fmt.Sprintf("ingest:account:%d", acc.ID)
	// TTL 必须盖过预期执行时长，进程崩溃靠过期自愈
	locked, err := s.distLock.Acquire(ctx, key, 30*time.Second)
	if err != nil {
		logger.Error("账号 tick 获取锁失败", zap.Uint64("account_id", acc.ID), zap.Error(err))
		return
	}
	if !locked {
		logger.Debug("账号 tick 跳过 (上一轮未结束)", zap.Uint64("account_id", acc.ID))
		return
	}
	defer func() { _ = s.distLock.Release(ctx, key) }()

	if err := s.pollAccount(ctx, acc); err != nil {
		logger.Error("账号 tick 拉取失败", zap.Uint64("account_id", acc.ID), zap.Error(err))
	}
}
