package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/pumbaabetiverse/sendswin-core/internal/gateway"
	"github.com/pumbaabetiverse/sendswin-core/internal/model"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
	"github.com/pumbaabetiverse/sendswin-core/pkg/monitor"
	"github.com/pumbaabetiverse/sendswin-core/pkg/utils/lock"
)

// AccountService 归集账号池。
// 状态和余额的唯一写入方是这里和代理健康监控 (降级走 SetStatus)。
type AccountService struct {
	db       *gorm.DB
	api      gateway.API
	distLock lock.DistributedLock
	currency string
}

func NewAccountService(db *gorm.DB, api gateway.API, distLock lock.DistributedLock, currency string) *AccountService {
	return &AccountService{
		db:       db,
		api:      api,
		distLock: distLock,
		currency: currency,
	}
}

// ListActive 列出活跃账号，variant 为 nil 时不过滤玩法
func (s *AccountService) ListActive(variant *model.Variant) ([]model.CollectionAccount, error) {
	q := s.db.Where("status = ?", model.AccountActive)
	if variant != nil {
		q = q.Where("variant = ?", *variant)
	}
	var accounts []model.CollectionAccount
	err := q.Order("id ASC").Find(&accounts).Error
	return accounts, err
}

// PickRandomActive 在指定玩法的活跃账号里均匀随机取一个，没有则返回 nil。
// 均匀是为了归集账号曝光的公平性，不需要密码学随机。
func (s *AccountService) PickRandomActive(variant model.Variant) (*model.CollectionAccount, error) {
	accounts, err := s.ListActive(&variant)
	if err != nil {
		return nil, err
	}
	return pickRandom(accounts), nil
}

func pickRandom(accounts []model.CollectionAccount) *model.CollectionAccount {
	if len(accounts) == 0 {
		return nil
	}
	return &accounts[rand.Intn(len(accounts))]
}

// SetStatus 账号状态流转 (ACTIVE <-> INACTIVE)，核心永不硬删账号
func (s *AccountService) SetStatus(id uint64, status string) error {
	return s.db.Model(&model.CollectionAccount{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// SyncBalance 从网关拉取余额并回写缓存。
// 返回值 <= 0 时不落库: 瞬时 API 故障绝不能把已知的好余额清零。
func (s *AccountService) SyncBalance(ctx context.Context, acc *model.CollectionAccount) error {
	bal, err := s.api.Balance(ctx, gateway.CredentialsOf(acc), s.currency)
	if err != nil {
		return err
	}
	if bal.LessThanOrEqual(decimal.Zero) {
		logger.Debug("余额读到零值，保留旧缓存", zap.Uint64("account_id", acc.ID))
		return nil
	}
	return s.db.Model(&model.CollectionAccount{}).
		Where("id = ?", acc.ID).
		Update("balance", model.Money(bal)).Error
}

// SyncAllBalances 并行同步全部活跃账号，单账号失败只记日志，不拖垮批次
func (s *AccountService) SyncAllBalances(ctx context.Context) {
	accounts, err := s.ListActive(nil)
	if err != nil {
		logger.Error("余额同步: 列账号失败", zap.Error(err))
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range accounts {
		acc := accounts[i]
		g.Go(func() error {
			if err := s.SyncBalance(ctx, &acc); err != nil {
				monitor.Business.BalanceSyncFailures.Inc()
				logger.Error("余额同步失败",
					zap.Uint64("account_id", acc.ID),
					zap.String("label", acc.Label),
					zap.Error(err))
			}
			return nil // 错误已隔离
		})
	}
	_ = g.Wait()
}

// RotateVariant 轮换某玩法的收款账号: 锁内随机挑下一个活跃账号，
// 并同步换出账号的余额，池内资金对出金侧保持可见。
// 轮换策略本身待产品确认，这里保的是锁纪律和余额对账。
func (s *AccountService) RotateVariant(ctx context.Context, variant model.Variant) error {
	key := fmt.Sprintf("rotate:%s", variant)
	locked, err := s.distLock.Acquire(ctx, key, 30*time.Second)
	if err != nil {
		return err
	}
	if !locked {
		logger.Debug("轮换锁被占用，跳过", zap.String("variant", string(variant)))
		return nil
	}
	defer func() { _ = s.distLock.Release(ctx, key) }()

	current, err := s.PickRandomActive(variant)
	if err != nil {
		return err
	}
	if current == nil {
		logger.Warn("该玩法没有活跃账号可轮换", zap.String("variant", string(variant)))
		return nil
	}

	if err := s.SyncBalance(ctx, current); err != nil {
		logger.Error("轮换时余额同步失败", zap.Uint64("account_id", current.ID), zap.Error(err))
	}
	return nil
}
