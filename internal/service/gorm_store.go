package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
	"github.com/pumbaabetiverse/sendswin-core/pkg/errno"
)

// GormStore 用一张 *gorm.DB 实现全部窄接口
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ---------------------------------------------------------------
// DepositStore
// ---------------------------------------------------------------

func (s *GormStore) ByOrderID(ctx context.Context, orderID string) (*model.Deposit, error) {
	var dep model.Deposit
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&dep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dep, nil
}

func (s *GormStore) Create(ctx context.Context, dep *model.Deposit) error {
	dep.Amount = model.Money(dep.Amount)
	dep.Payout = model.Money(dep.Payout)
	err := s.db.WithContext(ctx).Create(dep).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// 第二个写入者撞唯一索引: 按 "已结算" 处理
		return fmt.Errorf("order %s: %w", dep.OrderID, errno.ErrDuplicateOrder)
	}
	return err
}

func (s *GormStore) Finalize(ctx context.Context, orderID string, result model.Result, payout decimal.Decimal, meta string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&model.Deposit{}).
		Where("order_id = ? AND finalized_at IS NULL", orderID).
		Updates(map[string]interface{}{
			"result":       result,
			"payout":       model.Money(payout),
			"meta":         meta,
			"finalized_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// 已被定稿过，结果只允许定一次
		return fmt.Errorf("order %s already finalized: %w", orderID, errno.ErrDuplicateOrder)
	}
	return nil
}

// ---------------------------------------------------------------
// UserStore
// ---------------------------------------------------------------

func (s *GormStore) ByPayHandle(ctx context.Context, handle string) (*model.User, error) {
	if handle == "" {
		return nil, nil
	}
	var u model.User
	err := s.db.WithContext(ctx).Where("pay_handle = ?", handle).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) ByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ---------------------------------------------------------------
// WithdrawalStore
// ---------------------------------------------------------------

func (s *GormStore) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	w.Amount = model.Money(w.Amount)
	err := s.db.WithContext(ctx).Create(w).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("source %s: %w", w.SourceID, errno.ErrDuplicateSource)
	}
	return err
}

func (s *GormStore) MarkSuccess(ctx context.Context, id uint64, txHash string, fee decimal.Decimal, walletID uint64) error {
	return s.db.WithContext(ctx).Model(&model.Withdrawal{}).
		Where("id = ? AND status = ?", id, model.WithdrawPending).
		Updates(map[string]interface{}{
			"status":    model.WithdrawSuccess,
			"tx_hash":   txHash,
			"fee":       model.Money(fee),
			"wallet_id": walletID,
		}).Error
}

func (s *GormStore) MarkFail(ctx context.Context, id uint64, cause string) error {
	return s.db.WithContext(ctx).Model(&model.Withdrawal{}).
		Where("id = ? AND status = ?", id, model.WithdrawPending).
		Updates(map[string]interface{}{
			"status":     model.WithdrawFail,
			"fail_cause": cause,
		}).Error
}

// ---------------------------------------------------------------
// WalletStore
// ---------------------------------------------------------------

func (s *GormStore) ListByLastUsed(ctx context.Context) ([]model.PayoutWallet, error) {
	var wallets []model.PayoutWallet
	err := s.db.WithContext(ctx).Order("last_used_at ASC").Find(&wallets).Error
	return wallets, err
}

func (s *GormStore) Touch(ctx context.Context, id uint64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.PayoutWallet{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

func (s *GormStore) SetBalance(ctx context.Context, id uint64, balance decimal.Decimal) error {
	return s.db.WithContext(ctx).Model(&model.PayoutWallet{}).
		Where("id = ?", id).
		Update("balance", model.Money(balance)).Error
}

// ---------------------------------------------------------------
// ReferralStore (原子自增 upsert，并发同用户不丢更新)
// ---------------------------------------------------------------

func (s *GormStore) AddContribution(ctx context.Context, userID uint64, periodID int, amount decimal.Decimal) error {
	row := model.ReferralLedger{
		UserID:             userID,
		PeriodID:           periodID,
		ContributeToParent: model.Money(amount),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "period_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"contribute_to_parent": gorm.Expr("referral_ledgers.contribute_to_parent + ?", model.Money(amount)),
			"updated_at":           time.Now(),
		}),
	}).Create(&row).Error
}

func (s *GormStore) AddEarning(ctx context.Context, userID uint64, periodID int, amount decimal.Decimal) error {
	row := model.ReferralLedger{
		UserID:        userID,
		PeriodID:      periodID,
		EarnFromChild: model.Money(amount),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "period_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"earn_from_child": gorm.Expr("referral_ledgers.earn_from_child + ?", model.Money(amount)),
			"updated_at":      time.Now(),
		}),
	}).Create(&row).Error
}
