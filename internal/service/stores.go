package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// 服务层只面向这些窄接口编程，gorm 实现见 gorm_store.go。
// 唯一约束冲突由实现翻译成 errno.ErrDuplicateOrder / errno.ErrDuplicateSource:
// check-then-act 只是快路径，真正的正确性保障是存储层的唯一索引。

// DepositStore 结算记录存取
type DepositStore interface {
	// ByOrderID 返回 (nil, nil) 表示不存在
	ByOrderID(ctx context.Context, orderID string) (*model.Deposit, error)

	// Create 插入结算记录，order_id 冲突返回 errno.ErrDuplicateOrder
	Create(ctx context.Context, dep *model.Deposit) error

	// Finalize 定稿结果，只允许一次 (finalized_at IS NULL 守护)
	Finalize(ctx context.Context, orderID string, result model.Result, payout decimal.Decimal, meta string) error
}

// UserStore 用户查询
type UserStore interface {
	// ByPayHandle 返回 (nil, nil) 表示无法匹配
	ByPayHandle(ctx context.Context, handle string) (*model.User, error)
	// ByID 返回 (nil, nil) 表示不存在
	ByID(ctx context.Context, id uint64) (*model.User, error)
}

// WithdrawalStore 提现记录存取
type WithdrawalStore interface {
	// CreateWithdrawal 插入 PENDING 记录，source_id 冲突返回 errno.ErrDuplicateSource
	CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error
	MarkSuccess(ctx context.Context, id uint64, txHash string, fee decimal.Decimal, walletID uint64) error
	MarkFail(ctx context.Context, id uint64, cause string) error
}

// WalletStore 出金钱包池存取
type WalletStore interface {
	// ListByLastUsed 按 last_used_at 升序 (最久未用优先)
	ListByLastUsed(ctx context.Context) ([]model.PayoutWallet, error)

	// Touch 更新 last_used_at。在余额判定之前调用: 余额不足的钱包也要
	// 沉底，避免低余额钱包钉死在队头被反复扫到。
	Touch(ctx context.Context, id uint64, at time.Time) error

	// SetBalance 更新缓存余额
	SetBalance(ctx context.Context, id uint64, balance decimal.Decimal) error
}

// ReferralStore 返佣账本，实现方必须用原子自增，避免并发丢更新
type ReferralStore interface {
	AddContribution(ctx context.Context, userID uint64, periodID int, amount decimal.Decimal) error
	AddEarning(ctx context.Context, userID uint64, periodID int, amount decimal.Decimal) error
}
