package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pumbaabetiverse/sendswin-core/internal/event"
	"github.com/pumbaabetiverse/sendswin-core/internal/model"
	"github.com/pumbaabetiverse/sendswin-core/internal/worker/tasks"
	"github.com/pumbaabetiverse/sendswin-core/pkg/errno"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
	"github.com/pumbaabetiverse/sendswin-core/pkg/monitor"
)

// transferPool 出金钱包池视图
type transferPool interface {
	SelectAndTransfer(ctx context.Context, dest string, amount decimal.Decimal) (TransferResult, error)
}

// payoutEvents 出金侧事件出口
type payoutEvents interface {
	Payout(e event.PayoutEvent)
}

// WithdrawService 出金 worker。
// 状态机: PENDING (划转前落库) → SUCCESS (回执到手) | FAIL (划转失败/无钱包可用)。
// PENDING 必须先于划转持久化: 进程在划转中途挂掉，留下的是一条可追查的
// PENDING 记录，而不是无声丢单。
type WithdrawService struct {
	withdrawals WithdrawalStore
	users       UserStore
	pool        transferPool
	events      payoutEvents
}

func NewWithdrawService(withdrawals WithdrawalStore, users UserStore,
	pool transferPool, events payoutEvents) *WithdrawService {
	return &WithdrawService{
		withdrawals: withdrawals,
		users:       users,
		pool:        pool,
		events:      events,
	}
}

// HandleTask asynq 任务入口
func (s *WithdrawService) HandleTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.WithdrawPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("withdraw payload unmarshal: %v: %w", err, asynq.SkipRetry)
	}

	amount, err := decimal.NewFromString(p.Payout)
	if err != nil {
		return fmt.Errorf("withdraw payload amount %q: %v: %w", p.Payout, err, asynq.SkipRetry)
	}

	return s.withdraw(ctx, &p, amount)
}

func (s *WithdrawService) withdraw(ctx context.Context, p *tasks.WithdrawPayload, amount decimal.Decimal) error {
	// 目标用户必须有收款地址，且得是合法地址
	user, err := s.users.ByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if user == nil || user.WithdrawAddress == "" {
		logger.Warn("出金拒绝: 用户无收款地址",
			zap.Uint64("user_id", p.UserID),
			zap.String("source_id", p.SourceID))
		return nil
	}
	if !common.IsHexAddress(user.WithdrawAddress) {
		logger.Warn("出金拒绝: 收款地址非法",
			zap.Uint64("user_id", p.UserID),
			zap.String("address", user.WithdrawAddress))
		return nil
	}

	// PENDING 先落库。source_id 唯一索引在这里拦第二次提交:
	// 同一个赢单/返佣事件永远只有一条提现记录。
	record := &model.Withdrawal{
		SourceID:  p.SourceID,
		UserID:    p.UserID,
		ToAddress: user.WithdrawAddress,
		Amount:    amount,
		Status:    model.WithdrawPending,
	}
	if err := s.withdrawals.CreateWithdrawal(ctx, record); err != nil {
		if errors.Is(err, errno.ErrDuplicateSource) {
			monitor.Business.DuplicateDiscardedTotal.WithLabelValues("withdraw").Inc()
			logger.Debug("重复出金提交，丢弃", zap.String("source_id", p.SourceID))
			return nil
		}
		return err
	}

	result, err := s.pool.SelectAndTransfer(ctx, user.WithdrawAddress, amount)
	if err != nil {
		// 终态 FAIL。用户侧保持沉默 (不承诺没到账的钱)，系统性问题走运维告警。
		monitor.Business.WithdrawalTotal.WithLabelValues(model.WithdrawFail).Inc()
		logger.Error("出金失败",
			zap.String("source_id", p.SourceID),
			zap.Uint64("user_id", p.UserID),
			zap.String("amount", amount.String()),
			zap.Error(err))
		if markErr := s.withdrawals.MarkFail(ctx, record.ID, err.Error()); markErr != nil {
			logger.Error("出金失败状态落库失败", zap.Uint64("withdrawal_id", record.ID), zap.Error(markErr))
		}
		return nil
	}

	if err := s.withdrawals.MarkSuccess(ctx, record.ID, result.TxHash, result.Fee, result.WalletID); err != nil {
		// 钱已出，状态没写上: 只能记日志人工修，绝不能重试再付一次
		logger.Error("出金成功但状态落库失败",
			zap.Uint64("withdrawal_id", record.ID),
			zap.String("tx_hash", result.TxHash),
			zap.Error(err))
		return nil
	}

	monitor.Business.WithdrawalTotal.WithLabelValues(model.WithdrawSuccess).Inc()
	logger.Info("出金成功",
		zap.String("source_id", p.SourceID),
		zap.Uint64("user_id", p.UserID),
		zap.String("amount", amount.String()),
		zap.String("tx_hash", result.TxHash))

	if user.ChatID != 0 {
		s.events.Payout(event.PayoutEvent{
			SourceID: p.SourceID,
			UserID:   user.ID,
			ChatID:   user.ChatID,
			Amount:   amount.String(),
			TxHash:   result.TxHash,
			Time:     time.Now(),
		})
	}
	return nil
}
