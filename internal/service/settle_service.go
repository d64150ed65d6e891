package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pumbaabetiverse/sendswin-core/internal/event"
	"github.com/pumbaabetiverse/sendswin-core/internal/model"
	"github.com/pumbaabetiverse/sendswin-core/internal/outcome"
	"github.com/pumbaabetiverse/sendswin-core/internal/worker/tasks"
	"github.com/pumbaabetiverse/sendswin-core/pkg/errno"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
	"github.com/pumbaabetiverse/sendswin-core/pkg/monitor"
)

// evaluator 结算引擎视图
type evaluator interface {
	Evaluate(amount decimal.Decimal, id string, variant model.Variant) (outcome.Outcome, error)
}

// referralAccruer 返佣累加器视图
type referralAccruer interface {
	Accrue(ctx context.Context, childUserID, parentUserID uint64, amount decimal.Decimal, ts time.Time) error
}

// settleEvents 结算侧需要的事件出口
type settleEvents interface {
	Settlement(e event.SettlementEvent)
	Referral(e event.ReferralEvent)
}

// SettleService 结算 worker。
// 每个任务的状态机: 收到 → 查重 → [重复: 丢弃] | [新单: 占坑(pending) → 评估 → 定稿 → 副作用]。
// 队列是 at-least-once 投递，查重在每次尝试都必须做，不止第一次。
type SettleService struct {
	deposits DepositStore
	users    UserStore
	engine   evaluator
	queue    enqueuer
	events   settleEvents
	referral referralAccruer
}

func NewSettleService(deposits DepositStore, users UserStore, engine evaluator,
	queue enqueuer, events settleEvents, referral referralAccruer) *SettleService {
	return &SettleService{
		deposits: deposits,
		users:    users,
		engine:   engine,
		queue:    queue,
		events:   events,
		referral: referral,
	}
}

// HandleTask asynq 任务入口
func (s *SettleService) HandleTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.SettlePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// 格式坏了重试也没救，直接归档
		return fmt.Errorf("settle payload unmarshal: %v: %w", err, asynq.SkipRetry)
	}
	return s.settle(ctx, &p)
}

func (s *SettleService) settle(ctx context.Context, p *tasks.SettlePayload) error {
	orderID := p.Tx.OrderID

	// 1. 查重。已定稿 → 幂等丢弃; 未定稿 (上次尝试在占坑后挂了) → 续跑定稿。
	existing, err := s.deposits.ByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.FinalizedAt != nil {
			monitor.Business.DuplicateDiscardedTotal.WithLabelValues("settle").Inc()
			logger.Debug("重复投递，已结算过", zap.String("order_id", orderID))
			return nil
		}
		return s.resume(ctx, existing)
	}

	// 2. 付款人身份不可解析 → 直接 VOID 落库，无后续副作用
	if p.Tx.PayerHandle == "" {
		return s.persistVoid(ctx, p, nil, "no_payer")
	}

	// 3. 匹配用户; 匹配不到或没登记提现地址 → VOID
	user, err := s.users.ByPayHandle(ctx, p.Tx.PayerHandle)
	if err != nil {
		return err
	}
	if user == nil {
		return s.persistVoid(ctx, p, nil, "unknown_user")
	}
	if user.WithdrawAddress == "" {
		return s.persistVoid(ctx, p, &user.ID, "no_withdraw_address")
	}

	// 4. 占坑: pending 行抢 order_id 唯一索引，撞了就是别人先到
	dep := &model.Deposit{
		OrderID:     orderID,
		AccountID:   p.AccountID,
		UserID:      &user.ID,
		PayerHandle: p.Tx.PayerHandle,
		TxID:        p.Tx.TxID,
		Amount:      p.Tx.Amount,
		Currency:    p.Tx.Currency,
		Variant:     p.Variant,
		Result:      model.ResultVoid,
	}
	if err := s.deposits.Create(ctx, dep); err != nil {
		if errno.IsConflict(err) {
			monitor.Business.DuplicateDiscardedTotal.WithLabelValues("settle").Inc()
			logger.Debug("并发写入撞唯一索引，按已结算处理", zap.String("order_id", orderID))
			return nil
		}
		return err
	}

	return s.finalize(ctx, dep, user)
}

// resume 续跑一条占了坑但没定稿的记录 (上次尝试中途失败)
func (s *SettleService) resume(ctx context.Context, dep *model.Deposit) error {
	if dep.UserID == nil {
		// 占坑时就没有用户，定成 VOID 收尾
		return s.finalizeVoid(ctx, dep.OrderID, "no_user")
	}
	user, err := s.users.ByID(ctx, *dep.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return s.finalizeVoid(ctx, dep.OrderID, "unknown_user")
	}
	return s.finalize(ctx, dep, user)
}

// finalize 评估并定稿，然后触发副作用。评估是纯函数，重试结果一致。
func (s *SettleService) finalize(ctx context.Context, dep *model.Deposit, user *model.User) error {
	out, err := s.engine.Evaluate(dep.Amount, dep.TxID, dep.Variant)
	if err != nil {
		return err
	}

	meta, _ := json.Marshal(out.Meta)
	if err := s.deposits.Finalize(ctx, dep.OrderID, out.Result, out.Payout, string(meta)); err != nil {
		if errno.IsConflict(err) {
			logger.Debug("结果已被定稿", zap.String("order_id", dep.OrderID))
			return nil
		}
		return err
	}

	monitor.Business.SettledTotal.WithLabelValues(string(dep.Variant), string(out.Result)).Inc()
	monitor.Business.SettledAmountTotal.WithLabelValues(string(dep.Variant)).Add(dep.Amount.InexactFloat64())
	if out.Result == model.ResultWin {
		monitor.Business.PayoutAmountTotal.WithLabelValues(string(dep.Variant)).Add(out.Payout.InexactFloat64())
	}

	logger.Info("结算完成",
		zap.String("order_id", dep.OrderID),
		zap.String("variant", string(dep.Variant)),
		zap.String("result", string(out.Result)),
		zap.String("amount", dep.Amount.String()),
		zap.String("payout", out.Payout.String()))

	s.sideEffects(ctx, dep, user, out)
	return nil
}

// sideEffects 返佣、通知、赢单出金。事件都是 best-effort，
// 失败只记日志，绝不让已落库的结算跟着失败。
func (s *SettleService) sideEffects(ctx context.Context, dep *model.Deposit, user *model.User, out outcome.Outcome) {
	now := time.Now()

	// 返佣: 有上级且结果有效 (非 VOID) 才累计
	if user.ReferrerID != nil && out.Result != model.ResultVoid {
		s.events.Referral(event.ReferralEvent{
			ChildUserID:  user.ID,
			ParentUserID: *user.ReferrerID,
			Amount:       dep.Amount.String(),
			Variant:      dep.Variant,
			Result:       out.Result,
			Time:         now,
		})
		if err := s.referral.Accrue(ctx, user.ID, *user.ReferrerID, dep.Amount, now); err != nil {
			logger.Error("返佣累计失败", zap.Uint64("user_id", user.ID), zap.Error(err))
		}
	}

	// 有在线通知通道才发结算通知
	if user.ChatID != 0 {
		s.events.Settlement(event.SettlementEvent{
			OrderID: dep.OrderID,
			UserID:  user.ID,
			ChatID:  user.ChatID,
			Variant: dep.Variant,
			Result:  out.Result,
			Amount:  dep.Amount.String(),
			Payout:  out.Payout.String(),
			Time:    now,
		})
	}

	// 赢单 → 出金任务。source_id 唯一索引保证同一赢单永不双付。
	if out.Result == model.ResultWin {
		task, err := tasks.NewWithdrawTask(tasks.WithdrawPayload{
			UserID:   user.ID,
			Payout:   out.Payout.String(),
			SourceID: model.SourceID(dep.Variant.Group(), dep.OrderID),
		})
		if err != nil {
			logger.Error("构造出金任务失败", zap.String("order_id", dep.OrderID), zap.Error(err))
			return
		}
		if _, err := s.queue.Enqueue(task); err != nil {
			// 结算已落库，出金丢了靠人工对账 WIN 且无 withdrawal 的单子
			logger.Error("出金任务入队失败", zap.String("order_id", dep.OrderID), zap.Error(err))
		}
	}
}

// persistVoid 一步落一条已定稿的 VOID 记录 (身份不可解析等终态)
func (s *SettleService) persistVoid(ctx context.Context, p *tasks.SettlePayload, userID *uint64, reason string) error {
	now := time.Now()
	meta, _ := json.Marshal(map[string]string{"void_reason": reason})
	dep := &model.Deposit{
		OrderID:     p.Tx.OrderID,
		AccountID:   p.AccountID,
		UserID:      userID,
		PayerHandle: p.Tx.PayerHandle,
		TxID:        p.Tx.TxID,
		Amount:      p.Tx.Amount,
		Currency:    p.Tx.Currency,
		Variant:     p.Variant,
		Result:      model.ResultVoid,
		Meta:        string(meta),
		FinalizedAt: &now,
	}
	if err := s.deposits.Create(ctx, dep); err != nil {
		if errno.IsConflict(err) {
			monitor.Business.DuplicateDiscardedTotal.WithLabelValues("settle").Inc()
			return nil
		}
		return err
	}
	monitor.Business.SettledTotal.WithLabelValues(string(p.Variant), string(model.ResultVoid)).Inc()
	logger.Info("结算为 VOID", zap.String("order_id", p.Tx.OrderID), zap.String("reason", reason))
	return nil
}

func (s *SettleService) finalizeVoid(ctx context.Context, orderID, reason string) error {
	meta, _ := json.Marshal(map[string]string{"void_reason": reason})
	err := s.deposits.Finalize(ctx, orderID, model.ResultVoid, decimal.Zero, string(meta))
	if err != nil && errno.IsConflict(err) {
		return nil
	}
	return err
}
