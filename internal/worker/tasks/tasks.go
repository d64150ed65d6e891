package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pumbaabetiverse/sendswin-core/internal/gateway"
	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// 任务类型常量
const (
	TypeSettlePayment  = "settle:payment"
	TypeWithdrawPayout = "withdraw:payout"
)

// SettlePayload 结算任务参数: 原始交易 + 收款账号
type SettlePayload struct {
	AccountID uint64              `json:"account_id"`
	Variant   model.Variant       `json:"variant"`
	Tx        gateway.Transaction `json:"tx"`
}

// WithdrawPayload 出金任务参数
type WithdrawPayload struct {
	UserID   uint64 `json:"user_id"`
	Payout   string `json:"payout"` // decimal string
	SourceID string `json:"source_id"`
}

// NewSettleTask 创建结算任务。
// 队列按 at-least-once 投递，重复投递靠结算侧 order_id 唯一约束兜底；
// Unique 选项只是减少明显的重复入队，不是正确性机制。
// 终态任务不保留历史 (Retention 0)。
func NewSettleTask(p SettlePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSettlePayment, payload,
		asynq.Queue("critical"),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(10*time.Minute),
		asynq.Retention(0),
	), nil
}

// NewWithdrawTask 创建出金任务。source_id 唯一约束保证同一赢单永不双付。
func NewWithdrawTask(p WithdrawPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWithdrawPayout, payload,
		asynq.Queue("critical"),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute), // 覆盖链上确认等待
		asynq.Unique(30*time.Minute),
		asynq.Retention(0),
	), nil
}
