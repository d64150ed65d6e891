package event

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
	"github.com/pumbaabetiverse/sendswin-core/internal/service/mq"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
)

// Topics
const (
	TopicSettlement = "settle.events"
	TopicReferral   = "referral.events"
	TopicPayout     = "payout.events"
	TopicOpsAlert   = "ops.alerts"
)

// SettlementEvent 新结算通知 (下游聊天层消费)
type SettlementEvent struct {
	OrderID string        `json:"order_id"`
	UserID  uint64        `json:"user_id"`
	ChatID  int64         `json:"chat_id"`
	Variant model.Variant `json:"variant"`
	Result  model.Result  `json:"result"`
	Amount  string        `json:"amount"`
	Payout  string        `json:"payout"`
	Time    time.Time     `json:"time"`
}

// ReferralEvent 返佣贡献事件
type ReferralEvent struct {
	ChildUserID  uint64        `json:"child_user_id"`
	ParentUserID uint64        `json:"parent_user_id"`
	Amount       string        `json:"amount"`
	Variant      model.Variant `json:"variant"`
	Result       model.Result  `json:"result"`
	Time         time.Time     `json:"time"`
}

// PayoutEvent 出金成功通知。失败不发事件: 不给用户承诺没到账的钱，
// 系统性失败走运维告警通道。
type PayoutEvent struct {
	SourceID string    `json:"source_id"`
	UserID   uint64    `json:"user_id"`
	ChatID   int64     `json:"chat_id"`
	Amount   string    `json:"amount"`
	TxHash   string    `json:"tx_hash"`
	Time     time.Time `json:"time"`
}

// OpsAlert 运维告警 (e.g. 代理健康检查批量降级报告)
type OpsAlert struct {
	Kind    string    `json:"kind"`
	Summary string    `json:"summary"`
	Items   []string  `json:"items"`
	Time    time.Time `json:"time"`
}

// Bus 把领域事件发往 Kafka。所有 Publish 都是 best-effort:
// 失败只打日志，绝不阻塞或失败结算/出金主流程。
type Bus struct {
	producer mq.Producer
}

func NewBus(producer mq.Producer) *Bus {
	return &Bus{producer: producer}
}

func (b *Bus) publish(topic, key string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("事件序列化失败", zap.String("topic", topic), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.producer.Publish(ctx, topic, key, data); err != nil {
		logger.Error("事件发布失败", zap.String("topic", topic), zap.Error(err))
	}
}

func (b *Bus) Settlement(e SettlementEvent) {
	b.publish(TopicSettlement, strconv.FormatUint(e.UserID, 10), e)
}

func (b *Bus) Referral(e ReferralEvent) {
	b.publish(TopicReferral, strconv.FormatUint(e.ChildUserID, 10), e)
}

func (b *Bus) Payout(e PayoutEvent) {
	b.publish(TopicPayout, strconv.FormatUint(e.UserID, 10), e)
}

func (b *Bus) Alert(e OpsAlert) {
	b.publish(TopicOpsAlert, e.Kind, e)
}
