package mq

import "context"

// Producer 生产者接口。
// 结算核心只发不收: 事件的消费方 (通知/对账) 在本仓库之外。
type Producer interface {
	// Publish 发送消息
	// key: 用于分区排序 (Partition Key), 例如 UserID. 传空字符串则随机分区.
	Publish(ctx context.Context, topic string, key string, payload []byte) error

	// Close 关闭生产者
	Close() error
}
