package worker

import (
	"github.com/hibiken/asynq"
)

// Client 是结算/出金任务的入队端。
// IngestService 和 SettleService 通过它把任务推进 Redis 队列，
// 去重语义 (asynq.TaskID) 由任务构造方决定，这里不掺和。
type Client struct {
	client *asynq.Client
}

// NewClient 连接任务队列所在的 Redis。
func NewClient(addr string, password string, db int) *Client {
	c := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{client: c}
}

// Enqueue 入队一个任务。重复 TaskID 会返回 asynq.ErrDuplicateTask，由调用方决定是否当错误。
func (c *Client) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return c.client.Enqueue(task, opts...)
}

// Close 关闭底层 Redis 连接。
func (c *Client) Close() error {
	return c.client.Close()
}
