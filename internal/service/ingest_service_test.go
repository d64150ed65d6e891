package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumbaabetiverse/sendswin-core/internal/gateway"
	"github.com/pumbaabetiverse/sendswin-core/internal/model"
	"github.com/pumbaabetiverse/sendswin-core/internal/worker/tasks"
)

// fakeAccounts 固定账号列表
type fakeAccounts struct {
	accounts []model.CollectionAccount
	statuses map[uint64]string
}

func (f *fakeAccounts) ListActive(_ *model.Variant) ([]model.CollectionAccount, error) {
	return f.accounts, nil
}

func (f *fakeAccounts) SetStatus(id uint64, status string) error {
	if f.statuses == nil {
		f.statuses = make(map[uint64]string)
	}
	f.statuses[id] = status
	return nil
}

// fakeLock 进程内锁，语义对齐 SETNX
type fakeLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: make(map[string]bool)}
}

func (f *fakeLock) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLock) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

func tx(orderID, txType, currency, amount string) gateway.Transaction {
	return gateway.Transaction{
		OrderID:     orderID,
		TxID:        "tx" + orderID,
		Type:        txType,
		Currency:    currency,
		Amount:      d(amount),
		PayerHandle: "alice",
		Time:        time.Now(),
	}
}

func TestPollAccountEligibility(t *testing.T) {
	api := &fakeAPI{txs: []gateway.Transaction{
		tx("P1", gateway.TxTypeTransfer, "USDT", "10"),  // 合格
		tx("P2", "C2C_BUY", "USDT", "10"),               // 类型不对
		tx("P3", gateway.TxTypeTransfer, "BTC", "10"),   // 币种不对
		tx("P4", gateway.TxTypeTransfer, "USDT", "-10"), // 负金额
		tx("P5", gateway.TxTypeTransfer, "USDT", "0"),   // 零金额合格 (非负)
	}}
	queue := &fakeQueue{}
	svc := NewIngestService(&fakeAccounts{}, api, newFakeDeposits(), queue, newFakeLock(), "USDT")

	acc := &model.CollectionAccount{ID: 1, Variant: model.VariantOdd}
	require.NoError(t, svc.pollAccount(context.Background(), acc))

	require.Len(t, queue.tasks, 2)
	var got []string
	for _, task := range queue.tasks {
		var p tasks.SettlePayload
		require.NoError(t, json.Unmarshal(task.Payload(), &p))
		got = append(got, p.Tx.OrderID)
		assert.Equal(t, uint64(1), p.AccountID)
		assert.Equal(t, model.VariantOdd, p.Variant)
	}
	assert.Equal(t, []string{"P1", "P5"}, got)
}

// 预检: 已结算过的单号不再入队
func TestPollAccountAdvisoryDedup(t *testing.T) {
	api := &fakeAPI{txs: []gateway.Transaction{
		tx("P1", gateway.TxTypeTransfer, "USDT", "10"),
		tx("P2", gateway.TxTypeTransfer, "USDT", "10"),
	}}
	deposits := newFakeDeposits()
	require.NoError(t, deposits.Create(context.Background(), &model.Deposit{OrderID: "P1"}))

	queue := &fakeQueue{}
	svc := NewIngestService(&fakeAccounts{}, api, deposits, queue, newFakeLock(), "USDT")
	require.NoError(t, svc.pollAccount(context.Background(), &model.CollectionAccount{ID: 1, Variant: model.VariantOdd}))

	require.Len(t, queue.tasks, 1)
	var p tasks.SettlePayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &p))
	assert.Equal(t, "P2", p.Tx.OrderID)
}

// 队列层 Unique 撞重复不算错误
func TestPollAccountDuplicateTaskTolerated(t *testing.T) {
	api := &fakeAPI{txs: []gateway.Transaction{
		tx("P1", gateway.TxTypeTransfer, "USDT", "10"),
	}}
	queue := &fakeQueue{err: asynq.ErrDuplicateTask}
	svc := NewIngestService(&fakeAccounts{}, api, newFakeDeposits(), queue, newFakeLock(), "USDT")

	assert.NoError(t, svc.pollAccount(context.Background(), &model.CollectionAccount{ID: 1}))
}

// 锁被占用时账号 tick 跳过，不排队
func TestTickAccountSkipsWhenLocked(t *testing.T) {
	api := &fakeAPI{txs: []gateway.Transaction{
		tx("P1", gateway.TxTypeTransfer, "USDT", "10"),
	}}
	queue := &fakeQueue{}
	distLock := newFakeLock()
	svc := NewIngestService(&fakeAccounts{}, api, newFakeDeposits(), queue, distLock, "USDT")

	acc := &model.CollectionAccount{ID: 5}
	locked, err := distLock.Acquire(context.Background(), "ingest:account:5", time.Minute)
	require.NoError(t, err)
	require.True(t, locked)

	svc.tickAccount(context.Background(), acc)
	assert.Empty(t, queue.tasks, "锁被占用应跳过")

	require.NoError(t, distLock.Release(context.Background(), "ingest:account:5"))
	svc.tickAccount(context.Background(), acc)
	assert.Len(t, queue.tasks, 1)
}

// 错峰: N 个账号均匀摊在 60 秒窗口
func TestTickDue(t *testing.T) {
	// 4 个账号在 0, 15, 30, 45 秒触发
	assert.True(t, tickDue(0, 4, 0))
	assert.True(t, tickDue(1, 4, 15))
	assert.True(t, tickDue(2, 4, 30))
	assert.True(t, tickDue(3, 4, 45))
	assert.False(t, tickDue(1, 4, 16))

	// 单账号每分钟 0 秒
	assert.True(t, tickDue(0, 1, 0))
	assert.False(t, tickDue(0, 1, 30))

	// 空集合永不触发
	assert.False(t, tickDue(0, 0, 0))

	// 每个账号每分钟恰好触发一次
	for i := 0; i < 7; i++ {
		hits := 0
		for sec := 0; sec < 60; sec++ {
			if tickDue(i, 7, sec) {
				hits++
			}
		}
		assert.Equal(t, 1, hits, "account %d", i)
	}
}
