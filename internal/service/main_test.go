package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/pumbaabetiverse/sendswin-core/internal/event"
	"github.com/pumbaabetiverse/sendswin-core/internal/gateway"
	"github.com/pumbaabetiverse/sendswin-core/internal/model"
	"github.com/pumbaabetiverse/sendswin-core/pkg/errno"
	"github.com/pumbaabetiverse/sendswin-core/pkg/monitor"
)

func TestMain(m *testing.M) {
	// 业务指标是全局的，服务代码无条件打点
	monitor.Init()
	os.Exit(m.Run())
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ---- 共享假实现 ----

// fakeDeposits 内存版结算记录存储，行为对齐 order_id 唯一索引
type fakeDeposits struct {
	rows map[string]*model.Deposit
}

func newFakeDeposits() *fakeDeposits {
	return &fakeDeposits{rows: make(map[string]*model.Deposit)}
}

func (f *fakeDeposits) ByOrderID(_ context.Context, orderID string) (*model.Deposit, error) {
	dep, ok := f.rows[orderID]
	if !ok {
		return nil, nil
	}
	cp := *dep
	return &cp, nil
}

func (f *fakeDeposits) Create(_ context.Context, dep *model.Deposit) error {
	if _, ok := f.rows[dep.OrderID]; ok {
		return errno.ErrDuplicateOrder
	}
	cp := *dep
	f.rows[dep.OrderID] = &cp
	return nil
}

func (f *fakeDeposits) Finalize(_ context.Context, orderID string, result model.Result, payout decimal.Decimal, meta string) error {
	dep, ok := f.rows[orderID]
	if !ok || dep.FinalizedAt != nil {
		return errno.ErrDuplicateOrder
	}
	now := time.Now()
	dep.Result = result
	dep.Payout = payout
	dep.Meta = meta
	dep.FinalizedAt = &now
	return nil
}

// fakeUsers 按 pay handle 和 id 双键索引
type fakeUsers struct {
	byHandle map[string]*model.User
	byID     map[uint64]*model.User
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{
		byHandle: make(map[string]*model.User),
		byID:     make(map[uint64]*model.User),
	}
	for _, u := range users {
		f.byHandle[u.PayHandle] = u
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) ByPayHandle(_ context.Context, handle string) (*model.User, error) {
	return f.byHandle[handle], nil
}

func (f *fakeUsers) ByID(_ context.Context, id uint64) (*model.User, error) {
	return f.byID[id], nil
}

// fakeQueue 收集入队任务
type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

// fakeBus 收集事件
type fakeBus struct {
	settlements []event.SettlementEvent
	referrals   []event.ReferralEvent
	payouts     []event.PayoutEvent
	alerts      []event.OpsAlert
}

func (f *fakeBus) Settlement(e event.SettlementEvent) { f.settlements = append(f.settlements, e) }
func (f *fakeBus) Referral(e event.ReferralEvent)     { f.referrals = append(f.referrals, e) }
func (f *fakeBus) Payout(e event.PayoutEvent)         { f.payouts = append(f.payouts, e) }
func (f *fakeBus) Alert(e event.OpsAlert)             { f.alerts = append(f.alerts, e) }

// fakeAPI 可编程的网关假实现
type fakeAPI struct {
	txs        []gateway.Transaction
	txErr      error
	balances   map[string]decimal.Decimal // api key -> balance
	balanceErr error
	receipt    gateway.Receipt
	withdraws  []string // 目标地址记录
	wdErr      error
	pingErr    map[string]error // api key -> err (缺省成功)
}

func (f *fakeAPI) RecentTransactions(_ context.Context, _ gateway.Credentials, _ int) ([]gateway.Transaction, error) {
	return f.txs, f.txErr
}

func (f *fakeAPI) Balance(_ context.Context, creds gateway.Credentials, _ string) (decimal.Decimal, error) {
	if f.balanceErr != nil {
		return decimal.Zero, f.balanceErr
	}
	return f.balances[creds.APIKey], nil
}

func (f *fakeAPI) Withdraw(_ context.Context, _ gateway.Credentials, dest, _, _ string, _ decimal.Decimal) (gateway.Receipt, error) {
	if f.wdErr != nil {
		return gateway.Receipt{}, f.wdErr
	}
	f.withdraws = append(f.withdraws, dest)
	return f.receipt, nil
}

func (f *fakeAPI) Ping(_ context.Context, creds gateway.Credentials) error {
	if f.pingErr == nil {
		return nil
	}
	return f.pingErr[creds.APIKey]
}
