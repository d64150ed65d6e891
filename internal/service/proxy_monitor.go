package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pumbaabetiverse/sendswin-core/internal/event"
	"github.com/pumbaabetiverse/sendswin-core/internal/gateway"
	"github.com/pumbaabetiverse/sendswin-core/internal/model"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
	"github.com/pumbaabetiverse/sendswin-core/pkg/monitor"
)

// accountPool 是监控需要的账号池最小视图
type accountPool interface {
	ListActive(variant *model.Variant) ([]model.CollectionAccount, error)
	SetStatus(id uint64, status string) error
}

// alertSink 运维告警出口
type alertSink interface {
	Alert(e event.OpsAlert)
}

// ProxyMonitor 代理健康监控。
// 连败计数只在进程内存里，重启清零——已知局限，不是正确性要求。
type ProxyMonitor struct {
	accounts accountPool
	api      gateway.API
	alerts   alertSink

	attempts     int           // 单次检查的探测次数
	attemptGap   time.Duration // 探测间隔
	probeTimeout time.Duration // 单次探测超时 (独立于重试节奏)
	threshold    int           // 连败多少次降级

	mu       sync.Mutex     // 一轮失败账号多时巡检会拖过调度间隔，两轮可能重叠
	failures map[uint64]int // account id -> 连续失败次数
}

func NewProxyMonitor(accounts accountPool, api gateway.API, alerts alertSink) *ProxyMonitor {
	return &ProxyMonitor{
		accounts:     accounts,
		api:          api,
		alerts:       alerts,
		attempts:     5,
		attemptGap:   10 * time.Second,
		probeTimeout: 5 * time.Second,
		threshold:    3,
		failures:     make(map[uint64]int),
	}
}

// CheckOne 通过账号的出口代理做轻量探测，最多 attempts 次，
// 间隔 attemptGap，只暴露最后一次的失败。
func (m *ProxyMonitor) CheckOne(ctx context.Context, acc *model.CollectionAccount) error {
	var lastErr error
	for i := 0; i < m.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.attemptGap):
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
		lastErr = m.api.Ping(probeCtx, gateway.CredentialsOf(acc))
		cancel()
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// RunSweep 扫一遍全部活跃账号，维护连败计数。
// 连败达到阈值 → 降级 INACTIVE、计数清零、进入批量报告。
// 扫完若有降级，只发一条汇总告警，不逐账号刷屏。
func (m *ProxyMonitor) RunSweep(ctx context.Context) {
	accounts, err := m.accounts.ListActive(nil)
	if err != nil {
		logger.Error("代理巡检: 列账号失败", zap.Error(err))
		return
	}

	var demoted []string
	for i := range accounts {
		acc := accounts[i]
		if err := m.CheckOne(ctx, &acc); err != nil {
			streak := m.recordFailure(acc.ID)
			logger.Warn("代理探测失败",
				zap.Uint64("account_id", acc.ID),
				zap.String("label", acc.Label),
				zap.Int("consecutive", streak),
				zap.Error(err))

			if streak >= m.threshold {
				if err := m.accounts.SetStatus(acc.ID, model.AccountInactive); err != nil {
					logger.Error("降级账号失败", zap.Uint64("account_id", acc.ID), zap.Error(err))
					continue
				}
				m.resetFailure(acc.ID)
				monitor.Business.ProxyDemotionsTotal.Inc()
				demoted = append(demoted, fmt.Sprintf("#%d %s (%s)", acc.ID, acc.Label, acc.Variant))
			}
			continue
		}
		// 任一次成功即清零
		m.resetFailure(acc.ID)
	}

	if len(demoted) > 0 {
		m.alerts.Alert(event.OpsAlert{
			Kind:    "proxy_demotion",
			Summary: fmt.Sprintf("%d 个归集账号因代理连续失败被降级", len(demoted)),
			Items:   demoted,
			Time:    time.Now(),
		})
	}
}

func (m *ProxyMonitor) recordFailure(id uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id]++
	return m.failures[id]
}

func (m *ProxyMonitor) resetFailure(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, id)
}

func (m *ProxyMonitor) failureCount(id uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[id]
}
