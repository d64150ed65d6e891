package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pumbaabetiverse/sendswin-core/internal/gateway"
	"github.com/pumbaabetiverse/sendswin-core/pkg/errno"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
	"github.com/pumbaabetiverse/sendswin-core/pkg/monitor"
)

// TransferResult 一次出金划转的结果
type TransferResult struct {
	WalletID uint64
	TxHash   string
	Fee      decimal.Decimal
}

// WalletPool 出金钱包池。
// 按 last_used_at 从旧到新扫，候选钱包先标记使用再查余额——
// 余额不够的也沉底，免得一个低余额钱包钉死在队头每次都被扫到。
type WalletPool struct {
	wallets  WalletStore
	api      gateway.API
	currency string
	network  string
}

func NewWalletPool(wallets WalletStore, api gateway.API, currency, network string) *WalletPool {
	return &WalletPool{
		wallets:  wallets,
		api:      api,
		currency: currency,
		network:  network,
	}
}

// SelectAndTransfer 选第一个余额够的钱包执行划转。
// 没有钱包够钱 → errno.ErrInsufficientFunds (终态，可告警)。
// 划转本身失败不换下一个钱包重试——本层不建模部分成功。
func (p *WalletPool) SelectAndTransfer(ctx context.Context, dest string, amount decimal.Decimal) (TransferResult, error) {
	candidates, err := p.wallets.ListByLastUsed(ctx)
	if err != nil {
		return TransferResult{}, err
	}

	for i := range candidates {
		w := &candidates[i]

		// 先标记使用，再判余额 (刻意如此，摊平轮换负载)
		if err := p.wallets.Touch(ctx, w.ID, time.Now()); err != nil {
			logger.Error("钱包 touch 失败", zap.Uint64("wallet_id", w.ID), zap.Error(err))
			continue
		}

		if w.Balance.LessThan(amount) {
			continue
		}

		receipt, err := p.api.Withdraw(ctx, gateway.WalletCredentials(w), dest, p.network, p.currency, amount)
		if err != nil {
			return TransferResult{}, fmt.Errorf("wallet #%d transfer: %w", w.ID, err)
		}

		// 回写缓存余额 (划转额 + 手续费)，下轮选择用
		newBal := w.Balance.Sub(amount).Sub(receipt.Fee)
		if newBal.IsNegative() {
			newBal = decimal.Zero
		}
		if err := p.wallets.SetBalance(ctx, w.ID, newBal); err != nil {
			logger.Error("钱包余额回写失败", zap.Uint64("wallet_id", w.ID), zap.Error(err))
		}

		return TransferResult{WalletID: w.ID, TxHash: receipt.TxHash, Fee: receipt.Fee}, nil
	}

	monitor.Business.InsufficientFundsTotal.Inc()
	return TransferResult{}, fmt.Errorf("amount %s: %w", amount.String(), errno.ErrInsufficientFunds)
}

// RefreshBalances 周期性从网关刷新钱包缓存余额，单钱包失败互相隔离
func (p *WalletPool) RefreshBalances(ctx context.Context) {
	wallets, err := p.wallets.ListByLastUsed(ctx)
	if err != nil {
		logger.Error("钱包余额刷新: 列钱包失败", zap.Error(err))
		return
	}
	for i := range wallets {
		w := &wallets[i]
		bal, err := p.api.Balance(ctx, gateway.WalletCredentials(w), p.currency)
		if err != nil {
			logger.Error("钱包余额刷新失败", zap.Uint64("wallet_id", w.ID), zap.Error(err))
			continue
		}
		if bal.LessThanOrEqual(decimal.Zero) {
			// 零值读数不覆盖已知余额
			continue
		}
		if err := p.wallets.SetBalance(ctx, w.ID, bal); err != nil {
			logger.Error("钱包余额回写失败", zap.Uint64("wallet_id", w.ID), zap.Error(err))
		}
	}
}
