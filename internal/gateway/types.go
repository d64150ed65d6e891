package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// Credentials 网关侧账号凭证。核心不解释其内容，只负责透传给签名器。
// ProxyURL 非空时，该账号的所有请求都走指定出口代理。
type Credentials struct {
	APIKey    string
	APISecret string
	ProxyURL  string
}

// CredentialsOf 从归集账号提取凭证
func CredentialsOf(acc *model.CollectionAccount) Credentials {
	return Credentials{APIKey: acc.APIKey, APISecret: acc.APISecret, ProxyURL: acc.ProxyURL}
}

// WalletCredentials 从出金钱包提取凭证
func WalletCredentials(w *model.PayoutWallet) Credentials {
	return Credentials{APIKey: w.APIKey, APISecret: w.APISecret}
}

// TxTypeTransfer 点对点转账，唯一参与结算的交易类型
const TxTypeTransfer = "TRANSFER"

// Transaction 网关返回的一笔交易
type Transaction struct {
	OrderID     string          `json:"orderId"`     // 支付单号，全流水线幂等键
	TxID        string          `json:"txId"`        // 原始交易号，结果熵源
	Type        string          `json:"type"`        // TRANSFER, ...
	Currency    string          `json:"currency"`    // USDT, ...
	Amount      decimal.Decimal `json:"amount"`
	PayerHandle string          `json:"payerHandle"` // 付款人 pay-id，可能为空
	Time        time.Time       `json:"time"`
}

// Receipt 链上划转回执
type Receipt struct {
	TxHash string
	Fee    decimal.Decimal
}

// API 是服务层消费的网关能力视图，测试用假实现替换。
type API interface {
	// RecentTransactions 拉取账号最近的入账交易
	RecentTransactions(ctx context.Context, creds Credentials, limit int) ([]Transaction, error)

	// Balance 查询账号指定币种余额
	Balance(ctx context.Context, creds Credentials, symbol string) (decimal.Decimal, error)

	// Withdraw 发起链上划转并阻塞等待回执 (拿到 tx hash 和手续费才算成功，
	// 已提交未确认在本契约下视为失败)
	Withdraw(ctx context.Context, creds Credentials, dest, network, symbol string, amount decimal.Decimal) (Receipt, error)

	// Ping 轻量连通性探测，代理健康检查用
	Ping(ctx context.Context, creds Credentials) error
}
