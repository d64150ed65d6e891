package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MoneyScale 金额落库统一保留 6 位小数，向下取整
const MoneyScale = 6

// Money 在持久化边界处统一截断精度
func Money(d decimal.Decimal) decimal.Decimal {
	return d.RoundDown(MoneyScale)
}

// Variant 玩法标识。每个归集账号绑定一个玩法选项，玩家把钱转到哪个账号就等于押了哪一边。
type Variant string

const (
	VariantOdd      Variant = "odd"
	VariantEven     Variant = "even"
	VariantOver     Variant = "over"
	VariantUnder    Variant = "under"
	VariantLucky    Variant = "lucky"
	VariantLottery1 Variant = "lottery1"
	VariantLottery2 Variant = "lottery2"
	VariantLottery3 Variant = "lottery3"
)

// AllVariants 当前支持的全部玩法
func AllVariants() []Variant {
	return []Variant{
		VariantOdd, VariantEven, VariantOver, VariantUnder,
		VariantLucky, VariantLottery1, VariantLottery2, VariantLottery3,
	}
}

// Group 返回玩法所属的组，用于派生提现幂等键 (同组共用一个 withdrawType)
func (v Variant) Group() string {
	switch v {
	case VariantOdd, VariantEven:
		return "oddeven"
	case VariantOver, VariantUnder:
		return "overunder"
	case VariantLucky:
		return "lucky"
	case VariantLottery1, VariantLottery2, VariantLottery3:
		return "lottery"
	default:
		return string(v)
	}
}

// Result 结算结果
type Result string

const (
	ResultWin  Result = "WIN"
	ResultLose Result = "LOSE"
	ResultVoid Result = "VOID"
)

// Withdrawal status
const (
	WithdrawPending = "PENDING"
	WithdrawSuccess = "SUCCESS"
	WithdrawFail    = "FAIL"
)

// Account status
const (
	AccountActive   = "ACTIVE"
	AccountInactive = "INACTIVE"
)

// SourceID 派生提现幂等键: {withdrawType}_{originatingId}
// 同一个赢单/返佣事件永远只能产生一笔提现。
func SourceID(withdrawType, originatingID string) string {
	return fmt.Sprintf("%s_%s", withdrawType, originatingID)
}

// PeriodID 返佣账期: ISO 周桶
func PeriodID(ts time.Time) int {
	year, week := ts.UTC().ISOWeek()
	return year*54 + week
}

// User 玩家
type User struct {
	ID              uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID          int64          `gorm:"index" json:"chat_id"`                                 // 通知通道 (0 = 无)
	PayHandle       string         `gorm:"type:varchar(64);uniqueIndex" json:"pay_handle"`       // 网关侧付款人标识，入金匹配用
	WithdrawAddress string         `gorm:"type:varchar(128)" json:"withdraw_address"`            // BEP20 收款地址
	ReferrerID      *uint64        `gorm:"index" json:"referrer_id,omitempty"`                   // 上级，可空
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// CollectionAccount 归集账号: 玩家向它付款，每个账号对应一个玩法选项
type CollectionAccount struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Label      string          `gorm:"type:varchar(64);not null" json:"label"`
	APIKey     string          `gorm:"type:varchar(128);not null" json:"-"` // 网关凭证，核心只透传
	APISecret  string          `gorm:"type:varchar(128);not null" json:"-"`
	Variant    Variant         `gorm:"type:varchar(16);not null;index" json:"variant"`
	Status     string          `gorm:"type:varchar(16);not null;default:'ACTIVE';index" json:"status"` // ACTIVE, INACTIVE
	ProxyURL   string          `gorm:"type:varchar(255)" json:"proxy_url"`                             // 出口代理，空则直连
	Balance    decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"balance"`          // 缓存余额
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Deposit 结算记录 (SettledPayment)
// 核心设计: order_id 唯一索引是整条流水线的幂等保障，check-then-act 只是快路径优化。
type Deposit struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_id"` // 外部支付单号
	AccountID   uint64          `gorm:"not null;index" json:"account_id"`
	UserID      *uint64         `gorm:"index" json:"user_id,omitempty"`
	PayerHandle string          `gorm:"type:varchar(64)" json:"payer_handle"`
	TxID        string          `gorm:"type:varchar(64);not null" json:"tx_id"` // 原始交易号，结果的唯一熵源
	Amount      decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"amount"`
	Currency    string          `gorm:"type:varchar(10);not null" json:"currency"`
	Variant     Variant         `gorm:"type:varchar(16);not null" json:"variant"`
	Result      Result          `gorm:"type:varchar(8);not null;default:'VOID'" json:"result"`
	Payout      decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"payout"`
	Meta        string          `gorm:"type:text" json:"meta"` // 玩法自由元数据 (JSON)
	FinalizedAt *time.Time      `json:"finalized_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Withdrawal 提现记录
type Withdrawal struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SourceID  string          `gorm:"type:varchar(96);not null;uniqueIndex" json:"source_id"` // {withdrawType}_{originatingId}
	UserID    uint64          `gorm:"not null;index" json:"user_id"`
	ToAddress string          `gorm:"type:varchar(128);not null" json:"to_address"`
	Amount    decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"amount"`
	Status    string          `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"` // PENDING, SUCCESS, FAIL
	TxHash    string          `gorm:"type:varchar(128)" json:"tx_hash"`
	Fee       decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"fee"`
	WalletID  *uint64         `gorm:"index" json:"wallet_id,omitempty"` // 出金钱包
	FailCause string          `gorm:"type:varchar(255)" json:"fail_cause"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PayoutWallet 出金钱包池
type PayoutWallet struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Label      string          `gorm:"type:varchar(64);not null" json:"label"`
	Address    string          `gorm:"type:varchar(128);not null" json:"address"`
	APIKey     string          `gorm:"type:varchar(128);not null" json:"-"` // 划转凭证
	APISecret  string          `gorm:"type:varchar(128);not null" json:"-"`
	Balance    decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"balance"`
	LastUsedAt time.Time       `gorm:"index" json:"last_used_at"` // LRU 轮换依据
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ReferralLedger 返佣账本，按 (user, 周期) 累加
type ReferralLedger struct {
	ID                 uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID             uint64          `gorm:"not null;uniqueIndex:idx_user_period" json:"user_id"`
	PeriodID           int             `gorm:"not null;uniqueIndex:idx_user_period" json:"period_id"`
	EarnFromChild      decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"earn_from_child"`
	ContributeToParent decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"contribute_to_parent"`
	Withdrawn          bool            `gorm:"not null;default:false" json:"withdrawn"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// LotteryJackpot 每日头奖号码，按 UTC 日期唯一
type LotteryJackpot struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Day       string    `gorm:"type:varchar(10);not null;uniqueIndex" json:"day"` // YYYY-MM-DD (UTC)
	Number    string    `gorm:"type:varchar(16);not null" json:"number"`
	CreatedAt time.Time `json:"created_at"`
}

// LotteryPrize 边奖表，按倍数从高到低匹配，命中即止
type LotteryPrize struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Suffix     string          `gorm:"type:varchar(16);not null" json:"suffix"` // 匹配尾串
	Multiplier decimal.Decimal `gorm:"type:decimal(16,6);not null" json:"multiplier"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Setting 业务参数表 (热改，结算每次评估都现读)
type Setting struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:varchar(255);not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string              { return "users" }
func (CollectionAccount) TableName() string { return "collection_accounts" }
func (Deposit) TableName() string           { return "deposits" }
func (Withdrawal) TableName() string        { return "withdrawals" }
func (PayoutWallet) TableName() string      { return "payout_wallets" }
func (ReferralLedger) TableName() string    { return "referral_ledgers" }
func (LotteryJackpot) TableName() string    { return "lottery_jackpots" }
func (LotteryPrize) TableName() string      { return "lottery_prizes" }
func (Setting) TableName() string           { return "settings" }
