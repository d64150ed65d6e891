package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
)

// ReferralService 返佣周账本累加器。
// 账本按 (user_id, period_id) 分桶，period 为 ISO 周。只做增量累加，
// 绝不从头重算 (历史注单可能已归档)。
type ReferralService struct {
	ledger ReferralStore
	users  UserStore
}

func NewReferralService(ledger ReferralStore, users UserStore) *ReferralService {
	return &ReferralService{ledger: ledger, users: users}
}

// Accrue 记一笔返佣: 子账户 contribute_to_parent += amount，
// 父账户 earn_from_child += amount。两行各自首次触达时创建，
// 另一侧字段从零起。
//
// 父用户解析不到时，父侧更新静默跳过: 无主的贡献直接丢弃，
// 子侧仍然入账 (对账时可见)。
func (s *ReferralService) Accrue(ctx context.Context, childUserID, parentUserID uint64, amount decimal.Decimal, ts time.Time) error {
	periodID := model.PeriodID(ts)

	if err := s.ledger.AddContribution(ctx, childUserID, periodID, amount); err != nil {
		return err
	}

	parent, err := s.users.ByID(ctx, parentUserID)
	if err != nil {
		return err
	}
	if parent == nil {
		logger.Debug("返佣父用户不存在，父侧跳过",
			zap.Uint64("parent_user_id", parentUserID),
			zap.Uint64("child_user_id", childUserID))
		return nil
	}

	return s.ledger.AddEarning(ctx, parent.ID, periodID, amount)
}
