package outcome

import (
	"github.com/shopspring/decimal"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// overUnderStrategy 大小: 看单号最后一位数字。
// 6-9 开大，1-4 开小，0 和 5 通杀 (双边皆输)。
type overUnderStrategy struct {
	settings Settings
}

func (s *overUnderStrategy) evaluate(amount decimal.Decimal, id string, variant model.Variant) (Outcome, error) {
	digits, ok := checkedDigits(id, 1)
	if !ok {
		return void("short_id"), nil
	}

	last := digitVal(digits[0])
	meta := map[string]string{"digit": digits}

	var drawn model.Variant
	switch {
	case last >= 6:
		drawn = model.VariantOver
		meta["drawn"] = "over"
	case last == 0 || last == 5:
		// 0 或 5: 无人中
		meta["drawn"] = "house"
	default:
		drawn = model.VariantUnder
		meta["drawn"] = "under"
	}

	if drawn != variant {
		return Outcome{Result: model.ResultLose, Payout: decimal.Zero, Meta: meta}, nil
	}

	mult := s.settings.GetDecimal("game.overunder.multiplier", decimal.NewFromFloat(1.95))
	return Outcome{Result: model.ResultWin, Payout: amount.Mul(mult), Meta: meta}, nil
}
