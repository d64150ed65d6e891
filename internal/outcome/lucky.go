package outcome

import (
	"github.com/shopspring/decimal"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// luckyStrategy 幸运 7: 单号以 '7' 结尾即中，其余全输。
type luckyStrategy struct {
	settings Settings
}

func (s *luckyStrategy) evaluate(amount decimal.Decimal, id string, _ model.Variant) (Outcome, error) {
	digits, ok := checkedDigits(id, 1)
	if !ok {
		return void("short_id"), nil
	}

	meta := map[string]string{"digit": digits}
	if digits != "7" {
		return Outcome{Result: model.ResultLose, Payout: decimal.Zero, Meta: meta}, nil
	}

	mult := s.settings.GetDecimal("game.lucky.multiplier", decimal.NewFromInt(5))
	return Outcome{Result: model.ResultWin, Payout: amount.Mul(mult), Meta: meta}, nil
}
