package outcome

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// oddEvenStrategy 单双: 取单号末 3 位数字求和，和的奇偶性决定开单还是开双。
// 玩家押的哪一边由入金账号的 variant 决定。
type oddEvenStrategy struct {
	settings Settings
}

func (s *oddEvenStrategy) evaluate(amount decimal.Decimal, id string, variant model.Variant) (Outcome, error) {
	digits, ok := checkedDigits(id, 3)
	if !ok {
		return void("short_id"), nil
	}

	sum := digitVal(digits[0]) + digitVal(digits[1]) + digitVal(digits[2])
	drawn := model.VariantEven
	if sum%2 == 1 {
		drawn = model.VariantOdd
	}

	meta := map[string]string{
		"digits": digits,
		"sum":    fmt.Sprintf("%d", sum),
		"drawn":  string(drawn),
	}

	if drawn != variant {
		return Outcome{Result: model.ResultLose, Payout: decimal.Zero, Meta: meta}, nil
	}

	mult := s.settings.GetDecimal("game.oddeven.multiplier", decimal.NewFromFloat(1.95))
	return Outcome{Result: model.ResultWin, Payout: amount.Mul(mult), Meta: meta}, nil
}
