package outcome

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// Settings 是评估时现读的业务参数视图 (热改赔率不需要重启)
type Settings interface {
	GetBool(key string, def bool) bool
	GetDecimal(key string, def decimal.Decimal) decimal.Decimal
}

// Outcome 单次评估结果
type Outcome struct {
	Result model.Result
	Payout decimal.Decimal
	Meta   map[string]string
}

func void(reason string) Outcome {
	return Outcome{
		Result: model.ResultVoid,
		Payout: decimal.Zero,
		Meta:   map[string]string{"void_reason": reason},
	}
}

// strategy 每个玩法一个策略。id 是已通过范围校验的订单标识，
// 策略只负责从校验数字串里分出输赢。
type strategy interface {
	evaluate(amount decimal.Decimal, id string, variant model.Variant) (Outcome, error)
}

// Engine 纯函数结算引擎: 同样的 (amount, id, variant) + 同样的配置，结果必然相同。
type Engine struct {
	settings   Settings
	strategies map[model.Variant]strategy
}

func NewEngine(st Settings, jackpots JackpotSource) *Engine {
	e := &Engine{
		settings:   st,
		strategies: make(map[model.Variant]strategy),
	}

	oddEven := &oddEvenStrategy{settings: st}
	overUnder := &overUnderStrategy{settings: st}
	lucky := &luckyStrategy{settings: st}
	lottery := &lotteryStrategy{settings: st, jackpots: jackpots}

	e.strategies[model.VariantOdd] = oddEven
	e.strategies[model.VariantEven] = oddEven
	e.strategies[model.VariantOver] = overUnder
	e.strategies[model.VariantUnder] = overUnder
	e.strategies[model.VariantLucky] = lucky
	e.strategies[model.VariantLottery1] = lottery
	e.strategies[model.VariantLottery2] = lottery
	e.strategies[model.VariantLottery3] = lottery

	return e
}

// Evaluate 计算一笔入金的游戏结果。
// 公共闸门: 玩法停用或金额越界 → VOID。边界值 (恰好等于 min/max) 有效。
func (e *Engine) Evaluate(amount decimal.Decimal, id string, variant model.Variant) (Outcome, error) {
	s, ok := e.strategies[variant]
	if !ok {
		return void("unknown_variant"), nil
	}

	group := variant.Group()
	if !e.settings.GetBool("game."+group+".enabled", true) {
		return void("disabled"), nil
	}

	minBet := e.settings.GetDecimal("game."+group+".min_bet", decimal.NewFromInt(1))
	maxBet := e.settings.GetDecimal("game."+group+".max_bet", decimal.NewFromInt(1000))
	if amount.LessThan(minBet) || amount.GreaterThan(maxBet) {
		return void("out_of_range"), nil
	}

	out, err := s.evaluate(amount, id, variant)
	if err != nil {
		return Outcome{}, fmt.Errorf("evaluate %s: %w", variant, err)
	}
	out.Payout = model.Money(out.Payout)
	return out, nil
}
