package outcome

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// JackpotSource 提供当日头奖号码与边奖表。
// 实现方保证 Prizes 按倍数从高到低排序。
type JackpotSource interface {
	// JackpotNumber 返回指定 UTC 日期 (YYYY-MM-DD) 的头奖号码。
	// 当天没有配置时 ok=false: 头奖不可能命中，但边奖照常开。
	JackpotNumber(day string) (number string, ok bool, err error)

	// Prizes 返回边奖表 (倍数降序)
	Prizes() ([]Prize, error)
}

// Prize 边奖条目: 校验数字串以 Suffix 结尾即命中
type Prize struct {
	Suffix     string
	Multiplier decimal.Decimal
}

// lotteryStrategy 彩票三档: 第 k 档取单号末 k 位，与当日头奖号码的末 k 位
// 完全一致开头奖；未中头奖时按边奖表顺序匹配尾串，命中第一条即止。
type lotteryStrategy struct {
	settings Settings
	jackpots JackpotSource

	// now 可注入，测试固定日期用。nil 时取 time.Now
	now func() time.Time
}

func (s *lotteryStrategy) tier(variant model.Variant) int {
	switch variant {
	case model.VariantLottery1:
		return 1
	case model.VariantLottery2:
		return 2
	default:
		return 3
	}
}

func (s *lotteryStrategy) evaluate(amount decimal.Decimal, id string, variant model.Variant) (Outcome, error) {
	k := s.tier(variant)
	digits, ok := checkedDigits(id, k)
	if !ok {
		return void("short_id"), nil
	}

	nowFn := s.now
	if nowFn == nil {
		nowFn = time.Now
	}
	day := nowFn().UTC().Format("2006-01-02")

	meta := map[string]string{"digits": digits, "day": day}

	number, hasJackpot, err := s.jackpots.JackpotNumber(day)
	if err != nil {
		return Outcome{}, err
	}

	// 头奖: 末 k 位与头奖号码末 k 位完全一致
	if hasJackpot && len(number) >= k && digits == number[len(number)-k:] {
		key := "game.lottery.jackpot_multiplier." + string(rune('0'+k))
		mult := s.settings.GetDecimal(key, defaultJackpotMultiplier(k))
		meta["hit"] = "jackpot"
		meta["jackpot"] = number
		return Outcome{Result: model.ResultWin, Payout: amount.Mul(mult), Meta: meta}, nil
	}

	// 边奖: 按倍数降序，第一条尾串命中即止
	prizes, err := s.jackpots.Prizes()
	if err != nil {
		return Outcome{}, err
	}
	for _, p := range prizes {
		if p.Suffix != "" && strings.HasSuffix(digits, p.Suffix) {
			meta["hit"] = "side"
			meta["suffix"] = p.Suffix
			return Outcome{Result: model.ResultWin, Payout: amount.Mul(p.Multiplier), Meta: meta}, nil
		}
	}

	return Outcome{Result: model.ResultLose, Payout: decimal.Zero, Meta: meta}, nil
}

func defaultJackpotMultiplier(k int) decimal.Decimal {
	switch k {
	case 1:
		return decimal.NewFromInt(7)
	case 2:
		return decimal.NewFromInt(70)
	default:
		return decimal.NewFromInt(700)
	}
}
