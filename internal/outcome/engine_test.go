package outcome

import (
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// fakeSettings map 打底的参数视图，没配的 key 走默认值
type fakeSettings struct {
	values map[string]string
}

func (f *fakeSettings) GetBool(key string, def bool) bool {
	if v, ok := f.values[key]; ok {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}

func (f *fakeSettings) GetDecimal(key string, def decimal.Decimal) decimal.Decimal {
	if v, ok := f.values[key]; ok {
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d
		}
	}
	return def
}

// fakeJackpots 固定头奖号码和边奖表
type fakeJackpots struct {
	numbers map[string]string // day -> number
	prizes  []Prize
}

func (f *fakeJackpots) JackpotNumber(day string) (string, bool, error) {
	n, ok := f.numbers[day]
	return n, ok, nil
}

func (f *fakeJackpots) Prizes() ([]Prize, error) {
	return f.prizes, nil
}

func newTestEngine(values map[string]string) *Engine {
	if values == nil {
		values = map[string]string{}
	}
	return NewEngine(&fakeSettings{values: values}, &fakeJackpots{})
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestEvaluateGates(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		amount  decimal.Decimal
		id      string
		variant model.Variant
		reason  string
	}{
		{"未知玩法", nil, d("10"), "123", model.Variant("bogus"), "unknown_variant"},
		{"玩法停用", map[string]string{"game.oddeven.enabled": "false"}, d("10"), "123", model.VariantOdd, "disabled"},
		{"低于下限", nil, d("0.999999"), "123", model.VariantOdd, "out_of_range"},
		{"高于上限", nil, d("1000.000001"), "123", model.VariantOdd, "out_of_range"},
		{"单号数字不足", nil, d("10"), "ab1X", model.VariantOdd, "short_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(tt.values)
			out, err := e.Evaluate(tt.amount, tt.id, tt.variant)
			require.NoError(t, err)
			assert.Equal(t, model.ResultVoid, out.Result)
			assert.True(t, out.Payout.IsZero())
			assert.Equal(t, tt.reason, out.Meta["void_reason"])
		})
	}
}

// 边界值本身有效: 恰好 min 或恰好 max 不 VOID
func TestEvaluateBetRangeBoundaries(t *testing.T) {
	e := newTestEngine(map[string]string{
		"game.oddeven.min_bet": "5",
		"game.oddeven.max_bet": "100",
	})

	for _, amount := range []decimal.Decimal{d("5"), d("100")} {
		out, err := e.Evaluate(amount, "order999", model.VariantOdd)
		require.NoError(t, err)
		assert.NotEqual(t, "out_of_range", out.Meta["void_reason"], "amount %s 应在范围内", amount)
	}
}

func TestOddEven(t *testing.T) {
	// 末 3 位 123 → 和 6 → 开双
	tests := []struct {
		name    string
		id      string
		variant model.Variant
		want    model.Result
	}{
		{"和为偶, 押双中", "pay123", model.VariantEven, model.ResultWin},
		{"和为偶, 押单输", "pay123", model.VariantOdd, model.ResultLose},
		{"和为奇, 押单中", "pay124", model.VariantOdd, model.ResultWin},
		{"和为奇, 押双输", "pay124", model.VariantEven, model.ResultLose},
	}

	e := newTestEngine(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Evaluate(d("10"), tt.id, tt.variant)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Result)
			if tt.want == model.ResultWin {
				// 默认赔率 1.95
				assert.True(t, out.Payout.Equal(d("19.5")), "payout = %s", out.Payout)
			} else {
				assert.True(t, out.Payout.IsZero())
			}
		})
	}

	// meta 记录开奖依据
	out, err := e.Evaluate(d("10"), "pay123", model.VariantEven)
	require.NoError(t, err)
	assert.Equal(t, "123", out.Meta["digits"])
	assert.Equal(t, "6", out.Meta["sum"])
	assert.Equal(t, "even", out.Meta["drawn"])
}

func TestOverUnder(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		variant model.Variant
		want    model.Result
	}{
		{"末位 7 押大中", "x7", model.VariantOver, model.ResultWin},
		{"末位 7 押小输", "x7", model.VariantUnder, model.ResultLose},
		{"末位 3 押小中", "x3", model.VariantUnder, model.ResultWin},
		{"末位 3 押大输", "x3", model.VariantOver, model.ResultLose},
		{"末位 5 通杀押大", "x5", model.VariantOver, model.ResultLose},
		{"末位 5 通杀押小", "x5", model.VariantUnder, model.ResultLose},
		{"末位 0 通杀押大", "x10", model.VariantOver, model.ResultLose},
		{"末位 0 通杀押小", "x10", model.VariantUnder, model.ResultLose},
		{"末位 6 是大的下界", "x6", model.VariantOver, model.ResultWin},
		{"末位 4 是小的上界", "x4", model.VariantUnder, model.ResultWin},
	}

	e := newTestEngine(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Evaluate(d("10"), tt.id, tt.variant)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Result)
		})
	}
}

func TestLucky(t *testing.T) {
	e := newTestEngine(nil)

	out, err := e.Evaluate(d("10"), "order7", model.VariantLucky)
	require.NoError(t, err)
	assert.Equal(t, model.ResultWin, out.Result)
	// 默认赔率 5
	assert.True(t, out.Payout.Equal(d("50")), "payout = %s", out.Payout)

	out, err = e.Evaluate(d("10"), "order3", model.VariantLucky)
	require.NoError(t, err)
	assert.Equal(t, model.ResultLose, out.Result)
	assert.True(t, out.Payout.IsZero())
}

// 热改赔率立即生效 (settings 每次评估现读)
func TestMultiplierLiveReload(t *testing.T) {
	values := map[string]string{"game.lucky.multiplier": "5"}
	e := NewEngine(&fakeSettings{values: values}, &fakeJackpots{})

	out, err := e.Evaluate(d("10"), "order7", model.VariantLucky)
	require.NoError(t, err)
	assert.True(t, out.Payout.Equal(d("50")))

	values["game.lucky.multiplier"] = "6"
	out, err = e.Evaluate(d("10"), "order7", model.VariantLucky)
	require.NoError(t, err)
	assert.True(t, out.Payout.Equal(d("60")))
}

func fixedDay(day string) func() time.Time {
	ts, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}

func TestLotteryJackpot(t *testing.T) {
	jackpots := &fakeJackpots{
		numbers: map[string]string{"2026-08-29": "4567"},
	}
	st := &fakeSettings{values: map[string]string{}}

	tests := []struct {
		name    string
		id      string
		variant model.Variant
		want    model.Result
		payout  string
	}{
		{"一档末 1 位命中", "x7", model.VariantLottery1, model.ResultWin, "70"},     // 默认 7x
		{"二档末 2 位命中", "x67", model.VariantLottery2, model.ResultWin, "700"},   // 默认 70x
		{"三档末 3 位命中", "x567", model.VariantLottery3, model.ResultWin, "7000"}, // 默认 700x
		{"二档末 2 位不中", "x57", model.VariantLottery2, model.ResultLose, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &lotteryStrategy{settings: st, jackpots: jackpots, now: fixedDay("2026-08-29")}
			out, err := s.evaluate(d("10"), tt.id, tt.variant)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Result)
			assert.True(t, out.Payout.Equal(d(tt.payout)), "payout = %s", out.Payout)
		})
	}
}

// 边奖表倍数降序，第一条命中即止
func TestLotterySidePrizes(t *testing.T) {
	jackpots := &fakeJackpots{
		numbers: map[string]string{}, // 当天没配头奖
		prizes: []Prize{
			{Suffix: "888", Multiplier: d("20")},
			{Suffix: "88", Multiplier: d("3")},
		},
	}
	s := &lotteryStrategy{
		settings: &fakeSettings{values: map[string]string{}},
		jackpots: jackpots,
		now:      fixedDay("2026-08-29"),
	}

	// 末 3 位 888 同时匹配两条，只吃倍数高的那条
	out, err := s.evaluate(d("10"), "x888", model.VariantLottery3)
	require.NoError(t, err)
	assert.Equal(t, model.ResultWin, out.Result)
	assert.True(t, out.Payout.Equal(d("200")), "payout = %s", out.Payout)
	assert.Equal(t, "888", out.Meta["suffix"])

	// 只匹配低倍那条
	out, err = s.evaluate(d("10"), "x788", model.VariantLottery3)
	require.NoError(t, err)
	assert.Equal(t, model.ResultWin, out.Result)
	assert.True(t, out.Payout.Equal(d("30")))

	// 一条都不匹配
	out, err = s.evaluate(d("10"), "x123", model.VariantLottery3)
	require.NoError(t, err)
	assert.Equal(t, model.ResultLose, out.Result)
}

// 当天没配头奖号码时头奖必不命中，边奖照常开
func TestLotteryNoJackpotConfigured(t *testing.T) {
	s := &lotteryStrategy{
		settings: &fakeSettings{values: map[string]string{}},
		jackpots: &fakeJackpots{numbers: map[string]string{}},
		now:      fixedDay("2026-08-29"),
	}
	out, err := s.evaluate(d("10"), "x7", model.VariantLottery1)
	require.NoError(t, err)
	assert.Equal(t, model.ResultLose, out.Result)
}

// 同样输入同样配置，结果必然一致 (评估是纯函数)
func TestEvaluateDeterministic(t *testing.T) {
	e := newTestEngine(nil)
	first, err := e.Evaluate(d("10"), "pay123", model.VariantEven)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := e.Evaluate(d("10"), "pay123", model.VariantEven)
		require.NoError(t, err)
		assert.Equal(t, first.Result, again.Result)
		assert.True(t, first.Payout.Equal(again.Payout))
	}
}

// 赔付在持久化精度 (6 位小数) 上向下取整
func TestPayoutRounding(t *testing.T) {
	e := newTestEngine(map[string]string{"game.oddeven.multiplier": "1.9999999"})
	out, err := e.Evaluate(d("10"), "pay123", model.VariantEven)
	require.NoError(t, err)
	// 10 × 1.9999999 = 19.999999 (截断到 6 位)
	assert.True(t, out.Payout.Equal(d("19.999999")), "payout = %s", out.Payout)
}
