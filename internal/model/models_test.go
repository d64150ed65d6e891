package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"超精度截断不四舍五入", "1.9999999", "1.999999"},
		{"恰好 6 位不变", "0.123456", "0.123456"},
		{"整数不变", "100", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, _ := decimal.NewFromString(tt.in)
			want, _ := decimal.NewFromString(tt.want)
			assert.True(t, Money(in).Equal(want), "got %s", Money(in))
		})
	}
}

func TestVariantGroup(t *testing.T) {
	assert.Equal(t, "oddeven", VariantOdd.Group())
	assert.Equal(t, "oddeven", VariantEven.Group())
	assert.Equal(t, "overunder", VariantOver.Group())
	assert.Equal(t, "overunder", VariantUnder.Group())
	assert.Equal(t, "lucky", VariantLucky.Group())
	assert.Equal(t, "lottery", VariantLottery1.Group())
	assert.Equal(t, "lottery", VariantLottery2.Group())
	assert.Equal(t, "lottery", VariantLottery3.Group())
}

func TestSourceID(t *testing.T) {
	assert.Equal(t, "oddeven_P123", SourceID("oddeven", "P123"))
	assert.Equal(t, "lottery_X", SourceID("lottery", "X"))
}

func TestPeriodID(t *testing.T) {
	// 2026-08-29 是 2026 年第 35 个 ISO 周
	ts := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 2026*54+35, PeriodID(ts))

	// 同一 ISO 周内任意时刻落在同一个桶
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, PeriodID(monday), PeriodID(sunday))

	// 跨周换桶
	nextMonday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	assert.NotEqual(t, PeriodID(monday), PeriodID(nextMonday))
}
