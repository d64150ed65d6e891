package settings

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// cacheStore 不连库: 直接往进程内缓存塞值，专测类型化访问器
func cacheStore(values map[string]string) *Store {
	s := &Store{
		ttl:   time.Minute,
		cache: make(map[string]cached),
	}
	for k, v := range values {
		s.put(k, v, true)
	}
	return s
}

func TestTypedAccessors(t *testing.T) {
	s := cacheStore(map[string]string{
		"game.oddeven.multiplier": "1.95",
		"game.oddeven.enabled":    "true",
		"game.lucky.enabled":      "0",
		"fetch.limit":             "20",
		"bad.float":               "not-a-number",
	})

	assert.Equal(t, 1.95, s.GetFloat("game.oddeven.multiplier", 0))
	assert.True(t, s.GetDecimal("game.oddeven.multiplier", decimal.Zero).Equal(decimal.NewFromFloat(1.95)))
	assert.Equal(t, 20, s.GetInt("fetch.limit", 0))
	assert.True(t, s.GetBool("game.oddeven.enabled", false))
	assert.False(t, s.GetBool("game.lucky.enabled", true))

	// 解析失败回退默认值
	assert.Equal(t, 9.9, s.GetFloat("bad.float", 9.9))
	assert.Equal(t, 7, s.GetInt("bad.float", 7))
	assert.True(t, s.GetDecimal("bad.float", decimal.NewFromInt(3)).Equal(decimal.NewFromInt(3)))
}

func TestNegativeCaching(t *testing.T) {
	s := cacheStore(nil)
	// 不存在的 key 也进缓存 (ok=false)，命中后直接走默认值
	s.put("missing.key", "", false)

	assert.Equal(t, "def", s.Get("missing.key", "def"))
	assert.Equal(t, 42, s.GetInt("missing.key", 42))
	assert.True(t, s.GetBool("missing.key", true))
}

func TestCacheExpiry(t *testing.T) {
	s := cacheStore(nil)
	s.ttl = -time.Second // 立即过期
	s.put("k", "v", true)

	_, _, hit := s.fromCache("k")
	assert.False(t, hit, "过期条目不应命中")
}

// Set 写穿缓存，read-after-write 看到新值 — 此处只验证缓存侧
func TestWriteThrough(t *testing.T) {
	s := cacheStore(map[string]string{"game.lucky.multiplier": "5"})
	s.put("game.lucky.multiplier", "6", true)

	assert.Equal(t, "6", s.Get("game.lucky.multiplier", ""))
}
