package settings

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// Store 业务参数存储。
// 赔率/下注范围/玩法开关都从这里现读，运营改库立即生效，不需要重新发布。
// 带一个很短的进程内缓存 + Set 时写穿失效，避免每次评估都打一次 DB 却又不牺牲热改语义。
type Store struct {
	db  *gorm.DB
	ttl time.Duration

	mu    sync.RWMutex
	cache map[string]cached
}

type cached struct {
	value    string
	ok       bool // key 是否存在 (不存在也缓存，防穿透)
	expireAt time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:    db,
		ttl:   2 * time.Second,
		cache: make(map[string]cached),
	}
}

// Get 读取字符串参数，缺失时返回默认值
func (s *Store) Get(key, def string) string {
	if v, ok, hit := s.fromCache(key); hit {
		if !ok {
			return def
		}
		return v
	}

	var row model.Setting
	err := s.db.Where("key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.put(key, "", false)
		}
		// DB 故障按缺失处理，走默认值，不中断评估
		return def
	}

	s.put(key, row.Value, true)
	return row.Value
}

// GetFloat 读取浮点参数
func (s *Store) GetFloat(key string, def float64) float64 {
	raw := s.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// GetInt 读取整型参数
func (s *Store) GetInt(key string, def int) int {
	raw := s.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// GetDecimal 读取金额/倍率参数
func (s *Store) GetDecimal(key string, def decimal.Decimal) decimal.Decimal {
	raw := s.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return def
	}
	return v
}

// GetBool 读取开关参数 ("1"/"true" 为开)
func (s *Store) GetBool(key string, def bool) bool {
	raw := s.Get(key, "")
	switch raw {
	case "":
		return def
	case "1", "true", "on":
		return true
	default:
		return false
	}
}

// Set 写入参数并写穿缓存 (单进程 read-after-write 一致)
func (s *Store) Set(key, value string) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value, "updated_at": time.Now()}),
	}).Create(&model.Setting{Key: key, Value: value}).Error
	if err != nil {
		return err
	}
	s.put(key, value, true)
	return nil
}

func (s *Store) fromCache(key string) (string, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, hit := s.cache[key]
	if !hit || time.Now().After(c.expireAt) {
		return "", false, false
	}
	return c.value, c.ok, true
}

func (s *Store) put(key, value string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cached{value: value, ok: ok, expireAt: time.Now().Add(s.ttl)}
}
