package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

func TestPickRandom(t *testing.T) {
	assert.Nil(t, pickRandom(nil))
	assert.Nil(t, pickRandom([]model.CollectionAccount{}))

	single := []model.CollectionAccount{{ID: 1}}
	assert.Equal(t, uint64(1), pickRandom(single).ID)

	// 多账号时取值必须落在集合内
	many := []model.CollectionAccount{{ID: 1}, {ID: 2}, {ID: 3}}
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		got := pickRandom(many)
		assert.Contains(t, []uint64{1, 2, 3}, got.ID)
		seen[got.ID] = true
	}
	// 100 次抽样下三个账号都应出现过 (均匀性冒烟检查)
	assert.Len(t, seen, 3)
}
