package outcome

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// DBJackpotSource 从库里读头奖号码与边奖表
type DBJackpotSource struct {
	db *gorm.DB
}

func NewDBJackpotSource(db *gorm.DB) *DBJackpotSource {
	return &DBJackpotSource{db: db}
}

func (s *DBJackpotSource) JackpotNumber(day string) (string, bool, error) {
	var row model.LotteryJackpot
	err := s.db.Where("day = ?", day).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Number, true, nil
}

func (s *DBJackpotSource) Prizes() ([]Prize, error) {
	var rows []model.LotteryPrize
	if err := s.db.Order("multiplier DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	prizes := make([]Prize, 0, len(rows))
	for _, r := range rows {
		prizes = append(prizes, Prize{Suffix: r.Suffix, Multiplier: r.Multiplier})
	}
	return prizes, nil
}
