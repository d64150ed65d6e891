package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm/clause"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

var jackpotDay string

// jackpotCmd 代表 jackpot 命令
var jackpotCmd = &cobra.Command{
	Use:   "jackpot <number>",
	Short: "录入每日 jackpot 开奖号码",
	Long: `录入指定日期 (UTC) 的 jackpot 号码。同一天重复录入会覆盖旧号码。
不传 --day 时默认今天 (UTC)。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number := args[0]
		day := jackpotDay
		if day == "" {
			day = time.Now().UTC().Format("2006-01-02")
		}
		if _, err := time.Parse("2006-01-02", day); err != nil {
			return fmt.Errorf("日期格式应为 YYYY-MM-DD: %w", err)
		}

		db, err := openDB()
		if err != nil {
			return fmt.Errorf("连接数据库失败: %w", err)
		}

		jackpot := model.LotteryJackpot{Day: day, Number: number}
		err = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{"number"}),
		}).Create(&jackpot).Error
		if err != nil {
			return fmt.Errorf("写入失败: %w", err)
		}

		fmt.Printf("jackpot 已录入: %s -> %s\n", day, number)
		return nil
	},
}

func init() {
	jackpotCmd.Flags().StringVar(&jackpotDay, "day", "", "开奖日期 (UTC, YYYY-MM-DD)，默认今天")
	rootCmd.AddCommand(jackpotCmd)
}
