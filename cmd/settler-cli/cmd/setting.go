package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pumbaabetiverse/sendswin-core/internal/settings"
)

// settingCmd 代表 setting 命令
var settingCmd = &cobra.Command{
	Use:   "setting <key> <value>",
	Short: "写入/覆盖一个业务参数",
	Long: `热改业务参数，结算侧下一次评估即生效 (进程内缓存 TTL 2s)。
常用 key:
  game.<group>.enabled          玩法开关 (true/false)
  game.<group>.min_bet          最小注额
  game.<group>.max_bet          最大注额
  game.<group>.multiplier       赔率
  game.lucky.multiplier         lucky 玩法赔率
  game.lottery.jackpot_multiplier.<k>   k 位尾号命中倍数`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("连接数据库失败: %w", err)
		}

		store := settings.NewStore(db)
		if err := store.Set(args[0], args[1]); err != nil {
			return fmt.Errorf("写入失败: %w", err)
		}

		fmt.Printf("参数已写入: %s = %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingCmd)
}
