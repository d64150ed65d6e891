package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pumbaabetiverse/sendswin-core/internal/model"
)

// migrateCmd 代表 migrate 命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "执行数据库表结构迁移",
	Long:  `按模型定义自动建表/补列/补索引。幂等，可重复执行。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("连接数据库失败: %w", err)
		}

		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			return fmt.Errorf("迁移失败: %w", err)
		}

		fmt.Println("迁移完成")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
