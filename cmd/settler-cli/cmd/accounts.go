package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pumbaabetiverse/sendswin-core/internal/gateway"
	"github.com/pumbaabetiverse/sendswin-core/internal/service"
	"github.com/pumbaabetiverse/sendswin-core/pkg/config"
	"github.com/pumbaabetiverse/sendswin-core/pkg/database"
	"github.com/pumbaabetiverse/sendswin-core/pkg/utils/lock"
)

// accountsSyncCmd 代表 accounts sync 命令
var accountsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "同步所有活跃收款账户余额",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("连接数据库失败: %w", err)
		}
		rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
		if err != nil {
			return fmt.Errorf("连接 Redis 失败: %w", err)
		}

		api := gateway.NewClient(
			config.Global.Gateway.BaseURL,
			time.Duration(config.Global.Gateway.TimeoutSeconds)*time.Second,
			config.Global.Gateway.RecvWindow,
		)
		accounts := service.NewAccountService(db, api, lock.NewRedisLock(rdb), config.Global.Core.Currency)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		accounts.SyncAllBalances(ctx)

		fmt.Println("余额同步完成")
		return nil
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "收款账户运维操作",
}

func init() {
	accountsCmd.AddCommand(accountsSyncCmd)
	rootCmd.AddCommand(accountsCmd)
}
