package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pumbaabetiverse/sendswin-core/pkg/config"
	"github.com/pumbaabetiverse/sendswin-core/pkg/database"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
	"github.com/pumbaabetiverse/sendswin-core/pkg/monitor"
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "settler-cli",
	Short: "结算核心运维命令行工具",
	Long: `结算核心的运维入口。
支持表结构迁移、每日 jackpot 号码录入、业务参数热改以及账户余额同步。`,
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// openDB 复用服务端的配置加载和连接逻辑
func openDB() (*gorm.DB, error) {
	config.Init()
	logger.Init(config.Global.App.Env)
	// cli 不开 /metrics 端口，但共用的服务代码会打点 (比如余额同步失败计数)，
	// 全局指标不初始化的话网关一出错就是空指针
	monitor.Init()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		config.Global.DB.Host,
		config.Global.DB.User,
		config.Global.DB.Password,
		config.Global.DB.Name,
		config.Global.DB.Port,
	)
	return database.ConnectPostgres(dsn)
}
