package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config 只承载基础设施配置 (连接串/端口/Broker)。
// 业务参数 (赔率/下注范围/开关) 走 settings 表，运营可热改，见 internal/settings。
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Core    CoreConfig    `mapstructure:"core"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	MetricsPort string `mapstructure:"metrics_port"`
	Concurrency int    `mapstructure:"concurrency"` // worker 并发数
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type GatewayConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // 单次请求超时，防止单账号拖垮整轮扫描
	RecvWindow     int    `mapstructure:"recv_window"`
}

type CoreConfig struct {
	Currency string `mapstructure:"currency"` // 结算币种 (e.g. USDT)
	Network  string `mapstructure:"network"`  // 出金链网络 (e.g. BSC)
}

var Global Config

func Init() {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// 环境变量设置
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.metrics_port", "9100")
	viper.SetDefault("app.concurrency", 10)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "settler_user")
	viper.SetDefault("db.password", "settler_password")
	viper.SetDefault("db.name", "settler_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("gateway.base_url", "https://api.binance.com")
	viper.SetDefault("gateway.timeout_seconds", 10)
	viper.SetDefault("gateway.recv_window", 5000)

	viper.SetDefault("core.currency", "USDT")
	viper.SetDefault("core.network", "BSC")
}
