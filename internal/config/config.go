package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Market   MarketConfig   `mapstructure:"market"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// GameConfig 游戏配置
type GameConfig struct {
	DemoInitialBalance float64       `mapstructure:"demo_initial_balance"` // 演示钱包初始余额
	MinBetAmount       float64       `mapstructure:"min_bet_amount"`
	MaxBetAmount       float64       `mapstructure:"max_bet_amount"`
	MinLiveBetAmount   float64       `mapstructure:"min_live_bet_amount"` // 实盘模式最低下注
	MinHoldTimeSeconds int           `mapstructure:"min_hold_time_seconds"`
	MaxHoldTimeSeconds int           `mapstructure:"max_hold_time_seconds"`
	DefaultHoldSeconds int           `mapstructure:"default_hold_seconds"`
	SpinAnimationDelay time.Duration `mapstructure:"spin_animation_delay"` // 转轮动画时长（纯展示）
}

// MarketConfig 预测市场配置
type MarketConfig struct {
	Mode           string        `mapstructure:"mode"` // demo, live
	CLOBBaseURL    string        `mapstructure:"clob_base_url"`
	WSURL          string        `mapstructure:"ws_url"`
	MarketID       string        `mapstructure:"market_id"`
	UpTokenID      string        `mapstructure:"up_token_id"`
	DownTokenID    string        `mapstructure:"down_token_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"` // json, console
	Output string        `mapstructure:"output"` // stdout, file, both
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./config")
			v.AddConfigPath(".")
		}

		// 设置环境变量前缀
		v.SetEnvPrefix("CASINO_SLOT")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		// 设置默认值
		setDefaults(v)

		// 读取配置文件
		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		// 解析配置到结构体
		cfg = &Config{}
		if err = v.Unmarshal(cfg); err != nil {
			return
		}

		err = Validate(cfg)
	})

	return err
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/casino-slot.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// 游戏默认配置
	v.SetDefault("game.demo_initial_balance", 1000.0)
	v.SetDefault("game.min_bet_amount", 1.0)
	v.SetDefault("game.max_bet_amount", 500.0)
	v.SetDefault("game.min_live_bet_amount", 5.0)
	v.SetDefault("game.min_hold_time_seconds", 5)
	v.SetDefault("game.max_hold_time_seconds", 300)
	v.SetDefault("game.default_hold_seconds", 30)
	v.SetDefault("game.spin_animation_delay", "2s")

	// 市场默认配置
	v.SetDefault("market.mode", "demo")
	v.SetDefault("market.clob_base_url", "https://clob.polymarket.com")
	v.SetDefault("market.ws_url", "wss://ws-subscriptions-clob.polymarket.com/ws/market")
	v.SetDefault("market.request_timeout", "15s")
	v.SetDefault("market.ping_interval", "10s")

	// JWT默认配置
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "polymarket-casino-slot")
	v.SetDefault("jwt.expiration", "24h")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "casino-slot.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 10)
	v.SetDefault("log.file.compress", true)
}

// Validate 验证配置合法性
func Validate(c *Config) error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", c.Server.Port)
	}
	if c.Game.MinHoldTimeSeconds <= 0 || c.Game.MaxHoldTimeSeconds < c.Game.MinHoldTimeSeconds {
		return fmt.Errorf("无效的持仓时长区间: [%d, %d]", c.Game.MinHoldTimeSeconds, c.Game.MaxHoldTimeSeconds)
	}
	if c.Game.MinBetAmount <= 0 || c.Game.MaxBetAmount < c.Game.MinBetAmount {
		return fmt.Errorf("无效的下注金额区间: [%f, %f]", c.Game.MinBetAmount, c.Game.MaxBetAmount)
	}
	switch c.Market.Mode {
	case "demo", "live":
	default:
		return fmt.Errorf("无效的市场模式: %s", c.Market.Mode)
	}
	if c.Market.Mode == "live" && c.Market.MarketID == "" {
		return fmt.Errorf("实盘模式必须配置 market_id")
	}
	return nil
}

// Get 获取全局配置
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置变化
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err == nil && Validate(newCfg) == nil {
			cfg = newCfg
		}
		current := cfg
		mu.Unlock()

		if callback != nil {
			callback(current)
		}
	})
}
