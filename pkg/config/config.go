package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var valid = validator.New()

// DefaultServerURL 未设置 SERVER_URL 时使用的占位地址
const DefaultServerURL = "http://yourserver.com/api/monitor"

// Config 全局配置结构体（聚合所有核心模块）
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server" comment:"本地状态/指令 HTTP 服务"`
	Monitor  MonitorConfig  `yaml:"monitor" mapstructure:"monitor" comment:"采样与缓冲配置"`
	Delivery DeliveryConfig `yaml:"delivery" mapstructure:"delivery" comment:"批次投递配置"`
	Log      ZapLogConfig   `yaml:"log" mapstructure:"log" comment:"日志配置"`
}

// ServerConfig 本地 HTTP 服务配置（超时统一为time.Duration，支持"30s"解析）
type ServerConfig struct {
	Enable       bool          `yaml:"enable" mapstructure:"enable" env:"HTTP_ENABLE" comment:"是否启动本地 HTTP 服务" default:"true"`
	Addr         string        `yaml:"addr" mapstructure:"addr" env:"HTTP_ADDR" validate:"required,hostname_port" comment:"HTTP监听地址（格式：ip:port）"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" env:"HTTP_READ_TIMEOUT" validate:"required,gt=0" comment:"读取超时时间（如30s）"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" env:"HTTP_WRITE_TIMEOUT" validate:"required,gt=0" comment:"写入超时时间（如30s）"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" validate:"required,gt=0" comment:"空闲连接超时时间（如60s）"`
}

// MonitorConfig 采样循环配置，运行期间不可修改
type MonitorConfig struct {
	Interval   time.Duration   `yaml:"interval" mapstructure:"interval" env:"MONITOR_INTERVAL" validate:"required,gt=0" comment:"采样间隔（如60s）" default:"60s"`
	BatchSize  int             `yaml:"batch_size" mapstructure:"batch_size" env:"MONITOR_BATCH_SIZE" validate:"required,gt=0,lte=10000" comment:"每批快照数量" default:"30"`
	Collectors CollectorConfig `yaml:"collectors" mapstructure:"collectors" comment:"快照可选内容"`
}

// CollectorConfig 快照中可选部分的开关
type CollectorConfig struct {
	Processes ProcessCollectorConfig `yaml:"processes" mapstructure:"processes"`
	Network   NetworkCollectorConfig `yaml:"network" mapstructure:"network"`
}

type ProcessCollectorConfig struct {
	Enable bool `yaml:"enable" mapstructure:"enable" env:"COLLECTOR_PROCESSES_ENABLE" comment:"是否采集进程列表" default:"true"`
}

// NetworkCollectorConfig 网卡计数器采集
type NetworkCollectorConfig struct {
	Enable         bool     `yaml:"enable" mapstructure:"enable" env:"COLLECTOR_NETWORK_ENABLE" comment:"是否采集网卡收发计数" default:"true"`
	IgnoreNetworks []string `yaml:"ignore_networks" mapstructure:"ignore_networks" env:"COLLECTOR_NETWORK_IGNORE" comment:"忽略的网络接口列表（如lo）" default:"[]"`
}

// DeliveryConfig 远端 collector 投递配置
type DeliveryConfig struct {
	ServerURL string        `yaml:"server_url" mapstructure:"server_url" env:"SERVER_URL" validate:"required,url" comment:"远端 collector 地址"`
	Compress  bool          `yaml:"compress" mapstructure:"compress" env:"DELIVERY_COMPRESS" comment:"是否 gzip 压缩报文" default:"true"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout" env:"DELIVERY_TIMEOUT" validate:"required,gt=0" comment:"单次投递超时" default:"30s"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent" env:"DELIVERY_USER_AGENT" comment:"User-Agent 请求头" default:"perf-monitor"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Enable    bool   `yaml:"enable" mapstructure:"enable" env:"LOGGING" comment:"是否输出日志" default:"false"`
	Level     string `yaml:"level" mapstructure:"level" env:"LOG_LEVEL" validate:"required,oneof=debug info warn error" comment:"日志级别" default:"info"`
	Format    string `yaml:"format" mapstructure:"format" env:"LOG_FORMAT" validate:"required,oneof=json console" comment:"控制台日志格式（json/console）" default:"console"`
	Path      string `yaml:"path" mapstructure:"path" env:"LOG_PATH" validate:"required" comment:"日志存储路径" default:"./logs"`
	MaxBackup int    `yaml:"max_backup" mapstructure:"max_backup" env:"LOG_MAX_BACKUP" validate:"gte=0" comment:"日志文件最大备份数（max_age 为 0 时生效）" default:"30"`
	MaxAge    int    `yaml:"max_age" mapstructure:"max_age" env:"LOG_MAX_AGE" validate:"gte=0" comment:"日志文件最大保存天数" default:"7"`
}

// NewDefaultConfig 创建默认配置（所有字段兜底，避免空指针/非法值）
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Enable:       true,
			Addr:         "127.0.0.1:9108",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  15 * time.Second,
		},
		Monitor: MonitorConfig{
			Interval:  60 * time.Second,
			BatchSize: 30,
			Collectors: CollectorConfig{
				Processes: ProcessCollectorConfig{Enable: true},
				Network: NetworkCollectorConfig{
					Enable:         true,
					IgnoreNetworks: []string{},
				},
			},
		},
		Delivery: DeliveryConfig{
			ServerURL: DefaultServerURL,
			Compress:  true,
			Timeout:   30 * time.Second,
			UserAgent: "perf-monitor",
		},
		Log: ZapLogConfig{
			Enable:    false,
			Level:     "info",
			Format:    "console",
			Path:      "./logs",
			MaxBackup: 30,
			MaxAge:    7,
		},
	}
}

// envBindings 沿用原有环境变量名的配置项
var envBindings = map[string]string{
	"delivery.server_url": "SERVER_URL",
	"log.enable":          "LOGGING",
}

// LoadConfigWithCli 支持 time.Duration，(Flags + YAML + .env + ENV)
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	cfg := NewDefaultConfig()
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 解析配置文件 (--config)，未显式指定且默认文件不存在时跳过
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		_, statErr := os.Stat(configFile)
		if statErr == nil || cmd.Flags().Changed("config") {
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file %s: %w", configFile, err)
			}
		}
	}

	// 3. .env 文件（不存在时忽略），不覆盖已有环境变量
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	// 4. 绑定环境变量 ENV -> Viper （MONITOR_BATCH_SIZE -> monitor.batch_size）
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	// 5. 解码反序列化到结构体（支持 time.Duration）
	decoderConfig := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// 6. 校验配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	// 	1,校验Server服务配置
	if err := c.Server.Validate(); err != nil {
		return err
	}
	// 	2，校验采集配置
	if err := c.Monitor.Validate(); err != nil {
		return err
	}
	// 	3，校验投递配置
	if err := c.Delivery.Validate(); err != nil {
		return err
	}
	// 	4，校验日志配置
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}
