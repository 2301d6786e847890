package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Identity IdentityConfig `mapstructure:"identity"`
	Email    EmailConfig    `mapstructure:"email"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Events   EventsConfig   `mapstructure:"events"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    string `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
	BaseURL string `mapstructure:"base_url"`
	// 写接口每用户每分钟请求上限，<=0 表示不限流
	WriteRateLimit int `mapstructure:"write_rate_limit"`
}

// DatabaseConfig 数据库配置
// driver: mysql | postgres | sqlite
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
	SSLMode  string `mapstructure:"sslmode"`
	// sqlite 文件路径
	Path string `mapstructure:"path"`
	// postgres 下聚合表的刷新函数名，留空则不调用
	RefreshFunction string `mapstructure:"refresh_function"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	ExpireHours int           `mapstructure:"expire_hours"`
	ExpireTime  time.Duration `mapstructure:"-"`
}

// IdentityConfig 外部身份提供方（OAuth2 授权码模式）
type IdentityConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	AuthURL      string   `mapstructure:"auth_url"`
	TokenURL     string   `mapstructure:"token_url"`
	UserInfoURL  string   `mapstructure:"userinfo_url"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// EmailConfig 邮件配置
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// ForecastConfig 预测服务配置
type ForecastConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	BaseDelayMS    int    `mapstructure:"base_delay_ms"`
	// 健康探测间隔，<=0 表示不探测
	HealthCheckIntervalMinutes int `mapstructure:"health_check_interval_minutes"`
}

// CacheConfig 看板缓存配置
// driver: memory | redis
type CacheConfig struct {
	Driver        string `mapstructure:"driver"`
	TTLSeconds    int    `mapstructure:"ttl_seconds"`
	MaxEntries    int    `mapstructure:"max_entries"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// EventsConfig 领域事件（AMQP）配置，amqp_url 为空则不发布
type EventsConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
}

// TTL 缓存过期时间
func (c CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
)

// LoadConfig 加载配置
// 优先级: 环境变量 > 外部配置文件 > 嵌入的默认配置
// configPath: 可选的外部配置文件路径
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 首先加载嵌入的默认配置
	if err := v.ReadConfig(bytes.NewReader(DefaultConfigYAML)); err != nil {
		return nil, fmt.Errorf("读取内置配置失败: %w", err)
	}
	log.Info().Msg("已加载内置默认配置")

	// 2. 尝试加载外部配置文件（可选，用于覆盖默认配置）
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			log.Warn().Err(err).Str("path", configPath).Msg("无法读取指定配置文件")
		} else {
			log.Info().Str("path", configPath).Msg("已合并外部配置文件")
		}
	} else {
		externalViper := viper.New()
		externalViper.SetConfigName("config")
		externalViper.SetConfigType("yaml")
		externalViper.AddConfigPath(".")
		externalViper.AddConfigPath("./config")
		externalViper.AddConfigPath("/etc/jars")
		externalViper.AddConfigPath("$HOME/.jars")

		if err := externalViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(externalViper.AllSettings()); err != nil {
				log.Warn().Err(err).Msg("合并外部配置失败")
			} else {
				log.Info().Str("path", externalViper.ConfigFileUsed()).Msg("已合并外部配置文件")
			}
		}
	}

	// 3. 环境变量覆盖，如 JARS_DATABASE_HOST
	v.SetEnvPrefix("JARS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if cfg.JWT.ExpireHours <= 0 {
		cfg.JWT.ExpireHours = 24
	}
	cfg.JWT.ExpireTime = time.Duration(cfg.JWT.ExpireHours) * time.Hour

	GlobalConfig = &cfg

	return &cfg, nil
}

// MustLoadConfig 加载配置，失败则 panic
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}
	return cfg
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return GlobalConfig
}

// PrintConfig 打印当前配置（隐藏敏感信息）
func PrintConfig() {
	if GlobalConfig == nil {
		return
	}
	log.Info().
		Str("port", GlobalConfig.Server.Port).
		Str("mode", GlobalConfig.Server.Mode).
		Msg("服务器")
	log.Info().
		Str("driver", GlobalConfig.Database.Driver).
		Str("dsn", fmt.Sprintf("%s@%s:%s/%s",
			GlobalConfig.Database.Username,
			GlobalConfig.Database.Host,
			GlobalConfig.Database.Port,
			GlobalConfig.Database.DBName)).
		Msg("数据库")
	log.Info().
		Str("cache", GlobalConfig.Cache.Driver).
		Bool("email", GlobalConfig.Email.Enabled).
		Bool("events", GlobalConfig.Events.AMQPURL != "").
		Bool("forecast", GlobalConfig.Forecast.Endpoint != "").
		Msg("外部服务")
}
