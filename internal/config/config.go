// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Share    ShareConfig    `mapstructure:"share"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers            string `mapstructure:"brokers"`
	EventsTopic        string `mapstructure:"events_topic"`
	NotificationsTopic string `mapstructure:"notifications_topic"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// ShareConfig 存储文件分享核心的业务配置。
type ShareConfig struct {
	// BaseURL 是对外分享链接的源，例如 https://share.example.com
	BaseURL string `mapstructure:"base_url"`
	// SlugLength 是分享标识符的长度
	SlugLength int `mapstructure:"slug_length"`
	// RetentionDays 是文件保留天数，到期后不再可下载
	RetentionDays int `mapstructure:"retention_days"`
	// MaxFileSizeBytes 是单文件大小上限
	MaxFileSizeBytes int64 `mapstructure:"max_file_size_bytes"`
	// Backend 选择记录存储后端："mysql" 或 "memory"
	Backend string `mapstructure:"backend"`
}

// CleanupConfig 存储过期清理任务的配置。
type CleanupConfig struct {
	// IntervalMinutes 是后台清理任务的执行间隔（分钟），0 表示不启动
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	Conf.Share.ApplyDefaults()
}

// ApplyDefaults 为缺省的分享核心配置填充默认值。
func (c *ShareConfig) ApplyDefaults() {
	if c.SlugLength <= 0 {
		c.SlugLength = 12
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 7
	}
	if c.MaxFileSizeBytes <= 0 {
		c.MaxFileSizeBytes = 100 * 1024 * 1024
	}
	if c.Backend == "" {
		c.Backend = "memory"
	}
}
