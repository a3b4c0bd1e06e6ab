package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker          string
	ClientID        string // 为空时自动生成（talktail-bridge-<uuid前8位>）
	Username        string
	Password        string
	QoS             byte
	ReconnectPeriod time.Duration
	ConnectTimeout  time.Duration
}

// Config 遥测桥接服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 桥接服务特定配置
	Bridge struct {
		// 启动时自动订阅的 Hub 列表（逗号分隔的 MAC 地址）
		// 运行期间可通过 SubscribeHub 动态增加，不会缩减
		HubIDs []string

		// 遥测数据转发的 Redis Streams 名称
		TelemetryStream string

		// 每个设备最近一条采样的缓存 key 前缀与 TTL（秒）
		LatestKeyPrefix string
		LatestTTL       int
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（带默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "talktail")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	// Hub 固件按至少一次投递设计，重连周期 5 秒、连接超时 10 秒
	cfg.MQTT.ReconnectPeriod = time.Duration(getEnvInt("MQTT_RECONNECT_PERIOD", 5)) * time.Second
	cfg.MQTT.ConnectTimeout = time.Duration(getEnvInt("MQTT_CONNECT_TIMEOUT", 10)) * time.Second

	// 桥接配置
	cfg.Bridge.HubIDs = splitList(getEnv("BRIDGE_HUB_IDS", ""))
	cfg.Bridge.TelemetryStream = getEnv("BRIDGE_TELEMETRY_STREAM", "hub:telemetry:stream")
	cfg.Bridge.LatestKeyPrefix = getEnv("BRIDGE_LATEST_KEY_PREFIX", "talktail:device:")
	cfg.Bridge.LatestTTL = getEnvInt("BRIDGE_LATEST_TTL", 300)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

// splitList 解析逗号分隔的列表，忽略空项
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
