package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 检查默认值
	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected DB_HOST default 'localhost', got '%s'", cfg.Database.Host)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Expected DB_PORT default 5432, got %d", cfg.Database.Port)
	}

	if cfg.Database.Database != "talktail" {
		t.Errorf("Expected DB_NAME default 'talktail', got '%s'", cfg.Database.Database)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected REDIS_ADDR default 'localhost:6379', got '%s'", cfg.Redis.Addr)
	}

	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("Expected MQTT_BROKER default 'tcp://localhost:1883', got '%s'", cfg.MQTT.Broker)
	}

	if cfg.MQTT.QoS != 1 {
		t.Errorf("Expected MQTT_QOS default 1, got %d", cfg.MQTT.QoS)
	}

	if cfg.MQTT.ReconnectPeriod != 5*time.Second {
		t.Errorf("Expected reconnect period default 5s, got %v", cfg.MQTT.ReconnectPeriod)
	}

	if cfg.MQTT.ConnectTimeout != 10*time.Second {
		t.Errorf("Expected connect timeout default 10s, got %v", cfg.MQTT.ConnectTimeout)
	}

	if len(cfg.Bridge.HubIDs) != 0 {
		t.Errorf("Expected empty BRIDGE_HUB_IDS, got %v", cfg.Bridge.HubIDs)
	}

	if cfg.Bridge.TelemetryStream != "hub:telemetry:stream" {
		t.Errorf("Expected BRIDGE_TELEMETRY_STREAM default 'hub:telemetry:stream', got '%s'", cfg.Bridge.TelemetryStream)
	}

	if cfg.Bridge.LatestTTL != 300 {
		t.Errorf("Expected BRIDGE_LATEST_TTL default 300, got %d", cfg.Bridge.LatestTTL)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("MQTT_BROKER", "tcp://broker.example.com:1883")
	os.Setenv("MQTT_CLIENT_ID", "test-client")
	os.Setenv("MQTT_QOS", "2")
	os.Setenv("BRIDGE_HUB_IDS", "aa:bb:cc:dd:ee:ff, 11:22:33:44:55:66")
	os.Setenv("BRIDGE_TELEMETRY_STREAM", "test:stream")
	os.Setenv("LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("MQTT_BROKER")
		os.Unsetenv("MQTT_CLIENT_ID")
		os.Unsetenv("MQTT_QOS")
		os.Unsetenv("BRIDGE_HUB_IDS")
		os.Unsetenv("BRIDGE_TELEMETRY_STREAM")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 检查环境变量值
	if cfg.MQTT.Broker != "tcp://broker.example.com:1883" {
		t.Errorf("Expected MQTT_BROKER 'tcp://broker.example.com:1883', got '%s'", cfg.MQTT.Broker)
	}

	if cfg.MQTT.ClientID != "test-client" {
		t.Errorf("Expected MQTT_CLIENT_ID 'test-client', got '%s'", cfg.MQTT.ClientID)
	}

	if cfg.MQTT.QoS != 2 {
		t.Errorf("Expected MQTT_QOS 2, got %d", cfg.MQTT.QoS)
	}

	if len(cfg.Bridge.HubIDs) != 2 {
		t.Fatalf("Expected 2 hub ids, got %v", cfg.Bridge.HubIDs)
	}

	if cfg.Bridge.HubIDs[0] != "aa:bb:cc:dd:ee:ff" || cfg.Bridge.HubIDs[1] != "11:22:33:44:55:66" {
		t.Errorf("Unexpected hub ids: %v", cfg.Bridge.HubIDs)
	}

	if cfg.Bridge.TelemetryStream != "test:stream" {
		t.Errorf("Expected BRIDGE_TELEMETRY_STREAM 'test:stream', got '%s'", cfg.Bridge.TelemetryStream)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected LOG_LEVEL 'debug', got '%s'", cfg.Log.Level)
	}
}

func TestGetEnv(t *testing.T) {
	// 测试环境变量存在
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	value := getEnv("TEST_VAR", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	// 测试环境变量不存在，使用默认值
	value = getEnv("NON_EXISTENT_VAR", "default-value")
	if value != "default-value" {
		t.Errorf("Expected 'default-value', got '%s'", value)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList("a, b ,,c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Unexpected split result: %v", got)
	}

	if got := splitList(""); len(got) != 0 {
		t.Errorf("Expected empty result, got %v", got)
	}
}
