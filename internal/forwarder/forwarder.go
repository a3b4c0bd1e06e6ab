// Package forwarder 消费桥接层的事件流：遥测转发到 Redis Streams 并
// 缓存每个设备的最近采样，Hub 状态事件写入 Hub 注册表。
package forwarder

import (
	"context"
	"encoding/json"
	"time"

	"talktail-bridge/internal/bridge"
	"talktail-bridge/internal/config"
	"talktail-bridge/internal/models"
	"talktail-bridge/internal/redisx"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// HubRegistry Hub 注册表的写入接口（由 repository.HubRepository 实现）
type HubRegistry interface {
	MarkHubReady(hubID string, readyAt time.Time) error
	ReplaceConnectedDevices(hubID string, devices []string) error
}

// Forwarder 桥接事件转发器
type Forwarder struct {
	config      *config.Config
	redisClient *redis.Client
	kv          KVStore
	registry    HubRegistry
	logger      *zap.Logger

	unsubs []func()
}

// New 创建事件转发器
func New(
	cfg *config.Config,
	redisClient *redis.Client,
	kv KVStore,
	registry HubRegistry,
	logger *zap.Logger,
) *Forwarder {
	return &Forwarder{
		config:      cfg,
		redisClient: redisClient,
		kv:          kv,
		registry:    registry,
		logger:      logger,
	}
}

// Start 在桥接器上注册事件处理函数
func (f *Forwarder) Start(b *bridge.Bridge) {
	f.unsubs = append(f.unsubs,
		b.On(bridge.EventTelemetry, f.handleTelemetry),
		b.On(bridge.EventMQTTReady, f.handleReady),
		b.On(bridge.EventConnectedDevices, f.handleConnectedDevices),
		b.On(bridge.EventError, f.handleError),
	)

	f.logger.Info("Event forwarder started",
		zap.String("stream", f.config.Bridge.TelemetryStream),
	)
}

// Stop 取消全部事件注册
func (f *Forwarder) Stop() {
	for _, unsub := range f.unsubs {
		unsub()
	}
	f.unsubs = nil

	f.logger.Info("Event forwarder stopped")
}

// handleTelemetry 遥测事件：发布到 Redis Streams 并更新最近采样缓存
func (f *Forwarder) handleTelemetry(payload interface{}) {
	ev, ok := payload.(*models.TelemetryEvent)
	if !ok {
		return
	}
	ctx := context.Background()

	streamID, err := redisx.PublishJSONToStream(ctx, f.redisClient, f.config.Bridge.TelemetryStream, ev)
	if err != nil {
		f.logger.Error("Failed to publish telemetry to Redis Streams",
			zap.String("stream", f.config.Bridge.TelemetryStream),
			zap.String("device_id", ev.DeviceID),
			zap.Error(err),
		)
		return
	}

	// 最近采样缓存（TTL 到期自动失效，遥测不做持久存储）
	jsonBytes, err := json.Marshal(ev)
	if err != nil {
		f.logger.Error("Failed to marshal telemetry event", zap.Error(err))
		return
	}
	ttl := time.Duration(f.config.Bridge.LatestTTL) * time.Second
	if err := f.kv.Set(ctx, f.latestKey(ev.DeviceID), string(jsonBytes), ttl); err != nil {
		f.logger.Error("Failed to cache latest sample",
			zap.String("device_id", ev.DeviceID),
			zap.Error(err),
		)
	}

	f.logger.Debug("Forwarded telemetry",
		zap.String("hub_id", ev.HubID),
		zap.String("device_id", ev.DeviceID),
		zap.String("stream_id", streamID),
	)
}

// handleReady 就绪事件：更新 Hub 注册表
func (f *Forwarder) handleReady(payload interface{}) {
	ev, ok := payload.(*models.ReadyEvent)
	if !ok {
		return
	}

	readyAt, err := time.Parse(time.RFC3339, ev.Timestamp)
	if err != nil {
		readyAt = time.Now()
	}

	if err := f.registry.MarkHubReady(ev.HubID, readyAt); err != nil {
		f.logger.Error("Failed to mark hub ready",
			zap.String("hub_id", ev.HubID),
			zap.Error(err),
		)
		return
	}

	f.logger.Info("Hub reported ready",
		zap.String("hub_id", ev.HubID),
	)
}

// handleConnectedDevices 设备列表事件：整体替换注册表中的快照
func (f *Forwarder) handleConnectedDevices(payload interface{}) {
	ev, ok := payload.(*models.ConnectedDevicesEvent)
	if !ok {
		return
	}

	if err := f.registry.ReplaceConnectedDevices(ev.HubAddress, ev.ConnectedDevices); err != nil {
		f.logger.Error("Failed to replace hub device snapshot",
			zap.String("hub_id", ev.HubAddress),
			zap.Error(err),
		)
		return
	}

	f.logger.Info("Hub device snapshot updated",
		zap.String("hub_id", ev.HubAddress),
		zap.Int("device_count", len(ev.ConnectedDevices)),
	)
}

// handleError 传输层错误：记录日志，用户可见提示由上层负责
func (f *Forwarder) handleError(payload interface{}) {
	err, ok := payload.(error)
	if !ok {
		f.logger.Error("Bridge reported error", zap.Any("payload", payload))
		return
	}
	f.logger.Error("Bridge reported error", zap.Error(err))
}

// LatestSample 读取设备的最近一条采样（缓存未命中返回 ErrCacheMiss）
func (f *Forwarder) LatestSample(ctx context.Context, deviceID string) (*models.TelemetryEvent, error) {
	raw, err := f.kv.Get(ctx, f.latestKey(deviceID))
	if err != nil {
		return nil, err
	}

	var ev models.TelemetryEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (f *Forwarder) latestKey(deviceID string) string {
	return f.config.Bridge.LatestKeyPrefix + deviceID + ":latest"
}
