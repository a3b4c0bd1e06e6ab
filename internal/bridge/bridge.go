// Package bridge 持有到消息代理的唯一连接，维护 Hub 订阅集合，
// 并把固件上报的文本行解析成类型化事件发布给消费方。
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"talktail-bridge/internal/emitter"
	"talktail-bridge/internal/models"
	"talktail-bridge/internal/wire"

	"go.uber.org/zap"
)

// 对外事件名。事件名与载荷形状是 App 端沿用的契约，不可改动。
const (
	EventMQTTReady        = "MQTT_READY"
	EventConnectedDevices = "CONNECTED_DEVICES"
	EventTelemetry        = "TELEMETRY"
	EventError            = "ERROR"
)

// TelemetryType TELEMETRY 事件的固定 type 字段值
const TelemetryType = "sensor_data"

// ErrEmptyHubID SubscribeHub 收到空 Hub ID
var ErrEmptyHubID = errors.New("hub id is empty")

// Bridge 桥接连接管理器。
// 连接句柄与订阅集合只由本对象持有和修改，外部通过公开方法与事件交互。
// 订阅集合在进程生命周期内只增不减（没有取消订阅操作，是刻意的范围
// 收缩）；每次连接建立（含重连）都会整体重放订阅集合，消费方在网络
// 抖动后无需自行重订阅。
type Bridge struct {
	transport Transport
	emitter   *emitter.Emitter
	logger    *zap.Logger
	qos       byte

	// now 可注入时钟，测试中固定时间戳
	now func() time.Time

	mu            sync.Mutex
	connecting    bool
	subscriptions map[string]struct{}
}

// New 创建桥接连接管理器并挂接传输层回调
func New(transport Transport, qos byte, logger *zap.Logger) *Bridge {
	b := &Bridge{
		transport:     transport,
		emitter:       emitter.New(logger),
		logger:        logger,
		qos:           qos,
		now:           time.Now,
		subscriptions: make(map[string]struct{}),
	}
	transport.OnConnect(b.onConnected)
	transport.OnConnectionLost(b.onConnectionLost)
	return b
}

// On 注册事件处理函数，返回取消注册函数
func (b *Bridge) On(event string, h emitter.Handler) func() {
	return b.emitter.On(event, h)
}

// Connect 建立代理连接。幂等：已连接或正在连接时直接返回。
func (b *Bridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.connecting || b.transport.IsConnected() {
		b.mu.Unlock()
		return nil
	}
	b.connecting = true
	b.mu.Unlock()

	err := b.transport.Connect(ctx)

	b.mu.Lock()
	b.connecting = false
	b.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to connect bridge: %w", err)
	}
	return nil
}

// SubscribeHub 确保已连接并订阅该 Hub 的上行主题。
// 已订阅的 Hub 再次调用直接返回，不会重复发起传输层订阅。
// 订阅确认失败时错误返回给调用方，但不影响已有订阅，也不断开连接。
func (b *Bridge) SubscribeHub(ctx context.Context, hubID string) error {
	if hubID == "" {
		return ErrEmptyHubID
	}

	if err := b.Connect(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	if _, ok := b.subscriptions[hubID]; ok {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	topic := wire.TopicForHub(hubID)
	if err := b.transport.Subscribe(topic, b.qos, b.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to hub %s: %w", hubID, err)
	}

	b.mu.Lock()
	b.subscriptions[hubID] = struct{}{}
	b.mu.Unlock()

	b.logger.Info("Subscribed to hub",
		zap.String("hub_id", hubID),
		zap.String("topic", topic),
	)
	return nil
}

// SubscribedHubs 返回当前订阅集合的快照（排序后），用于日志与测试
func (b *Bridge) SubscribedHubs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	hubs := make([]string, 0, len(b.subscriptions))
	for h := range b.subscriptions {
		hubs = append(hubs, h)
	}
	sort.Strings(hubs)
	return hubs
}

// Close 断开代理连接
func (b *Bridge) Close() {
	b.transport.Disconnect()
}

// onConnected 连接建立（含重连）后重放订阅集合
func (b *Bridge) onConnected() {
	hubs := b.SubscribedHubs()

	b.logger.Info("Bridge connected",
		zap.Int("resubscribe_count", len(hubs)),
	)

	for _, hubID := range hubs {
		topic := wire.TopicForHub(hubID)
		if err := b.transport.Subscribe(topic, b.qos, b.handleMessage); err != nil {
			b.logger.Error("Failed to resubscribe hub",
				zap.String("hub_id", hubID),
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
	}
}

// onConnectionLost 连接丢失：上报 ERROR 事件，重连交给传输层自动处理
func (b *Bridge) onConnectionLost(err error) {
	b.logger.Warn("Bridge connection lost", zap.Error(err))
	b.emitter.Emit(EventError, err)
}

// handleMessage 处理一条传输层消息：解码 → 主题路由 → 按固定顺序解析 → 发布事件
func (b *Bridge) handleMessage(topic string, payload interface{}) {
	text, ok := wire.DecodeToText(payload)
	if !ok {
		b.logger.Warn("Dropping message with unsupported payload type",
			zap.String("topic", topic),
		)
		return
	}

	hubID, ok := wire.HubFromTopic(topic)
	if !ok {
		// 不符合主题约定的消息只记日志丢弃，不算应用错误
		b.logger.Debug("Dropping message on unroutable topic",
			zap.String("topic", topic),
		)
		return
	}

	line := strings.TrimSpace(text)
	now := b.now()
	ts := isoTimestamp(now)

	// 行格式没有类型标签，按 就绪信号 → 设备列表 → 遥测 的固定顺序
	// 尝试，首个命中者生效，一行最多产生一个事件
	if ready, ok := wire.TryParseReadySignal(line); ok {
		// 就绪信号以行内携带的 Hub ID 为准，不用主题推导的 ID：
		// 配网阶段 Hub 可能尚未绑定最终主题身份
		b.emitter.Emit(EventMQTTReady, &models.ReadyEvent{
			HubID:     ready.HubID,
			Message:   line,
			Timestamp: ts,
		})
		return
	}

	if devices, ok := wire.TryParseDeviceList(line); ok {
		b.emitter.Emit(EventConnectedDevices, &models.ConnectedDevicesEvent{
			HubAddress:       hubID,
			ConnectedDevices: devices,
			Timestamp:        ts,
		})
		return
	}

	if sample, ok := wire.TryParseTelemetry(line); ok {
		b.emitter.Emit(EventTelemetry, &models.TelemetryEvent{
			Type:     TelemetryType,
			HubID:    hubID,
			DeviceID: sample.DeviceID,
			Data: models.TelemetryData{
				HR:           sample.HR,
				SpO2:         sample.SpO2,
				Temp:         sample.Temp,
				Battery:      sample.Battery,
				SamplingRate: sample.SamplingRate,
				Timestamp:    now.UnixMilli(),
			},
			Timestamp: ts,
		})
		return
	}

	// 未识别的行格式来自固件是常态，丢弃不报错
	b.logger.Debug("Unparsed line from hub",
		zap.String("hub_id", hubID),
		zap.String("line", line),
	)
}

// isoTimestamp 接收时刻的 ISO8601 表示（UTC，毫秒精度）
func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
