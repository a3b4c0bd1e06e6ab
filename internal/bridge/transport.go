package bridge

import (
	"context"
	"fmt"
	"sync"

	"talktail-bridge/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MessageHandler 消息处理函数。payload 可能是 string 或 []byte（UTF-8），
// 由 wire.DecodeToText 在边界处统一解码。
type MessageHandler func(topic string, payload interface{})

// Transport 消息代理连接的抽象。
// 生产实现基于 paho，单元测试用内存假实现替换。
type Transport interface {
	// Connect 建立连接，阻塞到连接成功、失败或 ctx 取消
	Connect(ctx context.Context) error
	// Subscribe 订阅主题，阻塞到订阅确认（成功或失败）
	Subscribe(topic string, qos byte, handler MessageHandler) error
	// IsConnected 当前是否已连接
	IsConnected() bool
	// Disconnect 断开连接
	Disconnect()
	// OnConnect 注册连接建立回调（包括自动重连后）
	OnConnect(fn func())
	// OnConnectionLost 注册连接丢失回调
	OnConnectionLost(fn func(err error))
}

// pahoTransport 基于 eclipse paho 的 Transport 实现
type pahoTransport struct {
	client mqtt.Client

	mu        sync.Mutex
	onConnect func()
	onLost    func(error)
}

// NewPahoTransport 创建 paho MQTT 传输。
// ClientID 未配置时自动生成，保证每个进程唯一。
func NewPahoTransport(cfg *config.MQTTConfig) Transport {
	t := &pahoTransport{}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "talktail-bridge-" + uuid.New().String()[:8]
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetryInterval(cfg.ReconnectPeriod).
		SetMaxReconnectInterval(cfg.ReconnectPeriod).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetOnConnectHandler(func(_ mqtt.Client) {
			t.fireConnect()
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			t.fireLost(err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	t.client = mqtt.NewClient(opts)
	return t
}

func (t *pahoTransport) Connect(ctx context.Context) error {
	token := t.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *pahoTransport) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if token := t.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	}); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	return nil
}

func (t *pahoTransport) IsConnected() bool {
	return t.client.IsConnected()
}

func (t *pahoTransport) Disconnect() {
	t.client.Disconnect(250) // 250ms等待时间
}

func (t *pahoTransport) OnConnect(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onConnect = fn
}

func (t *pahoTransport) OnConnectionLost(fn func(err error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onLost = fn
}

func (t *pahoTransport) fireConnect() {
	t.mu.Lock()
	fn := t.onConnect
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (t *pahoTransport) fireLost(err error) {
	t.mu.Lock()
	fn := t.onLost
	t.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
