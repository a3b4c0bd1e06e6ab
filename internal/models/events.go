package models

// 桥接层对外发布的事件载荷。JSON 标签与原有 App 端消费的字段名保持一致，
// 下游（Redis Streams 消费者、推送服务）依赖这些字段名。

// ReadyEvent Hub 配网完成事件（MQTT_READY）
// HubID 来自行内容而非主题：配网阶段 Hub 可能尚未绑定最终主题身份
type ReadyEvent struct {
	HubID     string `json:"hubId"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"` // 接收时刻，ISO8601
}

// ConnectedDevicesEvent Hub 当前关联设备列表快照（CONNECTED_DEVICES）
type ConnectedDevicesEvent struct {
	HubAddress       string   `json:"hubAddress"`
	ConnectedDevices []string `json:"connected_devices"`
	Timestamp        string   `json:"timestamp"`
}

// TelemetryData 单条采样的测量值。
// Timestamp 是采样时刻（epoch 毫秒），与事件外层的接收时刻相互独立。
type TelemetryData struct {
	HR           float64 `json:"hr"`
	SpO2         float64 `json:"spo2"`
	Temp         float64 `json:"temp"`
	Battery      float64 `json:"battery"`
	SamplingRate float64 `json:"sampling_rate"`
	Timestamp    int64   `json:"timestamp"`
}

// TelemetryEvent 生理遥测事件（TELEMETRY）
type TelemetryEvent struct {
	Type      string        `json:"type"` // 固定为 "sensor_data"
	HubID     string        `json:"hubId"`
	DeviceID  string        `json:"deviceId"`
	Data      TelemetryData `json:"data"`
	Timestamp string        `json:"timestamp"`
}
