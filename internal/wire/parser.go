// Package wire 解析 Hub 固件通过 MQTT 上报的紧凑分隔文本行。
//
// 固件的行格式没有类型标签，只能靠形状区分三种已知格式：
//   - 就绪信号: "message:<hub-mac> mqtt ready"
//   - 设备列表: `device:["aa:...","bb:..."]`
//   - 遥测采样: "<device-mac>-<sampling-rate>,<hr>,<spo2>,<temp>,<battery>"
//
// 三个识别函数必须按 就绪信号 → 设备列表 → 遥测 的固定顺序尝试，
// 首个命中者生效。该顺序与线上固件行为一致，不允许调整。
package wire

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultSamplingRate 采样率字段解析失败时的默认值（Hz）
const DefaultSamplingRate = 50

// ReadySignal Hub 配网完成信号
type ReadySignal struct {
	HubID string // 行内携带的 Hub MAC，已小写化
	Raw   string // 原始行
}

// TelemetrySample 单条生理遥测采样
type TelemetrySample struct {
	DeviceID     string
	SamplingRate float64
	HR           float64
	SpO2         float64
	Temp         float64
	Battery      float64
}

var (
	// 就绪信号：message:<17字符冒号分隔MAC> mqtt ready，短语部分大小写不敏感
	readySignalRe = regexp.MustCompile(`(?i)message:([0-9a-f]{2}(?::[0-9a-f]{2}){5})\s+mqtt ready`)

	// 设备列表：取第一个 [ 到第一个 ] 之间的内容（非贪婪）
	deviceListRe = regexp.MustCompile(`device:\[(.*?)\]`)

	// 设备列表括号内的双引号子串
	quotedRe = regexp.MustCompile(`"([^"]*)"`)
)

// TryParseReadySignal 尝试识别 Hub 就绪信号行。
// 遥测和设备列表行不会包含 "mqtt ready" 字样，因此不存在误匹配。
func TryParseReadySignal(line string) (*ReadySignal, bool) {
	m := readySignalRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return &ReadySignal{
		HubID: strings.ToLower(m[1]),
		Raw:   line,
	}, true
}

// TryParseDeviceList 尝试识别设备列表行。
// 前置条件是行内包含字面量 "device:["。前置条件成立但括号内容
// 提取不到时仍视为命中，返回空列表（而不是未命中）——调用方需要
// 区分"命中但列表为空"与"未命中"。
func TryParseDeviceList(line string) ([]string, bool) {
	if !strings.Contains(line, "device:[") {
		return nil, false
	}

	devices := []string{}
	m := deviceListRe.FindStringSubmatch(line)
	if m == nil {
		return devices, true
	}

	for _, q := range quotedRe.FindAllStringSubmatch(m[1], -1) {
		devices = append(devices, q[1])
	}
	return devices, true
}

// TryParseTelemetry 尝试识别遥测采样行。
// 期望形状：<device-mac>-<sampling-rate>,<hr>,<spo2>,<temp>,<battery>。
// 首字段按最后一个 '-' 拆分（设备 MAC 本身可能含结构，采样率后缀
// 跟在最后一个连字符之后）。单个数值字段解析失败只回退该字段的
// 默认值，不会导致整条记录作废。
func TryParseTelemetry(line string) (*TelemetrySample, bool) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	if len(tokens) < 5 {
		return nil, false
	}

	head := tokens[0]
	idx := strings.LastIndex(head, "-")
	if idx <= 0 {
		return nil, false
	}
	deviceID := strings.TrimSpace(head[:idx])
	if deviceID == "" {
		return nil, false
	}

	return &TelemetrySample{
		DeviceID:     deviceID,
		SamplingRate: parseNumber(head[idx+1:], DefaultSamplingRate),
		HR:           parseNumber(tokens[1], 0),
		SpO2:         parseNumber(tokens[2], 0),
		Temp:         parseNumber(tokens[3], 0),
		Battery:      parseNumber(tokens[4], 0),
	}, true
}

// parseNumber 解析浮点数，解析失败或非有限数时返回字段默认值
func parseNumber(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
