package wire

import "strings"

// Hub 主题约定：hub/<hubId>/send
const (
	topicPrefix = "hub"
	topicSuffix = "send"
)

// TopicForHub 返回指定 Hub 的上行主题
func TopicForHub(hubID string) string {
	return topicPrefix + "/" + hubID + "/" + topicSuffix
}

// HubFromTopic 从主题中提取 Hub ID。
// 主题至少 3 段、首段为 "hub"、第三段为 "send" 才有效；
// 不符合约定的主题返回 false，调用方应丢弃该消息（只记日志，
// 不上报 ERROR 事件——ERROR 保留给传输层故障）。
func HubFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[0] != topicPrefix || parts[2] != topicSuffix {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
