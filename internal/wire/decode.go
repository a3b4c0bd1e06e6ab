package wire

// DecodeToText 将传输层载荷解码为文本。
// 传输库可能交付字符串或二进制缓冲（按 UTF-8 处理），在边界处
// 一次性分支，后续管道只处理文本。其它类型一律拒绝。
func DecodeToText(payload interface{}) (string, bool) {
	switch v := payload.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
