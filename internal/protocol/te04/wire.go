// Package te04 实现 TE04 系列显示器的 ASCII 行协议（默认端口 4664）。
//
// 请求:  ":01" + G|S + 命令字符 + 三位值 + "\r"
// 确认:  "401" + '+'|'-' + "\r"（共 5 字节）
// 取值:  9 字节，值位于下标 5..7，以 "\r" 结尾
//
// 协议本身没有校验和，帧结构不符统一归为 ErrChecksum。
package te04

import (
	"fmt"

	"github.com/taoyao-code/prolite-gateway/internal/coremodel"
	"github.com/taoyao-code/prolite-gateway/internal/protocol"
)

const (
	messageHeader = ":01"
	ackHeader     = "401"

	EOL  byte = '\r'
	ACK  byte = '+'
	NACK byte = '-'

	dirGet byte = 'G'
	dirSet byte = 'S'

	ackLen   = 5
	valueLen = 9
	// MaxLineLen 单行应答上限，超出视为流错乱
	MaxLineLen = 64

	defaultValue = "000"
)

// EncodeGet 构造查询消息，值固定为 000
func EncodeGet(cmd coremodel.Command) ([]byte, error) {
	if !cmd.Valid() {
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnsupportedCommand, cmd)
	}
	return buildMessage(dirGet, cmd, defaultValue), nil
}

// EncodeSet 构造设置消息
func EncodeSet(cmd coremodel.Command, v coremodel.Value) ([]byte, error) {
	if !cmd.Valid() {
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnsupportedCommand, cmd)
	}
	value, err := formatValue(v)
	if err != nil {
		return nil, err
	}
	return buildMessage(dirSet, cmd, value), nil
}

// formatValue 数值限幅到 [0,100] 并补零为三位；枚举码必须恰好三位
func formatValue(v coremodel.Value) (string, error) {
	switch {
	case !v.Present():
		return defaultValue, nil
	case v.Numeric():
		n := v.Int()
		if n < 0 {
			n = 0
		} else if n > 100 {
			n = 100
		}
		return fmt.Sprintf("%03d", n), nil
	default:
		code := v.CodeString()
		if len(code) != 3 {
			return "", fmt.Errorf("%w: code %q must be 3 characters", protocol.ErrInvalidValue, code)
		}
		return code, nil
	}
}

func buildMessage(dir byte, cmd coremodel.Command, value string) []byte {
	buf := make([]byte, 0, len(messageHeader)+len(value)+3)
	buf = append(buf, messageHeader...)
	buf = append(buf, dir, byte(cmd))
	buf = append(buf, value...)
	return append(buf, EOL)
}
