package protocol

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrChecksum 帧格式或校验和不匹配（两种协议通用）
	ErrChecksum = errors.New("protocol: checksum does not match")
	// ErrNack 设备明确拒绝
	ErrNack = errors.New("protocol: NACK")
	// ErrUnsupportedCommand 当前协议无法编码该命令
	ErrUnsupportedCommand = errors.New("protocol: unsupported command")
	// ErrUnknownResponse 应答结构正确但无法映射为语义值
	ErrUnknownResponse = errors.New("protocol: unknown response")
	// ErrInvalidValue 值无法编码（非三位码等），未发起 I/O
	ErrInvalidValue = errors.New("protocol: invalid value")
)

// ConnError 连接层错误：拨号、读写、超时、连接已关闭。
// 发生时连接已被销毁，下一次操作会重新拨号。
type ConnError struct {
	Op   string // dial | write | read | closed
	Addr string
	Err  error
}

func (e *ConnError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("conn %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("conn %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// Timeout 是否为超时引起
func (e *ConnError) Timeout() bool {
	var ne net.Error
	if errors.As(e.Err, &ne) {
		return ne.Timeout()
	}
	return false
}

// IsConnError 判断错误链中是否包含连接层错误
func IsConnError(err error) bool {
	var ce *ConnError
	return errors.As(err, &ce)
}
