// Package protocol 定义两种显示器协议共享的传输接口与错误分类，
// 具体编解码见 lh42uhs（二进制）与 te04（ASCII）子包。
package protocol

import "context"

// Transport 编解码器所需的最小字节流能力，由 tcpclient.Client 实现。
// 任何方法返回 *ConnError 时底层连接已被销毁。
type Transport interface {
	// Write 写入完整请求帧（连接未建立时先等待建连）
	Write(ctx context.Context, b []byte) error
	// ReadFull 读取恰好 n 字节
	ReadFull(ctx context.Context, n int) ([]byte, error)
	// ReadUntil 读取直到 delim（含 delim）
	ReadUntil(ctx context.Context, delim byte) ([]byte, error)
}
