package te04

import (
	"context"
	"fmt"

	"github.com/taoyao-code/prolite-gateway/internal/coremodel"
	"github.com/taoyao-code/prolite-gateway/internal/protocol"
)

// Codec TE04 编解码器。协议无地址字段，结构体仅用于与 lh42uhs 对称
type Codec struct{}

// New 创建编解码器
func New() *Codec { return &Codec{} }

// Get 发送查询并返回三位值
func (c *Codec) Get(ctx context.Context, t protocol.Transport, cmd coremodel.Command) (string, error) {
	msg, err := EncodeGet(cmd)
	if err != nil {
		return "", err
	}
	if err := t.Write(ctx, msg); err != nil {
		return "", err
	}
	line, err := readLine(ctx, t)
	if err != nil {
		return "", err
	}
	return DecodeValue(line)
}

// Set 发送设置命令并等待 ACK
func (c *Codec) Set(ctx context.Context, t protocol.Transport, cmd coremodel.Command, v coremodel.Value) error {
	msg, err := EncodeSet(cmd, v)
	if err != nil {
		return err
	}
	if err := t.Write(ctx, msg); err != nil {
		return err
	}
	line, err := readLine(ctx, t)
	if err != nil {
		return err
	}
	return CheckAck(line)
}

func readLine(ctx context.Context, t protocol.Transport) (string, error) {
	b, err := t.ReadUntil(ctx, EOL)
	if err != nil {
		return "", err
	}
	if len(b) > MaxLineLen {
		return "", fmt.Errorf("%w: line too long (%d bytes)", protocol.ErrChecksum, len(b))
	}
	return string(b), nil
}
