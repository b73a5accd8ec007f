package lh42uhs

import (
	"context"
	"fmt"

	"github.com/taoyao-code/prolite-gateway/internal/protocol"
)

// 帧格式（厂商文档）：
//
//	下行: A6 | MonitorID | 00 Category | 00 Page | 00 Function | Length | 01 Control | Code | Data[0..N] | Checksum
//	上行: 21 | MonitorID | 00 | 00 | Length | 01 Control | Code | Data[0..N] | Checksum
//
// Length = N + 3，即 Control..Checksum 的字节数；N 为 Code 之后的数据字节数。
// Checksum 为之前所有字节的异或。MonitorID 0 为广播（设备不应答，本层不使用）。
const (
	HeaderCommand byte = 0xA6
	HeaderReply   byte = 0x21

	dataControl byte = 0x01

	// ReplyHeaderLen 上行帧固定头长度，Length 位于下标 4
	ReplyHeaderLen = 6
	// MinReplyLen 最短合法上行帧：头 + Code + Checksum
	MinReplyLen = 8
	// MaxDataLen 单帧数据上限
	MaxDataLen = 36

	replyLengthIndex = 4
)

// BuildFrame 构造下行帧
func BuildFrame(monitorID, code byte, data ...byte) []byte {
	buf := make([]byte, 0, 9+len(data))
	buf = append(buf,
		HeaderCommand,
		monitorID,
		0x00, // category
		0x00, // page
		0x00, // function
		byte(3+len(data)),
		dataControl,
		code,
	)
	buf = append(buf, data...)
	return appendChecksum(buf)
}

// ReadReply 从传输层读取一帧上行数据：先读 6 字节头，再按 Length 读剩余部分。
// 仅做长度上的读取，校验由 ParseReply 完成。
func ReadReply(ctx context.Context, t protocol.Transport) ([]byte, error) {
	header, err := t.ReadFull(ctx, ReplyHeaderLen)
	if err != nil {
		return nil, err
	}
	length := int(header[replyLengthIndex])
	if length < 1 {
		return nil, fmt.Errorf("%w: declared length %d", protocol.ErrChecksum, length)
	}
	body, err := t.ReadFull(ctx, length-1)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(header)+len(body))
	frame = append(frame, header...)
	return append(frame, body...), nil
}

// Reply 校验通过的上行帧
type Reply struct {
	MonitorID byte
	Code      byte
	Payload   []byte // 去掉 Code 与 Checksum 的数据部分
}

// ParseReply 校验帧头、最小长度与校验和，提取数据部分
func ParseReply(frame []byte) (*Reply, error) {
	if len(frame) == 0 || frame[0] != HeaderReply {
		var got byte
		if len(frame) > 0 {
			got = frame[0]
		}
		return nil, fmt.Errorf("%w: reply header 0x%02X", protocol.ErrChecksum, got)
	}
	if len(frame) < MinReplyLen {
		return nil, fmt.Errorf("%w: reply too short (%d bytes)", protocol.ErrChecksum, len(frame))
	}
	if !VerifyChecksum(frame) {
		return nil, fmt.Errorf("%w: want 0x%02X got 0x%02X", protocol.ErrChecksum,
			CalculateChecksum(frame[:len(frame)-1]), frame[len(frame)-1])
	}
	body := frame[ReplyHeaderLen:]
	payload := make([]byte, len(body)-2)
	copy(payload, body[1:len(body)-1])
	return &Reply{MonitorID: frame[1], Code: body[0], Payload: payload}, nil
}
