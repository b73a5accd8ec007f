// Package lh42uhs 实现 LH42UHS 系列显示器的二进制控制协议（默认端口 5000）。
// 该协议只支持电源与输入源两个属性，其余命令在发起网络 I/O 之前即被拒绝。
package lh42uhs

import (
	"context"
	"fmt"

	"github.com/taoyao-code/prolite-gateway/internal/coremodel"
	"github.com/taoyao-code/prolite-gateway/internal/protocol"
)

const (
	codePowerSet byte = 0x18
	codePowerGet byte = 0x19
	codeInputSet byte = 0xAC
	codeInputGet byte = 0xAD

	powerDataOff byte = 0x01
	powerDataOn  byte = 0x02

	// 应答报告（Code=0x00）中的拒绝码
	reportNack byte = 0x15
	reportNav  byte = 0x18
)

var videoSourceCodes = map[coremodel.VideoSource]byte{
	coremodel.SourceComponent:   0x03,
	coremodel.SourceComposite:   0x01,
	coremodel.SourceDisplayPort: 0x0A,
	coremodel.SourceSlotInPC:    0x0B,
	coremodel.SourceHDMI1:       0x0D,
	coremodel.SourceHDMI2:       0x06,
	coremodel.SourceHDMI3:       0x0F,
	coremodel.SourceHDMI4:       0x19,
	coremodel.SourceVGA:         0x05,
	coremodel.SourceDVI:         0x09,
}

var videoSourceByCode = func() map[byte]coremodel.VideoSource {
	m := make(map[byte]coremodel.VideoSource, len(videoSourceCodes))
	for src, code := range videoSourceCodes {
		m[code] = src
	}
	return m
}()

// VendorSourceCode 输入源 -> 厂商码
func VendorSourceCode(src coremodel.VideoSource) (byte, bool) {
	code, ok := videoSourceCodes[src]
	return code, ok
}

// SourceFromVendor 厂商码 -> 输入源
func SourceFromVendor(code byte) (coremodel.VideoSource, bool) {
	src, ok := videoSourceByCode[code]
	return src, ok
}

// Codec 绑定显示器地址的编解码器，无其他状态
type Codec struct {
	monitorID byte
}

// New 创建编解码器，monitorID 取值 1..255
func New(monitorID byte) *Codec {
	return &Codec{monitorID: monitorID}
}

// MonitorID 返回显示器地址
func (c *Codec) MonitorID() byte { return c.monitorID }

// Supports 该协议能否表示命令
func Supports(cmd coremodel.Command) bool {
	return cmd == coremodel.CmdPower || cmd == coremodel.CmdVideoSource
}

// EncodeGet 构造查询帧
func (c *Codec) EncodeGet(cmd coremodel.Command) ([]byte, error) {
	switch cmd {
	case coremodel.CmdPower:
		return BuildFrame(c.monitorID, codePowerGet), nil
	case coremodel.CmdVideoSource:
		return BuildFrame(c.monitorID, codeInputGet), nil
	default:
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnsupportedCommand, cmd)
	}
}

// EncodeSet 构造设置帧
func (c *Codec) EncodeSet(cmd coremodel.Command, v coremodel.Value) ([]byte, error) {
	switch cmd {
	case coremodel.CmdPower:
		// 只区分 "关机" 与其他
		data := powerDataOn
		if !v.Numeric() && coremodel.PowerState(v.CodeString()) == coremodel.PowerOff {
			data = powerDataOff
		}
		return BuildFrame(c.monitorID, codePowerSet, data), nil
	case coremodel.CmdVideoSource:
		if v.Numeric() {
			return nil, fmt.Errorf("%w: video source %s", protocol.ErrUnsupportedCommand, v)
		}
		src, ok := VendorSourceCode(coremodel.VideoSource(v.CodeString()))
		if !ok {
			return nil, fmt.Errorf("%w: video source %s", protocol.ErrUnsupportedCommand, v)
		}
		return BuildFrame(c.monitorID, codeInputSet, src, 0x00, 0x00, 0x00), nil
	default:
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnsupportedCommand, cmd)
	}
}

// DecodeGet 将查询应答数据转换为三位码
func DecodeGet(cmd coremodel.Command, r *Reply) (string, error) {
	if err := checkReport(r); err != nil {
		return "", err
	}
	if len(r.Payload) == 0 {
		return "", fmt.Errorf("%w: empty payload for %s", protocol.ErrUnknownResponse, cmd)
	}
	switch cmd {
	case coremodel.CmdPower:
		// 无法区分 "开机" 与 "背光开"，也永远读不到关机
		if r.Payload[0] == powerDataOff {
			return string(coremodel.PowerBacklightOff), nil
		}
		return string(coremodel.PowerBacklightOn), nil
	case coremodel.CmdVideoSource:
		src, ok := SourceFromVendor(r.Payload[0])
		if !ok {
			return "", fmt.Errorf("%w: video source code 0x%02X", protocol.ErrUnknownResponse, r.Payload[0])
		}
		return string(src), nil
	default:
		return "", fmt.Errorf("%w: %s", protocol.ErrUnsupportedCommand, cmd)
	}
}

// checkReport 识别应答报告中的 NACK/NAV
func checkReport(r *Reply) error {
	if r.Code != 0x00 || len(r.Payload) == 0 {
		return nil
	}
	switch r.Payload[0] {
	case reportNack:
		return fmt.Errorf("%w: device reported NACK", protocol.ErrNack)
	case reportNav:
		return fmt.Errorf("%w: command not available", protocol.ErrNack)
	}
	return nil
}

// Get 发送查询并解析应答，调用方需保证同一连接上串行执行
func (c *Codec) Get(ctx context.Context, t protocol.Transport, cmd coremodel.Command) (string, error) {
	msg, err := c.EncodeGet(cmd)
	if err != nil {
		return "", err
	}
	if err := t.Write(ctx, msg); err != nil {
		return "", err
	}
	frame, err := ReadReply(ctx, t)
	if err != nil {
		return "", err
	}
	reply, err := ParseReply(frame)
	if err != nil {
		return "", err
	}
	return DecodeGet(cmd, reply)
}

// Set 发送设置命令并等待确认
func (c *Codec) Set(ctx context.Context, t protocol.Transport, cmd coremodel.Command, v coremodel.Value) error {
	msg, err := c.EncodeSet(cmd, v)
	if err != nil {
		return err
	}
	if err := t.Write(ctx, msg); err != nil {
		return err
	}
	frame, err := ReadReply(ctx, t)
	if err != nil {
		return err
	}
	reply, err := ParseReply(frame)
	if err != nil {
		return err
	}
	return checkReport(reply)
}
