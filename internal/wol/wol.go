// Package wol 发送网络唤醒（Wake-on-LAN）魔术包。
// 显示器关机后 TCP 控制端口不可达，只能通过 MAC 唤醒。
package wol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBroadcast = "255.255.255.255"
	DefaultPort      = 9

	macRepeat = 16
)

// ErrInvalidMAC MAC 地址不是 6 字节以太网地址
var ErrInvalidMAC = errors.New("wol: invalid MAC address")

// MagicPacket 6 字节 0xFF + 16 次重复 MAC
func MagicPacket(mac net.HardwareAddr) ([]byte, error) {
	if len(mac) != 6 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMAC, mac)
	}
	pkt := make([]byte, 0, 6+6*macRepeat)
	for i := 0; i < 6; i++ {
		pkt = append(pkt, 0xFF)
	}
	for i := 0; i < macRepeat; i++ {
		pkt = append(pkt, mac...)
	}
	return pkt, nil
}

// Sender UDP 广播发送器
type Sender struct {
	addr   *net.UDPAddr
	logger *zap.Logger
}

// NewSender 创建发送器，broadcast 为空时使用全网广播
func NewSender(broadcast string, port int, logger *zap.Logger) (*Sender, error) {
	if broadcast == "" {
		broadcast = DefaultBroadcast
	}
	if port <= 0 {
		port = DefaultPort
	}
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(broadcast, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("wol: resolve %s: %w", broadcast, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{addr: addr, logger: logger}, nil
}

// Wake 向 mac 发送魔术包
func (s *Sender) Wake(ctx context.Context, mac string) error {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMAC, err)
	}
	pkt, err := MagicPacket(hw)
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return fmt.Errorf("wol: listen: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	if _, err := conn.WriteToUDP(pkt, s.addr); err != nil {
		return fmt.Errorf("wol: send to %s: %w", s.addr, err)
	}
	s.logger.Info("wake-on-lan sent", zap.String("mac", hw.String()), zap.String("target", s.addr.String()))
	return nil
}
