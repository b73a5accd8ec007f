package device

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/prolite-gateway/internal/protocol/lh42uhs"
)

// mockDisplay 进程内模拟显示器
type mockDisplay struct {
	ln        net.Listener
	accepts   int32
	requests  int32
	pipelined int32 // 上一个应答发出前就收到了下一个请求

	mu     sync.Mutex
	values map[byte]string // TE04: 命令 -> 三位值
	power  byte            // LH42UHS
	input  byte            // LH42UHS 厂商码

	nack        map[byte]bool // TE04: 设置时回 NACK 的命令
	raw         map[byte]string
	closeAfter  bool // 每次应答后关闭连接
	replyDelay  time.Duration
	lhMonitorID byte
}

func newMockDisplay(t *testing.T) *mockDisplay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return &mockDisplay{
		ln:          ln,
		values:      map[byte]string{},
		nack:        map[byte]bool{},
		raw:         map[byte]string{},
		power:       0x02,
		input:       0x0D,
		lhMonitorID: 1,
	}
}

func (m *mockDisplay) port() int {
	_, p, _ := net.SplitHostPort(m.ln.Addr().String())
	n, _ := strconv.Atoi(p)
	return n
}

func (m *mockDisplay) serve(handler func(c net.Conn, r *bufio.Reader) bool) {
	go func() {
		for {
			c, err := m.ln.Accept()
			if err != nil {
				return
			}
			atomic.AddInt32(&m.accepts, 1)
			go func() {
				defer c.Close()
				r := bufio.NewReader(c)
				for handler(c, r) {
					if m.closeAfter {
						return
					}
				}
			}()
		}
	}()
}

// checkPipelined 应答前短暂等待，若已有后续字节说明客户端没有等应答就发送了下一条
func (m *mockDisplay) checkPipelined(c net.Conn, r *bufio.Reader) {
	if m.replyDelay <= 0 {
		return
	}
	_ = c.SetReadDeadline(time.Now().Add(m.replyDelay))
	if _, err := r.Peek(1); err == nil {
		atomic.AddInt32(&m.pipelined, 1)
	}
	_ = c.SetReadDeadline(time.Time{})
}

// serveTE04 ASCII 协议
func (m *mockDisplay) serveTE04() {
	m.serve(func(c net.Conn, r *bufio.Reader) bool {
		line, err := r.ReadString('\r')
		if err != nil {
			return false
		}
		atomic.AddInt32(&m.requests, 1)
		m.checkPipelined(c, r)
		if len(line) != 9 || line[:3] != ":01" {
			_, _ = io.WriteString(c, "401-\r")
			return true
		}
		dir, cmd, val := line[3], line[4], line[5:8]

		m.mu.Lock()
		var reply string
		switch dir {
		case 'G':
			if raw, ok := m.raw[cmd]; ok {
				reply = raw
			} else {
				v, ok := m.values[cmd]
				if !ok {
					v = "000"
				}
				reply = fmt.Sprintf(":01r%c%s\r", cmd, v)
			}
		case 'S':
			if m.nack[cmd] {
				reply = "401-\r"
			} else {
				m.values[cmd] = val
				reply = "401+\r"
			}
		default:
			reply = "401-\r"
		}
		m.mu.Unlock()

		_, err = io.WriteString(c, reply)
		return err == nil
	})
}

func lhReply(monitorID, code byte, data ...byte) []byte {
	buf := []byte{lh42uhs.HeaderReply, monitorID, 0x00, 0x00, byte(3 + len(data)), 0x01, code}
	buf = append(buf, data...)
	return append(buf, lh42uhs.CalculateChecksum(buf))
}

// serveLH42UHS 二进制协议
func (m *mockDisplay) serveLH42UHS() {
	m.serve(func(c net.Conn, r *bufio.Reader) bool {
		head := make([]byte, 6)
		if _, err := io.ReadFull(r, head); err != nil {
			return false
		}
		rest := make([]byte, int(head[5]))
		if _, err := io.ReadFull(r, rest); err != nil {
			return false
		}
		atomic.AddInt32(&m.requests, 1)
		m.checkPipelined(c, r)
		frame := append(head, rest...)
		if !lh42uhs.VerifyChecksum(frame) || frame[1] != m.lhMonitorID {
			return true // 地址不符或校验失败时不应答
		}
		code, data := frame[7], frame[8:len(frame)-1]

		m.mu.Lock()
		var reply []byte
		switch code {
		case 0x18:
			m.power = data[0]
			reply = lhReply(m.lhMonitorID, 0x00, 0x06)
		case 0x19:
			reply = lhReply(m.lhMonitorID, 0x19, m.power)
		case 0xAC:
			m.input = data[0]
			reply = lhReply(m.lhMonitorID, 0x00, 0x06)
		case 0xAD:
			reply = lhReply(m.lhMonitorID, 0xAD, m.input, 0x00, 0x00, 0x00)
		default:
			reply = lhReply(m.lhMonitorID, 0x00, 0x18)
		}
		m.mu.Unlock()

		_, err := c.Write(reply)
		return err == nil
	})
}
