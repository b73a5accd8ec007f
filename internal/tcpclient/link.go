package tcpclient

import (
	"net"
	"sync"
)

// link 一条物理连接及其读循环状态
type link struct {
	conn  net.Conn
	dataC chan []byte
	doneC chan struct{}
	once  sync.Once
	err   error // doneC 关闭前写入

	pending []byte // 已读取未消费，仅由操作方访问
}

func newLink(conn net.Conn) *link {
	return &link{
		conn:  conn,
		dataC: make(chan []byte, 16),
		doneC: make(chan struct{}),
	}
}

// close 关闭连接，首次调用返回 true
func (l *link) close(err error) bool {
	closed := false
	l.once.Do(func() {
		l.err = err
		close(l.doneC)
		_ = l.conn.Close()
		closed = true
	})
	return closed
}

func (l *link) dead() bool {
	select {
	case <-l.doneC:
		return true
	default:
		return false
	}
}

// discard 丢弃残留字节，返回丢弃数量
func (l *link) discard() int {
	n := len(l.pending)
	l.pending = nil
	for {
		select {
		case chunk := <-l.dataC:
			n += len(chunk)
		default:
			return n
		}
	}
}

// take 取出前 n 字节
func (l *link) take(n int) []byte {
	out := make([]byte, n)
	copy(out, l.pending[:n])
	l.pending = l.pending[n:]
	return out
}
