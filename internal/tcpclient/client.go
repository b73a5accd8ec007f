// Package tcpclient 提供单设备的惰性 TCP 连接：首次使用时拨号，
// 出错、超时或对端关闭即销毁，下一次操作透明重建。
package tcpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/prolite-gateway/internal/protocol"
)

// State 连接状态
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// 断开原因（用于日志与指标）
const (
	ReasonRemoteClose  = "remote_close"
	ReasonReadError    = "read_error"
	ReasonWriteError   = "write_error"
	ReasonTimeout      = "timeout"
	ReasonCanceled     = "canceled"
	ReasonLineOverflow = "line_overflow"
	ReasonDestroy      = "destroy"
)

var (
	// ErrClosed 客户端已永久关闭
	ErrClosed = errors.New("tcpclient: client closed")
	// ErrNotConnected 读取时没有活动连接
	ErrNotConnected = errors.New("tcpclient: not connected")
	// ErrLineTooLong 行读取超过上限
	ErrLineTooLong = errors.New("tcpclient: line too long")

	errDestroyed = errors.New("tcpclient: connection destroyed")
)

const (
	DefaultTimeout = 1500 * time.Millisecond
	DefaultMaxLine = 256
)

// Client 单连接管理器。
// Write/ReadFull/ReadUntil 不可并发调用，由上层调度队列保证串行。
type Client struct {
	addr    string
	timeout time.Duration
	maxLine int
	logger  *zap.Logger

	onConnect func(err error)
	onDrop    func(reason string)

	dialMu sync.Mutex // 串行化建连

	mu       sync.Mutex
	link     *link
	inflight *link // 最近一次写入所用连接，读取以它为准
	state    State
	closed   bool
}

// Option 客户端选项
type Option func(*Client)

// WithTimeout 拨号与单次读写超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxLine ReadUntil 的最大行长
func WithMaxLine(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxLine = n
		}
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnConnect 建连结果回调（err 为 nil 表示成功）
func WithOnConnect(fn func(err error)) Option {
	return func(c *Client) { c.onConnect = fn }
}

// WithOnDrop 连接销毁回调
func WithOnDrop(fn func(reason string)) Option {
	return func(c *Client) { c.onDrop = fn }
}

// New 创建客户端，不会立即拨号
func New(host string, port int, opts ...Option) *Client {
	c := &Client{
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		timeout: DefaultTimeout,
		maxLine: DefaultMaxLine,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addr 远端地址
func (c *Client) Addr() string { return c.addr }

// State 当前连接状态
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect 确保存在活动连接
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.acquire(ctx)
	return err
}

func (c *Client) acquire(ctx context.Context) (*link, error) {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, &protocol.ConnError{Op: "closed", Addr: c.addr, Err: ErrClosed}
	}
	if l := c.link; l != nil && !l.dead() {
		c.mu.Unlock()
		return l, nil
	}
	c.link = nil
	c.state = StateConnecting
	c.mu.Unlock()

	dctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(dctx, "tcp", c.addr)

	c.mu.Lock()
	if err != nil {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.logger.Warn("device dial failed", zap.String("remote_addr", c.addr), zap.Error(err))
		if c.onConnect != nil {
			c.onConnect(err)
		}
		return nil, &protocol.ConnError{Op: "dial", Addr: c.addr, Err: err}
	}
	if c.closed {
		c.state = StateDisconnected
		c.mu.Unlock()
		_ = conn.Close()
		return nil, &protocol.ConnError{Op: "closed", Addr: c.addr, Err: ErrClosed}
	}
	l := newLink(conn)
	c.link = l
	c.state = StateConnected
	c.mu.Unlock()

	go c.readLoop(l)

	c.logger.Info("device connected", zap.String("remote_addr", c.addr))
	if c.onConnect != nil {
		c.onConnect(nil)
	}
	return l, nil
}

// current 返回最近写入所用的连接，不触发拨号。
// 对端发送应答后立即关闭时，连接虽已销毁，缓冲中的应答仍可读出
func (c *Client) current() (*link, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, &protocol.ConnError{Op: "closed", Addr: c.addr, Err: ErrClosed}
	}
	if c.inflight == nil {
		return nil, &protocol.ConnError{Op: "read", Addr: c.addr, Err: ErrNotConnected}
	}
	return c.inflight, nil
}

// readLoop 持续读取并投递到 dataC，出错或对端关闭时销毁连接
func (c *Client) readLoop(l *link) {
	buf := make([]byte, 1024)
	for {
		n, err := l.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case l.dataC <- chunk:
			case <-l.doneC:
				return
			}
		}
		if err != nil {
			reason := ReasonReadError
			if errors.Is(err, io.EOF) {
				reason = ReasonRemoteClose
			}
			c.drop(l, reason, err)
			return
		}
	}
}

// drop 销毁指定连接；同一连接只生效一次
func (c *Client) drop(l *link, reason string, err error) {
	if !l.close(err) {
		return
	}
	c.mu.Lock()
	if c.link == l {
		c.link = nil
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	fields := []zap.Field{zap.String("remote_addr", c.addr), zap.String("reason", reason)}
	if err != nil && !errors.Is(err, errDestroyed) {
		fields = append(fields, zap.Error(err))
	}
	c.logger.Info("device connection dropped", fields...)
	if c.onDrop != nil {
		c.onDrop(reason)
	}
}

// fail 销毁连接并包装为 ConnError
func (c *Client) fail(l *link, op, reason string, err error) error {
	c.drop(l, reason, err)
	return &protocol.ConnError{Op: op, Addr: c.addr, Err: err}
}

// Write 写入完整请求。写入前丢弃接收缓冲中的残留字节
func (c *Client) Write(ctx context.Context, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	if stale := l.discard(); stale > 0 {
		c.logger.Debug("discard stale bytes", zap.String("remote_addr", c.addr), zap.Int("bytes", stale))
	}
	c.mu.Lock()
	c.inflight = l
	c.mu.Unlock()
	_ = l.conn.SetWriteDeadline(c.deadline(ctx))
	if _, err := l.conn.Write(b); err != nil {
		reason := ReasonWriteError
		if isTimeout(err) {
			reason = ReasonTimeout
		}
		return c.fail(l, "write", reason, err)
	}
	return nil
}

// ReadFull 读取恰好 n 字节
func (c *Client) ReadFull(ctx context.Context, n int) ([]byte, error) {
	l, err := c.current()
	if err != nil {
		return nil, err
	}
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	for len(l.pending) < n {
		if err := c.fill(ctx, l, timer.C); err != nil {
			return nil, err
		}
	}
	return l.take(n), nil
}

// ReadUntil 读取直到 delim（含 delim），超过行长上限视为流错乱
func (c *Client) ReadUntil(ctx context.Context, delim byte) ([]byte, error) {
	l, err := c.current()
	if err != nil {
		return nil, err
	}
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	for {
		if i := bytes.IndexByte(l.pending, delim); i >= 0 {
			return l.take(i + 1), nil
		}
		if len(l.pending) > c.maxLine {
			return nil, c.fail(l, "read", ReasonLineOverflow, ErrLineTooLong)
		}
		if err := c.fill(ctx, l, timer.C); err != nil {
			return nil, err
		}
	}
}

// fill 等待下一段数据；超时、取消或连接结束都会销毁连接
func (c *Client) fill(ctx context.Context, l *link, timeout <-chan time.Time) error {
	select {
	case chunk := <-l.dataC:
		l.pending = append(l.pending, chunk...)
		return nil
	default:
	}
	select {
	case chunk := <-l.dataC:
		l.pending = append(l.pending, chunk...)
		return nil
	case <-l.doneC:
		// 对端关闭前发出的数据仍可消费
		select {
		case chunk := <-l.dataC:
			l.pending = append(l.pending, chunk...)
			return nil
		default:
		}
		return &protocol.ConnError{Op: "read", Addr: c.addr, Err: l.err}
	case <-timeout:
		return c.fail(l, "read", ReasonTimeout, os.ErrDeadlineExceeded)
	case <-ctx.Done():
		return c.fail(l, "read", ReasonCanceled, ctx.Err())
	}
}

func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}

// Destroy 强制关闭当前连接，下一次操作重新拨号
func (c *Client) Destroy() {
	c.mu.Lock()
	l := c.link
	c.mu.Unlock()
	if l != nil {
		c.drop(l, ReasonDestroy, errDestroyed)
	}
}

// Close 永久关闭，之后所有操作返回 ErrClosed。可重复调用
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.Destroy()
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
