package te04

import (
	"fmt"
	"strings"

	"github.com/taoyao-code/prolite-gateway/internal/protocol"
)

// CheckAck 校验设置命令的确认行
func CheckAck(reply string) error {
	if !strings.HasPrefix(reply, ackHeader) {
		return fmt.Errorf("%w: expected ack, got %q", protocol.ErrChecksum, reply)
	}
	return checkAckFrame(reply)
}

func checkAckFrame(reply string) error {
	if len(reply) != ackLen {
		return fmt.Errorf("%w: ack length %d", protocol.ErrChecksum, len(reply))
	}
	if reply[3] != ACK {
		return fmt.Errorf("%w: reply %q", protocol.ErrNack, reply)
	}
	return nil
}

// DecodeValue 校验取值应答并返回三位值
func DecodeValue(reply string) (string, error) {
	if strings.HasPrefix(reply, ackHeader) {
		if len(reply) == ackLen && reply[3] != ACK {
			return "", fmt.Errorf("%w: reply %q", protocol.ErrNack, reply)
		}
		return "", fmt.Errorf("%w: unexpected ack frame %q", protocol.ErrChecksum, reply)
	}
	if len(reply) == 0 || reply[len(reply)-1] != EOL {
		return "", fmt.Errorf("%w: missing EOL in %q", protocol.ErrChecksum, reply)
	}
	if len(reply) != valueLen {
		return "", fmt.Errorf("%w: reply length %d", protocol.ErrChecksum, len(reply))
	}
	return reply[5:8], nil
}
