package coremodel

import (
	"fmt"
	"strings"
)

// Protocol 显示器控制协议种类，构造时确定，运行期不切换
type Protocol string

const (
	ProtocolLH42UHS Protocol = "lh42uhs" // 二进制帧 + XOR 校验（SICP 风格）
	ProtocolTE04    Protocol = "te04"    // ASCII 行协议 + ACK/NACK
)

// DefaultPort 各协议的默认 TCP 端口
func (p Protocol) DefaultPort() int {
	switch p {
	case ProtocolLH42UHS:
		return 5000
	case ProtocolTE04:
		return 4664
	default:
		return 0
	}
}

// Valid 是否为已知协议
func (p Protocol) Valid() bool {
	return p == ProtocolLH42UHS || p == ProtocolTE04
}

// ParseProtocol 解析配置中的协议名（大小写不敏感）
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown protocol: %q", s)
	}
	return p, nil
}

// Command 设备属性命令，值为 TE04 协议中的命令字符
type Command byte

const (
	CmdPower         Command = '0'
	CmdTreble        Command = '1'
	CmdBass          Command = '2'
	CmdBalance       Command = '3'
	CmdContrast      Command = '4'
	CmdBrightness    Command = '5'
	CmdSharpness     Command = '6'
	CmdSoundMode     Command = '7'
	CmdVolume        Command = '8'
	CmdMute          Command = '9'
	CmdVideoSource   Command = ':'
	CmdAspectRatio   Command = ';'
	CmdLanguage      Command = '<'
	CmdPictureMode   Command = '='
	CmdHue           Command = '>'
	CmdBacklight     Command = '?'
	CmdColorTemp     Command = '@'
	CmdRemoteControl Command = 'B'
	CmdSpeaker       Command = 'C'
)

var commandNames = map[Command]string{
	CmdPower:         "power",
	CmdTreble:        "treble",
	CmdBass:          "bass",
	CmdBalance:       "balance",
	CmdContrast:      "contrast",
	CmdBrightness:    "brightness",
	CmdSharpness:     "sharpness",
	CmdSoundMode:     "sound_mode",
	CmdVolume:        "volume",
	CmdMute:          "mute",
	CmdVideoSource:   "video_source",
	CmdAspectRatio:   "aspect_ratio",
	CmdLanguage:      "language",
	CmdPictureMode:   "picture_mode",
	CmdHue:           "hue",
	CmdBacklight:     "backlight",
	CmdColorTemp:     "color_temp",
	CmdRemoteControl: "remote_control",
	CmdSpeaker:       "speaker",
}

// Commands 全部命令，按协议码顺序
var Commands = []Command{
	CmdPower, CmdTreble, CmdBass, CmdBalance, CmdContrast, CmdBrightness, CmdSharpness,
	CmdSoundMode, CmdVolume, CmdMute, CmdVideoSource, CmdAspectRatio, CmdLanguage,
	CmdPictureMode, CmdHue, CmdBacklight, CmdColorTemp, CmdRemoteControl, CmdSpeaker,
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("cmd(0x%02X)", byte(c))
}

// Valid 是否为已知命令
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// Scalar 是否为 0-100 数值型属性
func (c Command) Scalar() bool {
	switch c {
	case CmdTreble, CmdBass, CmdBalance, CmdContrast, CmdBrightness, CmdSharpness,
		CmdVolume, CmdHue, CmdBacklight:
		return true
	}
	return false
}

// ParseCommand 按名称查找命令
func ParseCommand(name string) (Command, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range commandNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// Value 命令值：三位枚举码或 [0,100] 数值；零值表示无值（查询）
type Value struct {
	code    string
	number  int
	numeric bool
	present bool
}

// NoValue 查询请求使用的空值
var NoValue = Value{}

// Code 以三位枚举码构造值
func Code(code string) Value { return Value{code: code, present: true} }

// Number 以数值构造值
func Number(n int) Value { return Value{number: n, numeric: true, present: true} }

// Present 是否携带值
func (v Value) Present() bool { return v.present }

// Numeric 是否数值型
func (v Value) Numeric() bool { return v.numeric }

// Int 数值（仅 Numeric 时有意义）
func (v Value) Int() int { return v.number }

// CodeString 枚举码（仅非 Numeric 时有意义）
func (v Value) CodeString() string { return v.code }

func (v Value) String() string {
	switch {
	case !v.present:
		return "<none>"
	case v.numeric:
		return fmt.Sprintf("%d", v.number)
	default:
		return v.code
	}
}
