package coremodel

import "strings"

// PowerState 电源状态。
// 串口才能设置 PowerOn、才能读到 PowerOff；LAN 下关机的设备直接无响应。
type PowerState string

const (
	PowerBacklightOff PowerState = "000"
	PowerBacklightOn  PowerState = "001"
	PowerOff          PowerState = "002"
	PowerOn           PowerState = "003"
)

type SoundMode string

const (
	SoundMovie     SoundMode = "000"
	SoundStandard  SoundMode = "001"
	SoundCustom    SoundMode = "002"
	SoundClassroom SoundMode = "003"
	SoundMeeting   SoundMode = "004"
)

type OnOff string

const (
	Off OnOff = "000"
	On  OnOff = "001"
)

// VideoSource 输入源（TE04 码值；LH42UHS 另有映射表）
type VideoSource string

const (
	SourceVGA         VideoSource = "000"
	SourceVGA2        VideoSource = "031"
	SourceVGA3        VideoSource = "032"
	SourceHDMI1       VideoSource = "001"
	SourceHDMI2       VideoSource = "002"
	SourceHDMI3       VideoSource = "021"
	SourceHDMI4       VideoSource = "022"
	SourceComposite   VideoSource = "003"
	SourceATV         VideoSource = "051"
	SourceAndroid     VideoSource = "101"
	SourceSlotInPC    VideoSource = "103"
	SourceDisplayPort VideoSource = "007"
	SourceAndroidPlus VideoSource = "102"
	SourceC1          VideoSource = "104"
	SourceC2          VideoSource = "105"
	SourceDTV         VideoSource = "106"
	SourceComponent   VideoSource = "107"
	SourceDVI         VideoSource = "108"
)

type AspectRatio string

const (
	Aspect16x9 AspectRatio = "000"
	Aspect4x3  AspectRatio = "001"
	AspectPTP  AspectRatio = "002"
)

// PictureMode 图像模式。
// 厂商码表中四种模式均为 000，疑似原始码表错误；在拿到权威协议文档前保持原样。
type PictureMode string

const (
	PictureStandard PictureMode = "000"
	PictureBright   PictureMode = "000"
	PictureSoft     PictureMode = "000"
	PictureCustomer PictureMode = "000"
)

type ColorTemp string

const (
	ColorTempCool     ColorTemp = "000"
	ColorTempStandard ColorTemp = "001"
	ColorTempWarm     ColorTemp = "002"
)

type RemoteControl string

const (
	RemoteEnable  RemoteControl = "000"
	RemoteDisable RemoteControl = "001"
)

type enumEntry struct {
	name string
	code string
}

var onOffEntries = []enumEntry{{"off", string(Off)}, {"on", string(On)}}

var enumTables = map[Command][]enumEntry{
	CmdPower: {
		{"backlight_off", string(PowerBacklightOff)},
		{"backlight_on", string(PowerBacklightOn)},
		{"power_off", string(PowerOff)},
		{"power_on", string(PowerOn)},
	},
	CmdSoundMode: {
		{"movie", string(SoundMovie)},
		{"standard", string(SoundStandard)},
		{"custom", string(SoundCustom)},
		{"classroom", string(SoundClassroom)},
		{"meeting", string(SoundMeeting)},
	},
	CmdMute:    onOffEntries,
	CmdSpeaker: onOffEntries,
	CmdVideoSource: {
		{"vga", string(SourceVGA)},
		{"vga2", string(SourceVGA2)},
		{"vga3", string(SourceVGA3)},
		{"hdmi1", string(SourceHDMI1)},
		{"hdmi2", string(SourceHDMI2)},
		{"hdmi3", string(SourceHDMI3)},
		{"hdmi4", string(SourceHDMI4)},
		{"composite", string(SourceComposite)},
		{"atv", string(SourceATV)},
		{"android", string(SourceAndroid)},
		{"slot_in_pc", string(SourceSlotInPC)},
		{"display_port", string(SourceDisplayPort)},
		{"android_plus", string(SourceAndroidPlus)},
		{"c1", string(SourceC1)},
		{"c2", string(SourceC2)},
		{"dtv", string(SourceDTV)},
		{"component", string(SourceComponent)},
		{"dvi", string(SourceDVI)},
	},
	CmdAspectRatio: {
		{"16:9", string(Aspect16x9)},
		{"4:3", string(Aspect4x3)},
		{"ptp", string(AspectPTP)},
	},
	CmdPictureMode: {
		{"standard", string(PictureStandard)},
		{"bright", string(PictureBright)},
		{"soft", string(PictureSoft)},
		{"customer", string(PictureCustomer)},
	},
	CmdColorTemp: {
		{"cool", string(ColorTempCool)},
		{"standard", string(ColorTempStandard)},
		{"warm", string(ColorTempWarm)},
	},
	CmdRemoteControl: {
		{"enable", string(RemoteEnable)},
		{"disable", string(RemoteDisable)},
	},
}

// LookupCode 将枚举名或三位码解析为该命令的三位码。
// 无码表的命令（如 language）接受任意三位数字。
func LookupCode(cmd Command, s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	entries, ok := enumTables[cmd]
	if !ok {
		if IsCode(s) {
			return s, true
		}
		return "", false
	}
	for _, e := range entries {
		if e.name == s || e.code == s {
			return e.code, true
		}
	}
	return "", false
}

// CodeName 返回码值对应的首个枚举名，未知时原样返回码值
func CodeName(cmd Command, code string) string {
	for _, e := range enumTables[cmd] {
		if e.code == code {
			return e.name
		}
	}
	return code
}

// IsCode 是否为三位十进制字符串
func IsCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
