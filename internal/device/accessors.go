package device

import (
	"context"
	"fmt"
	"strconv"

	"github.com/taoyao-code/prolite-gateway/internal/coremodel"
	"github.com/taoyao-code/prolite-gateway/internal/protocol"
)

func (d *Device) getScalar(ctx context.Context, cmd coremodel.Command) (int, error) {
	raw, err := d.Get(ctx, cmd)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s reply %q is not numeric", protocol.ErrUnknownResponse, cmd, raw)
	}
	return n, nil
}

func (d *Device) setScalar(ctx context.Context, cmd coremodel.Command, n int) error {
	return d.Set(ctx, cmd, coremodel.Number(n))
}

func (d *Device) setCode(ctx context.Context, cmd coremodel.Command, code string) error {
	return d.Set(ctx, cmd, coremodel.Code(code))
}

// 电源

func (d *Device) PowerState(ctx context.Context) (coremodel.PowerState, error) {
	raw, err := d.Get(ctx, coremodel.CmdPower)
	return coremodel.PowerState(raw), err
}

func (d *Device) SetPowerState(ctx context.Context, s coremodel.PowerState) error {
	return d.setCode(ctx, coremodel.CmdPower, string(s))
}

// 音频

func (d *Device) Treble(ctx context.Context) (int, error) {
	return d.getScalar(ctx, coremodel.CmdTreble)
}

func (d *Device) SetTreble(ctx context.Context, n int) error {
	return d.setScalar(ctx, coremodel.CmdTreble, n)
}

func (d *Device) Bass(ctx context.Context) (int, error) {
	return d.getScalar(ctx, coremodel.CmdBass)
}

func (d *Device) SetBass(ctx context.Context, n int) error {
	return d.setScalar(ctx, coremodel.CmdBass, n)
}

func (d *Device) Balance(ctx context.Context) (int, error) {
	return d.getScalar(ctx, coremodel.CmdBalance)
}

func (d *Device) SetBalance(ctx context.Context, n int) error {
	return d.setScalar(ctx, coremodel.CmdBalance, n)
}

func (d *Device) SoundMode(ctx context.Context) (coremodel.SoundMode, error) {
	raw, err := d.Get(ctx, coremodel.CmdSoundMode)
	return coremodel.SoundMode(raw), err
}

func (d *Device) SetSoundMode(ctx context.Context, m coremodel.SoundMode) error {
	return d.setCode(ctx, coremodel.CmdSoundMode, string(m))
}

func (d *Device) Volume(ctx context.Context) (int, error) {
	return d.getScalar(ctx, coremodel.CmdVolume)
}

func (d *Device) SetVolume(ctx context.Context, n int) error {
	return d.setScalar(ctx, coremodel.CmdVolume, n)
}

func (d *Device) Mute(ctx context.Context) (coremodel.OnOff, error) {
	raw, err := d.Get(ctx, coremodel.CmdMute)
	return coremodel.OnOff(raw), err
}

func (d *Device) SetMute(ctx context.Context, v coremodel.OnOff) error {
	return d.setCode(ctx, coremodel.CmdMute, string(v))
}

func (d *Device) Speaker(ctx context.Context) (coremodel.OnOff, error) {
	raw, err := d.Get(ctx, coremodel.CmdSpeaker)
	return coremodel.OnOff(raw), err
}

func (d *Device) SetSpeaker(ctx context.Context, v coremodel.OnOff) error {
	return d.setCode(ctx, coremodel.CmdSpeaker, string(v))
}

// 图像

func (d *Device) Contrast(ctx context.Context) (int, error) {
	return d.getScalar(ctx, coremodel.CmdContrast)
}

func (d *Device) SetContrast(ctx context.Context, n int) error {
	return d.setScalar(ctx, coremodel.CmdContrast, n)
}

func (d *Device) Brightness(ctx context.Context) (int, error) {
	return d.getScalar(ctx, coremodel.CmdBrightness)
}

func (d *Device) SetBrightness(ctx context.Context, n int) error {
	return d.setScalar(ctx, coremodel.CmdBrightness, n)
}

func (d *Device) Sharpness(ctx context.Context) (int, error) {
	return d.getScalar(ctx, coremodel.CmdSharpness)
}

func (d *Device) SetSharpness(ctx context.Context, n int) error {
	return d.setScalar(ctx, coremodel.CmdSharpness, n)
}

func (d *Device) Hue(ctx context.Context) (int, error) {
	return d.getScalar(ctx, coremodel.CmdHue)
}

func (d *Device) SetHue(ctx context.Context, n int) error {
	return d.setScalar(ctx, coremodel.CmdHue, n)
}

func (d *Device) Backlight(ctx context.Context) (int, error) {
	return d.getScalar(ctx, coremodel.CmdBacklight)
}

func (d *Device) SetBacklight(ctx context.Context, n int) error {
	return d.setScalar(ctx, coremodel.CmdBacklight, n)
}

// Input 当前输入源
func (d *Device) Input(ctx context.Context) (coremodel.VideoSource, error) {
	raw, err := d.Get(ctx, coremodel.CmdVideoSource)
	return coremodel.VideoSource(raw), err
}

// SetInput 切换输入源
func (d *Device) SetInput(ctx context.Context, src coremodel.VideoSource) error {
	return d.setCode(ctx, coremodel.CmdVideoSource, string(src))
}

func (d *Device) AspectRatio(ctx context.Context) (coremodel.AspectRatio, error) {
	raw, err := d.Get(ctx, coremodel.CmdAspectRatio)
	return coremodel.AspectRatio(raw), err
}

func (d *Device) SetAspectRatio(ctx context.Context, a coremodel.AspectRatio) error {
	return d.setCode(ctx, coremodel.CmdAspectRatio, string(a))
}

// PictureMode 注意各模式码值相同，读回无法区分
func (d *Device) PictureMode(ctx context.Context) (coremodel.PictureMode, error) {
	raw, err := d.Get(ctx, coremodel.CmdPictureMode)
	return coremodel.PictureMode(raw), err
}

func (d *Device) SetPictureMode(ctx context.Context, m coremodel.PictureMode) error {
	return d.setCode(ctx, coremodel.CmdPictureMode, string(m))
}

func (d *Device) ColorTemp(ctx context.Context) (coremodel.ColorTemp, error) {
	raw, err := d.Get(ctx, coremodel.CmdColorTemp)
	return coremodel.ColorTemp(raw), err
}

func (d *Device) SetColorTemp(ctx context.Context, c coremodel.ColorTemp) error {
	return d.setCode(ctx, coremodel.CmdColorTemp, string(c))
}

// Language 菜单语言，厂商未给出码表，原样返回三位码
func (d *Device) Language(ctx context.Context) (string, error) {
	return d.Get(ctx, coremodel.CmdLanguage)
}

func (d *Device) SetLanguage(ctx context.Context, code string) error {
	return d.setCode(ctx, coremodel.CmdLanguage, code)
}

func (d *Device) RemoteControl(ctx context.Context) (coremodel.RemoteControl, error) {
	raw, err := d.Get(ctx, coremodel.CmdRemoteControl)
	return coremodel.RemoteControl(raw), err
}

func (d *Device) SetRemoteControl(ctx context.Context, r coremodel.RemoteControl) error {
	return d.setCode(ctx, coremodel.CmdRemoteControl, string(r))
}
