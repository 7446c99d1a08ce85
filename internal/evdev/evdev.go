package evdev

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/char5742/input-emu/internal/consts"
	"github.com/char5742/input-emu/internal/descriptor"
	"github.com/char5742/input-emu/internal/types"
	"github.com/char5742/input-emu/internal/utils"
)

// Device は/dev/input以下の実デバイスを表す
type Device struct {
	file    *os.File
	path    string
	grabbed bool
}

// Open は指定パスのデバイスを読み書き両用で開く
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0660)
	if err != nil {
		return nil, fmt.Errorf("デバイスファイルを開くのに失敗しました: %w", err)
	}
	return &Device{file: f, path: path}, nil
}

// Path はデバイスノードのパスを返す
func (d *Device) Path() string {
	return d.path
}

// Close はデバイスを閉じる
func (d *Device) Close() error {
	_ = d.Release()
	return d.file.Close()
}

// Grab はデバイスを排他的に取得する
func (d *Device) Grab() error {
	if d.grabbed {
		return nil
	}
	if err := utils.IOCtl(d.file, consts.EVIOCGRAB, 1); err != nil {
		return fmt.Errorf("デバイスの排他取得に失敗しました: %w", err)
	}
	d.grabbed = true
	return nil
}

// Release はデバイスの排他取得を解除する
func (d *Device) Release() error {
	if !d.grabbed {
		return nil
	}
	if err := utils.IOCtl(d.file, consts.EVIOCGRAB, 0); err != nil {
		return fmt.Errorf("デバイスの排他解除に失敗しました: %w", err)
	}
	d.grabbed = false
	return nil
}

// ReadEvent は次の入力イベントを読み取る
// 下層の物理デバイスが取り外された場合はio.EOFを返す
func (d *Device) ReadEvent() (types.Event, error) {
	var e types.Event
	buf := make([]byte, binary.Size(e))

	if _, err := io.ReadFull(d.file, buf); err != nil {
		if errors.Is(err, syscall.ENODEV) || errors.Is(err, io.EOF) ||
			errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, os.ErrClosed) {
			return types.Event{}, io.EOF
		}
		return types.Event{}, fmt.Errorf("イベントの読み取りに失敗しました: %w", err)
	}

	e.Time.Sec = int64(binary.LittleEndian.Uint64(buf[0:8]))
	e.Time.Usec = int64(binary.LittleEndian.Uint64(buf[8:16]))
	e.Type = binary.LittleEndian.Uint16(buf[16:18])
	e.Code = binary.LittleEndian.Uint16(buf[18:20])
	e.Value = int32(binary.LittleEndian.Uint32(buf[20:24]))
	return e, nil
}

// WriteEvent はイベントをデバイスノードへ書き込む
// 既存の仮想デバイスノードへ直接再生する場合に使う
func (d *Device) WriteEvent(ev types.Event) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, ev); err != nil {
		return fmt.Errorf("イベントをバッファに書き込むのに失敗しました: %v", err)
	}
	if _, err := d.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("イベントの書き込みに失敗しました: %w", err)
	}
	return nil
}

// Describe はデバイスの識別情報と能力を読み取ってデスクリプタを構築する
func (d *Device) Describe() (*descriptor.Descriptor, error) {
	desc := descriptor.NewDescriptor()

	if err := d.describeName(desc); err != nil {
		return nil, err
	}
	if err := d.describeID(desc); err != nil {
		return nil, err
	}
	if err := d.describeProps(desc); err != nil {
		return nil, err
	}
	if err := d.describeCaps(desc); err != nil {
		return nil, err
	}
	if err := d.describeAbs(desc); err != nil {
		return nil, err
	}
	if err := d.describeState(desc); err != nil {
		return nil, err
	}
	return desc, nil
}

func (d *Device) describeName(desc *descriptor.Descriptor) error {
	buf := make([]byte, 256)
	if _, err := utils.IOCtlBytes(d.file, consts.GetName(len(buf)), buf); err != nil {
		return fmt.Errorf("デバイス名の取得に失敗しました: %v", err)
	}
	name := strings.TrimRight(string(buf), "\x00")
	if err := desc.SetName(name); err != nil {
		return err
	}
	return nil
}

func (d *Device) describeID(desc *descriptor.Descriptor) error {
	buf := make([]byte, 8)
	if _, err := utils.IOCtlBytes(d.file, consts.EVIOCGID, buf); err != nil {
		return fmt.Errorf("デバイス識別子の取得に失敗しました: %v", err)
	}
	desc.SetID(types.InputID{
		Bustype: binary.LittleEndian.Uint16(buf[0:2]),
		Vendor:  binary.LittleEndian.Uint16(buf[2:4]),
		Product: binary.LittleEndian.Uint16(buf[4:6]),
		Version: binary.LittleEndian.Uint16(buf[6:8]),
	})
	return nil
}

func (d *Device) describeProps(desc *descriptor.Descriptor) error {
	buf := make([]byte, consts.InputPropMax/8+1)
	if _, err := utils.IOCtlBytes(d.file, consts.GetProp(len(buf)), buf); err != nil {
		// 古いカーネルはプロパティ取得に対応していない
		return nil
	}
	for code := uint16(0); code <= consts.InputPropMax; code++ {
		if bitSet(buf, code) {
			if err := desc.AddProp(code); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Device) describeCaps(desc *descriptor.Descriptor) error {
	for evType := uint16(1); evType <= consts.EvMax; evType++ {
		max, ok := consts.MaxCode(evType)
		if !ok {
			continue
		}
		buf := make([]byte, int(max)/8+1)
		if _, err := utils.IOCtlBytes(d.file, consts.GetBit(evType, len(buf)), buf); err != nil {
			continue
		}
		for code := uint16(0); code <= max; code++ {
			if bitSet(buf, code) {
				if err := desc.AddCapability(evType, code); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d *Device) describeAbs(desc *descriptor.Descriptor) error {
	for _, code := range desc.CapabilitiesFor(consts.Abs) {
		buf := make([]byte, 24)
		if _, err := utils.IOCtlBytes(d.file, consts.GetAbs(code), buf); err != nil {
			return fmt.Errorf("絶対座標情報の取得に失敗しました %#x: %v", code, err)
		}
		info := types.AbsInfo{
			Value:      int32(binary.LittleEndian.Uint32(buf[0:4])),
			Minimum:    int32(binary.LittleEndian.Uint32(buf[4:8])),
			Maximum:    int32(binary.LittleEndian.Uint32(buf[8:12])),
			Fuzz:       int32(binary.LittleEndian.Uint32(buf[12:16])),
			Flat:       int32(binary.LittleEndian.Uint32(buf[16:20])),
			Resolution: int32(binary.LittleEndian.Uint32(buf[20:24])),
		}
		if err := desc.SetAbsInfo(code, info); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) describeState(desc *descriptor.Descriptor) error {
	ledBuf := make([]byte, consts.LedMax/8+1)
	if _, err := utils.IOCtlBytes(d.file, consts.GetLed(len(ledBuf)), ledBuf); err == nil {
		for _, code := range desc.CapabilitiesFor(consts.Led) {
			if err := desc.SetLED(code, bitSet(ledBuf, code)); err != nil {
				return err
			}
		}
	}

	swBuf := make([]byte, consts.SwMax/8+1)
	if _, err := utils.IOCtlBytes(d.file, consts.GetSw(len(swBuf)), swBuf); err == nil {
		for _, code := range desc.CapabilitiesFor(consts.Sw) {
			if err := desc.SetSwitch(code, bitSet(swBuf, code)); err != nil {
				return err
			}
		}
	}
	return nil
}

func bitSet(buf []byte, code uint16) bool {
	return buf[code/8]&(1<<(code%8)) != 0
}
