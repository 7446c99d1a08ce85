package uinput

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/char5742/input-emu/internal/consts"
	"github.com/char5742/input-emu/internal/descriptor"
	"github.com/char5742/input-emu/internal/types"
	"github.com/char5742/input-emu/internal/utils"
)

// ErrResourceUnavailable は仮想デバイス作成に必要な権限または
// カーネル資源が利用できないことを表す
var ErrResourceUnavailable = errors.New("uinput device unavailable")

// 作成したデバイスノードが/dev/input以下に現れるまでの待機時間の上限
const defaultNodeTimeout = 3 * time.Second

// Device は作成済みの仮想入力デバイスを表す
type Device struct {
	file      *os.File // uinputのファイルディスクリプタ
	node      string   // /dev/input/eventN のパス
	destroyed bool
}

// イベントタイプごとのコードビット設定用IOCTL
var setBitByType = map[uint16]uintptr{
	consts.Key: consts.SetKeyBit,
	consts.Rel: consts.SetRelBit,
	consts.Abs: consts.SetAbsBit,
	consts.Msc: consts.SetMscBit,
	consts.Sw:  consts.SetSwBit,
	consts.Led: consts.SetLedBit,
	consts.Snd: consts.SetSndBit,
	consts.Ff:  consts.SetFfBit,
}

// Create はデスクリプタの内容で仮想入力デバイスを作成する
// 権限やカーネル資源が不足している場合はErrResourceUnavailableを、
// デスクリプタが構造的に不整合な場合はdescriptor.ErrInvalidArgumentを返す
// nodeTimeoutはデバイスノードの出現を待つ時間の上限（0でデフォルト）
func Create(path string, desc *descriptor.Descriptor, nodeTimeout time.Duration) (*Device, error) {
	if err := validate(desc); err != nil {
		return nil, err
	}
	if nodeTimeout <= 0 {
		nodeTimeout = defaultNodeTimeout
	}

	deviceFile, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, fmt.Errorf("%sを開けません (%v): %w", path, err, ErrResourceUnavailable)
		}
		return nil, fmt.Errorf("デバイスファイルを開くのに失敗しました: %w", err)
	}

	if err := setup(deviceFile, desc); err != nil {
		_ = deviceFile.Close()
		return nil, err
	}

	if err := writeUserDev(deviceFile, desc); err != nil {
		_ = deviceFile.Close()
		return nil, err
	}

	if err := utils.IOCtl(deviceFile, consts.DevCreate, uintptr(0)); err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイスの作成に失敗しました (%v): %w", err, ErrResourceUnavailable)
	}

	node, err := resolveNode(deviceFile)
	if err != nil {
		_ = utils.IOCtl(deviceFile, consts.DevDestroy, uintptr(0))
		_ = deviceFile.Close()
		return nil, err
	}

	// カーネルがノードを生成し終えるまでにはラグがあるため出現を待つ
	if err := waitForNode(node, nodeTimeout); err != nil {
		_ = utils.IOCtl(deviceFile, consts.DevDestroy, uintptr(0))
		_ = deviceFile.Close()
		return nil, err
	}

	return &Device{file: deviceFile, node: node}, nil
}

// Node は作成されたデバイスノードのパスを返す
func (d *Device) Node() string {
	return d.node
}

// WriteEvent はイベントを仮想デバイスへ書き込む
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

// Destroy は仮想デバイスを破棄する。複数回呼んでも安全
func (d *Device) Destroy() error {
	if d.destroyed {
		return nil
	}
	d.destroyed = true
	_ = utils.IOCtl(d.file, consts.DevDestroy, uintptr(0))
	return d.file.Close()
}

// validate はデバイス作成前にデスクリプタの構造的な整合性を確認する
func validate(desc *descriptor.Descriptor) error {
	for _, code := range desc.AbsCodes() {
		info, _ := desc.AbsInfoFor(code)
		if info.Minimum > info.Maximum {
			return fmt.Errorf("絶対座標コード %#x の最小値 %d が最大値 %d を超えています: %w",
				code, info.Minimum, info.Maximum, descriptor.ErrInvalidArgument)
		}
	}
	return nil
}

// setup はデスクリプタの能力をuinputデバイスへ登録する
func setup(deviceFile *os.File, desc *descriptor.Descriptor) error {
	for _, evType := range desc.EventTypes() {
		if err := utils.IOCtl(deviceFile, consts.SetEvBit, uintptr(evType)); err != nil {
			return fmt.Errorf("イベントタイプ %#x の登録に失敗しました: %v", evType, err)
		}
		setBit, ok := setBitByType[evType]
		if !ok {
			// EV_SYNやEV_REPなどコードごとの登録が不要なタイプ
			continue
		}
		for _, code := range desc.CapabilitiesFor(evType) {
			if err := utils.IOCtl(deviceFile, setBit, uintptr(code)); err != nil {
				return fmt.Errorf("イベントコードの登録に失敗しました %#x/%#x: %v", evType, code, err)
			}
		}
	}

	for _, prop := range desc.Props() {
		if err := utils.IOCtl(deviceFile, consts.SetPropBit, uintptr(prop)); err != nil {
			return fmt.Errorf("プロパティ %#x の設定に失敗しました: %v", prop, err)
		}
	}
	return nil
}

// writeUserDev はuinput_user_dev構造体を書き込む
func writeUserDev(deviceFile *os.File, desc *descriptor.Descriptor) error {
	userDev := types.UserDev{
		Name: toUinputName(desc.Name()),
		ID:   desc.ID(),
	}
	for _, code := range desc.AbsCodes() {
		if int(code) >= consts.AbsSize {
			continue
		}
		info, _ := desc.AbsInfoFor(code)
		userDev.Absmin[code] = info.Minimum
		userDev.Absmax[code] = info.Maximum
		userDev.Absfuzz[code] = info.Fuzz
		userDev.Absflat[code] = info.Flat
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, userDev); err != nil {
		return fmt.Errorf("ユーザーデバイスバッファの書き込みに失敗しました: %v", err)
	}
	if _, err := deviceFile.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("デバイス構造体をデバイスファイルに書き込むのに失敗しました: %v", err)
	}
	return nil
}

// resolveNode は作成したデバイスのsysfs名からデバイスノードのパスを求める
func resolveNode(deviceFile *os.File) (string, error) {
	buf := make([]byte, 64)
	if _, err := utils.IOCtlBytes(deviceFile, consts.GetSysname(len(buf)), buf); err != nil {
		return "", fmt.Errorf("sysfs名の取得に失敗しました: %v", err)
	}
	sysname := strings.TrimRight(string(buf), "\x00")

	sysDir := filepath.Join("/sys/devices/virtual/input", sysname)
	entries, err := os.ReadDir(sysDir)
	if err != nil {
		return "", fmt.Errorf("%sの読み取りに失敗しました: %v", sysDir, err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "event") {
			return filepath.Join("/dev/input", entry.Name()), nil
		}
	}
	return "", fmt.Errorf("デバイスノードを特定できません: %s", sysDir)
}

// 名前をuinput用の固定長配列に変換する
func toUinputName(name string) (uinputName [consts.MaxNameSize]byte) {
	copy(uinputName[:], name)
	return uinputName
}
