package descriptor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/char5742/input-emu/internal/consts"
	"github.com/char5742/input-emu/internal/types"
)

// ErrInvalidArgument はデスクリプタ構築時の検証エラーを表す
var ErrInvalidArgument = errors.New("invalid argument")

// デバイス名の最大長（信頼できない入力源からの名前に対する上限）
const maxNameLen = 256

// Descriptor は一つの入力デバイスの識別情報・プロパティ・能力ビットマップを表す
// イベントデータは含まない静的な記述のみを保持する
type Descriptor struct {
	name     string
	id       types.InputID
	props    map[uint16]struct{}
	caps     map[uint16]map[uint16]struct{}
	abs      map[uint16]types.AbsInfo
	leds     map[uint16]bool
	switches map[uint16]bool
}

// BitState はLEDまたはスイッチの状態（コードと点灯/接続状態）を表す
type BitState struct {
	Code uint16
	On   bool
}

// NewDescriptor は空のデスクリプタを作成する
func NewDescriptor() *Descriptor {
	return &Descriptor{
		props:    make(map[uint16]struct{}),
		caps:     make(map[uint16]map[uint16]struct{}),
		abs:      make(map[uint16]types.AbsInfo),
		leds:     make(map[uint16]bool),
		switches: make(map[uint16]bool),
	}
}

// SetName はデバイス名を設定する
// 改行を含む名前や上限を超える長さの名前は拒否する
func (d *Descriptor) SetName(name string) error {
	if strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("デバイス名に改行を含めることはできません: %w", ErrInvalidArgument)
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("デバイス名が長すぎます (%d > %d): %w", len(name), maxNameLen, ErrInvalidArgument)
	}
	d.name = name
	return nil
}

// Name はデバイス名を返す
func (d *Descriptor) Name() string {
	return d.name
}

// SetID はデバイス識別子を設定する
func (d *Descriptor) SetID(id types.InputID) {
	d.id = id
}

// ID はデバイス識別子を返す
func (d *Descriptor) ID() types.InputID {
	return d.id
}

// AddProp はデバイスプロパティを追加する
func (d *Descriptor) AddProp(code uint16) error {
	if code > consts.InputPropMax {
		return fmt.Errorf("プロパティコード %#x が最大値 %#x を超えています: %w",
			code, consts.InputPropMax, ErrInvalidArgument)
	}
	d.props[code] = struct{}{}
	return nil
}

// HasProp は指定のプロパティを持つかどうかを返す
func (d *Descriptor) HasProp(code uint16) bool {
	_, ok := d.props[code]
	return ok
}

// Props は設定されているプロパティコードを昇順で返す
func (d *Descriptor) Props() []uint16 {
	return sortedCodes(d.props)
}

// AddCapability は指定イベントタイプに対応コードを追加する
func (d *Descriptor) AddCapability(evType, code uint16) error {
	max, ok := consts.MaxCode(evType)
	if !ok {
		return fmt.Errorf("未知のイベントタイプ %#x です: %w", evType, ErrInvalidArgument)
	}
	if code > max {
		return fmt.Errorf("イベントタイプ %#x のコード %#x が最大値 %#x を超えています: %w",
			evType, code, max, ErrInvalidArgument)
	}
	set, ok := d.caps[evType]
	if !ok {
		set = make(map[uint16]struct{})
		d.caps[evType] = set
	}
	set[code] = struct{}{}
	return nil
}

// HasCapability は指定のタイプ・コードの組を持つかどうかを返す
func (d *Descriptor) HasCapability(evType, code uint16) bool {
	set, ok := d.caps[evType]
	if !ok {
		return false
	}
	_, ok = set[code]
	return ok
}

// EventTypes は能力が登録されているイベントタイプを昇順で返す
func (d *Descriptor) EventTypes() []uint16 {
	return sortedCodes16(d.caps)
}

// CapabilitiesFor は指定イベントタイプの対応コードを昇順で返す
// エンコーダが常に同一のビット配置を再現できるよう、順序は昇順で固定する
func (d *Descriptor) CapabilitiesFor(evType uint16) []uint16 {
	set, ok := d.caps[evType]
	if !ok {
		return nil
	}
	return sortedCodes(set)
}

// SetAbsInfo は絶対座標軸のキャリブレーション情報を設定する
// 事前にAddCapabilityで登録されていないコードは拒否する
func (d *Descriptor) SetAbsInfo(code uint16, info types.AbsInfo) error {
	if !d.HasCapability(consts.Abs, code) {
		return fmt.Errorf("絶対座標コード %#x は能力として登録されていません: %w",
			code, ErrInvalidArgument)
	}
	d.abs[code] = info
	return nil
}

// AbsInfoFor は指定コードのキャリブレーション情報を返す
func (d *Descriptor) AbsInfoFor(code uint16) (types.AbsInfo, bool) {
	info, ok := d.abs[code]
	return info, ok
}

// AbsCodes はキャリブレーション情報を持つ絶対座標コードを昇順で返す
func (d *Descriptor) AbsCodes() []uint16 {
	codes := make([]uint16, 0, len(d.abs))
	for code := range d.abs {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// SetLED はLEDの現在状態を設定する（フォーマット1.3以降）
func (d *Descriptor) SetLED(code uint16, on bool) error {
	if code > consts.LedMax {
		return fmt.Errorf("LEDコード %#x が最大値 %#x を超えています: %w",
			code, consts.LedMax, ErrInvalidArgument)
	}
	d.leds[code] = on
	return nil
}

// SetSwitch はスイッチの現在状態を設定する（フォーマット1.3以降）
func (d *Descriptor) SetSwitch(code uint16, on bool) error {
	if code > consts.SwMax {
		return fmt.Errorf("スイッチコード %#x が最大値 %#x を超えています: %w",
			code, consts.SwMax, ErrInvalidArgument)
	}
	d.switches[code] = on
	return nil
}

// LEDStates はLEDの状態をコード昇順で返す
func (d *Descriptor) LEDStates() []BitState {
	return sortedStates(d.leds)
}

// SwitchStates はスイッチの状態をコード昇順で返す
func (d *Descriptor) SwitchStates() []BitState {
	return sortedStates(d.switches)
}

func sortedCodes(set map[uint16]struct{}) []uint16 {
	codes := make([]uint16, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func sortedCodes16(m map[uint16]map[uint16]struct{}) []uint16 {
	codes := make([]uint16, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func sortedStates(m map[uint16]bool) []BitState {
	states := make([]BitState, 0, len(m))
	for code, on := range m {
		states = append(states, BitState{Code: code, On: on})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Code < states[j].Code })
	return states
}
