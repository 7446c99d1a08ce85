package format

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"github.com/char5742/input-emu/internal/consts"
	"github.com/char5742/input-emu/internal/descriptor"
	"github.com/char5742/input-emu/internal/types"
)

// MalformedLineError は解析できない行を表すエラー
// 行番号と行の内容を保持し、呼び出し側が診断できるようにする
type MalformedLineError struct {
	Line   int    // 1始まりの行番号
	Text   string // 行の生の内容
	Reason string // 失敗理由
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("%d行目の解析に失敗しました: %s (%q)", e.Line, e.Reason, e.Text)
}

// Decoder はEVEMUテキストプロトコルのストリーミングデコーダ
// 行単位で逐次読み込むため、ストリーム全体をバッファリングしない
// 使い捨てであり、巻き戻しはできない
type Decoder struct {
	s    *bufio.Scanner
	line int

	version   Version // 実効バージョン（宣言または推論による）
	declared  bool    // ヘッダコメントでバージョンが宣言されたか
	declaredV Version // 宣言されたバージョン（コメント配置規則の判定に使う）

	desc     *descriptor.Descriptor
	descDone bool

	// ReadDescriptorが先読みした最初のE:行
	pendingEvent string
	pendingLine  int

	// 行をまたいで継続するビットマップの、タイプごとのバイトオフセット
	bitmapOffset map[uint16]int
	propOffset   int

	// 先頭の連続コメント領域を抜けたかどうか（1.0のコメント配置規則用）
	pastTop bool
}

// NewDecoder は指定のリーダーから読み込むデコーダを作成する
// バージョンヘッダがない場合は1.1を仮定し、オプションフィールドの
// 出現からバージョンを推論する
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		s:            bufio.NewScanner(r),
		version:      V1_1,
		bitmapOffset: make(map[uint16]int),
	}
}

// Version はデコード中に判明した実効フォーマットバージョンを返す
func (d *Decoder) Version() Version {
	return d.version
}

// ReadDescriptor はデスクリプタセクションを最初のE:行（またはEOF）まで
// 読み込み、構築したデスクリプタを返す
func (d *Decoder) ReadDescriptor() (*descriptor.Descriptor, error) {
	if d.descDone {
		return d.desc, nil
	}

	desc := descriptor.NewDescriptor()
	for d.s.Scan() {
		d.line++
		line := strings.TrimRight(d.s.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if err := d.handleComment(line); err != nil {
				return nil, err
			}
			continue
		}
		d.pastTop = true

		if strings.HasPrefix(line, "E:") {
			// イベントセクション開始。行はReadEventに引き継ぐ
			d.pendingEvent = line
			d.pendingLine = d.line
			break
		}
		if err := d.parseDescriptorLine(desc, line); err != nil {
			return nil, err
		}
	}
	if err := d.s.Err(); err != nil {
		return nil, fmt.Errorf("ストリームの読み込みに失敗しました: %w", err)
	}

	d.desc = desc
	d.descDone = true
	return desc, nil
}

// ReadEvent は次のイベントレコードを返す
// ストリーム終端ではio.EOFを返す
func (d *Decoder) ReadEvent() (types.Event, error) {
	if !d.descDone {
		if _, err := d.ReadDescriptor(); err != nil {
			return types.Event{}, err
		}
	}
	if d.pendingEvent != "" {
		line, num := d.pendingEvent, d.pendingLine
		d.pendingEvent = ""
		return d.parseEventLine(num, line)
	}

	for d.s.Scan() {
		d.line++
		line := strings.TrimRight(d.s.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if err := d.handleComment(line); err != nil {
				return types.Event{}, err
			}
			continue
		}
		if strings.HasPrefix(line, "E:") {
			return d.parseEventLine(d.line, line)
		}
		// E:行が一度現れた後のデスクリプタ行は不正
		return types.Event{}, d.malformed(line, "イベントセクション以降にデスクリプタ行は置けません")
	}
	if err := d.s.Err(); err != nil {
		return types.Event{}, fmt.Errorf("ストリームの読み込みに失敗しました: %w", err)
	}
	return types.Event{}, io.EOF
}

// handleComment はコメント行を処理する
// バージョンヘッダの検出と、1.0におけるコメント配置規則の検証を行う
func (d *Decoder) handleComment(line string) error {
	if !d.pastTop && !d.declared {
		var maj, min int
		if n, _ := fmt.Sscanf(line, "# EVEMU %d.%d", &maj, &min); n == 2 {
			if maj != 1 {
				return fmt.Errorf("メジャーバージョン %d は解釈できません: %w", maj, ErrUnsupportedVersion)
			}
			d.version = Version{maj, min}
			d.declaredV = d.version
			d.declared = true
			return nil
		}
	}
	// 1.1より前ではコメントはストリーム先頭の連続領域のみ有効
	if d.pastTop && d.declared && !d.declaredV.AtLeast(V1_1) {
		return d.malformed(line, "このバージョンではコメントはストリーム先頭にのみ置けます")
	}
	return nil
}

// bump は実効バージョンを指定バージョンまで引き上げる
func (d *Decoder) bump(v Version) {
	if !d.version.AtLeast(v) {
		d.version = v
	}
}

func (d *Decoder) parseDescriptorLine(desc *descriptor.Descriptor, line string) error {
	if len(line) < 2 || line[1] != ':' {
		return d.malformed(line, "未知の行形式です")
	}
	rest := line[2:]

	switch line[0] {
	case 'N':
		// 最初の区切り文字以降は「#」を含めそのまま名前として扱う
		name := strings.TrimPrefix(rest, " ")
		if err := desc.SetName(name); err != nil {
			return d.malformed(line, err.Error())
		}
		return nil
	case 'I':
		return d.parseID(desc, line, strings.Fields(rest))
	case 'P':
		return d.parseProps(desc, line, strings.Fields(rest))
	case 'B':
		return d.parseBitmap(desc, line, strings.Fields(rest))
	case 'A':
		return d.parseAbsInfo(desc, line, strings.Fields(rest))
	case 'L':
		return d.parseState(line, strings.Fields(rest), desc.SetLED)
	case 'S':
		return d.parseState(line, strings.Fields(rest), desc.SetSwitch)
	default:
		return d.malformed(line, "未知の行プレフィックスです")
	}
}

func (d *Decoder) parseID(desc *descriptor.Descriptor, line string, fields []string) error {
	if len(fields) != 4 {
		return d.malformed(line, "I:行には4つのフィールドが必要です")
	}
	var vals [4]uint16
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 16, 16)
		if err != nil {
			return d.malformed(line, "16進数の識別子を解析できません")
		}
		vals[i] = uint16(v)
	}
	desc.SetID(types.InputID{
		Bustype: vals[0],
		Vendor:  vals[1],
		Product: vals[2],
		Version: vals[3],
	})
	return nil
}

func (d *Decoder) parseProps(desc *descriptor.Descriptor, line string, fields []string) error {
	if len(fields) == 0 {
		return d.malformed(line, "P:行にビットマップがありません")
	}
	maxBytes := bitmapLen(consts.InputPropMax)
	for _, f := range fields {
		b, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return d.malformed(line, "ビットマップのバイトを解析できません")
		}
		if d.propOffset >= maxBytes {
			return d.malformed(line, "プロパティビットマップが最大値を超えています")
		}
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) == 0 {
				continue
			}
			code := uint16(d.propOffset*8 + bit)
			if err := desc.AddProp(code); err != nil {
				return d.malformed(line, err.Error())
			}
		}
		d.propOffset++
	}
	return nil
}

func (d *Decoder) parseBitmap(desc *descriptor.Descriptor, line string, fields []string) error {
	if len(fields) < 2 {
		return d.malformed(line, "B:行にはイベントタイプとビットマップが必要です")
	}
	t, err := strconv.ParseUint(fields[0], 16, 16)
	if err != nil {
		return d.malformed(line, "イベントタイプを解析できません")
	}
	evType := uint16(t)
	max, ok := consts.MaxCode(evType)
	if !ok {
		return d.malformed(line, "未知のイベントタイプです")
	}

	maxBytes := bitmapLen(max)
	for _, f := range fields[1:] {
		b, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return d.malformed(line, "ビットマップのバイトを解析できません")
		}
		off := d.bitmapOffset[evType]
		if off >= maxBytes {
			return d.malformed(line, "ビットマップがイベントタイプの最大コード数を超えています")
		}
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) == 0 {
				continue
			}
			code := uint16(off*8 + bit)
			if err := desc.AddCapability(evType, code); err != nil {
				return d.malformed(line, err.Error())
			}
		}
		d.bitmapOffset[evType] = off + 1
	}
	return nil
}

func (d *Decoder) parseAbsInfo(desc *descriptor.Descriptor, line string, fields []string) error {
	if len(fields) != 5 && len(fields) != 6 {
		return d.malformed(line, "A:行には5つまたは6つのフィールドが必要です")
	}
	c, err := strconv.ParseUint(fields[0], 16, 16)
	if err != nil {
		return d.malformed(line, "絶対座標コードを解析できません")
	}
	var vals [5]int32
	for i, f := range fields[1:] {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return d.malformed(line, "キャリブレーション値を解析できません")
		}
		vals[i] = int32(v)
	}
	info := types.AbsInfo{
		Minimum: vals[0],
		Maximum: vals[1],
		Fuzz:    vals[2],
		Flat:    vals[3],
	}
	if len(fields) == 6 {
		// 解像度フィールドの存在はフォーマット1.2以上を意味する
		info.Resolution = vals[4]
		d.bump(V1_2)
	}
	if err := desc.SetAbsInfo(uint16(c), info); err != nil {
		return d.malformed(line, err.Error())
	}
	return nil
}

func (d *Decoder) parseState(line string, fields []string, set func(uint16, bool) error) error {
	if len(fields) != 2 {
		return d.malformed(line, "状態行には2つのフィールドが必要です")
	}
	c, err := strconv.ParseUint(fields[0], 16, 16)
	if err != nil {
		return d.malformed(line, "コードを解析できません")
	}
	var on bool
	switch fields[1] {
	case "0":
		on = false
	case "1":
		on = true
	default:
		return d.malformed(line, "状態は0または1でなければなりません")
	}
	if err := set(uint16(c), on); err != nil {
		return d.malformed(line, err.Error())
	}
	// L:/S:行の存在はフォーマット1.3以上を意味する
	d.bump(V1_3)
	return nil
}

func (d *Decoder) parseEventLine(num int, line string) (types.Event, error) {
	fields := strings.Fields(line[2:])
	if len(fields) != 4 {
		return types.Event{}, d.malformedAt(num, line, "E:行には4つのフィールドが必要です")
	}

	secStr, usecStr, ok := strings.Cut(fields[0], ".")
	if !ok {
		return types.Event{}, d.malformedAt(num, line, "タイムスタンプは<秒>.<マイクロ秒>の形式でなければなりません")
	}
	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil || sec < 0 {
		return types.Event{}, d.malformedAt(num, line, "タイムスタンプの秒を解析できません")
	}
	usec, err := strconv.ParseInt(usecStr, 10, 64)
	if err != nil || usec < 0 || usec > 999999 {
		return types.Event{}, d.malformedAt(num, line, "タイムスタンプのマイクロ秒を解析できません")
	}

	t, err := strconv.ParseUint(fields[1], 16, 16)
	if err != nil {
		return types.Event{}, d.malformedAt(num, line, "イベントタイプを解析できません")
	}
	c, err := strconv.ParseUint(fields[2], 16, 16)
	if err != nil {
		return types.Event{}, d.malformedAt(num, line, "イベントコードを解析できません")
	}
	v, err := strconv.ParseInt(fields[3], 10, 32)
	if err != nil {
		return types.Event{}, d.malformedAt(num, line, "イベント値を解析できません")
	}

	return types.Event{
		Time:  syscall.Timeval{Sec: sec, Usec: usec},
		Type:  uint16(t),
		Code:  uint16(c),
		Value: int32(v),
	}, nil
}

func (d *Decoder) malformed(text, reason string) error {
	return d.malformedAt(d.line, text, reason)
}

func (d *Decoder) malformedAt(line int, text, reason string) error {
	return &MalformedLineError{Line: line, Text: text, Reason: reason}
}

// bitmapLen は最大コード値までを表現するのに必要なバイト数を返す
func bitmapLen(maxCode uint16) int {
	return int(maxCode)/8 + 1
}
