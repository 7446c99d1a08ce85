package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/char5742/input-emu/internal/descriptor"
	"github.com/char5742/input-emu/internal/types"
)

// Encoder はEVEMUテキストプロトコルのエンコーダ
// 同一のデスクリプタに対して常にバイト単位で同一の出力を生成する
type Encoder struct {
	w       io.Writer
	version Version
}

// NewEncoder は指定のバージョンで出力するエンコーダを作成する
// 対象バージョンで無効なフィールドはエラーにせず省略する
func NewEncoder(w io.Writer, v Version) *Encoder {
	return &Encoder{w: w, version: v}
}

// WriteDescriptor はデスクリプタセクションを固定の順序で出力する
// 順序: バージョンヘッダ、名前、識別子、プロパティ、能力ビットマップ
// （タイプ昇順）、キャリブレーション（コード昇順）、LED・スイッチ状態
func (e *Encoder) WriteDescriptor(d *descriptor.Descriptor) error {
	if _, err := fmt.Fprintf(e.w, "# EVEMU %s\n", e.version); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "N: %s\n", d.Name()); err != nil {
		return err
	}
	id := d.ID()
	if _, err := fmt.Fprintf(e.w, "I: %04x %04x %04x %04x\n",
		id.Bustype, id.Vendor, id.Product, id.Version); err != nil {
		return err
	}

	if props := d.Props(); len(props) > 0 {
		if err := e.writeBitmapLines("P:", "", bitmapBytes(props)); err != nil {
			return err
		}
	}

	for _, evType := range d.EventTypes() {
		codes := d.CapabilitiesFor(evType)
		if len(codes) == 0 {
			continue
		}
		prefix := fmt.Sprintf("%02x", evType)
		if err := e.writeBitmapLines("B:", prefix, bitmapBytes(codes)); err != nil {
			return err
		}
	}

	for _, code := range d.AbsCodes() {
		info, _ := d.AbsInfoFor(code)
		if e.version.AtLeast(V1_2) {
			_, err := fmt.Fprintf(e.w, "A: %02x %d %d %d %d %d\n",
				code, info.Minimum, info.Maximum, info.Fuzz, info.Flat, info.Resolution)
			if err != nil {
				return err
			}
		} else {
			// 1.2より前は解像度フィールドを出力できないため黙って省略する
			_, err := fmt.Fprintf(e.w, "A: %02x %d %d %d %d\n",
				code, info.Minimum, info.Maximum, info.Fuzz, info.Flat)
			if err != nil {
				return err
			}
		}
	}

	if e.version.AtLeast(V1_3) {
		for _, st := range d.LEDStates() {
			if _, err := fmt.Fprintf(e.w, "L: %02x %d\n", st.Code, boolToInt(st.On)); err != nil {
				return err
			}
		}
		for _, st := range d.SwitchStates() {
			if _, err := fmt.Fprintf(e.w, "S: %02x %d\n", st.Code, boolToInt(st.On)); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteEvent はイベントレコードをE:行として出力する
func (e *Encoder) WriteEvent(ev types.Event) error {
	_, err := fmt.Fprintf(e.w, "E: %d.%06d %04x %04x %d\n",
		ev.Time.Sec, ev.Time.Usec, ev.Type, ev.Code, ev.Value)
	return err
}

// writeBitmapLines はビットマップのバイト列を1行あたり8バイトに分割して出力する
func (e *Encoder) writeBitmapLines(linePrefix, fieldPrefix string, bytes []byte) error {
	for off := 0; off < len(bytes); off += 8 {
		end := off + 8
		if end > len(bytes) {
			end = len(bytes)
		}
		var sb strings.Builder
		sb.WriteString(linePrefix)
		if fieldPrefix != "" {
			sb.WriteByte(' ')
			sb.WriteString(fieldPrefix)
		}
		for _, b := range bytes[off:end] {
			fmt.Fprintf(&sb, " %02x", b)
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(e.w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// bitmapBytes は昇順のコード列をビットマップのバイト列へ変換する
func bitmapBytes(codes []uint16) []byte {
	if len(codes) == 0 {
		return nil
	}
	last := codes[len(codes)-1]
	bytes := make([]byte, int(last)/8+1)
	for _, code := range codes {
		bytes[code/8] |= 1 << (code % 8)
	}
	return bytes
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
