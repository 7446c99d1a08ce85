package descriptor

import (
	"errors"
	"testing"

	"github.com/char5742/input-emu/internal/consts"
	"github.com/char5742/input-emu/internal/types"
)

func TestSetAbsInfoRequiresCapability(t *testing.T) {
	desc := NewDescriptor()

	// 能力として登録されていないコードへの設定は常に失敗する
	for _, code := range []uint16{0x00, consts.AbsMtPositionX, consts.AbsMax} {
		err := desc.SetAbsInfo(code, types.AbsInfo{Maximum: 100})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("コード%#xでErrInvalidArgumentが返されていません: %v", code, err)
		}
	}

	if err := desc.AddCapability(consts.Abs, consts.AbsX); err != nil {
		t.Fatalf("AddCapabilityに失敗: %v", err)
	}
	if err := desc.SetAbsInfo(consts.AbsX, types.AbsInfo{Maximum: 100}); err != nil {
		t.Fatalf("登録済みコードへのSetAbsInfoに失敗: %v", err)
	}
}

func TestAddCapabilityBounds(t *testing.T) {
	desc := NewDescriptor()

	if err := desc.AddCapability(consts.Key, consts.KeyMax); err != nil {
		t.Fatalf("最大コードの登録に失敗: %v", err)
	}
	if err := desc.AddCapability(consts.Key, consts.KeyMax+1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("範囲外コードが拒否されていません: %v", err)
	}
	if err := desc.AddCapability(0x1e, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("未知のイベントタイプが拒否されていません: %v", err)
	}
}

func TestSetNameValidation(t *testing.T) {
	desc := NewDescriptor()

	if err := desc.SetName("改行\nを含む名前"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("改行を含む名前が拒否されていません: %v", err)
	}

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if err := desc.SetName(string(long)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("長すぎる名前が拒否されていません: %v", err)
	}

	if err := desc.SetName("Keyboard #2"); err != nil {
		t.Fatalf("通常の名前の設定に失敗: %v", err)
	}
	if desc.Name() != "Keyboard #2" {
		t.Fatalf("名前が保持されていません: %q", desc.Name())
	}
}

func TestCapabilitiesAscendingOrder(t *testing.T) {
	desc := NewDescriptor()

	// 登録順に関係なく昇順で返される
	for _, code := range []uint16{0x30, 0x01, 0x2f, 0x00} {
		if err := desc.AddCapability(consts.Abs, code); err != nil {
			t.Fatalf("AddCapabilityに失敗: %v", err)
		}
	}
	codes := desc.CapabilitiesFor(consts.Abs)
	want := []uint16{0x00, 0x01, 0x2f, 0x30}
	if len(codes) != len(want) {
		t.Fatalf("コード数が正しくありません: %v", codes)
	}
	for i, c := range want {
		if codes[i] != c {
			t.Fatalf("昇順になっていません: %v", codes)
		}
	}
}

func TestEventTypesAscendingOrder(t *testing.T) {
	desc := NewDescriptor()
	for _, typ := range []uint16{consts.Led, consts.Key, consts.Abs} {
		if err := desc.AddCapability(typ, 0); err != nil {
			t.Fatalf("AddCapabilityに失敗: %v", err)
		}
	}
	typs := desc.EventTypes()
	want := []uint16{consts.Key, consts.Abs, consts.Led}
	for i, typ := range want {
		if typs[i] != typ {
			t.Fatalf("イベントタイプが昇順になっていません: %v", typs)
		}
	}
}

func TestStateBounds(t *testing.T) {
	desc := NewDescriptor()

	if err := desc.SetLED(consts.LedMax+1, true); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("範囲外のLEDコードが拒否されていません: %v", err)
	}
	if err := desc.SetSwitch(consts.SwMax+1, true); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("範囲外のスイッチコードが拒否されていません: %v", err)
	}
	if err := desc.AddProp(consts.InputPropMax + 1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("範囲外のプロパティコードが拒否されていません: %v", err)
	}
}
