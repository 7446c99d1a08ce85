package uinput

import (
	"errors"
	"testing"

	"github.com/char5742/input-emu/internal/consts"
	"github.com/char5742/input-emu/internal/descriptor"
	"github.com/char5742/input-emu/internal/types"
)

func TestValidateRejectsInvertedRange(t *testing.T) {
	desc := descriptor.NewDescriptor()
	if err := desc.AddCapability(consts.Abs, consts.AbsX); err != nil {
		t.Fatalf("AddCapabilityに失敗: %v", err)
	}
	if err := desc.SetAbsInfo(consts.AbsX, types.AbsInfo{Minimum: 100, Maximum: 0}); err != nil {
		t.Fatalf("SetAbsInfoに失敗: %v", err)
	}

	// 最小値が最大値を超えるデスクリプタは構造的に不整合
	if err := validate(desc); !errors.Is(err, descriptor.ErrInvalidArgument) {
		t.Fatalf("ErrInvalidArgumentが返されていません: %v", err)
	}
}

func TestValidateAcceptsEqualRange(t *testing.T) {
	desc := descriptor.NewDescriptor()
	if err := desc.AddCapability(consts.Abs, consts.AbsX); err != nil {
		t.Fatalf("AddCapabilityに失敗: %v", err)
	}
	if err := desc.SetAbsInfo(consts.AbsX, types.AbsInfo{Minimum: 50, Maximum: 50}); err != nil {
		t.Fatalf("SetAbsInfoに失敗: %v", err)
	}
	if err := validate(desc); err != nil {
		t.Fatalf("validateに失敗: %v", err)
	}
}

func TestToUinputNameTruncates(t *testing.T) {
	long := make([]byte, consts.MaxNameSize*2)
	for i := range long {
		long[i] = 'x'
	}
	name := toUinputName(string(long))
	if len(name) != consts.MaxNameSize {
		t.Fatalf("固定長配列のサイズが正しくありません: %d", len(name))
	}
	if name[consts.MaxNameSize-1] != 'x' {
		t.Fatalf("名前が配列にコピーされていません")
	}
}
