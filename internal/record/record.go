package record

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/char5742/input-emu/internal/descriptor"
	"github.com/char5742/input-emu/internal/format"
	"github.com/char5742/input-emu/internal/types"
)

// Introspector はデバイスのデスクリプタを取得できる対象を表す
type Introspector interface {
	Describe() (*descriptor.Descriptor, error)
}

// Device は記録対象のデバイスを表す
// デスクリプタの取得とイベントの読み取りの両方ができる
type Device interface {
	Introspector
	ReadEvent() (types.Event, error)
}

// Describe はデバイスのデスクリプタを読み取り、指定バージョンで出力する
// デバイス名が空の場合はプロセスIDから代替名を合成する
func Describe(dev Introspector, w io.Writer, v format.Version) error {
	desc, err := dev.Describe()
	if err != nil {
		return fmt.Errorf("デスクリプタの取得に失敗しました: %w", err)
	}
	if desc.Name() == "" {
		if err := desc.SetName(fmt.Sprintf("input-emu-%d", os.Getpid())); err != nil {
			return err
		}
	}
	return format.NewEncoder(w, v).WriteDescriptor(desc)
}

// Record はデバイスのデスクリプタを出力した後、イベントをE:行として
// 記録し続ける。デバイスが取り外されるかstopが閉じられるまで継続し、
// 記録したイベント数を返す
func Record(dev Device, w io.Writer, v format.Version, stop <-chan struct{}) (int, error) {
	if err := Describe(dev, w, v); err != nil {
		return 0, err
	}

	enc := format.NewEncoder(w, v)
	count := 0
	for {
		select {
		case <-stop:
			return count, nil
		default:
		}

		ev, err := dev.ReadEvent()
		if errors.Is(err, io.EOF) {
			// デバイスが取り外された
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("イベントの読み取りに失敗しました: %w", err)
		}
		if err := enc.WriteEvent(ev); err != nil {
			return count, fmt.Errorf("イベントの記録に失敗しました: %w", err)
		}
		count++
	}
}
