package replay

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/char5742/input-emu/internal/types"
)

// Source はタイムスタンプ付きイベントの供給源を表すインターフェース
// ストリーム終端ではio.EOFを返す
// デコーダと実デバイスのどちらもこのインターフェースを満たす
type Source interface {
	ReadEvent() (types.Event, error)
}

// Writer は再生先のイベントチャネルを表すインターフェース
type Writer interface {
	WriteEvent(types.Event) error
}

// WriteError はチャネルへの書き込み失敗を表すエラー
// 失敗までに正常に再生できたイベント数を保持する
type WriteError struct {
	Count int   // 正常に再生できたイベント数
	Err   error // 書き込み失敗の原因
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("イベントの書き込みに失敗しました (%d個まで再生済み): %v", e.Count, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ReadError はイベント供給源からの読み取り失敗を表すエラー
type ReadError struct {
	Count int   // 正常に再生できたイベント数
	Err   error // 読み取り失敗の原因
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("イベントの読み取りに失敗しました (%d個まで再生済み): %v", e.Count, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Player はイベント列を元のタイミングを再現しながらチャネルへ書き込む
type Player struct {
	// Sleep はイベント間の待機に使う関数。テストで差し替え可能
	Sleep func(time.Duration)
}

// NewPlayer は新しいPlayerを作成する
func NewPlayer() *Player {
	return &Player{Sleep: time.Sleep}
}

// Play は供給源のイベントをすべて書き込み、再生したイベント数を返す
//
// offsetは再生開始オフセット。オフセット分の待機時間がイベント間の
// 待機から先に消費され、全体の所要時間がその分だけ短くなる
// 負のオフセットはゼロに切り詰める
//
// タイムスタンプが前のイベントより過去に戻る場合、待機時間はゼロに
// 飽和させて処理を続行する。書き込みに失敗した場合は残りを再生せず、
// それまでの再生数を持つWriteErrorを返す
func (p *Player) Play(src Source, dst Writer, offset time.Duration) (int, error) {
	if offset < 0 {
		offset = 0
	}
	budget := offset

	count := 0
	var prev time.Duration
	first := true

	for {
		ev, err := src.ReadEvent()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, &ReadError{Count: count, Err: err}
		}

		ts := ev.Timestamp()
		var delta time.Duration
		if !first && ts > prev {
			delta = ts - prev
		}
		first = false
		prev = ts

		// オフセット予算を先に消費し、残りだけ待機する
		if budget >= delta {
			budget -= delta
			delta = 0
		} else {
			delta -= budget
			budget = 0
		}
		if delta > 0 {
			p.Sleep(delta)
		}

		if err := dst.WriteEvent(ev); err != nil {
			return count, &WriteError{Count: count, Err: err}
		}
		count++
	}
}
