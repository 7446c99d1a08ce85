package replay

import (
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/char5742/input-emu/internal/consts"
	"github.com/char5742/input-emu/internal/types"
)

// sliceSource はスライスからイベントを供給するテスト用のSource
type sliceSource struct {
	events []types.Event
	pos    int
}

func (s *sliceSource) ReadEvent() (types.Event, error) {
	if s.pos >= len(s.events) {
		return types.Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// fakeChannel は書き込みを記録し、指定回数目で失敗するテスト用のWriter
type fakeChannel struct {
	written []types.Event
	failAt  int // 1始まり。0は失敗しない
}

func (c *fakeChannel) WriteEvent(ev types.Event) error {
	if c.failAt > 0 && len(c.written)+1 == c.failAt {
		return fmt.Errorf("デバイスが応答しません")
	}
	c.written = append(c.written, ev)
	return nil
}

func eventAt(usec int64) types.Event {
	return types.Event{
		Time: syscall.Timeval{Sec: usec / 1000000, Usec: usec % 1000000},
		Type: consts.Key,
		Code: consts.BtnTouch,
	}
}

// sleepsを記録するPlayerを作成する
func recordingPlayer() (*Player, *[]time.Duration) {
	var sleeps []time.Duration
	p := NewPlayer()
	p.Sleep = func(d time.Duration) {
		sleeps = append(sleeps, d)
	}
	return p, &sleeps
}

func TestPlayTiming(t *testing.T) {
	src := &sliceSource{events: []types.Event{
		eventAt(0), eventAt(10000), eventAt(30000),
	}}
	dst := &fakeChannel{}
	p, sleeps := recordingPlayer()

	count, err := p.Play(src, dst, 0)
	if err != nil {
		t.Fatalf("Playに失敗: %v", err)
	}
	if count != 3 {
		t.Fatalf("再生数が正しくありません: %d", count)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(*sleeps) != len(want) {
		t.Fatalf("待機回数が正しくありません: %v", *sleeps)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Fatalf("待機時間%dが正しくありません: %v != %v", i, (*sleeps)[i], d)
		}
	}
	if len(dst.written) != 3 {
		t.Fatalf("書き込み数が正しくありません: %d", len(dst.written))
	}
}

func TestPlayWithOffset(t *testing.T) {
	src := &sliceSource{events: []types.Event{
		eventAt(0), eventAt(10000), eventAt(30000),
	}}
	dst := &fakeChannel{}
	p, sleeps := recordingPlayer()

	// オフセット15msは最初の間隔10msを完全に吸収し、次の間隔20msを5ms分短縮する
	count, err := p.Play(src, dst, 15*time.Millisecond)
	if err != nil {
		t.Fatalf("Playに失敗: %v", err)
	}
	if count != 3 {
		t.Fatalf("再生数が正しくありません: %d", count)
	}
	var total time.Duration
	for _, d := range *sleeps {
		if d < 0 {
			t.Fatalf("負の待機時間が発生しています: %v", d)
		}
		total += d
	}
	if total != 15*time.Millisecond {
		t.Fatalf("合計待機時間が正しくありません: %v", total)
	}
}

func TestNegativeOffsetClampedToZero(t *testing.T) {
	src := &sliceSource{events: []types.Event{
		eventAt(0), eventAt(10000),
	}}
	dst := &fakeChannel{}
	p, sleeps := recordingPlayer()

	if _, err := p.Play(src, dst, -5*time.Millisecond); err != nil {
		t.Fatalf("Playに失敗: %v", err)
	}
	want := []time.Duration{10 * time.Millisecond}
	if len(*sleeps) != 1 || (*sleeps)[0] != want[0] {
		t.Fatalf("負のオフセットがゼロに切り詰められていません: %v", *sleeps)
	}
}

func TestNonMonotonicTimestamps(t *testing.T) {
	// タイムスタンプが過去に戻っても負の待機をせず続行する
	src := &sliceSource{events: []types.Event{
		eventAt(10000), eventAt(5000), eventAt(15000),
	}}
	dst := &fakeChannel{}
	p, sleeps := recordingPlayer()

	count, err := p.Play(src, dst, 0)
	if err != nil {
		t.Fatalf("Playに失敗: %v", err)
	}
	if count != 3 {
		t.Fatalf("再生数が正しくありません: %d", count)
	}
	for _, d := range *sleeps {
		if d < 0 {
			t.Fatalf("負の待機時間が発生しています: %v", d)
		}
	}
}

func TestPartialWriteFailure(t *testing.T) {
	src := &sliceSource{events: []types.Event{
		eventAt(0), eventAt(1000), eventAt(2000), eventAt(3000), eventAt(4000),
	}}
	dst := &fakeChannel{failAt: 3}
	p, _ := recordingPlayer()

	count, err := p.Play(src, dst, 0)
	if count != 2 {
		t.Fatalf("再生数が正しくありません: %d", count)
	}
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("WriteErrorが返されていません: %v", err)
	}
	if writeErr.Count != 2 {
		t.Fatalf("WriteErrorの再生数が正しくありません: %d", writeErr.Count)
	}
	// 失敗以降のイベントは書き込まれない
	if len(dst.written) != 2 {
		t.Fatalf("失敗後も書き込みが継続しています: %d", len(dst.written))
	}
	if src.pos != 3 {
		t.Fatalf("失敗後も読み取りが継続しています: %d", src.pos)
	}
}

// failingSource は読み取りに失敗するテスト用のSource
type failingSource struct {
	events []types.Event
	pos    int
}

func (s *failingSource) ReadEvent() (types.Event, error) {
	if s.pos >= len(s.events) {
		return types.Event{}, fmt.Errorf("デバイスが切断されました")
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func TestReadFailureReported(t *testing.T) {
	src := &failingSource{events: []types.Event{eventAt(0), eventAt(1000)}}
	dst := &fakeChannel{}
	p, _ := recordingPlayer()

	count, err := p.Play(src, dst, 0)
	if count != 2 {
		t.Fatalf("再生数が正しくありません: %d", count)
	}
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("ReadErrorが返されていません: %v", err)
	}
	if readErr.Count != 2 {
		t.Fatalf("ReadErrorの再生数が正しくありません: %d", readErr.Count)
	}
}

// liveSource はチャネル経由でイベントが到着する実デバイス相当のSource
// チャネルが閉じられるとio.EOFを返す (デバイス取り外しに相当)
type liveSource struct {
	ch <-chan types.Event
}

func (s *liveSource) ReadEvent() (types.Event, error) {
	ev, ok := <-s.ch
	if !ok {
		return types.Event{}, io.EOF
	}
	return ev, nil
}

func TestPassthroughMirrorsLiveSource(t *testing.T) {
	// 実デバイスから複製デバイスへのミラーは終端のない生ストリームでも
	// 同じエンジンで動く。到着した順序のまま全イベントが転送されること
	events := []types.Event{
		eventAt(0), eventAt(5000), eventAt(5000), eventAt(12000),
	}
	ch := make(chan types.Event)
	go func() {
		for _, ev := range events {
			ch <- ev
		}
		close(ch)
	}()

	src := &liveSource{ch: ch}
	dst := &fakeChannel{}
	p, _ := recordingPlayer()

	count, err := p.Play(src, dst, 0)
	if err != nil {
		t.Fatalf("Playに失敗: %v", err)
	}
	if count != len(events) {
		t.Fatalf("転送数が正しくありません: %d", count)
	}
	for i, ev := range events {
		if dst.written[i] != ev {
			t.Fatalf("イベント%dの順序が保たれていません: %v != %v", i, dst.written[i], ev)
		}
	}
}

func TestEmptySource(t *testing.T) {
	src := &sliceSource{}
	dst := &fakeChannel{}
	p, sleeps := recordingPlayer()

	count, err := p.Play(src, dst, 0)
	if err != nil || count != 0 {
		t.Fatalf("空の供給源の再生結果が正しくありません: %d, %v", count, err)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("空の供給源で待機が発生しています: %v", *sleeps)
	}
}
