package types

import (
	"syscall"
	"time"
)

// Event は入力イベントを表す構造体
type Event struct {
	Time  syscall.Timeval // イベント発生時刻
	Type  uint16          // イベントタイプ
	Code  uint16          // イベントコード
	Value int32           // イベント値
}

// Timestamp はイベント発生時刻を時間量として返す
func (e Event) Timestamp() time.Duration {
	return time.Duration(e.Time.Sec)*time.Second +
		time.Duration(e.Time.Usec)*time.Microsecond
}
