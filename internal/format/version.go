package format

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVersion は未知のメジャーバージョンを持つストリームに対するエラー
var ErrUnsupportedVersion = errors.New("unsupported format version")

// Version はフォーマットのバージョン（メジャー・マイナーの組）を表す
// どの行プレフィックスとオプションフィールドが有効かを決定する
type Version struct {
	Major int
	Minor int
}

// サポートされているフォーマットバージョン
var (
	V1_0 = Version{1, 0}
	V1_1 = Version{1, 1} // コメントがストリーム中のどこでも有効に
	V1_2 = Version{1, 2} // A:行に解像度フィールドを追加
	V1_3 = Version{1, 3} // L:/S:行によるLED・スイッチ状態を追加

	// Current は現在のフォーマットバージョン
	Current = V1_3
)

// AtLeast は指定バージョン以上かどうかを返す
func (v Version) AtLeast(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	return v.Minor >= o.Minor
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
