package consts

// イベントタイプの定数（input-event-codes.hより）
const (
	Syn      = 0x00 // 同期イベント
	Key      = 0x01 // キーイベント
	Rel      = 0x02 // 相対座標イベント
	Abs      = 0x03 // 絶対座標イベント
	Msc      = 0x04 // その他イベント
	Sw       = 0x05 // スイッチイベント
	Led      = 0x11 // LEDイベント
	Snd      = 0x12 // サウンドイベント
	Rep      = 0x14 // リピートイベント
	Ff       = 0x15 // フォースフィードバックイベント
	Pwr      = 0x16 // 電源イベント
	FfStatus = 0x17 // フォースフィードバック状態イベント
	EvMax    = 0x1f // イベントタイプの最大値
)

// 各イベントタイプごとのコード最大値
const (
	SynMax       = 0x0f
	KeyMax       = 0x2ff
	RelMax       = 0x0f
	AbsMax       = 0x3f
	MscMax       = 0x07
	SwMax        = 0x10
	LedMax       = 0x0f
	SndMax       = 0x07
	RepMax       = 0x01
	FfMax        = 0x7f
	FfStatusMax  = 0x01
	InputPropMax = 0x1f // デバイスプロパティの最大値
)

// 代表的なイベントコード
const (
	SynReport = 0x00 // イベント報告の同期

	RelX     = 0x00 // X軸の相対移動
	RelY     = 0x01 // Y軸の相対移動
	RelWheel = 0x08 // ホイールの相対移動

	AbsX            = 0x00 // X軸の絶対座標
	AbsY            = 0x01 // Y軸の絶対座標
	AbsMtSlot       = 0x2f // マルチタッチスロット
	AbsMtTouchMajor = 0x30 // タッチ領域の長径
	AbsMtPositionX  = 0x35 // マルチタッチのX座標
	AbsMtPositionY  = 0x36 // マルチタッチのY座標
	AbsMtTrackingId = 0x39 // タッチ追跡用ID
	AbsMtPressure   = 0x3a // タッチ圧力

	MouseBtnLeft  = 0x110 // マウス左ボタン
	MouseBtnRight = 0x111 // マウス右ボタン
	BtnTouch      = 0x14a // タッチイベント
	BtnToolFinger = 0x145 // 指によるタッチ

	PropPointer   = 0x00 // ポインターデバイスプロパティ
	PropDirect    = 0x01 // 直接タッチデバイスプロパティ
	PropButtonpad = 0x02 // ボタンパッドプロパティ
)

// イベントタイプごとのコード最大値テーブル
var maxCodeByType = map[uint16]uint16{
	Syn:      SynMax,
	Key:      KeyMax,
	Rel:      RelMax,
	Abs:      AbsMax,
	Msc:      MscMax,
	Sw:       SwMax,
	Led:      LedMax,
	Snd:      SndMax,
	Rep:      RepMax,
	Ff:       FfMax,
	Pwr:      0x00,
	FfStatus: FfStatusMax,
}

// MaxCode は指定イベントタイプで有効なコードの最大値を返す
// 未知のタイプの場合は false を返す
func MaxCode(evType uint16) (uint16, bool) {
	max, ok := maxCodeByType[evType]
	return max, ok
}
