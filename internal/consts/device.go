package consts

// UIInput デバイスの定数（uinput.hから）
const (
	MaxNameSize = 80     // デバイス名の最大サイズ
	DevCreate   = 0x5501 // デバイス作成用のIOCTL
	DevDestroy  = 0x5502 // デバイス破棄用のIOCTL

	SetEvBit   = 0x40045564 // イベントビット設定用のIOCTL
	SetKeyBit  = 0x40045565 // キービット設定用のIOCTL
	SetRelBit  = 0x40045566 // 相対座標ビット設定用のIOCTL
	SetAbsBit  = 0x40045567 // 絶対座標ビット設定用のIOCTL
	SetMscBit  = 0x40045568 // その他イベントビット設定用のIOCTL
	SetLedBit  = 0x40045569 // LEDビット設定用のIOCTL
	SetSndBit  = 0x4004556a // サウンドビット設定用のIOCTL
	SetFfBit   = 0x4004556b // フォースフィードバックビット設定用のIOCTL
	SetSwBit   = 0x4004556d // スイッチビット設定用のIOCTL
	SetPropBit = 0x4004556e // プロパティビット設定用のIOCTL

	BusUsb     = 0x03 // USBバスタイプ
	BusVirtual = 0x06 // 仮想バスタイプ
)

// その他のデバイス制御用定数
const (
	AbsSize   = 64         // 絶対座標の配列サイズ
	EVIOCGRAB = 0x40044590 // デバイスの排他制御用のIOCTL
	EVIOCGID  = 0x80084502 // デバイス識別子取得用のIOCTL
)

// GetSysname は作成したuinputデバイスのsysfs名を取得するIOCTL番号を返す
func GetSysname(length int) uintptr {
	return uintptr(0x8000552c | (length << 16))
}

// GetName はデバイス名を取得するIOCTL番号を返す
func GetName(length int) uintptr {
	return uintptr(0x80004506 | (length << 16))
}

// GetProp はデバイスプロパティのビットマップを取得するIOCTL番号を返す
func GetProp(length int) uintptr {
	return uintptr(0x80004509 | (length << 16))
}

// GetBit は指定イベントタイプの能力ビットマップを取得するIOCTL番号を返す
// EVIOCGBIT(ev, len) はnrバイトが 0x20+ev となる
func GetBit(evType uint16, length int) uintptr {
	return uintptr(0x80004500 | (length << 16) | (0x20 + int(evType)))
}

// GetAbs は指定コードの絶対座標情報を取得するIOCTL番号を返す
func GetAbs(code uint16) uintptr {
	return uintptr(0x80184540 + int(code))
}

// GetLed はLEDの状態ビットマップを取得するIOCTL番号を返す
func GetLed(length int) uintptr {
	return uintptr(0x80004519 | (length << 16))
}

// GetSw はスイッチの状態ビットマップを取得するIOCTL番号を返す
func GetSw(length int) uintptr {
	return uintptr(0x8000451b | (length << 16))
}
