package consts

import "testing"

// ioctl.hの _IOC(_IOC_READ, type, nr, size) に対応する
func ioR(typ, nr byte, size int) uintptr {
	return uintptr(0x80000000 | (size << 16) | (int(typ) << 8) | int(nr))
}

func TestGetBitMatchesEviocgbit(t *testing.T) {
	// EVIOCGBIT(ev, len) = _IOC(_IOC_READ, 'E', 0x20 + ev, len)
	for evType := uint16(0); evType <= EvMax; evType++ {
		want := ioR('E', byte(0x20+evType), 64)
		if got := GetBit(evType, 64); got != want {
			t.Fatalf("GetBit(%#x, 64) = %#x, want %#x", evType, got, want)
		}
	}
}

func TestGetBitDistinctPerType(t *testing.T) {
	seen := make(map[uintptr]uint16)
	for evType := uint16(0); evType <= EvMax; evType++ {
		n := GetBit(evType, 64)
		if prev, ok := seen[n]; ok {
			t.Fatalf("GetBit(%#x, 64)とGetBit(%#x, 64)が同じ番号%#xになった", evType, prev, n)
		}
		seen[n] = evType
	}
}

func TestEvdevIoctlNumbers(t *testing.T) {
	cases := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"GetName", GetName(256), ioR('E', 0x06, 256)},
		{"GetProp", GetProp(4), ioR('E', 0x09, 4)},
		{"GetAbs", GetAbs(AbsX), ioR('E', 0x40+AbsX, 24)},
		{"GetLed", GetLed(2), ioR('E', 0x19, 2)},
		{"GetSw", GetSw(3), ioR('E', 0x1b, 3)},
		{"GetSysname", GetSysname(64), ioR('U', 0x2c, 64)},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %#x, want %#x", c.name, c.got, c.want)
		}
	}
}
