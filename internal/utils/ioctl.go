package utils

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// IOCtl はデバイスファイルに対してioctlシステムコールを発行する
func IOCtl(f *os.File, cmd uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), cmd, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// IOCtlBytes はバッファへの読み取りを伴うioctlを発行し、読み取ったバイト数を返す
func IOCtlBytes(f *os.File, cmd uintptr, buf []byte) (int, error) {
	n, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), cmd, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}
