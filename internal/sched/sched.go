package sched

import (
	"fmt"
	"log"
	"unsafe"

	"golang.org/x/sys/unix"
)

const schedFifo = 1 // SCHED_FIFO

type schedParam struct {
	Priority int32
}

// Apply はタイミング精度を高めるためのスケジューリング調整を行う
// 再生の正しさには影響しない配備時の調整であり、呼び出し側が
// 明示的に要求した場合にのみ実行される
func Apply(priority, cpu int, lockMemory bool) error {
	if priority > 0 {
		param := schedParam{Priority: int32(priority)}
		_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER,
			0, schedFifo, uintptr(unsafe.Pointer(&param)))
		if errno != 0 {
			return fmt.Errorf("スケジューリングポリシーの設定に失敗しました: %v", errno)
		}
		log.Printf("SCHED_FIFOを設定しました (優先度: %d)", priority)
	}

	if cpu >= 0 {
		var set unix.CPUSet
		set.Zero()
		set.Set(cpu)
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			return fmt.Errorf("CPUアフィニティの設定に失敗しました: %w", err)
		}
		log.Printf("CPU %d に固定しました", cpu)
	}

	if lockMemory {
		if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
			return fmt.Errorf("メモリのロックに失敗しました: %w", err)
		}
		log.Println("メモリをロックしました")
	}

	return nil
}
