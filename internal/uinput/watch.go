package uinput

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// waitForNode はデバイスノードが出現するまで待機する
// UI_DEV_CREATEの直後はカーネルとudevの処理が追いつかず、ノードが
// まだ存在しないことがあるため、fsnotifyによる監視とポーリングを
// 併用して出現を検出する
func waitForNode(node string, timeout time.Duration) error {
	if _, err := os.Stat(node); err == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// 監視が使えない環境ではポーリングのみで待機する
		log.Printf("ファイルシステム監視を開始できませんでした: %v", err)
		return pollForNode(node, timeout)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(node)); err != nil {
		log.Printf("ディレクトリの監視に失敗しました: %s - %v", filepath.Dir(node), err)
		return pollForNode(node, timeout)
	}

	// 監視登録前に作成されていた場合を拾う
	if _, err := os.Stat(node); err == nil {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return pollForNode(node, timeout)
			}
			if event.Name == node && event.Op&fsnotify.Create == fsnotify.Create {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return pollForNode(node, timeout)
			}
			log.Printf("ファイルシステム監視エラー: %v", err)
		case <-ticker.C:
			// イベントの取りこぼしに備えたポーリング
			if _, err := os.Stat(node); err == nil {
				return nil
			}
		case <-deadline.C:
			return fmt.Errorf("デバイスノード %s が時間内に出現しませんでした: %w",
				node, ErrResourceUnavailable)
		}
	}
}

// pollForNode はポーリングのみでノードの出現を待つ
func pollForNode(node string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(node); err == nil {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("デバイスノード %s が時間内に出現しませんでした: %w",
		node, ErrResourceUnavailable)
}
