package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Device.UinputPath != "/dev/uinput" {
		t.Fatalf("uinputパスのデフォルト値が正しくありません: %q", cfg.Device.UinputPath)
	}
	if cfg.Device.NodeWaitTimeout != 3*time.Second {
		t.Fatalf("待機時間のデフォルト値が正しくありません: %v", cfg.Device.NodeWaitTimeout)
	}
	if cfg.Realtime.Enabled {
		t.Fatalf("リアルタイム調整がデフォルトで有効になっています")
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	// 存在しない場合はデフォルト設定が保存される
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfigに失敗: %v", err)
	}
	if cfg.Device.UinputPath != "/dev/uinput" {
		t.Fatalf("デフォルト設定が返されていません: %q", cfg.Device.UinputPath)
	}

	// 2回目は保存されたファイルから読み込まれる
	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("再読み込みに失敗: %v", err)
	}
	if *again != *cfg {
		t.Fatalf("設定がラウンドトリップしません: %+v != %+v", again, cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Replay.StartOffsetUs = 15000
	cfg.Record.Grab = true
	cfg.Realtime.CPU = 2

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfigに失敗: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfigに失敗: %v", err)
	}
	if loaded.Replay.StartOffsetUs != 15000 || !loaded.Record.Grab || loaded.Realtime.CPU != 2 {
		t.Fatalf("設定が保持されていません: %+v", loaded)
	}
}
