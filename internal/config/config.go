package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config はアプリケーション全体の設定を表す構造体
type Config struct {
	Device   DeviceConfig   `toml:"device"`
	Replay   ReplayConfig   `toml:"replay"`
	Record   RecordConfig   `toml:"record"`
	Realtime RealtimeConfig `toml:"realtime"`
}

// DeviceConfig は仮想デバイス作成の設定
type DeviceConfig struct {
	UinputPath      string        `toml:"uinput_path"`
	NodeWaitTimeout time.Duration `toml:"node_wait_timeout"`
}

// ReplayConfig はイベント再生の設定
type ReplayConfig struct {
	StartOffsetUs int64 `toml:"start_offset_us"`
}

// RecordConfig はイベント記録の設定
type RecordConfig struct {
	Grab bool `toml:"grab"`
}

// RealtimeConfig はリアルタイムスケジューリングの設定
// タイミング精度が必要な環境でのみ明示的に有効化する
type RealtimeConfig struct {
	Enabled    bool `toml:"enabled"`
	Priority   int  `toml:"priority"`
	CPU        int  `toml:"cpu"`
	LockMemory bool `toml:"lock_memory"`
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			UinputPath:      "/dev/uinput",
			NodeWaitTimeout: 3 * time.Second,
		},
		Replay: ReplayConfig{
			StartOffsetUs: 0,
		},
		Record: RecordConfig{
			Grab: false,
		},
		Realtime: RealtimeConfig{
			Enabled:    false,
			Priority:   20,
			CPU:        -1, // -1はCPU固定なし
			LockMemory: true,
		},
	}
}

// GetDefaultConfigDir はデフォルトの設定ディレクトリを返す
func GetDefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "input-emu"), nil
}

// LoadConfig は設定ファイルから設定を読み込む
func LoadConfig(configPath string) (*Config, error) {
	// デフォルト設定を用意
	config := DefaultConfig()

	// ファイルが存在しない場合はデフォルト設定を保存して返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}
		return config, nil
	}

	// 設定ファイルの読み込み
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return config, err
	}

	return config, nil
}

// SaveConfig は設定をTOMLファイルに保存する
func SaveConfig(configPath string, config *Config) error {
	// 設定ディレクトリの作成
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// ファイルを開く（なければ作成）
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	// TOML形式でエンコードして書き込み
	encoder := toml.NewEncoder(f)
	return encoder.Encode(config)
}
