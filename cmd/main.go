package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/char5742/input-emu/internal/config"
	"github.com/char5742/input-emu/internal/descriptor"
	"github.com/char5742/input-emu/internal/evdev"
	"github.com/char5742/input-emu/internal/format"
	"github.com/char5742/input-emu/internal/record"
	"github.com/char5742/input-emu/internal/replay"
	"github.com/char5742/input-emu/internal/sched"
	"github.com/char5742/input-emu/internal/types"
	"github.com/char5742/input-emu/internal/uinput"
)

func main() {
	// コマンドライン引数の解析
	deviceFile := flag.String("device", "", "デスクリプタファイルから仮想デバイスを作成して保持します")
	playFile := flag.String("play", "", "記録ファイルを再生します")
	nodePath := flag.String("node", "", "再生先の既存デバイスノード (指定しない場合は新規作成)")
	passNode := flag.String("passthrough", "", "指定デバイスノードを複製し、イベントをミラーします")
	recordNode := flag.String("record", "", "指定デバイスノードのイベントを記録します")
	describeNode := flag.String("describe", "", "指定デバイスノードのデスクリプタを出力します")
	outPath := flag.String("out", "", "出力ファイル (指定しない場合は標準出力)")
	delayUs := flag.Int64("delay", 0, "再生開始オフセット（マイクロ秒）")
	configPath := flag.String("config", "", "設定ファイルのパス (指定しない場合はデフォルトパスを使用)")
	useRt := flag.Bool("rt", false, "リアルタイムスケジューリング調整を有効にします")
	flag.Parse()

	// デフォルト設定ファイルパスの設定
	defaultConfigPath := ""
	configDir, err := config.GetDefaultConfigDir()
	if err == nil {
		defaultConfigPath = filepath.Join(configDir, "config.toml")
	}

	// 設定ファイルパスの決定
	cfgPath := defaultConfigPath
	if *configPath != "" {
		cfgPath = *configPath
	}

	// 設定ファイルの読み込み
	var cfg *config.Config
	if cfgPath != "" {
		cfg, err = config.LoadConfig(cfgPath)
		if err != nil {
			fmt.Printf("設定ファイルの読み込みに失敗しました: %v\nデフォルト設定を使用します\n", err)
			cfg = config.DefaultConfig()
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// リアルタイム調整は明示的に要求された場合のみ行う
	if *useRt || cfg.Realtime.Enabled {
		if err := sched.Apply(cfg.Realtime.Priority, cfg.Realtime.CPU, cfg.Realtime.LockMemory); err != nil {
			fmt.Printf("リアルタイム調整に失敗しました: %v\n", err)
		}
	}

	if *delayUs == 0 {
		*delayUs = cfg.Replay.StartOffsetUs
	}

	// モードの判断と実行
	switch {
	case *deviceFile != "":
		runDevice(cfg, *deviceFile)
	case *playFile != "":
		runPlay(cfg, *playFile, *nodePath, *delayUs)
	case *passNode != "":
		runPassthrough(cfg, *passNode)
	case *recordNode != "":
		runRecord(cfg, *recordNode, *outPath)
	case *describeNode != "":
		runDescribe(*describeNode, *outPath)
	default:
		flag.Usage()
		os.Exit(1)
	}
}

// createDevice はデコード済みデスクリプタから仮想デバイスを作成する
// 名前が空の場合はプロセスIDから代替名を合成する
func createDevice(cfg *config.Config, desc *descriptor.Descriptor) (*uinput.Device, error) {
	if desc.Name() == "" {
		if err := desc.SetName(fmt.Sprintf("input-emu-%d", os.Getpid())); err != nil {
			return nil, err
		}
	}
	return uinput.Create(cfg.Device.UinputPath, desc, cfg.Device.NodeWaitTimeout)
}

// デバイス作成モードでの実行
// デバイスを作成して保持し、流れてくるイベントを読み捨てる
func runDevice(cfg *config.Config, path string) {
	f, err := os.Open(path)
	if err != nil {
		fail("デスクリプタファイルを開けません: %v", err)
	}
	defer f.Close()

	desc, err := format.NewDecoder(f).ReadDescriptor()
	if err != nil {
		fail("デスクリプタファイルを解析できません: %v", err)
	}
	dev, err := createDevice(cfg, desc)
	if err != nil {
		fail("デバイスを作成できません: %v", err)
	}
	defer dev.Destroy()

	fmt.Printf("%s: %s\n", desc.Name(), dev.Node())

	node, err := evdev.Open(dev.Node())
	if err != nil {
		fail("デバイスノードを開けません: %v", err)
	}
	defer node.Close()

	handleSignals(func() {
		node.Close()
		dev.Destroy()
	})

	// デバイスが取り外されるまでイベントを読み捨てて保持する
	player := replay.NewPlayer()
	if _, err := player.Play(node, discardWriter{}, 0); err != nil {
		fail("デバイスの保持に失敗しました: %v", err)
	}
}

// 再生モードでの実行
func runPlay(cfg *config.Config, path, node string, delayUs int64) {
	f, err := os.Open(path)
	if err != nil {
		fail("記録ファイルを開けません: %v", err)
	}
	defer f.Close()

	offset := time.Duration(delayUs) * time.Microsecond

	dec := format.NewDecoder(f)
	desc, err := dec.ReadDescriptor()
	if err != nil {
		fail("記録ファイルを解析できません: %v", err)
	}

	var dst replay.Writer
	if node != "" {
		// 既存ノードへの再生。記録のデスクリプタ部は使わない
		target, err := evdev.Open(node)
		if err != nil {
			fail("デバイスノードを開けません: %v", err)
		}
		defer target.Close()
		dst = target
	} else {
		dev, err := createDevice(cfg, desc)
		if err != nil {
			fail("デバイスを作成できません: %v", err)
		}
		defer dev.Destroy()
		fmt.Printf("%s: %s\n", desc.Name(), dev.Node())
		dst = dev
	}

	count, err := replay.NewPlayer().Play(dec, dst, offset)
	if err != nil {
		fail("再生に失敗しました (%d個まで再生済み): %v", count, err)
	}
	fmt.Printf("%d個のイベントを再生しました\n", count)
}

// パススルーモードでの実行
// 実デバイスを複製した仮想デバイスを作成し、読み取ったイベントをミラーする
func runPassthrough(cfg *config.Config, node string) {
	src, err := evdev.Open(node)
	if err != nil {
		fail("デバイスノードを開けません: %v", err)
	}
	defer src.Close()

	desc, err := src.Describe()
	if err != nil {
		fail("デスクリプタの取得に失敗しました: %v", err)
	}

	dev, err := createDevice(cfg, desc)
	if err != nil {
		fail("デバイスを作成できません: %v", err)
	}
	defer dev.Destroy()

	fmt.Printf("%s: %s\n", desc.Name(), dev.Node())

	handleSignals(func() {
		src.Close()
		dev.Destroy()
	})

	// 元デバイスが取り外されるまでミラーし続ける
	count, err := replay.NewPlayer().Play(src, dev, 0)
	if err != nil {
		fail("ミラーに失敗しました (%d個まで転送済み): %v", count, err)
	}
	fmt.Fprintf(os.Stderr, "%d個のイベントを転送しました\n", count)
}

// 記録モードでの実行
func runRecord(cfg *config.Config, node, out string) {
	dev, err := evdev.Open(node)
	if err != nil {
		fail("デバイスノードを開けません: %v", err)
	}
	defer dev.Close()

	if cfg.Record.Grab {
		if err := dev.Grab(); err != nil {
			fail("デバイスの排他取得に失敗しました: %v", err)
		}
	}

	w, closeOut, err := openOutput(out)
	if err != nil {
		fail("出力先を開けません: %v", err)
	}
	defer closeOut()

	stop := make(chan struct{})
	handleSignals(func() {
		close(stop)
		// ブロック中の読み取りを中断させる
		dev.Close()
	})

	count, err := record.Record(dev, w, format.Current, stop)
	if err != nil {
		fail("記録に失敗しました (%d個まで記録済み): %v", count, err)
	}
	fmt.Fprintf(os.Stderr, "%d個のイベントを記録しました\n", count)
}

// デスクリプタ出力モードでの実行
func runDescribe(node, out string) {
	dev, err := evdev.Open(node)
	if err != nil {
		fail("デバイスノードを開けません: %v", err)
	}
	defer dev.Close()

	w, closeOut, err := openOutput(out)
	if err != nil {
		fail("出力先を開けません: %v", err)
	}
	defer closeOut()

	if err := record.Describe(dev, w, format.Current); err != nil {
		fail("デスクリプタの出力に失敗しました: %v", err)
	}
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func handleSignals(cleanup func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("シャットダウンします...")
		cleanup()
	}()
}

func fail(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}

// discardWriter はイベントを読み捨てるためのWriter実装
type discardWriter struct{}

func (discardWriter) WriteEvent(types.Event) error {
	return nil
}
