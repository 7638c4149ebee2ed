package app

import (
	"flag"
	"fmt"
	"io"
)

// Options はコマンドライン引数で指定される実行オプションを表す。
type Options struct {
	// DryRun が真の場合、収集と集計は行うがスナップショットを保存しない。
	DryRun bool
	// UseCache が真の場合、フィード取得でローカルキャッシュを最優先する。
	UseCache bool
}

// ParseOptions はコマンドライン引数から実行オプションを解析する。
// argsにはos.Args[1:]を渡す。
func ParseOptions(args []string, output io.Writer) (*Options, error) {
	opts := &Options{}
	fs := flag.NewFlagSet("blogpulse", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&opts.DryRun, "dry-run", false, "スナップショットを保存せずに実行する")
	fs.BoolVar(&opts.UseCache, "use-cache", false, "フィード取得でローカルキャッシュを優先する")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("引数の解析に失敗しました: %w", err)
	}
	return opts, nil
}
