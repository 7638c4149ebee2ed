// Package app はアプリケーションの初期化と実行フロー全体を管理する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/blogpulse/internal/aggregate"
	"github.com/hitoshi/blogpulse/internal/config"
	"github.com/hitoshi/blogpulse/internal/feed"
	"github.com/hitoshi/blogpulse/internal/fetcher"
	"github.com/hitoshi/blogpulse/internal/logger"
	"github.com/hitoshi/blogpulse/internal/metrics"
	"github.com/hitoshi/blogpulse/internal/model"
	"github.com/hitoshi/blogpulse/internal/snapshot"
	"github.com/hitoshi/blogpulse/internal/views"
)

// newHTTPClient はHTTPクライアントの生成関数。
// 通常はSSRF防止付きクライアントを使う。httptestサーバーはループバック
// アドレスで起動されsafeurlにブロックされるため、テストでは素のクライアント
// に差し替える。
var newHTTPClient func(timeout time.Duration) *http.Client = fetcher.NewSafeClient

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.Setup(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	return cfg, log, nil
}

// Run はアプリケーションのメインエントリーポイント。
// フィード収集・閲覧数取得・スナップショット統合を1回実行して終了する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	opts, err := ParseOptions(args, w)
	if err != nil {
		return err
	}

	cfg, log, err := Init(w)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	log.Info("収集を開始します",
		slog.String("author", cfg.AuthorName),
		slog.String("start_date", cfg.StartDate.String()),
		slog.Int("feeds", len(cfg.FeedURLs)),
		slog.Bool("dry_run", opts.DryRun),
		slog.Bool("use_cache", opts.UseCache))

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	client := newHTTPClient(cfg.FetchTimeout)
	pace := rate.NewLimiter(rate.Every(cfg.FetchPace), 1)
	browser := fetcher.NewHTTPStrategy("browser", client, cfg.BrowserHeaders(), cfg.FetchMaxSize)
	minimal := fetcher.NewHTTPStrategy("minimal", client, map[string]string{
		"User-Agent":      cfg.UserAgent,
		"Accept-Encoding": "identity",
	}, cfg.FetchMaxSize)

	// フィード取得: キャッシュ優先指定時はキャッシュ戦略を先頭に置く。
	// キャッシュディレクトリが設定されていれば取得結果を書き戻す。
	feedStrategies := []fetcher.Strategy{browser, minimal}
	var cache *fetcher.Cache
	if cfg.CacheDir != "" {
		cache = fetcher.NewCache(cfg.CacheDir)
		if opts.UseCache {
			feedStrategies = append([]fetcher.Strategy{cache.Strategy()}, feedStrategies...)
		}
	}
	feedChain := fetcher.NewChain(log, pace, fetcher.XMLValidator, feedStrategies...)
	if cache != nil {
		feedChain = feedChain.WithCache(cache)
	}

	store := snapshot.NewFileStore(cfg.OutputFile, log)
	prev, err := store.Load()
	if err != nil {
		return err
	}

	parser := feed.NewParser(cfg.AuthorName, cfg.StartDate, log)
	agg := aggregate.NewAggregator(feedChain, parser, collector, log)

	posts, err := agg.Run(ctx, cfg.FeedURLs)
	if err != nil {
		if errors.Is(err, model.ErrNoFeedsReachable) && len(prev.Posts) > 0 {
			// 全フィード取得不能。前回のスナップショットをそのまま残す
			log.Warn("全フィードが取得不能のため前回のスナップショットを保持します",
				slog.Int("posts", len(prev.Posts)))
			printSummary(w, prev)
			return nil
		}
		return err
	}

	// 記事ページから閲覧数を取得する。失敗した記事は0のまま続行する
	pageChain := fetcher.NewChain(log, pace, nil, browser, minimal)
	viewsCollector := views.NewCollector(pageChain, views.MultiExtractor{
		views.NewTemplateExtractor(cfg.ViewsMarker),
		views.NewDOMExtractor("post-views"),
	}, log).WithRecorder(collector)
	posts = viewsCollector.Collect(ctx, posts)

	now := time.Now()
	merged := snapshot.Merge(posts, prev, model.DateOf(now), now)

	if len(merged.Posts) == 0 {
		log.Error("条件に合致する記事が1件もありません")
		return model.ErrNoPosts
	}

	if opts.DryRun {
		log.Info("ドライランのため保存をスキップします",
			slog.Int("posts", len(merged.Posts)))
	} else {
		if err := store.Save(merged); err != nil {
			return err
		}
	}

	collector.RunCompleted(len(merged.Posts), time.Since(start))
	if cfg.PushgatewayURL != "" {
		// メトリクス送信の失敗は実行結果に影響させない
		if err := metrics.Push(cfg.PushgatewayURL, "blogpulse", reg); err != nil {
			log.Warn("Pushgatewayへの送信に失敗しました",
				slog.String("error", err.Error()))
		}
	}

	log.Info("収集が完了しました",
		slog.Int("posts", len(merged.Posts)),
		slog.Duration("elapsed", time.Since(start)))
	printSummary(w, merged)
	return nil
}

// printSummary は収集結果の一覧を人が読める形式で出力する。
func printSummary(w io.Writer, snap model.Snapshot) {
	fmt.Fprintf(w, "記事数: %d件 (更新: %s)\n", len(snap.Posts), snap.LastUpdated)
	for _, post := range snap.Posts {
		line := fmt.Sprintf("  %s  %6d views  %s", post.Date, post.Views, post.Title)
		if len(post.Categories) > 0 {
			line += "  [" + strings.Join(post.Categories, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}
}
