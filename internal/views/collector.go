package views

import (
	"context"
	"log/slog"

	"github.com/hitoshi/blogpulse/internal/model"
)

// Fetcher はURLのコンテンツ取得のインターフェース。
// テスト時にモックに差し替え可能。
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Recorder は閲覧数取得の失敗件数を記録する。
type Recorder interface {
	ViewsFetchFailed()
}

// Collector は集約済みの記事列に対して、記事ページを1件ずつ取得して
// 閲覧数を付与する。取得・抽出の失敗は当該記事の閲覧数0にとどまり、
// 残りの記事の処理を妨げない。
type Collector struct {
	fetcher   Fetcher
	extractor Extractor
	recorder  Recorder
	logger    *slog.Logger
}

// NewCollector はCollectorの新しいインスタンスを生成する。
func NewCollector(fetcher Fetcher, extractor Extractor, logger *slog.Logger) *Collector {
	return &Collector{
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger,
	}
}

// WithRecorder は失敗件数の記録先を設定する。
func (c *Collector) WithRecorder(recorder Recorder) *Collector {
	c.recorder = recorder
	return c
}

// Collect は記事列の順序どおりに各記事ページを取得し、閲覧数を設定して返す。
// 入力スライスを直接更新する（レコードは実行ごとに作り直されるため共有されない）。
// コンテキストのキャンセルで残りの記事はスキップされる。
func (c *Collector) Collect(ctx context.Context, posts []model.Post) []model.Post {
	for i := range posts {
		if ctx.Err() != nil {
			c.logger.Warn("コンテキストがキャンセルされたため残りの閲覧数取得を中止します",
				slog.Int("remaining", len(posts)-i),
			)
			break
		}

		content, err := c.fetcher.Fetch(ctx, posts[i].URL)
		if err != nil {
			c.logger.Warn("記事ページの取得に失敗しました（閲覧数は0のまま）",
				slog.String("url", posts[i].URL),
				slog.String("error", err.Error()),
			)
			if c.recorder != nil {
				c.recorder.ViewsFetchFailed()
			}
			continue
		}

		count := c.extractor.Extract(content)
		posts[i].Views = count
		if count == 0 {
			c.logger.Info("閲覧数を抽出できませんでした（テンプレート不一致の可能性）",
				slog.String("url", posts[i].URL),
			)
		}
	}

	return posts
}
