// Package aggregate は複数フィードの取得・解析結果をひとつの記事一覧に統合する。
package aggregate

import (
	"context"
	"log/slog"
	"sort"

	"github.com/hitoshi/blogpulse/internal/feed"
	"github.com/hitoshi/blogpulse/internal/model"
)

// Fetcher はフィード本文の取得を抽象化する。
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Parser はフィード本文の解析を抽象化する。
type Parser interface {
	Parse(content string) (*feed.Result, error)
}

// Recorder は集計中のイベント件数を記録する。nil 可。
type Recorder interface {
	FeedFetched()
	FeedFetchFailed()
	FeedParseFailed()
	ItemSkipped(reason model.SkipReason)
	PostsDiscovered(n int)
}

// Aggregator はフィードエンドポイントを順に処理し記事を収集する。
type Aggregator struct {
	fetcher  Fetcher
	parser   Parser
	recorder Recorder
	logger   *slog.Logger
}

// NewAggregator は Aggregator を生成する。recorder は nil でもよい。
func NewAggregator(fetcher Fetcher, parser Parser, recorder Recorder, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		fetcher:  fetcher,
		parser:   parser,
		recorder: recorder,
		logger:   logger,
	}
}

// Run は feedURLs を与えられた順に取得・解析し、URL 重複を除いた
// 記事一覧を日付降順で返す。個々のエンドポイントの失敗はログに残して
// 続行し、全エンドポイントが取得不能だった場合のみ
// model.ErrNoFeedsReachable を返す。
func (a *Aggregator) Run(ctx context.Context, feedURLs []string) ([]model.Post, error) {
	var posts []model.Post
	seen := make(map[string]struct{})
	reached := 0

	for _, url := range feedURLs {
		content, err := a.fetcher.Fetch(ctx, url)
		if err != nil {
			a.logger.Warn("フィードの取得に失敗しました",
				slog.String("url", url),
				slog.String("error", err.Error()))
			if a.recorder != nil {
				a.recorder.FeedFetchFailed()
			}
			continue
		}
		reached++
		if a.recorder != nil {
			a.recorder.FeedFetched()
		}

		result, err := a.parser.Parse(content)
		if err != nil {
			a.logger.Warn("フィードの解析に失敗しました",
				slog.String("url", url),
				slog.String("error", err.Error()))
			if a.recorder != nil {
				a.recorder.FeedParseFailed()
			}
			continue
		}

		for _, skipped := range result.Skipped {
			a.logger.Info("フィード項目をスキップしました",
				slog.String("url", url),
				slog.String("title", skipped.Title),
				slog.String("reason", string(skipped.Reason)))
			if a.recorder != nil {
				a.recorder.ItemSkipped(skipped.Reason)
			}
		}

		added := 0
		for _, post := range result.Posts {
			// 同一 URL は先に現れたフィードの記述を採用する
			if _, dup := seen[post.URL]; dup {
				continue
			}
			seen[post.URL] = struct{}{}
			posts = append(posts, post)
			added++
		}
		a.logger.Info("フィードを処理しました",
			slog.String("url", url),
			slog.Int("posts", added),
			slog.Int("skipped", len(result.Skipped)))
		if a.recorder != nil && added > 0 {
			a.recorder.PostsDiscovered(added)
		}
	}

	if reached == 0 {
		return nil, model.ErrNoFeedsReachable
	}

	// 日付降順。同日の記事は追加順を維持する
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date.After(posts[j].Date.Time)
	})
	return posts, nil
}
