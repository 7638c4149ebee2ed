// Package fetcher はURLの取得機能を提供する。
// 複数の取得戦略を順に試すチェーン、SSRF防止付きHTTPクライアント、
// リモートサービスへの配慮としてのフェッチ間隔制御を含む。
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"
)

// Strategy は1つの取得手段を表す。
// 失敗はエラー値として返し、決してパニックしない。
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// Validator はフェッチ結果を採用するかどうかを判定する。
type Validator func(content string) bool

// XMLValidator はコンテンツがXML文書に見えるかを判定する。
// フィードのフェッチでは、ボット保護がHTMLのエラーページを200で返す
// ケースがあるため、この検証で弾く。
func XMLValidator(content string) bool {
	return strings.Contains(content, "<?xml")
}

// Chain は取得戦略を登録順に試すフェッチャ。
// いずれかの戦略がValidatorを通過するコンテンツを返した時点で成功とし、
// 全戦略が失敗した場合にエラーを返す。責任の連鎖としてモデル化され、
// 戦略の追加・差し替えで取得手段を拡張できる。
type Chain struct {
	strategies []Strategy
	validator  Validator
	pace       *rate.Limiter
	cache      *Cache
	logger     *slog.Logger
}

// NewChain はChainの新しいインスタンスを生成する。
// paceがnilでない場合、フェッチのたびにトークンを待つ（呼び出しは逐次前提）。
// validatorがnilの場合は空でないコンテンツをすべて受け入れる。
func NewChain(logger *slog.Logger, pace *rate.Limiter, validator Validator, strategies ...Strategy) *Chain {
	return &Chain{
		strategies: strategies,
		validator:  validator,
		pace:       pace,
		logger:     logger,
	}
}

// WithCache は成功したフェッチ結果をキャッシュに書き戻すよう設定する。
func (c *Chain) WithCache(cache *Cache) *Chain {
	c.cache = cache
	return c
}

// Fetch はURLのコンテンツを取得する。
// 戦略を順に試し、最初に検証を通過したコンテンツを返す。
// タイムアウト・非成功レスポンスはその戦略の失敗として次の戦略に進む。
func (c *Chain) Fetch(ctx context.Context, url string) (string, error) {
	if c.pace != nil {
		if err := c.pace.Wait(ctx); err != nil {
			return "", fmt.Errorf("フェッチ間隔の待機が中断されました: %w", err)
		}
	}

	for _, strategy := range c.strategies {
		content, err := strategy.Fetch(ctx, url)
		if err != nil {
			c.logger.Warn("取得戦略が失敗しました",
				slog.String("strategy", strategy.Name()),
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
			continue
		}
		if content == "" {
			continue
		}
		if c.validator != nil && !c.validator(content) {
			c.logger.Warn("取得コンテンツが検証を通過しませんでした",
				slog.String("strategy", strategy.Name()),
				slog.String("url", url),
				slog.Int("content_length", len(content)),
			)
			continue
		}

		if c.cache != nil && strategy.Name() != cacheStrategyName {
			if err := c.cache.Put(url, content); err != nil {
				c.logger.Warn("キャッシュへの書き込みに失敗しました",
					slog.String("url", url),
					slog.String("error", err.Error()),
				)
			}
		}

		return content, nil
	}

	return "", fmt.Errorf("すべての取得戦略が失敗しました: %s", url)
}
