package fetcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
)

// cacheStrategyName はキャッシュ読み出し戦略の名前。
// チェーンが成功結果の書き戻し対象から除外するために参照する。
const cacheStrategyName = "cache"

// Cache はフィードコンテンツのディスクキャッシュ。
// URLのsha256をキーにしたフラットなファイル群として保存する。
// ボット保護付きCDNに到達できない環境での--use-cache実行を支える。
type Cache struct {
	dir string
}

// NewCache はCacheの新しいインスタンスを生成する。
// ディレクトリは最初のPutで作成される。
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// path はURLに対応するキャッシュファイルのパスを返す。
func (c *Cache) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, fmt.Sprintf("%x.xml", sum[:8]))
}

// Get はキャッシュされたコンテンツを返す。未キャッシュの場合はエラー。
func (c *Cache) Get(url string) (string, error) {
	data, err := os.ReadFile(c.path(url))
	if err != nil {
		return "", fmt.Errorf("キャッシュの読み出しに失敗: %w", err)
	}
	return string(data), nil
}

// Put はコンテンツをキャッシュに保存する。
func (c *Cache) Put(url, content string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("キャッシュディレクトリの作成に失敗: %w", err)
	}
	if err := os.WriteFile(c.path(url), []byte(content), 0o644); err != nil {
		return fmt.Errorf("キャッシュの書き込みに失敗: %w", err)
	}
	return nil
}

// Strategy はキャッシュ読み出しを取得戦略として返す。
// --use-cache指定時にチェーンの先頭へ差し込まれる。
func (c *Cache) Strategy() Strategy {
	return &cacheStrategy{cache: c}
}

type cacheStrategy struct {
	cache *Cache
}

func (s *cacheStrategy) Name() string {
	return cacheStrategyName
}

func (s *cacheStrategy) Fetch(_ context.Context, url string) (string, error) {
	return s.cache.Get(url)
}
