package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/blogpulse/internal/model"
)

// defaultFeedURLs はデフォルトの巡回対象フィード。
// 著者別フィードを先頭に置き、後続のページ分割フィードで取りこぼしを補う。
var defaultFeedURLs = []string{
	"https://blogs.mathworks.com/deep-learning/author/ydebray/feed/",
	"https://blogs.mathworks.com/deep-learning/feed/",
	"https://blogs.mathworks.com/deep-learning/feed/?paged=2",
	"https://blogs.mathworks.com/deep-learning/feed/?paged=3",
}

// defaultUserAgent はブラウザプロファイル戦略で送出するUser-Agent。
// 対象ブログのCDN（ボット保護あり）が受け入れる実績のあるプロファイル。
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Filter
	AuthorName string
	StartDate  model.Date

	// Feeds
	FeedURLs []string

	// Output
	OutputFile string
	CacheDir   string

	// Fetch
	FetchTimeout time.Duration
	FetchMaxSize int64
	FetchPace    time.Duration
	UserAgent    string
	Referer      string

	// Views
	ViewsMarker string

	// Metrics
	PushgatewayURL string
}

// Load は環境変数からConfigを読み込む。
// すべての項目にデフォルト値があり、必須環境変数はない。
// START_DATEがYYYY-MM-DD形式でない場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.AuthorName = getEnvString("AUTHOR_NAME", "Yann Debray")

	startDate, err := model.ParseDate(getEnvString("START_DATE", "2025-09-01"))
	if err != nil {
		return nil, fmt.Errorf("START_DATEが不正です: %w", err)
	}
	cfg.StartDate = startDate

	cfg.FeedURLs = getEnvURLList("FEED_URLS", defaultFeedURLs)
	cfg.OutputFile = getEnvString("OUTPUT_FILE", "posts.json")
	cfg.CacheDir = getEnvString("CACHE_DIR", ".rss_cache")

	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 30*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchPace = getEnvDuration("FETCH_PACE", 2*time.Second)
	cfg.UserAgent = getEnvString("USER_AGENT", defaultUserAgent)
	cfg.Referer = getEnvString("REFERER", "https://blogs.mathworks.com/")

	cfg.ViewsMarker = getEnvString("VIEWS_MARKER", `class="post-views">`)
	cfg.PushgatewayURL = getEnvString("PUSHGATEWAY_URL", "")

	return cfg, nil
}

// BrowserHeaders はブラウザプロファイル戦略用のリクエストヘッダを返す。
func (c *Config) BrowserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      c.UserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Encoding": "identity",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         c.Referer,
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvURLList はカンマ区切りのURLリストを読み込む。
// 空要素は除去され、1件も残らない場合はデフォルトを返す。
func getEnvURLList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var urls []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	if len(urls) == 0 {
		return defaultVal
	}
	return urls
}
