// Package metrics はPrometheusメトリクスの収集とPushgatewayへの送信を提供する。
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/hitoshi/blogpulse/internal/model"
)

// Collector は1回の収集実行で発生したイベント件数を記録する。
type Collector struct {
	feedsFetched    prometheus.Counter
	feedFetchFails  prometheus.Counter
	feedParseFails  prometheus.Counter
	itemsSkipped    *prometheus.CounterVec
	postsDiscovered prometheus.Counter
	viewsFetchFails prometheus.Counter
	runDuration     prometheus.Gauge
	snapshotPosts   prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		feedsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogpulse_feeds_fetched_total",
			Help: "取得に成功したフィードの合計数",
		}),
		feedFetchFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogpulse_feed_fetch_failures_total",
			Help: "取得に失敗したフィードの合計数",
		}),
		feedParseFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogpulse_feed_parse_failures_total",
			Help: "解析に失敗したフィードの合計数",
		}),
		itemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogpulse_items_skipped_total",
			Help: "条件を満たさずスキップされたフィード項目の合計数",
		}, []string{"reason"}),
		postsDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogpulse_posts_discovered_total",
			Help: "収集された記事の合計数",
		}),
		viewsFetchFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogpulse_views_fetch_failures_total",
			Help: "閲覧数取得に失敗した記事ページの合計数",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blogpulse_run_duration_seconds",
			Help: "収集実行の所要時間（秒）",
		}),
		snapshotPosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blogpulse_snapshot_posts",
			Help: "スナップショットに保存された記事数",
		}),
	}

	reg.MustRegister(
		c.feedsFetched,
		c.feedFetchFails,
		c.feedParseFails,
		c.itemsSkipped,
		c.postsDiscovered,
		c.viewsFetchFails,
		c.runDuration,
		c.snapshotPosts,
	)

	return c
}

// FeedFetched はフィード取得成功を記録する。
func (c *Collector) FeedFetched() {
	c.feedsFetched.Inc()
}

// FeedFetchFailed はフィード取得失敗を記録する。
func (c *Collector) FeedFetchFailed() {
	c.feedFetchFails.Inc()
}

// FeedParseFailed はフィード解析失敗を記録する。
func (c *Collector) FeedParseFailed() {
	c.feedParseFails.Inc()
}

// ItemSkipped はフィード項目のスキップを理由別に記録する。
func (c *Collector) ItemSkipped(reason model.SkipReason) {
	c.itemsSkipped.WithLabelValues(string(reason)).Inc()
}

// PostsDiscovered は収集された記事数を加算する。
func (c *Collector) PostsDiscovered(n int) {
	c.postsDiscovered.Add(float64(n))
}

// ViewsFetchFailed は記事ページの閲覧数取得失敗を記録する。
func (c *Collector) ViewsFetchFailed() {
	c.viewsFetchFails.Inc()
}

// RunCompleted は実行全体の結果を記録する。
func (c *Collector) RunCompleted(snapshotPosts int, duration time.Duration) {
	c.snapshotPosts.Set(float64(snapshotPosts))
	c.runDuration.Set(duration.Seconds())
}

// Push は収集済みメトリクスをPushgatewayへ送信する。
// バッチ実行のため、サーバーを立てる代わりに実行末尾で一括送信する。
func Push(gatewayURL, job string, g prometheus.Gatherer) error {
	if err := push.New(gatewayURL, job).Gatherer(g).Push(); err != nil {
		return fmt.Errorf("メトリクスの送信に失敗しました: %w", err)
	}
	return nil
}
