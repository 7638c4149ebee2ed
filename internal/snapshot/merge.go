package snapshot

import (
	"time"

	"github.com/hitoshi/blogpulse/internal/model"
)

// Merge は今回取得した記事一覧と前回のスナップショットを統合する。
// 閲覧数履歴は前回の記録を引き継ぎ、当日分の標本が無ければ末尾に
// 追記する。同日の再実行では既存の標本を書き換えない。今回の一覧に
// 含まれない記事は結果から落ちる。
func Merge(fresh []model.Post, prev model.Snapshot, today model.Date, now time.Time) model.Snapshot {
	posts := make([]model.Post, 0, len(fresh))
	for _, post := range fresh {
		if prior := prev.FindByURL(post.URL); prior != nil {
			post.ViewsHistory = append([]model.ViewSample(nil), prior.ViewsHistory...)
		}
		if !hasSampleFor(post.ViewsHistory, today) {
			post.ViewsHistory = append(post.ViewsHistory, model.ViewSample{
				Date:  today,
				Views: post.Views,
			})
		}
		post.ViewsLast30Days = viewsLast30Days(post.Views, post.ViewsHistory, today)
		posts = append(posts, post)
	}
	return model.Snapshot{
		LastUpdated: now.UTC().Format(time.RFC3339),
		Posts:       posts,
	}
}

func hasSampleFor(history []model.ViewSample, day model.Date) bool {
	for _, sample := range history {
		if sample.Date.Equal(day.Time) {
			return true
		}
	}
	return false
}

// viewsLast30Days は直近 30 日間の閲覧数増分を履歴から導出する。
// 30 日以上前の標本のうち最新のものを基準とし、無ければ最古の標本を
// 基準にする。負値は 0 に丸める。
func viewsLast30Days(views int, history []model.ViewSample, today model.Date) int {
	if len(history) == 0 {
		return 0
	}
	cutoff := today.AddDate(0, 0, -30)
	var baseline *model.ViewSample
	for i := range history {
		sample := &history[i]
		if sample.Date.After(cutoff) {
			continue
		}
		if baseline == nil || sample.Date.After(baseline.Date.Time) {
			baseline = sample
		}
	}
	if baseline == nil {
		baseline = &history[0]
		for i := range history {
			if history[i].Date.Before(baseline.Date.Time) {
				baseline = &history[i]
			}
		}
	}
	delta := views - baseline.Views
	if delta < 0 {
		return 0
	}
	return delta
}
