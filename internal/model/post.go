// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// dateLayout は日付のJSON表現（YYYY-MM-DD）。
const dateLayout = "2006-01-02"

// Date は時刻・タイムゾーンを持たない暦日を表す。
// フィードの公開日時はタイムゾーンを破棄した上でこの型に正規化され、
// 以降の比較はすべてナイーブな日付同士で行われる。
type Date struct {
	time.Time
}

// NewDate は年月日からDateを生成する。
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf はtime.Timeから時刻成分を破棄したDateを生成する。
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate はYYYY-MM-DD形式の文字列をパースする。
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("日付のパースに失敗しました: %w", err)
	}
	return Date{t}, nil
}

// String はYYYY-MM-DD形式の文字列を返す。
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON はYYYY-MM-DD形式のJSON文字列として出力する。
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON はYYYY-MM-DD形式のJSON文字列を読み込む。
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ViewSample はある暦日に観測された閲覧数のサンプルを表す。
// viewsHistoryは追記専用で、1暦日につき最大1件。
type ViewSample struct {
	Date  Date `json:"date"`
	Views int  `json:"views"`
}

// Post はフィードから取得したブログ記事の正規化レコードを表す。
// マージ・重複排除のキーはURL。IDはタイトル由来のスラッグで表示用途のみ
// （衝突しうるがキーには使わない）。
type Post struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Date            Date         `json:"date"`
	URL             string       `json:"url"`
	Categories      []string     `json:"categories"`
	Summary         string       `json:"summary,omitempty"`
	Views           int          `json:"views"`
	ViewsLast30Days int          `json:"viewsLast30Days"`
	ViewsHistory    []ViewSample `json:"viewsHistory"`
}

// Snapshot は永続化される全記事の集約状態を表す。
// 不変条件: postsには同一URLのレコードは高々1件。
type Snapshot struct {
	LastUpdated string `json:"lastUpdated"`
	Posts       []Post `json:"posts"`
}

// EmptySnapshot は空のスナップショットを返す。
// 前回のスナップショットが存在しない・読めない場合の初期値。
func EmptySnapshot() Snapshot {
	return Snapshot{LastUpdated: "", Posts: []Post{}}
}

// FindByURL はURLが一致する記事を返す。見つからない場合はnil。
func (s *Snapshot) FindByURL(url string) *Post {
	for i := range s.Posts {
		if s.Posts[i].URL == url {
			return &s.Posts[i]
		}
	}
	return nil
}
