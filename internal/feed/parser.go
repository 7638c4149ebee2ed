// Package feed はシンジケーションフィードのパースと記事レコードへの正規化を提供する。
package feed

import (
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/blogpulse/internal/model"
	"github.com/hitoshi/blogpulse/internal/slug"
)

// dateFormats は公開日時のパースを試みるフォーマットの優先順リスト。
// 最初に一致したフォーマットが採用され、タイムゾーン成分は破棄される。
var dateFormats = []string{
	"Mon, 02 Jan 2006 15:04:05 -0700", // RFC822系・数値タイムゾーン
	"Mon, 02 Jan 2006 15:04:05 MST",   // RFC822系・名前付きタイムゾーン
	"2006-01-02T15:04:05-07:00",       // ISO-8601・数値オフセット
	"2006-01-02",                      // 素のYYYY-MM-DD
}

// urlDatePattern はURLパスから /YYYY/MM/DD/ セグメントを抽出するパターン。
// 公開日時フィールドが欠落・解釈不能な場合のフォールバックに使う。
var urlDatePattern = regexp.MustCompile(`/(\d{4})/(\d{2})/(\d{2})/`)

// summaryMaxRunes は永続化する要約の最大文字数。
const summaryMaxRunes = 280

// Result は1フィード文書のパース結果を表す。
// 除外アイテムは理由付きの明示的な値として保持され、テストから検証できる。
type Result struct {
	Posts   []model.Post
	Skipped []model.SkippedItem
}

// Parser は1つのシンジケーション文書を記事レコード列に変換する。
// 著者フィルタ（大文字小文字無視の部分一致）と開始日フィルタ（その日を含む）
// を適用する。
type Parser struct {
	authorName string
	startDate  model.Date
	sanitizer  *bluemonday.Policy
	logger     *slog.Logger
}

// NewParser はParserの新しいインスタンスを生成する。
func NewParser(authorName string, startDate model.Date, logger *slog.Logger) *Parser {
	return &Parser{
		authorName: authorName,
		startDate:  startDate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger,
	}
}

// Parse はフィード文書のテキストをパースし、フィルタ通過後の記事レコードを返す。
// 外側の文書自体がパースできない場合のみエラーを返す（呼び出し元は当該
// エンドポイントを空結果として扱い、処理を継続する）。
// 個々のアイテムの不備はそのアイテムの除外にとどまり、バッチ全体を中断しない。
func (p *Parser) Parse(content string) (*Result, error) {
	parsed, err := gofeed.NewParser().ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("フィード文書のパースに失敗しました: %w", err)
	}

	result := &Result{}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		if item.Title == "" {
			result.skip(item, model.SkipMissingTitle)
			continue
		}
		if item.Link == "" {
			result.skip(item, model.SkipMissingLink)
			continue
		}

		if !p.matchesAuthor(item) {
			result.skip(item, model.SkipAuthorMismatch)
			continue
		}

		pubDate, ok := resolveDate(item)
		if !ok {
			result.skip(item, model.SkipDateUnresolved)
			continue
		}
		if pubDate.Before(p.startDate.Time) {
			result.skip(item, model.SkipBeforeStartDate)
			continue
		}

		post := model.Post{
			ID:           slug.Make(item.Title),
			Title:        item.Title,
			Date:         pubDate,
			URL:          item.Link,
			Categories:   append([]string{}, item.Categories...),
			Summary:      p.summarize(item.Description),
			Views:        0, // 閲覧数はフィードからは決して導出しない
			ViewsHistory: []model.ViewSample{},
		}
		result.Posts = append(result.Posts, post)
	}

	if len(result.Skipped) > 0 {
		p.logger.Info("フィルタにより除外されたアイテムがあります",
			slog.Int("skipped", len(result.Skipped)),
			slog.Int("accepted", len(result.Posts)),
		)
	}

	return result, nil
}

// skip はアイテムを理由付きで除外リストに追加する。
func (r *Result) skip(item *gofeed.Item, reason model.SkipReason) {
	r.Skipped = append(r.Skipped, model.SkippedItem{
		Title:  item.Title,
		Link:   item.Link,
		Reason: reason,
	})
}

// matchesAuthor はアイテムの宣言著者のいずれかに、設定された著者名が
// 大文字小文字を無視した部分文字列として含まれるかを判定する。
// dc:creator拡張を優先し、次にAtom等の著者フィールドを見る。
func (p *Parser) matchesAuthor(item *gofeed.Item) bool {
	want := strings.ToLower(p.authorName)

	var candidates []string
	if item.DublinCoreExt != nil {
		candidates = append(candidates, item.DublinCoreExt.Creator...)
	}
	if item.Author != nil {
		candidates = append(candidates, item.Author.Name)
	}
	for _, a := range item.Authors {
		if a != nil {
			candidates = append(candidates, a.Name)
		}
	}

	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), want) {
			return true
		}
	}
	return false
}

// resolveDate はアイテムの公開日を解決する。
// 宣言された日付文字列をフォーマットリストの順に試し、失敗した場合は
// URLの /YYYY/MM/DD/ セグメントにフォールバックする。
func resolveDate(item *gofeed.Item) (model.Date, bool) {
	if raw := strings.TrimSpace(item.Published); raw != "" {
		for _, format := range dateFormats {
			if t, err := time.Parse(format, raw); err == nil {
				// タイムゾーンは破棄し、表記上の年月日をそのまま採用する
				return model.DateOf(t), true
			}
		}
	}

	if m := urlDatePattern.FindStringSubmatch(item.Link); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return model.NewDate(year, time.Month(month), day), true
	}

	return model.Date{}, false
}

// summarize はフィードのdescriptionからマークアップを除去した要約を作る。
// タグの除去 → 実体参照のデコード → 空白の正規化 → 文字数制限、の順。
func (p *Parser) summarize(description string) string {
	if description == "" {
		return ""
	}
	text := p.sanitizer.Sanitize(description)
	text = html.UnescapeString(text)
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > summaryMaxRunes {
		text = string(runes[:summaryMaxRunes])
	}
	return text
}
