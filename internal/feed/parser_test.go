package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/hitoshi/blogpulse/internal/model"
)

func newTestLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil))
}

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	start, err := model.ParseDate("2025-09-01")
	if err != nil {
		t.Fatalf("開始日のパースに失敗: %v", err)
	}
	return NewParser("Yann Debray", start, newTestLogger())
}

// rssDoc は1アイテムのRSS文書を組み立てるテストヘルパー。
func rssDoc(items ...string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
<title>Deep Learning Blog</title>
<link>https://blogs.example.com/deep-learning/</link>
%s
</channel>
</rss>`, joinItems(items))
}

func joinItems(items []string) string {
	var buf bytes.Buffer
	for _, item := range items {
		buf.WriteString(item)
		buf.WriteString("\n")
	}
	return buf.String()
}

func rssItem(title, link, creator, pubDate string, categories ...string) string {
	var cats bytes.Buffer
	for _, c := range categories {
		fmt.Fprintf(&cats, "<category>%s</category>", c)
	}
	var pub string
	if pubDate != "" {
		pub = fmt.Sprintf("<pubDate>%s</pubDate>", pubDate)
	}
	var creatorElem string
	if creator != "" {
		creatorElem = fmt.Sprintf("<dc:creator>%s</dc:creator>", creator)
	}
	var titleElem string
	if title != "" {
		titleElem = fmt.Sprintf("<title>%s</title>", title)
	}
	var linkElem string
	if link != "" {
		linkElem = fmt.Sprintf("<link>%s</link>", link)
	}
	return fmt.Sprintf("<item>%s%s%s%s%s</item>", titleElem, linkElem, creatorElem, pub, cats.String())
}

func TestParse_AcceptsMatchingItem(t *testing.T) {
	p := newTestParser(t)
	doc := rssDoc(rssItem(
		"Intro to Deep Learning",
		"https://blogs.example.com/deep-learning/2025/09/15/intro/",
		"Yann Debray",
		"Mon, 15 Sep 2025 10:30:00 +0000",
		"AI", "Tutorials",
	))

	result, err := p.Parse(doc)
	if err != nil {
		t.Fatalf("Parse がエラーを返した: %v", err)
	}
	if len(result.Posts) != 1 {
		t.Fatalf("記事数 = %d, want 1", len(result.Posts))
	}

	post := result.Posts[0]
	if post.ID != "intro-to-deep-learning" {
		t.Errorf("ID = %q, want intro-to-deep-learning", post.ID)
	}
	if post.Date.String() != "2025-09-15" {
		t.Errorf("Date = %s, want 2025-09-15", post.Date)
	}
	if post.Views != 0 {
		t.Errorf("Views = %d, want 0（フィードからは導出しない）", post.Views)
	}
	if len(post.Categories) != 2 || post.Categories[0] != "AI" || post.Categories[1] != "Tutorials" {
		t.Errorf("Categories = %v, want [AI Tutorials]（文書順を保持）", post.Categories)
	}
	if len(post.ViewsHistory) != 0 {
		t.Errorf("ViewsHistory = %v, want 空", post.ViewsHistory)
	}
}

func TestParse_AuthorFilter_CaseInsensitiveSubstring(t *testing.T) {
	tests := []struct {
		name    string
		creator string
		match   bool
	}{
		{"全部大文字", "YANN DEBRAY", true},
		{"前後に文字列", "by Yann Debray, MathWorks", true},
		{"完全一致", "Yann Debray", true},
		{"別の著者", "Jane Doe", false},
		{"著者なし", "", false},
	}

	p := newTestParser(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := rssDoc(rssItem(
				"Some Post",
				"https://blogs.example.com/deep-learning/2025/09/15/some-post/",
				tt.creator,
				"Mon, 15 Sep 2025 10:30:00 +0000",
			))

			result, err := p.Parse(doc)
			if err != nil {
				t.Fatalf("Parse がエラーを返した: %v", err)
			}
			if got := len(result.Posts) == 1; got != tt.match {
				t.Errorf("著者 %q の採否 = %v, want %v", tt.creator, got, tt.match)
			}
			if !tt.match {
				if len(result.Skipped) != 1 || result.Skipped[0].Reason != model.SkipAuthorMismatch {
					t.Errorf("除外理由 = %v, want author_mismatch", result.Skipped)
				}
			}
		})
	}
}

func TestParse_StartDateBoundary(t *testing.T) {
	p := newTestParser(t)

	// 開始日ちょうどの記事は残る
	onDate := rssDoc(rssItem(
		"On The Start Date",
		"https://blogs.example.com/deep-learning/2025/09/01/on-date/",
		"Yann Debray",
		"Mon, 01 Sep 2025 00:00:00 +0000",
	))
	result, err := p.Parse(onDate)
	if err != nil {
		t.Fatalf("Parse がエラーを返した: %v", err)
	}
	if len(result.Posts) != 1 {
		t.Errorf("開始日当日の記事が除外された（記事数 = %d, want 1）", len(result.Posts))
	}

	// 前日の記事は落ちる
	dayBefore := rssDoc(rssItem(
		"The Day Before",
		"https://blogs.example.com/deep-learning/2025/08/31/day-before/",
		"Yann Debray",
		"Sun, 31 Aug 2025 23:59:59 +0000",
	))
	result, err = p.Parse(dayBefore)
	if err != nil {
		t.Fatalf("Parse がエラーを返した: %v", err)
	}
	if len(result.Posts) != 0 {
		t.Errorf("開始日前日の記事が残っている（記事数 = %d, want 0）", len(result.Posts))
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != model.SkipBeforeStartDate {
		t.Errorf("除外理由 = %v, want before_start_date", result.Skipped)
	}
}

func TestParse_DateFormats(t *testing.T) {
	tests := []struct {
		name    string
		pubDate string
		want    string
	}{
		{"RFC822数値タイムゾーン", "Mon, 15 Sep 2025 10:30:00 +0900", "2025-09-15"},
		{"RFC822名前付きタイムゾーン", "Mon, 15 Sep 2025 10:30:00 GMT", "2025-09-15"},
		{"ISO8601数値オフセット", "2025-09-15T10:30:00+02:00", "2025-09-15"},
		{"素の日付", "2025-09-15", "2025-09-15"},
	}

	p := newTestParser(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := rssDoc(rssItem(
				"Date Format Post",
				"https://blogs.example.com/deep-learning/post/", // URLに日付なし
				"Yann Debray",
				tt.pubDate,
			))
			result, err := p.Parse(doc)
			if err != nil {
				t.Fatalf("Parse がエラーを返した: %v", err)
			}
			if len(result.Posts) != 1 {
				t.Fatalf("記事数 = %d, want 1", len(result.Posts))
			}
			if got := result.Posts[0].Date.String(); got != tt.want {
				t.Errorf("Date = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParse_DateFallbackFromURL(t *testing.T) {
	p := newTestParser(t)
	doc := rssDoc(rssItem(
		"No PubDate Post",
		"https://blogs.example.com/deep-learning/2025/10/03/no-pubdate/",
		"Yann Debray",
		"", // pubDateなし
	))

	result, err := p.Parse(doc)
	if err != nil {
		t.Fatalf("Parse がエラーを返した: %v", err)
	}
	if len(result.Posts) != 1 {
		t.Fatalf("記事数 = %d, want 1（URLの日付セグメントで解決されるべき）", len(result.Posts))
	}
	if got := result.Posts[0].Date.String(); got != "2025-10-03" {
		t.Errorf("Date = %s, want 2025-10-03", got)
	}
}

func TestParse_DateUnresolvable_SkipsItem(t *testing.T) {
	p := newTestParser(t)
	doc := rssDoc(rssItem(
		"Undatable Post",
		"https://blogs.example.com/deep-learning/undatable/",
		"Yann Debray",
		"",
	))

	result, err := p.Parse(doc)
	if err != nil {
		t.Fatalf("Parse がエラーを返した: %v", err)
	}
	if len(result.Posts) != 0 {
		t.Errorf("日付を解決できない記事が残っている")
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != model.SkipDateUnresolved {
		t.Errorf("除外理由 = %v, want date_unresolved", result.Skipped)
	}
}

func TestParse_MissingLink_SkipsItemOnly(t *testing.T) {
	p := newTestParser(t)
	doc := rssDoc(
		rssItem("Broken Item", "", "Yann Debray", "Mon, 15 Sep 2025 10:30:00 +0000"),
		rssItem(
			"Valid Item",
			"https://blogs.example.com/deep-learning/2025/09/16/valid/",
			"Yann Debray",
			"Tue, 16 Sep 2025 10:30:00 +0000",
		),
	)

	result, err := p.Parse(doc)
	if err != nil {
		t.Fatalf("Parse がエラーを返した: %v", err)
	}
	// 1アイテムの不備がバッチ全体を中断しない
	if len(result.Posts) != 1 || result.Posts[0].Title != "Valid Item" {
		t.Errorf("有効なアイテムが処理されていない: %+v", result.Posts)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != model.SkipMissingLink {
		t.Errorf("除外理由 = %v, want missing_link", result.Skipped)
	}
}

func TestParse_MalformedDocument_ReturnsError(t *testing.T) {
	p := newTestParser(t)

	_, err := p.Parse("this is not a syndication document")
	if err == nil {
		t.Fatal("不正な文書に対してエラーを返すべき")
	}
}

func TestParse_SummaryIsSanitizedPlainText(t *testing.T) {
	p := newTestParser(t)
	doc := rssDoc(`<item>
<title>Summary Post</title>
<link>https://blogs.example.com/deep-learning/2025/09/20/summary/</link>
<dc:creator>Yann Debray</dc:creator>
<pubDate>Sat, 20 Sep 2025 08:00:00 +0000</pubDate>
<description>&lt;p&gt;Hello &lt;strong&gt;world&lt;/strong&gt; &amp;amp; beyond&lt;/p&gt;</description>
</item>`)

	result, err := p.Parse(doc)
	if err != nil {
		t.Fatalf("Parse がエラーを返した: %v", err)
	}
	if len(result.Posts) != 1 {
		t.Fatalf("記事数 = %d, want 1", len(result.Posts))
	}
	if got := result.Posts[0].Summary; got != "Hello world & beyond" {
		t.Errorf("Summary = %q, want %q", got, "Hello world & beyond")
	}
}

func TestParse_AtomFeedWithAuthorElement(t *testing.T) {
	p := newTestParser(t)
	doc := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Deep Learning Blog</title>
<entry>
<title>Atom Entry</title>
<link href="https://blogs.example.com/deep-learning/2025/09/18/atom-entry/"/>
<author><name>Yann Debray</name></author>
<published>2025-09-18T09:00:00+01:00</published>
<id>urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a</id>
</entry>
</feed>`

	result, err := p.Parse(doc)
	if err != nil {
		t.Fatalf("Parse がエラーを返した: %v", err)
	}
	if len(result.Posts) != 1 {
		t.Fatalf("記事数 = %d, want 1（Atomの著者要素でも一致すべき）", len(result.Posts))
	}
	if got := result.Posts[0].Date.String(); got != "2025-09-18" {
		t.Errorf("Date = %s, want 2025-09-18", got)
	}
}
