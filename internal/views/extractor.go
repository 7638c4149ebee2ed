// Package views はレンダリング済み記事ページからの閲覧数抽出を提供する。
// 抽出はページテンプレートに依存したベストエフォートであり、テンプレートの
// 変更時は失敗ではなく0に縮退する。
package views

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	xhtml "golang.org/x/net/html"
)

// DefaultMarker は現行ページテンプレートの閲覧数マーカー。
const DefaultMarker = `class="post-views">`

// defaultViewsClass はDOMフォールバックが探す閲覧数要素のclass属性値。
const defaultViewsClass = "post-views"

// Extractor はHTML文書から閲覧数を抽出するインターフェース。
// 抽出できない場合は0を返し、決して失敗しない。テンプレート変更への
// 追従は実装の差し替えで行い、マージ・集約ロジックには触れない。
type Extractor interface {
	Extract(doc string) int
}

// TemplateExtractor はページテンプレート固有のマーカー文字列に続く
// カンマ区切り整数 + "views" をパターン一致で抽出する。
type TemplateExtractor struct {
	pattern *regexp.Regexp
}

// NewTemplateExtractor はマーカー文字列からTemplateExtractorを生成する。
// パターンは大文字小文字を区別せず、マーカーの直後に空白とカンマ区切り整数、
// 続けて語 "views" を要求する。
func NewTemplateExtractor(marker string) *TemplateExtractor {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(marker) + `\s+([0-9][0-9,]*)\s*views`)
	return &TemplateExtractor{pattern: pattern}
}

// Extract は文書から閲覧数を抽出する。一致しない場合は0。
func (e *TemplateExtractor) Extract(doc string) int {
	m := e.pattern.FindStringSubmatch(normalize(doc))
	if m == nil {
		return 0
	}
	return parseGroupedInt(m[1])
}

// DOMExtractor はHTMLをトークナイズし、class属性で閲覧数要素を特定して
// そのテキストから数値を抽出する。マーカー文字列のパターン一致が外れた
// 場合のフォールバックとして使う。
type DOMExtractor struct {
	class string
}

// NewDOMExtractor はDOMExtractorの新しいインスタンスを生成する。
// classが空の場合はデフォルトのclass属性値を使う。
func NewDOMExtractor(class string) *DOMExtractor {
	if class == "" {
		class = defaultViewsClass
	}
	return &DOMExtractor{class: class}
}

var groupedIntPattern = regexp.MustCompile(`[0-9][0-9,]*`)

// Extract は閲覧数要素のテキストから最初の整数を抽出する。見つからなければ0。
func (e *DOMExtractor) Extract(doc string) int {
	tokenizer := xhtml.NewTokenizer(strings.NewReader(doc))
	depth := 0
	var text strings.Builder

	for {
		switch tokenizer.Next() {
		case xhtml.ErrorToken:
			return 0

		case xhtml.StartTagToken:
			if depth > 0 {
				depth++
				continue
			}
			if e.hasTargetClass(tokenizer) {
				depth = 1
			}

		case xhtml.TextToken:
			if depth > 0 {
				text.Write(tokenizer.Text())
			}

		case xhtml.EndTagToken:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				if m := groupedIntPattern.FindString(normalize(text.String())); m != "" {
					return parseGroupedInt(m)
				}
				text.Reset()
			}
		}
	}
}

// hasTargetClass は現在の開始タグのclass属性に対象クラスが含まれるかを判定する。
func (e *DOMExtractor) hasTargetClass(tokenizer *xhtml.Tokenizer) bool {
	if _, hasAttr := tokenizer.TagName(); !hasAttr {
		return false
	}
	for {
		key, val, more := tokenizer.TagAttr()
		if strings.EqualFold(string(key), "class") {
			for _, c := range strings.Fields(string(val)) {
				if c == e.class {
					return true
				}
			}
		}
		if !more {
			return false
		}
	}
}

// MultiExtractor は複数の抽出器を順に試し、最初の非ゼロ値を返す。
type MultiExtractor []Extractor

// Extract は登録順に抽出を試す。すべて0の場合は0。
func (m MultiExtractor) Extract(doc string) int {
	for _, e := range m {
		if count := e.Extract(doc); count > 0 {
			return count
		}
	}
	return 0
}

// normalize は実体参照をデコードし、ノーブレークスペースを通常の空白に置換する。
func normalize(s string) string {
	s = html.UnescapeString(s)
	return strings.ReplaceAll(s, "\u00a0", " ")
}

// parseGroupedInt はカンマ区切り整数をパースする。パース不能なら0。
func parseGroupedInt(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
