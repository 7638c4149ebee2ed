// Package slug はタイトルからURL安全なスラッグを生成する。
package slug

import (
	"regexp"
	"strings"
)

// maxLength はスラッグの最大長。
const maxLength = 50

var (
	// disallowedChars はスラッグに使用できない文字（小文字英数・空白・ハイフン以外）。
	disallowedChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	// separatorRuns は空白・ハイフンの連続。単一ハイフンに畳み込まれる。
	separatorRuns = regexp.MustCompile(`[\s-]+`)
)

// Make はタイトルから表示用のスラッグを生成する。
// 小文字化 → 不許可文字の除去 → 空白・ハイフン連続の畳み込み → 50文字で切り詰め
// → 先頭・末尾ハイフンの除去、の順で正規化する。
// 一意性は保証しない（スラッグはマージキーではない）。
func Make(title string) string {
	s := strings.ToLower(title)
	s = disallowedChars.ReplaceAllString(s, "")
	s = separatorRuns.ReplaceAllString(s, "-")
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	return strings.Trim(s, "-")
}
