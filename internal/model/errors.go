package model

import "errors"

// ErrNoFeedsReachable は全フィードエンドポイントのフェッチに失敗したことを表す。
// 「到達できたが該当記事が0件」とは区別され、呼び出し元は前回スナップショット
// へのフォールバックを判断できる。
var ErrNoFeedsReachable = errors.New("どのフィードエンドポイントにも到達できませんでした")

// ErrNoPosts はフィード・前回スナップショットのいずれからも記事が1件も
// 得られなかった終端状態を表す。プロセスは非ゼロの終了コードで終了する。
var ErrNoPosts = errors.New("記事が1件も見つかりませんでした")

// SkipReason はフィード内の1アイテムが除外された理由を表す。
// 例外の握りつぶしではなく明示的な結果値としてテストから検証できるようにする。
type SkipReason string

const (
	// SkipMissingTitle はタイトル要素の欠落による除外。
	SkipMissingTitle SkipReason = "missing_title"
	// SkipMissingLink はリンク要素の欠落による除外。
	SkipMissingLink SkipReason = "missing_link"
	// SkipAuthorMismatch は著者フィルタ不一致による除外。
	SkipAuthorMismatch SkipReason = "author_mismatch"
	// SkipDateUnresolved は公開日を解決できなかったことによる除外。
	SkipDateUnresolved SkipReason = "date_unresolved"
	// SkipBeforeStartDate は開始日より前の記事であることによる除外。
	SkipBeforeStartDate SkipReason = "before_start_date"
)

// SkippedItem は除外されたアイテムとその理由を表す。
type SkippedItem struct {
	Title  string
	Link   string
	Reason SkipReason
}
