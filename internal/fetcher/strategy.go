package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlにより、プライベートIP・ループバック・リンクローカル・メタデータIP
// へのリクエストがDNS解決後のIPアドレス検証も含めて自動的にブロックされる。
func NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// HTTPStrategy はHTTP GETによる取得戦略。
// ヘッダプロファイルの異なる複数のインスタンスをチェーンに並べることで、
// 最小ヘッダでの取得とブラウザ相当ヘッダでの取得を段階的に試せる。
type HTTPStrategy struct {
	name        string
	client      *http.Client
	headers     map[string]string
	maxBodySize int64
}

// NewHTTPStrategy はHTTPStrategyの新しいインスタンスを生成する。
func NewHTTPStrategy(name string, client *http.Client, headers map[string]string, maxBodySize int64) *HTTPStrategy {
	return &HTTPStrategy{
		name:        name,
		client:      client,
		headers:     headers,
		maxBodySize: maxBodySize,
	}
}

// Name は戦略名を返す。
func (s *HTTPStrategy) Name() string {
	return s.name
}

// Fetch はURLにGETリクエストを送り、レスポンスボディを返す。
// 非成功ステータスはエラーとして返す（呼び出し元が次の戦略を試す）。
func (s *HTTPStrategy) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTPステータス %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return "", fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	return string(body), nil
}
