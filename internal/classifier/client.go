// Package classifier は外部テキスト分類モデル（Gemini）との連携を提供する。
// 投稿のタイトルと本文をPG-13判定プロンプトに埋め込んで送信し、
// モデルの生の応答テキストをそのまま返す。応答の解釈は行わない。
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrMisconfigured はAPIキー未設定を表す。
// 起動時の致命的エラーであり、呼び出しごとのエラーではない。
var ErrMisconfigured = errors.New("classifier: APIキーが設定されていません")

// ErrUnavailable は分類器の呼び出し失敗を表す。
// ネットワークエラー、タイムアウト、非2xxステータス、
// 応答エンベロープの解析失敗をすべてこのエラーに分類する。
var ErrUnavailable = errors.New("classifier: 分類器を利用できません")

// promptTemplate はPG-13判定のプロンプトテンプレート。
// モデルには "true" / "false" のみでの応答を指示するが、
// 実際の応答がそれに従う保証はない（解釈はmoderationパッケージが行う）。
const promptTemplate = `You are a content moderator evaluating text for PG-13 appropriateness.

Evaluate the following content and respond with ONLY "true" if the content is appropriate for PG-13 audiences, or "false" if it contains inappropriate content.

PG-13 guidelines:
- No explicit sexual content
- No graphic violence
- No hate speech or discrimination
- No excessive profanity
- No drug promotion
- No self-harm content

Content to evaluate:
%s
%s

Response (true/false only):
`

// Client はGemini generateContent APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	model      string
	apiBase    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// apiKeyが空の場合はErrMisconfiguredを返す。
// モデレーションは分類器なしでは成立しないため、
// この時点で失敗させてプロセスの起動自体を止める。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey, model, apiBase string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMisconfigured
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if apiBase == "" {
		apiBase = "https://generativelanguage.googleapis.com"
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		model:      model,
		apiBase:    apiBase,
	}, nil
}

// --- リクエスト/レスポンス型（Gemini REST API） ---

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

// Classify はタイトルと本文をPG-13判定プロンプトに埋め込んで分類器へ送信し、
// モデルの応答テキストをそのまま返す。空白のトリムや真偽の解釈は行わない。
// 呼び出しの失敗はすべてErrUnavailableにラップして返す。
// タイムアウトは呼び出し元がctxで制御する。
func (c *Client) Classify(ctx context.Context, title, body string) (string, error) {
	prompt := fmt.Sprintf(promptTemplate, title, body)

	reqBody, err := json.Marshal(generateRequest{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: リクエストJSONの生成に失敗しました: %v", ErrUnavailable, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.apiBase, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("%w: HTTPリクエストの作成に失敗しました: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("分類器APIの呼び出しに失敗しました",
			slog.String("model", c.model),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("分類器APIがエラーステータスを返しました",
			slog.String("model", c.model),
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("%w: ステータス %d", ErrUnavailable, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: レスポンスボディの読み取りに失敗しました: %v", ErrUnavailable, err)
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.logger.Error("分類器APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: レスポンスJSONのパースに失敗しました: %v", ErrUnavailable, err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		c.logger.Error("分類器APIのレスポンスに候補が含まれていません")
		return "", fmt.Errorf("%w: レスポンスに候補が含まれていません", ErrUnavailable)
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
