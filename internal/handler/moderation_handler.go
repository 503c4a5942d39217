// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/modman/internal/middleware"
	"github.com/hitoshi/modman/internal/model"
)

// maxCheckContentLength は事前チェックで受け付けるタイトル+本文の最大文字数。
// 分類器のプロンプト長を抑えるための上限で、投稿本体の長さ制限とは別物。
const maxCheckContentLength = 10000

// DecisionServiceInterface はモデレーション判定サービスのインターフェース。
type DecisionServiceInterface interface {
	// Decide はタイトルと本文に対する最終判定を返す（true=承認、false=却下）。
	// エラーは返さない。分類器の障害はすべて却下として解決される。
	Decide(ctx context.Context, title, body string) bool
}

// PostFinder は投稿の参照インターフェース。
// repository.PostRepositoryがこれを満たす。
type PostFinder interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)
}

// ModerationHandler はモデレーションAPIのHTTPハンドラー。
// 事前チェック（保存前の同期判定）と状態照会を提供する。
// 事前チェックはスケジューラ経由の非同期判定と同じエンジンを共有する。
type ModerationHandler struct {
	engine DecisionServiceInterface
	finder PostFinder
}

// NewModerationHandler はModerationHandlerを生成する。
func NewModerationHandler(engine DecisionServiceInterface, finder PostFinder) *ModerationHandler {
	return &ModerationHandler{engine: engine, finder: finder}
}

// --- リクエスト/レスポンス型 ---

// checkRequest は事前チェックのリクエストボディ。
// titleは空でも有効な入力として扱う（タイトルなし投稿に対応）。
type checkRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// checkResponse は事前チェックのレスポンス。
type checkResponse struct {
	Approved bool `json:"approved"`
}

// statusResponse はモデレーション状態照会のレスポンス。
// 投稿本文は返さない。本体アプリケーションが必要とするのは状態のみ。
type statusResponse struct {
	ID              string     `json:"id"`
	ModerationState string     `json:"moderation_state"`
	ModeratedAt     *time.Time `json:"moderated_at,omitempty"`
}

// Check はPOST /api/moderation/checkを処理する。
// タイトルと本文を判定エンジンにかけ、承認可否を同期的に返す。
func (h *ModerationHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("JSONボディを解析できません"))
		return
	}

	// 上限は文字数（rune数）で判定する。バイト数で数えると
	// マルチバイト文字の投稿が実際の文字数の1/3程度で上限に達してしまう。
	if utf8.RuneCountInString(req.Title)+utf8.RuneCountInString(req.Content) > maxCheckContentLength {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewContentTooLongError(maxCheckContentLength))
		return
	}

	approved := h.engine.Decide(r.Context(), req.Title, req.Content)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(checkResponse{Approved: approved})
}

// Status はGET /api/moderation/posts/{postID}を処理する。
// 指定された投稿の現在のモデレーション状態を返す。
// 本体アプリケーションが投稿の公開可否をポーリングするために使う。
func (h *ModerationHandler) Status(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	if postID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("投稿IDが指定されていません"))
		return
	}

	post, err := h.finder.FindByID(r.Context(), postID)
	if err != nil {
		slog.Error("投稿の取得に失敗しました",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	if post == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound,
			model.NewPostNotFoundError(postID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{
		ID:              post.ID,
		ModerationState: string(post.ModerationState),
		ModeratedAt:     post.ModeratedAt,
	})
}
