// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/modman/internal/model"
)

// PostRepository は投稿データの永続化インターフェース。
// 投稿の作成・編集は本体アプリケーション側の責務であり、
// このサービスはmoderation_stateの読み書きと参照のみを行う。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	// モデレーション状態照会エンドポイントが使用する。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// ListPendingModeration はモデレーション待ちの投稿をcreated_at昇順で取得する。
	// limit件まで返す。件数が0の場合は空スライスを返す。
	ListPendingModeration(ctx context.Context, limit int) ([]*model.Post, error)

	// CommitModeration は判定結果を投稿のmoderation_stateに書き込む。
	// pending状態の行のみを遷移させるため冪等であり、
	// すでに判定済みの投稿に対しては何もせず成功を返す。
	CommitModeration(ctx context.Context, postID string, approved bool) error

	// CountPending はモデレーション待ちの投稿数を返す。
	CountPending(ctx context.Context) (int, error)
}

// DecisionAuditRepository は判定監査レコードの永続化インターフェース。
// ワーカーがmoderation_stateのコミット後に追記専用で記録する。
type DecisionAuditRepository interface {
	// RecordDecision は確定した判定1件を監査レコードとして記録する。
	// IDが未設定の場合は実装側で採番する。
	RecordDecision(ctx context.Context, decision *model.ModerationDecision) error
}
