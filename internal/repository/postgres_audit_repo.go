package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/modman/internal/model"
)

// PostgresDecisionAuditRepo はPostgreSQLを使用した判定監査リポジトリ。
// moderation_decisionsテーブルは追記専用で、UPDATE/DELETEは発行しない。
type PostgresDecisionAuditRepo struct {
	db *sql.DB
}

// NewPostgresDecisionAuditRepo はPostgresDecisionAuditRepoを生成する。
func NewPostgresDecisionAuditRepo(db *sql.DB) *PostgresDecisionAuditRepo {
	return &PostgresDecisionAuditRepo{db: db}
}

// RecordDecision は確定した判定1件を監査レコードとして記録する。
// IDが未設定の場合はUUIDを採番する。
func (r *PostgresDecisionAuditRepo) RecordDecision(ctx context.Context, decision *model.ModerationDecision) error {
	if decision.ID == "" {
		decision.ID = uuid.NewString()
	}
	if decision.CreatedAt.IsZero() {
		decision.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO moderation_decisions (id, post_id, decided_state, created_at)
		 VALUES ($1, $2, $3, $4)`,
		decision.ID, decision.PostID, decision.State, decision.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("判定監査レコードの記録に失敗しました: %w", err)
	}

	return nil
}
