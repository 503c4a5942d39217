package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/modman/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	var bookID sql.NullString
	var moderatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, author_id, book_id, title, content, moderation_state,
		        moderated_at, created_at, updated_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(
		&post.ID, &post.AuthorID, &bookID, &post.Title, &post.Content,
		&post.ModerationState, &moderatedAt, &post.CreatedAt, &post.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}

	if bookID.Valid {
		post.BookID = bookID.String
	}
	if moderatedAt.Valid {
		post.ModeratedAt = &moderatedAt.Time
	}

	return post, nil
}

// ListPendingModeration はモデレーション待ちの投稿をcreated_at昇順で取得する。
// 提出順（FIFO）での処理を保証するため、並び順はクエリ側で固定する。
func (r *PostgresPostRepo) ListPendingModeration(ctx context.Context, limit int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, author_id, book_id, title, content, moderation_state,
		        moderated_at, created_at, updated_at
		 FROM posts
		 WHERE moderation_state = $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		model.ModerationPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("モデレーション待ち投稿の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post := &model.Post{}
		var bookID sql.NullString
		var moderatedAt sql.NullTime

		if err := rows.Scan(
			&post.ID, &post.AuthorID, &bookID, &post.Title, &post.Content,
			&post.ModerationState, &moderatedAt, &post.CreatedAt, &post.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("モデレーション待ち投稿のスキャンに失敗しました: %w", err)
		}

		if bookID.Valid {
			post.BookID = bookID.String
		}
		if moderatedAt.Valid {
			post.ModeratedAt = &moderatedAt.Time
		}

		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("モデレーション待ち投稿の読み取りに失敗しました: %w", err)
	}

	return posts, nil
}

// CommitModeration は判定結果を投稿のmoderation_stateに書き込む。
// WHERE句でpending状態の行のみを対象とするため、
// すでに判定済みの投稿への再コミットは0行更新の no-op になる（冪等）。
func (r *PostgresPostRepo) CommitModeration(ctx context.Context, postID string, approved bool) error {
	state := model.StateForDecision(approved)

	_, err := r.db.ExecContext(ctx,
		`UPDATE posts
		 SET moderation_state = $2, moderated_at = now(), updated_at = now()
		 WHERE id = $1 AND moderation_state = $3`,
		postID, state, model.ModerationPending,
	)
	if err != nil {
		return fmt.Errorf("モデレーション結果の書き込みに失敗しました: %w", err)
	}

	return nil
}

// CountPending はモデレーション待ちの投稿数を返す。
func (r *PostgresPostRepo) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE moderation_state = $1`,
		model.ModerationPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("モデレーション待ち件数の取得に失敗しました: %w", err)
	}

	return count, nil
}
