package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open はモデレーション対象のpostsテーブルを保持するPostgreSQLへの接続を開く。
// databaseURLは環境変数DATABASE_URLの接続URLをそのまま受け取る。
// sql.Openの時点では接続は確立されないため、ワーカー・APIサーバーの起動処理では
// 必ずdb.Ping()で疎通を確認してからスケジューラやルーターを組み立てること。
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}
