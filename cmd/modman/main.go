// modmanは読書SNSの投稿モデレーションサービス。
// サブコマンド: serve（APIサーバー）、worker（モデレーションワーカー）、
// migrate（DBマイグレーション）、healthcheck（Dockerヘルスチェック）。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/modman/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
