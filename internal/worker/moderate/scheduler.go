// Package moderate は投稿モデレーションのバックグラウンド処理を提供する。
// 固定間隔のティッカーでモデレーション待ちの投稿を1件ずつ処理する。
package moderate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/modman/internal/metrics"
	"github.com/hitoshi/modman/internal/model"
	"github.com/hitoshi/modman/internal/repository"
)

// DecisionService はモデレーション判定の実行インターフェース。
type DecisionService interface {
	// Decide はタイトルと本文に対する最終判定を返す（true=承認、false=却下）。
	Decide(ctx context.Context, title, body string) bool
}

// Scheduler はモデレーション処理のスケジューリングを行う。
// 1ティックにつき最も古いpending投稿を1件だけ処理する。
// これにより外部分類器への負荷は最大で1呼び出し/間隔に抑えられ、
// バックログはバーストせず予測可能なペースで消化される。
type Scheduler struct {
	postRepo  repository.PostRepository
	auditRepo repository.DecisionAuditRepository
	engine    DecisionService
	logger    *slog.Logger
	collector metrics.MetricsCollector

	// mu はティックの重複実行を防ぐ。
	// 前のティックのdecide/commitが完了するまで次のティックは開始しない。
	mu sync.Mutex
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(
	postRepo repository.PostRepository,
	auditRepo repository.DecisionAuditRepository,
	engine DecisionService,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Scheduler {
	return &Scheduler{
		postRepo:  postRepo,
		auditRepo: auditRepo,
		engine:    engine,
		logger:    logger,
		collector: collector,
	}
}

// Start は固定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
// ティックが間隔より長くかかった場合、次のティックは遅延するだけで
// スキップも並列実行もされない。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("モデレーションスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("モデレーションティックの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("モデレーションスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("モデレーションティックの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は1ティック分のモデレーション処理を実行する。
// モデレーション待ちの最も古い投稿を1件取り出し、判定して結果を書き込む。
// 書き込みに失敗した場合、投稿はpendingのまま残り次のティックで再試行される。
// このとき判定結果はキャッシュせず破棄する（再試行時の再計算は許容される）。
// 前のティックが実行中の場合は何もせずに返る。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.mu.TryLock() {
		s.logger.Warn("前のモデレーションティックが実行中のためスキップします")
		return nil
	}
	defer s.mu.Unlock()

	start := time.Now()

	// Select: モデレーション待ちの投稿をcreated_at昇順で取得（FIFO）
	posts, err := s.postRepo.ListPendingModeration(ctx, 1)
	if err != nil {
		s.collector.RecordStoreFailure()
		return err
	}

	if count, err := s.postRepo.CountPending(ctx); err == nil {
		s.collector.SetPendingPosts(count)
	}

	if len(posts) == 0 {
		s.logger.Debug("モデレーション待ちの投稿はありません")
		return nil
	}

	// Pick: 最も古い1件のみ処理する
	post := posts[0]

	s.logger.Info("投稿のモデレーションを開始します",
		slog.String("post_id", post.ID),
	)

	// Decide: 判定エンジンはエラーを返さない（全障害が却下に解決される）
	approved := s.engine.Decide(ctx, post.Title, post.Content)

	// Commit: 判定結果をストアへ書き込む
	if err := s.postRepo.CommitModeration(ctx, post.ID, approved); err != nil {
		s.logger.Error("モデレーション結果の書き込みに失敗しました。次のティックで再試行します",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
		s.collector.RecordStoreFailure()
		return err
	}

	// Audit: 確定した判定を追記専用の監査レコードとして残す。
	// 監査の失敗でティックを失敗させない。moderation_stateはすでに
	// コミット済みで、ここでエラーを返しても再試行のしようがないため。
	if err := s.auditRepo.RecordDecision(ctx, &model.ModerationDecision{
		PostID: post.ID,
		State:  model.StateForDecision(approved),
	}); err != nil {
		s.logger.Warn("判定監査レコードの記録に失敗しました",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
		s.collector.RecordStoreFailure()
	}

	duration := time.Since(start)
	s.logger.Info("投稿のモデレーションが完了しました",
		slog.String("post_id", post.ID),
		slog.Bool("approved", approved),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
