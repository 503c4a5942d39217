// Package model はドメインモデルを定義する。
package model

import "time"

// Post は読書SNSの投稿を表す。モデレーションの処理単位。
// AuthorIDとBookIDは本体アプリケーション側の外部キーであり、
// このサービスでは不透明なIDとしてのみ扱う。
type Post struct {
	ID              string
	AuthorID        string
	BookID          string // 書籍に紐付かない投稿の場合は空文字列
	Title           string
	Content         string
	ModerationState ModerationState
	ModeratedAt     *time.Time // 判定が確定した日時。Pendingの間はnil
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ModerationState は投稿のモデレーション状態を表す。
// 作成時はPendingで、ワーカーが1回だけApprovedまたはRejectedに遷移させる。
// 終端状態からPendingへ戻ることはない。
type ModerationState string

const (
	// ModerationPending は未判定状態。投稿は非公開のまま。
	ModerationPending ModerationState = "pending"
	// ModerationApproved は承認済み状態。投稿が公開対象になる。
	ModerationApproved ModerationState = "approved"
	// ModerationRejected は却下状態。投稿は公開されない。
	ModerationRejected ModerationState = "rejected"
)

// IsTerminal は状態が終端（判定済み）かどうかを返す。
func (s ModerationState) IsTerminal() bool {
	return s == ModerationApproved || s == ModerationRejected
}

// StateForDecision は判定結果のbool値を対応するModerationStateに変換する。
func StateForDecision(approved bool) ModerationState {
	if approved {
		return ModerationApproved
	}
	return ModerationRejected
}

// ModerationDecision はワーカーが確定させた判定1件の監査レコードを表す。
// 投稿のmoderation_stateは上書きされうる終端状態のスナップショットだが、
// 監査レコードは追記専用で、いつどの投稿がどう判定されたかの履歴を残す。
type ModerationDecision struct {
	ID        string
	PostID    string
	State     ModerationState // ApprovedまたはRejectedのみ
	CreatedAt time.Time
}
