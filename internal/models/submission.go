package models

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending     = "pending"
	StatusAccepted    = "accepted"
	StatusWrongAnswer = "wrong_answer"
	StatusError       = "error"
)

// Terminal reports whether status is a final verdict. A submission that
// leaves pending never changes again; resubmitting creates a new row.
func Terminal(status string) bool {
	return status == StatusAccepted || status == StatusWrongAnswer || status == StatusError
}

type Submission struct {
	ID             int       `db:"id" json:"id"`
	UserID         int       `db:"user_id" json:"user_id"`
	ProblemID      int       `db:"problem_id" json:"problem_id"`
	WorkspaceID    *int      `db:"workspace_id" json:"workspace_id,omitempty"`
	RepoURL        *string   `db:"repo_url" json:"repo_url,omitempty"`
	CommitSHA      *string   `db:"commit_sha" json:"commit_sha,omitempty"`
	CodeContent    *string   `db:"code_content" json:"code_content,omitempty"`
	Language       *string   `db:"language" json:"language,omitempty"`
	Status         string    `db:"status" json:"status"`
	Score          *int      `db:"score" json:"score,omitempty"`
	AIFeedback     *string   `db:"ai_feedback" json:"ai_feedback,omitempty"`
	FeedbackBlocks *string   `db:"feedback_blocks" json:"-"`
	JudgeOutput    *string   `db:"judge_output" json:"judge_output,omitempty"`
	SubmittedAt    time.Time `db:"submitted_at" json:"submitted_at"`
}

type SubmitRequest struct {
	Language string `json:"language" binding:"required"`
}

func (r *SubmitRequest) Validate() error {
	if strings.TrimSpace(r.Language) == "" {
		return errors.New("language cannot be empty")
	}
	return nil
}

type SubmissionListItem struct {
	ID          int       `db:"id" json:"id"`
	ProblemID   int       `db:"problem_id" json:"problem_id"`
	Language    *string   `db:"language" json:"language,omitempty"`
	Status      string    `db:"status" json:"status"`
	Score       *int      `db:"score" json:"score,omitempty"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
	// Derived field filled in by the handler
	FormattedTime string `db:"-" json:"submitted_time"`
}

// LeaderboardRow is one accepted submission as read for ranking.
type LeaderboardRow struct {
	UserID    int     `db:"user_id"`
	Username  string  `db:"username"`
	FullName  *string `db:"full_name"`
	AvatarURL *string `db:"avatar_url"`
	ProblemID int     `db:"problem_id"`
	Score     *int    `db:"score"`
}

// LeaderboardEntry is one ranked user on the public leaderboard.
type LeaderboardEntry struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Score    int     `json:"score"`
	Problems int     `json:"problems"`
	Avatar   *string `json:"avatar,omitempty"`
	Rank     int     `json:"rank"`
}
