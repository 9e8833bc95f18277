package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"minicode/internal/judge"
	"minicode/internal/models"

	"github.com/jmoiron/sqlx"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, submission *models.Submission) error
	GetSubmission(ctx context.Context, submissionID int) (*models.Submission, error)
	Finalize(ctx context.Context, submissionID int, fin judge.Finalization) error
	GetSubmissionsByUser(ctx context.Context, userID int) ([]models.Submission, error)
	GetSubmissionsByUserAndProblem(ctx context.Context, userID, problemID int) ([]models.SubmissionListItem, error)
	GetProblemAnalytics(ctx context.Context, problemID int) (*models.ProblemAnalytics, error)
	GetAcceptedRows(ctx context.Context) ([]models.LeaderboardRow, error)
}

type submissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

const submissionColumns = `id, user_id, problem_id, workspace_id, repo_url, commit_sha,
	code_content, language, status, score, ai_feedback, feedback_blocks,
	judge_output, submitted_at`

// CreateSubmission appends a fresh pending row. Submissions are never
// updated in place apart from the one pending-to-terminal transition in
// Finalize, so history survives resubmits.
func (r *submissionRepository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	query := `INSERT INTO submissions (user_id, problem_id, workspace_id, repo_url, language, status)
              VALUES (?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		submission.UserID, submission.ProblemID, submission.WorkspaceID,
		submission.RepoURL, submission.Language, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	submission.ID = int(id)
	submission.Status = models.StatusPending
	return nil
}

func (r *submissionRepository) GetSubmission(ctx context.Context, submissionID int) (*models.Submission, error) {
	var submission models.Submission
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = ?`
	if err := r.db.GetContext(ctx, &submission, query, submissionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("submission not found: %d", submissionID)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &submission, nil
}

// Finalize writes the verdict. The status guard makes finalized rows
// immutable: once a submission left pending, nothing rewrites it, and a
// redelivered job that lost the race becomes a no-op.
func (r *submissionRepository) Finalize(ctx context.Context, submissionID int, fin judge.Finalization) error {
	var blocksJSON *string
	if len(fin.FeedbackBlocks) > 0 {
		data, err := json.Marshal(fin.FeedbackBlocks)
		if err != nil {
			return fmt.Errorf("failed to encode feedback blocks: %w", err)
		}
		s := string(data)
		blocksJSON = &s
	}

	query := `UPDATE submissions
              SET status = ?, score = ?, ai_feedback = ?, feedback_blocks = ?,
                  judge_output = ?, code_content = ?, commit_sha = ?
              WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query,
		fin.Status, fin.Score, fin.Feedback, blocksJSON,
		fin.JudgeOutput, fin.CodeContent, fin.CommitSHA,
		submissionID, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to finalize submission: %w", err)
	}

	// Zero affected rows means the submission was already terminal; the
	// earlier verdict stands and this write is a deliberate no-op.
	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check finalize result: %w", err)
	}
	return nil
}

func (r *submissionRepository) GetSubmissionsByUser(ctx context.Context, userID int) ([]models.Submission, error) {
	var submissions []models.Submission
	query := `SELECT ` + submissionColumns + ` FROM submissions
              WHERE user_id = ? ORDER BY submitted_at DESC`
	if err := r.db.SelectContext(ctx, &submissions, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user submissions: %w", err)
	}
	return submissions, nil
}

func (r *submissionRepository) GetSubmissionsByUserAndProblem(ctx context.Context, userID, problemID int) ([]models.SubmissionListItem, error) {
	var items []models.SubmissionListItem
	query := `SELECT id, problem_id, language, status, score, submitted_at
              FROM submissions
              WHERE user_id = ? AND problem_id = ?
              ORDER BY submitted_at DESC`
	if err := r.db.SelectContext(ctx, &items, query, userID, problemID); err != nil {
		return nil, fmt.Errorf("failed to get submission history: %w", err)
	}
	return items, nil
}

func (r *submissionRepository) GetProblemAnalytics(ctx context.Context, problemID int) (*models.ProblemAnalytics, error) {
	var stats struct {
		Total    int             `db:"total"`
		Accepted int             `db:"accepted"`
		AvgScore sql.NullFloat64 `db:"avg_score"`
	}
	// Pending rows are in flight, not outcomes; analytics only counts
	// terminal submissions.
	query := `SELECT
                COUNT(*) AS total,
                COUNT(CASE WHEN status = 'accepted' THEN 1 END) AS accepted,
                AVG(score) AS avg_score
              FROM submissions
              WHERE problem_id = ? AND status != 'pending'`
	if err := r.db.GetContext(ctx, &stats, query, problemID); err != nil {
		return nil, fmt.Errorf("failed to get problem analytics: %w", err)
	}

	analytics := &models.ProblemAnalytics{
		TotalSubmissions: stats.Total,
		AcceptedCount:    stats.Accepted,
	}
	if stats.AvgScore.Valid {
		analytics.AverageScore = stats.AvgScore.Float64
	}
	return analytics, nil
}

func (r *submissionRepository) GetAcceptedRows(ctx context.Context) ([]models.LeaderboardRow, error) {
	var rows []models.LeaderboardRow
	query := `SELECT s.user_id, u.username, u.full_name, u.avatar_url, s.problem_id, s.score
              FROM submissions s
              JOIN users u ON u.id = s.user_id
              WHERE s.status = 'accepted'`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get leaderboard rows: %w", err)
	}
	return rows, nil
}
