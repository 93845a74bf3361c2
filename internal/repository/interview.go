package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

// GetInterviewTypeIDBySlug resolves the configured interview type at
// startup.
func (r *Repository) GetInterviewTypeIDBySlug(ctx context.Context, slug string) (string, error) {
	const q = `
SELECT id FROM interview_types WHERE slug = $1 AND is_active = true
`
	var id string
	if err := r.db.QueryRow(ctx, q, slug).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("interview type %s: %w", slug, ErrNotFound)
		}
		return "", fmt.Errorf("scan interview type: %w", err)
	}
	return id, nil
}

// CreateInterview inserts an interview row and returns its id together with
// the type's question ids ordered by station number.
func (r *Repository) CreateInterview(ctx context.Context, userID, interviewTypeID, schoolName string) (model.CreatedInterview, error) {
	const insertQ = `
INSERT INTO interviews (user_id, interview_type_id, status, school_name, started_at)
VALUES ($1, $2, 'in_progress', NULLIF($3, ''), now())
RETURNING id
`
	var out model.CreatedInterview
	row := r.db.QueryRow(ctx, insertQ, userID, interviewTypeID, schoolName)
	if err := row.Scan(&out.InterviewID); err != nil {
		return model.CreatedInterview{}, fmt.Errorf("insert interview: %w", err)
	}

	const questionsQ = `
SELECT id FROM questions
WHERE interview_type_id = $1 AND is_active = true
ORDER BY station_number
`
	rows, err := r.db.Query(ctx, questionsQ, interviewTypeID)
	if err != nil {
		return model.CreatedInterview{}, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return model.CreatedInterview{}, fmt.Errorf("scan question id: %w", err)
		}
		out.QuestionIDs = append(out.QuestionIDs, id)
	}
	if err := rows.Err(); err != nil {
		return model.CreatedInterview{}, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

// UpsertResponse writes one station response, replacing any previous answer
// for the same station.
func (r *Repository) UpsertResponse(ctx context.Context, interviewID string, stationNumber int, questionID string, up model.ResponseUpsert) error {
	const q = `
INSERT INTO responses (
	interview_id, question_id, station_number, response_text,
	audio_duration_seconds, time_spent_seconds, transcription_status, transcription_error
) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
ON CONFLICT (interview_id, station_number) DO UPDATE SET
	response_text          = EXCLUDED.response_text,
	audio_duration_seconds = EXCLUDED.audio_duration_seconds,
	time_spent_seconds     = EXCLUDED.time_spent_seconds,
	transcription_status   = EXCLUDED.transcription_status,
	transcription_error    = EXCLUDED.transcription_error,
	updated_at             = now()
`
	_, err := r.db.Exec(ctx, q,
		interviewID, questionID, stationNumber, up.ResponseText,
		up.AudioDurationSeconds, up.TimeSpentSeconds, string(up.TranscriptionStatus), up.TranscriptionError,
	)
	if err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}
	return nil
}

// SetCurrentStation records the ordinal a resumed session should land on.
func (r *Repository) SetCurrentStation(ctx context.Context, interviewID string, index int) error {
	const q = `
UPDATE interviews SET current_station_index = $2, updated_at = now()
WHERE id = $1
`
	tag, err := r.db.Exec(ctx, q, interviewID, index)
	if err != nil {
		return fmt.Errorf("update current station: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("interview %s: %w", interviewID, ErrNotFound)
	}
	return nil
}

// CompleteInterview flips the interview to completed. Already-completed rows
// are left untouched so the original completion time survives.
func (r *Repository) CompleteInterview(ctx context.Context, interviewID string) error {
	const q = `
UPDATE interviews SET status = 'completed', completed_at = now(), updated_at = now()
WHERE id = $1 AND status <> 'completed'
`
	if _, err := r.db.Exec(ctx, q, interviewID); err != nil {
		return fmt.Errorf("complete interview: %w", err)
	}
	return nil
}

// LoadInterview returns the interview with its responses, question ids and,
// if present, its evaluation.
func (r *Repository) LoadInterview(ctx context.Context, interviewID string) (model.StoredInterview, error) {
	const interviewQ = `
SELECT i.id, i.user_id, i.status, COALESCE(i.school_name, ''), i.current_station_index,
	i.started_at, i.completed_at, i.created_at, i.interview_type_id
FROM interviews i
WHERE i.id = $1
`
	var out model.StoredInterview
	var interviewTypeID string
	row := r.db.QueryRow(ctx, interviewQ, interviewID)
	err := row.Scan(
		&out.Interview.ID, &out.Interview.UserID, &out.Interview.Status,
		&out.Interview.SchoolName, &out.Interview.CurrentStationIndex,
		&out.Interview.StartedAt, &out.Interview.CompletedAt, &out.Interview.CreatedAt,
		&interviewTypeID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StoredInterview{}, fmt.Errorf("interview %s: %w", interviewID, ErrNotFound)
		}
		return model.StoredInterview{}, fmt.Errorf("scan interview: %w", err)
	}

	const questionsQ = `
SELECT id FROM questions
WHERE interview_type_id = $1 AND is_active = true
ORDER BY station_number
`
	qrows, err := r.db.Query(ctx, questionsQ, interviewTypeID)
	if err != nil {
		return model.StoredInterview{}, fmt.Errorf("query questions: %w", err)
	}
	defer qrows.Close()
	for qrows.Next() {
		var id string
		if err := qrows.Scan(&id); err != nil {
			return model.StoredInterview{}, fmt.Errorf("scan question id: %w", err)
		}
		out.QuestionIDs = append(out.QuestionIDs, id)
	}
	if err := qrows.Err(); err != nil {
		return model.StoredInterview{}, fmt.Errorf("iterate questions: %w", err)
	}

	const responsesQ = `
SELECT station_number, question_id, response_text, audio_duration_seconds,
	time_spent_seconds, COALESCE(transcription_status, ''), COALESCE(transcription_error, '')
FROM responses
WHERE interview_id = $1
ORDER BY station_number
`
	rrows, err := r.db.Query(ctx, responsesQ, interviewID)
	if err != nil {
		return model.StoredInterview{}, fmt.Errorf("query responses: %w", err)
	}
	defer rrows.Close()
	for rrows.Next() {
		var resp model.ResponseRecord
		err := rrows.Scan(
			&resp.StationNumber, &resp.QuestionID, &resp.ResponseText,
			&resp.AudioDurationSeconds, &resp.TimeSpentSeconds,
			&resp.TranscriptionStatus, &resp.TranscriptionError,
		)
		if err != nil {
			return model.StoredInterview{}, fmt.Errorf("scan response: %w", err)
		}
		out.Responses = append(out.Responses, resp)
	}
	if err := rrows.Err(); err != nil {
		return model.StoredInterview{}, fmt.Errorf("iterate responses: %w", err)
	}

	ev, err := r.getEvaluation(ctx, interviewID)
	if err != nil {
		return model.StoredInterview{}, err
	}
	out.Evaluation = ev
	return out, nil
}

// SaveEvaluation stores the feedback for an interview; one evaluation per
// interview, last write wins.
func (r *Repository) SaveEvaluation(ctx context.Context, interviewID string, ev model.Evaluation) error {
	const q = `
INSERT INTO evaluations (interview_id, feedback_text, model, input_tokens, output_tokens, estimated_cost_usd)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (interview_id) DO UPDATE SET
	feedback_text      = EXCLUDED.feedback_text,
	model              = EXCLUDED.model,
	input_tokens       = EXCLUDED.input_tokens,
	output_tokens      = EXCLUDED.output_tokens,
	estimated_cost_usd = EXCLUDED.estimated_cost_usd
`
	_, err := r.db.Exec(ctx, q,
		interviewID, ev.FeedbackText, ev.Model, ev.InputTokens, ev.OutputTokens, ev.EstimatedCostUSD,
	)
	if err != nil {
		return fmt.Errorf("upsert evaluation: %w", err)
	}
	return nil
}

func (r *Repository) getEvaluation(ctx context.Context, interviewID string) (*model.Evaluation, error) {
	const q = `
SELECT feedback_text, model, input_tokens, output_tokens, estimated_cost_usd, created_at
FROM evaluations
WHERE interview_id = $1
`
	var ev model.Evaluation
	row := r.db.QueryRow(ctx, q, interviewID)
	err := row.Scan(&ev.FeedbackText, &ev.Model, &ev.InputTokens, &ev.OutputTokens, &ev.EstimatedCostUSD, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan evaluation: %w", err)
	}
	return &ev, nil
}

// ListInterviewsByUser returns the user's interviews, newest first, with the
// total for pagination.
func (r *Repository) ListInterviewsByUser(ctx context.Context, userID string, limit, offset int) ([]model.InterviewRecord, int, error) {
	var total int
	const countQ = `SELECT COUNT(1) FROM interviews WHERE user_id = $1`
	if err := r.db.QueryRow(ctx, countQ, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count interviews: %w", err)
	}

	const q = `
SELECT id, user_id, status, COALESCE(school_name, ''), current_station_index,
	started_at, completed_at, created_at
FROM interviews
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`
	rows, err := r.db.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query interviews: %w", err)
	}
	defer rows.Close()

	var interviews []model.InterviewRecord
	for rows.Next() {
		var rec model.InterviewRecord
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Status, &rec.SchoolName, &rec.CurrentStationIndex,
			&rec.StartedAt, &rec.CompletedAt, &rec.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan interview: %w", err)
		}
		interviews = append(interviews, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate interviews: %w", err)
	}
	return interviews, total, nil
}
