package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/orbitview/orbitview/store"
)

// CreateQuestion creates a question with its relevant-content snapshot.
func (d *DB) CreateQuestion(ctx context.Context, create *store.Question) (*store.Question, error) {
	contentIDs := create.RelevantContentIDs
	if contentIDs == nil {
		contentIDs = []string{}
	}
	contentIDsJSON, err := json.Marshal(contentIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal relevant content ids")
	}

	stmt := `
		INSERT INTO question (id, asker_id, target_user_id, question, answer, relevant_content_ids, created_ts, answered_ts)
		VALUES (` + placeholders(8) + `)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.AskerID,
		create.TargetUserID,
		create.Question,
		create.Answer,
		contentIDsJSON,
		create.CreatedTs,
		create.AnsweredTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create question")
	}

	return create, nil
}

// GetQuestion gets a question by id. Returns nil when not found.
func (d *DB) GetQuestion(ctx context.Context, id string) (*store.Question, error) {
	query := `
		SELECT id, asker_id, target_user_id, question, answer, relevant_content_ids, created_ts, answered_ts
		FROM question
		WHERE id = ` + placeholder(1)

	question, err := scanQuestion(d.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return question, nil
}

// ListQuestions lists questions.
func (d *DB) ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.AskerID != nil {
		where, args = append(where, "asker_id = "+placeholder(len(args)+1)), append(args, *find.AskerID)
	}
	if find.TargetUserID != nil {
		where, args = append(where, "target_user_id = "+placeholder(len(args)+1)), append(args, *find.TargetUserID)
	}

	query := `
		SELECT id, asker_id, target_user_id, question, answer, relevant_content_ids, created_ts, answered_ts
		FROM question
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list questions")
	}
	defer rows.Close()

	list := []*store.Question{}
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, question)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func scanQuestion(row rowScanner) (*store.Question, error) {
	var question store.Question
	var contentIDsJSON []byte

	if err := row.Scan(
		&question.ID,
		&question.AskerID,
		&question.TargetUserID,
		&question.Question,
		&question.Answer,
		&contentIDsJSON,
		&question.CreatedTs,
		&question.AnsweredTs,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan question")
	}

	if err := json.Unmarshal(contentIDsJSON, &question.RelevantContentIDs); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal relevant content ids")
	}
	return &question, nil
}

// AnswerQuestion records an answer. The relevant-content snapshot is
// intentionally not part of the UPDATE.
func (d *DB) AnswerQuestion(ctx context.Context, answer *store.AnswerQuestion) (*store.Question, error) {
	stmt := `
		UPDATE question SET answer = ` + placeholder(1) + `, answered_ts = ` + placeholder(2) + `
		WHERE id = ` + placeholder(3) + `
		RETURNING id, asker_id, target_user_id, question, answer, relevant_content_ids, created_ts, answered_ts
	`
	question, err := scanQuestion(d.db.QueryRowContext(ctx, stmt, answer.Answer, answer.AnsweredTs, answer.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("question %s not found", answer.ID)
		}
		return nil, err
	}
	return question, nil
}
