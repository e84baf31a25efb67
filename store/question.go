package store

import (
	"context"

	"github.com/pkg/errors"
)

// Question represents a question asked to another user. RelevantContentIDs is
// a snapshot attached once at creation by the relevance resolver and never
// mutated afterwards, even when the target's content changes later.
type Question struct {
	ID                 string
	AskerID            string
	TargetUserID       string
	Question           string
	Answer             string
	RelevantContentIDs []string
	CreatedTs          int64
	AnsweredTs         int64 // 0 until answered
}

// FindQuestion is the find condition for questions.
type FindQuestion struct {
	ID           *string
	AskerID      *string
	TargetUserID *string
	Limit        int
}

// AnswerQuestion records the target user's answer. Only the answer fields
// change; the relevant-content snapshot stays untouched.
type AnswerQuestion struct {
	ID         string
	Answer     string
	AnsweredTs int64
}

// CreateQuestion creates a question with its relevant-content snapshot.
func (s *Store) CreateQuestion(ctx context.Context, create *Question) (*Question, error) {
	if create.Question == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "question text cannot be empty")
	}
	return s.driver.CreateQuestion(ctx, create)
}

// GetQuestion gets a question by id. Returns nil when not found.
func (s *Store) GetQuestion(ctx context.Context, id string) (*Question, error) {
	return s.driver.GetQuestion(ctx, id)
}

// ListQuestions lists questions.
func (s *Store) ListQuestions(ctx context.Context, find *FindQuestion) ([]*Question, error) {
	return s.driver.ListQuestions(ctx, find)
}

// AnswerQuestion records an answer on an existing question.
func (s *Store) AnswerQuestion(ctx context.Context, answer *AnswerQuestion) (*Question, error) {
	if answer.Answer == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "answer text cannot be empty")
	}
	return s.driver.AnswerQuestion(ctx, answer)
}
