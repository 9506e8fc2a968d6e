package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"hw-quiz-service/internal/domain"
)

// ContentLoader serves quiz content JSONB from Postgres, for deployments that
// self-host question files in the database instead of static hosting.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) LoadQuestions(ctx context.Context, fileRef string) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quiz_files WHERE file=$1`, fileRef).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, fileRef)
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz file %s: %w", fileRef, err)
	}
	return domain.ParseQuestions(raw)
}
