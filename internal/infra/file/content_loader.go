package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hw-quiz-service/internal/domain"
)

// ContentLoader reads quiz content files from a directory root. File
// references come from backend metadata (e.g. "questions/alg-1.json") and are
// resolved relative to the root; references escaping the root are rejected.
type ContentLoader struct {
	root string
}

func NewContentLoader(root string) *ContentLoader {
	return &ContentLoader{root: root}
}

func (l *ContentLoader) LoadQuestions(_ context.Context, fileRef string) ([]domain.Question, error) {
	path := filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(fileRef, "./")))
	rel, err := filepath.Rel(l.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, fileRef)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, fileRef)
		}
		return nil, fmt.Errorf("read quiz file %s: %w", fileRef, err)
	}
	return domain.ParseQuestions(raw)
}
