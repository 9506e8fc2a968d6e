package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hw-quiz-service/internal/domain"
)

// ContentLoader fetches quiz content over HTTP, the way the original client
// loaded question files directly from static hosting.
type ContentLoader struct {
	base  string
	httpc *http.Client
}

func NewContentLoader(base string, timeout time.Duration) *ContentLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ContentLoader{
		base:  strings.TrimRight(base, "/"),
		httpc: &http.Client{Timeout: timeout},
	}
}

func (l *ContentLoader) LoadQuestions(ctx context.Context, fileRef string) ([]domain.Question, error) {
	target := l.resolve(fileRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := l.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quiz file %s: %w", fileRef, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, fileRef)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch quiz file %s: status %d", fileRef, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch quiz file %s: %w", fileRef, err)
	}
	return domain.ParseQuestions(raw)
}

func (l *ContentLoader) resolve(fileRef string) string {
	if strings.HasPrefix(fileRef, "http://") || strings.HasPrefix(fileRef, "https://") {
		return fileRef
	}
	ref := strings.TrimPrefix(fileRef, "./")
	parts := strings.Split(ref, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return l.base + "/" + strings.Join(parts, "/")
}
