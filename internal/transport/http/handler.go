// Package http exposes the service over REST plus one websocket for the
// live attempt surface. Clients authenticate with the bearer token issued at
// login.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"hw-quiz-service/internal/app"
	"hw-quiz-service/internal/domain"
	"hw-quiz-service/internal/editor"
)

const maxBodyBytes = 1 << 20

// Handler carries the REST surface. Editor drafts live here, one per admin
// token, because they are transport-session state rather than domain state.
type Handler struct {
	auth      *app.AuthService
	attempts  *app.AttemptManager
	history   *app.HistoryService
	publisher *editor.Publisher

	mu     sync.Mutex
	drafts map[string]*editor.Draft
}

func NewHandler(auth *app.AuthService, attempts *app.AttemptManager, history *app.HistoryService, publisher *editor.Publisher) *Handler {
	return &Handler{
		auth:      auth,
		attempts:  attempts,
		history:   history,
		publisher: publisher,
		drafts:    make(map[string]*editor.Draft),
	}
}

// Register mounts every route on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", h.login)
	mux.HandleFunc("POST /api/logout", h.logout)
	mux.HandleFunc("GET /api/session", h.session)
	mux.HandleFunc("GET /api/quizzes", h.quizzes)
	mux.HandleFunc("POST /api/select", h.selectQuiz)

	mux.HandleFunc("GET /api/history", h.historyList)
	mux.HandleFunc("GET /api/history/{attempt_id}", h.historyDetail)

	mux.HandleFunc("GET /api/editor/draft", h.adminOnly(h.draftState))
	mux.HandleFunc("POST /api/editor/questions", h.adminOnly(h.draftAdd))
	mux.HandleFunc("PUT /api/editor/questions/{index}", h.adminOnly(h.draftReplace))
	mux.HandleFunc("DELETE /api/editor/questions/{index}", h.adminOnly(h.draftRemove))
	mux.HandleFunc("POST /api/editor/questions/{index}/move", h.adminOnly(h.draftMove))
	mux.HandleFunc("POST /api/editor/questions/{index}/duplicate", h.adminOnly(h.draftDuplicate))
	mux.HandleFunc("POST /api/editor/questions/{index}/sets", h.adminOnly(h.draftAddSet))
	mux.HandleFunc("DELETE /api/editor/questions/{index}/sets/{set}", h.adminOnly(h.draftRemoveSet))
	mux.HandleFunc("POST /api/editor/questions/{index}/sets/{set}/move", h.adminOnly(h.draftMoveSet))
	mux.HandleFunc("POST /api/editor/questions/{index}/sets/{set}/duplicate", h.adminOnly(h.draftDuplicateSet))
	mux.HandleFunc("POST /api/editor/import", h.adminOnly(h.draftImport))
	mux.HandleFunc("GET /api/editor/export", h.adminOnly(h.draftExport))
	mux.HandleFunc("GET /api/editor/preview", h.adminOnly(h.draftPreview))
	mux.HandleFunc("GET /api/editor/quizzes", h.adminOnly(h.editorInventory))
	mux.HandleFunc("POST /api/editor/publish", h.adminOnly(h.draftPublish))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

type loginRequest struct {
	Account   string `json:"account"`
	Password  string `json:"password"`
	ClientKey string `json:"client_key"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Account == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("account and password are required"))
		return
	}
	clientKey := req.ClientKey
	if clientKey == "" {
		clientKey = req.Account
	}

	token, sess, err := h.auth.Login(r.Context(), clientKey, req.Account, req.Password)
	if err != nil {
		writeError(w, loginStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "token": token, "session": sess})
}

func loginStatus(err error) int {
	var failed *app.AuthFailedError
	switch {
	case errors.As(err, &failed):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrLoginCanceled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated)
		return
	}
	h.attempts.Drop(token)
	h.mu.Lock()
	delete(h.drafts, token)
	h.mu.Unlock()
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	sess, token, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	reply := map[string]any{"ok": true, "session": sess}
	if selected, err := h.auth.SelectedQuiz(r.Context(), token); err == nil {
		reply["selected"] = selected
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) quizzes(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "quizzes": sess.Quizzes})
}

type selectRequest struct {
	QuizID string `json:"quiz_id"`
}

func (h *Handler) selectQuiz(w http.ResponseWriter, r *http.Request) {
	_, token, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	selected, err := h.auth.SelectQuiz(r.Context(), token, req.QuizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "selected": selected})
}

func (h *Handler) historyList(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	items, err := h.history.List(r.Context(), sess.Account, r.URL.Query().Get("scope"))
	if err != nil {
		writeError(w, backendStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items})
}

func (h *Handler) historyDetail(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	review, err := h.history.Detail(r.Context(), sess.Account, r.PathValue("attempt_id"))
	if err != nil {
		writeError(w, backendStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "attempt": review})
}

// adminOnly wraps an editor route with session and role checks and resolves
// the caller's draft.
func (h *Handler) adminOnly(next func(http.ResponseWriter, *http.Request, *editor.Draft)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, token, ok := h.requireSession(w, r)
		if !ok {
			return
		}
		if !sess.IsAdmin() {
			writeError(w, http.StatusForbidden, domain.ErrAdminOnly)
			return
		}
		h.mu.Lock()
		draft, ok := h.drafts[token]
		if !ok {
			draft = editor.NewDraft()
			h.drafts[token] = draft
		}
		h.mu.Unlock()
		next(w, r, draft)
	}
}

func (h *Handler) draftState(w http.ResponseWriter, _ *http.Request, draft *editor.Draft) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "questions": draft.Questions()})
}

func (h *Handler) draftAdd(w http.ResponseWriter, r *http.Request, draft *editor.Draft) {
	var q domain.Question
	if err := decodeBody(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.draftOp(w, draft, draft.Add(q))
}

func (h *Handler) draftReplace(w http.ResponseWriter, r *http.Request, draft *editor.Draft) {
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var q domain.Question
	if err := decodeBody(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.draftOp(w, draft, draft.Replace(index, q))
}

func (h *Handler) draftRemove(w http.ResponseWriter, r *http.Request, draft *editor.Draft) {
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.draftOp(w, draft, draft.Remove(index))
}

type moveRequest struct {
	To int `json:"to"`
}

func (h *Handler) draftMove(w http.ResponseWriter, r *http.Request, draft *editor.Draft) {
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.draftOp(w, draft, draft.Move(index, req.To))
}

func (h *Handler) draftDuplicate(w http.ResponseWriter, r *http.Request, draft *editor.Draft) {
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.draftOp(w, draft, draft.Duplicate(index))
}

type addSetRequest struct {
	Tokens []string `json:"tokens"`
}

func (h *Handler) draftAddSet(w http.ResponseWriter, r *http.Request, draft *editor.Draft) {
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req addSetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.draftOp(w, draft, draft.AddClozeSet(index, req.Tokens))
}

func (h *Handler) draftRemoveSet(w http.ResponseWriter, r *http.Request, draft *editor.Draft) {
	index, set, err := pathIndexSet(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.draftOp(w, draft, draft.RemoveClozeSet(index, set))
}

func (h *Handler) draftMoveSet(w http.ResponseWriter, r *http.Request, draft *editor.Draft) {
	index, set, err := pathIndexSet(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.draftOp(w, draft, draft.MoveClozeSet(index, set, req.To))
}

func (h *Handler) draftDuplicateSet(w http.ResponseWriter, r *http.Request, draft *editor.Draft) {
	index, set, err := pathIndexSet(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.draftOp(w, draft, draft.DuplicateClozeSet(index, set))
}

func (h *Handler) draftImport(w http.ResponseWriter, r *http.Request, draft *editor.Draft) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.draftOp(w, draft, draft.Import(data))
}

func (h *Handler) draftExport(w http.ResponseWriter, _ *http.Request, draft *editor.Draft) {
	data, err := draft.Export()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="quiz.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) draftPreview(w http.ResponseWriter, _ *http.Request, draft *editor.Draft) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "rows": draft.Preview()})
}

func (h *Handler) editorInventory(w http.ResponseWriter, r *http.Request, _ *editor.Draft) {
	items, err := h.publisher.Inventory(r.Context())
	if err != nil {
		writeError(w, backendStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items})
}

type publishRequest struct {
	QuizID           string `json:"quiz_id"`
	Title            string `json:"title"`
	File             string `json:"file"`
	Version          int    `json:"version"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	IsActive         bool   `json:"is_active"`
}

func (h *Handler) draftPublish(w http.ResponseWriter, r *http.Request, draft *editor.Draft) {
	var req publishRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	meta, err := draft.BuildMeta(req.QuizID, req.Title, req.File, req.Version, req.TimeLimitMinutes, req.IsActive)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.publisher.Publish(r.Context(), draft, meta); err != nil {
		writeError(w, backendStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "meta": meta})
}

func (h *Handler) draftOp(w http.ResponseWriter, draft *editor.Draft, err error) {
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "questions": draft.Questions()})
}

func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) (domain.Session, string, bool) {
	token := bearerToken(r)
	sess, err := h.auth.RequireSession(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"ok":       false,
				"error":    domain.ErrUnauthenticated.Error(),
				"redirect": "/login",
			})
			return domain.Session{}, "", false
		}
		writeError(w, http.StatusInternalServerError, err)
		return domain.Session{}, "", false
	}
	return sess, token, true
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return r.URL.Query().Get("token")
}

func backendStatus(err error) int {
	if errors.Is(err, domain.ErrBackendUnavailable) {
		return http.StatusBadGateway
	}
	if errors.Is(err, domain.ErrQuizNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func decodeBody(r *http.Request, out any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(out)
}

func pathIndex(r *http.Request, name string) (int, error) {
	return strconv.Atoi(r.PathValue(name))
}

func pathIndexSet(r *http.Request) (int, int, error) {
	index, err := pathIndex(r, "index")
	if err != nil {
		return 0, 0, err
	}
	set, err := pathIndex(r, "set")
	if err != nil {
		return 0, 0, err
	}
	return index, set, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("response write failed")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"ok": false, "error": err.Error()})
}
