package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/aretw0/tendril/pkg/tools"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodySize caps request bodies; the runner applies its own input limit.
const maxBodySize = 1 << 20

// RunnerFactory builds the runner of a session. The server supplies the
// observer and approver that connect the runner to the event stream and
// the approvals endpoint. When the server has a session manager, the
// factory should attach it with runner.WithSession so the transcript is
// resumed.
type RunnerFactory func(ctx context.Context, sessionID string, obs runner.Observer, approver runner.Approver) (*runner.Runner, error)

// Server exposes orchestrator sessions over HTTP.
type Server struct {
	factory  RunnerFactory
	sessions *session.Manager
	registry *tools.Registry
	metrics  http.Handler
	version  string
	logger   *slog.Logger
	baseCtx  context.Context
	Streams  *StreamManager

	mu   sync.Mutex
	live map[string]*liveSession
}

type liveSession struct {
	runner    *runner.Runner
	approvals *runner.QueueApprover
}

// Option configures a Server.
type Option func(*Server)

// WithSessions serves stored sessions and restores them into new runners.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) { s.sessions = m }
}

// WithRegistry sets the catalog listed by GET /tools.
func WithRegistry(r *tools.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithVersion is reported by GET /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithBaseContext sets the context runs are started with. Runs outlive the
// request that started them, so they never use the request context.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) { s.baseCtx = ctx }
}

// NewServer creates a server that builds runners with factory.
func NewServer(factory RunnerFactory, opts ...Option) *Server {
	s := &Server{
		factory:  factory,
		registry: tools.Default(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		baseCtx:  context.Background(),
		live:     make(map[string]*liveSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.getHealth)
	r.Get("/tools", s.getTools)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/messages", s.postMessage)
			r.Post("/answer", s.postAnswer)
			r.Post("/cancel", s.postCancel)
			r.Get("/approvals", s.listApprovals)
			r.Post("/approvals/{callID}", s.postApproval)
			r.Get("/events", s.subscribeEvents)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// runnerFor returns the live runner of id, building it on first use.
// Building happens outside the lock; if two requests race, the first one
// stored wins and the other runner is dropped unused.
func (s *Server) runnerFor(ctx context.Context, id string) (*liveSession, error) {
	if ls, ok := s.lookup(id); ok {
		return ls, nil
	}

	q := runner.NewQueueApprover()
	emit := func(ev runner.Event) { s.Streams.Broadcast(id, ev) }
	q.Notify = func(req runner.ApprovalRequest) {
		emit(runner.Event{Type: runner.EventApproval, Data: req})
	}
	rn, err := s.factory(ctx, id, runner.EventObserver{Emit: emit}, q)
	if err != nil {
		return nil, err
	}
	if s.sessions != nil {
		if err := rn.Resume(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ls, ok := s.live[id]; ok {
		return ls, nil
	}
	ls := &liveSession{runner: rn, approvals: q}
	s.live[id] = ls
	s.logger.Debug("runner created", "session_id", id)
	return ls, nil
}

func (s *Server) lookup(id string) (*liveSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.live[id]
	return ls, ok
}

type contentRequest struct {
	Content string `json:"content"`
}

type approvalRequest struct {
	Approved bool `json:"approved"`
}

// SessionView is the body of GET /sessions/{id}.
type SessionView struct {
	ID           string                   `json:"id"`
	Status       domain.RunStatus         `json:"status"`
	RunID        string                   `json:"run_id,omitempty"`
	Iterations   int                      `json:"iterations"`
	Conversation domain.ConversationState `json:"conversation"`
	Messages     []domain.Message         `json:"messages"`
	Plan         []domain.PlanStep        `json:"plan,omitempty"`
	Pending      []runner.ApprovalRequest `json:"pending_approvals,omitempty"`
	Live         bool                     `json:"live"`
}

func (ls *liveSession) view(id string) SessionView {
	rn := ls.runner
	return SessionView{
		ID:           id,
		Status:       rn.Status(),
		RunID:        rn.RunID(),
		Iterations:   rn.Iterations(),
		Conversation: rn.Conversation(),
		Messages:     rn.History(),
		Plan:         rn.Plan(),
		Pending:      ls.approvals.Pending(),
		Live:         true,
	}
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body contentRequest
	if !s.decode(w, r, &body) {
		return
	}
	ls, err := s.runnerFor(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := ls.runner.Start(s.baseCtx, body.Content); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ls.view(id))
}

func (s *Server) postAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body contentRequest
	if !s.decode(w, r, &body) {
		return
	}
	ls, err := s.runnerFor(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := ls.runner.Answer(s.baseCtx, body.Content); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ls.view(id))
}

func (s *Server) postCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ls, ok := s.lookup(id)
	if !ok {
		s.writeError(w, fmt.Errorf("%w: no active run for session %q", domain.ErrNotAwaiting, id))
		return
	}
	if err := ls.runner.Cancel(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ls.view(id))
}

func (s *Server) listApprovals(w http.ResponseWriter, r *http.Request) {
	pending := []runner.ApprovalRequest{}
	if ls, ok := s.lookup(chi.URLParam(r, "id")); ok {
		pending = ls.approvals.Pending()
	}
	writeJSON(w, http.StatusOK, pending)
}

func (s *Server) postApproval(w http.ResponseWriter, r *http.Request) {
	id, callID := chi.URLParam(r, "id"), chi.URLParam(r, "callID")
	var body approvalRequest
	if !s.decode(w, r, &body) {
		return
	}
	ls, ok := s.lookup(id)
	if !ok {
		s.writeError(w, fmt.Errorf("%w: no active run for session %q", domain.ErrNotAwaiting, id))
		return
	}
	if err := ls.approvals.Decide(callID, body.Approved); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("approval decided", "session_id", id, "call_id", callID, "approved", body.Approved)
	writeJSON(w, http.StatusOK, map[string]any{"call_id": callID, "approved": body.Approved})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if ls, ok := s.lookup(id); ok {
		writeJSON(w, http.StatusOK, ls.view(id))
		return
	}
	if s.sessions == nil {
		s.writeError(w, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id))
		return
	}
	stored, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionView{
		ID:           stored.ID,
		Status:       stored.Status,
		Conversation: stored.Conversation,
		Messages:     stored.Messages,
		Plan:         stored.Plan,
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	if ls, ok := s.live[id]; ok {
		if ls.runner.Status().IsActive() {
			s.mu.Unlock()
			s.writeError(w, domain.ErrRunInProgress)
			return
		}
		delete(s.live, id)
	}
	s.mu.Unlock()

	if s.sessions != nil {
		if err := s.sessions.Delete(r.Context(), id); err != nil {
			s.writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	seen := map[string]bool{}
	ids := []string{}
	if s.sessions != nil {
		stored, err := s.sessions.List(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		for _, id := range stored {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	s.mu.Lock()
	for id := range s.live {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) getTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Specs())
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.version != "" {
		resp["version"] = s.version
	}
	writeJSON(w, http.StatusOK, resp)
}

// subscribeEvents streams the session's runner events as SSE until the
// client goes away.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	id := chi.URLParam(r, "id")
	ch, unsubscribe := s.Streams.Subscribe(id)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("sse subscribed", "session_id", id)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("sse client disconnected", "session_id", id)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				s.logger.Warn("sse event encode failed", "type", ev.Type, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err))
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRunInProgress),
		errors.Is(err, domain.ErrNotAwaiting),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	} else {
		s.logger.Debug("request rejected", "status", code, "error", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
