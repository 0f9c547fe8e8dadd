package boardweb

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/eventboard/project/internal/app/boardctl"
	"github.com/eventboard/project/internal/board"
	"github.com/eventboard/project/internal/platform/metrics"
	"github.com/eventboard/project/services/frontend"
	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nuid"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// EventLister reads the whole collection once, for exports.
type EventLister interface {
	List(ctx context.Context) ([]board.Event, error)
}

type Handler struct {
	Store         boardctl.Store
	Events        EventLister
	Engine        *board.Engine
	Logger        *zap.Logger
	AllowedOrigin string
	// Ready backs /readyz; nil means always ready.
	Ready        func(ctx context.Context) error
	NewSessionID func() string
	Now          func() time.Time

	sessions *sessionRegistry
}

func NewHandler(store boardctl.Store, events EventLister, engine *board.Engine, logger *zap.Logger, allowedOrigin string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:         store,
		Events:        events,
		Engine:        engine,
		Logger:        logger,
		AllowedOrigin: allowedOrigin,
		NewSessionID:  nuid.Next,
		Now:           time.Now,
		sessions:      newSessionRegistry(),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowOriginFunc:  h.allowOrigin,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "datastar-request"},
		AllowCredentials: false,
	}).Handler)

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Handle("/metrics", metrics.DefaultHandler())

	r.Handle("/", templ.Handler(frontend.BoardPage()))
	r.Handle("/static/*", http.StripPrefix("/static/", frontend.StaticHandler()))
	r.Get("/calendar.ics", h.handleCalendar)

	r.Get("/board/stream", h.handleStream)
	r.Route("/board/{session}", func(sr chi.Router) {
		sr.Post("/filter", h.handleFilter)
		sr.Post("/filter/clear", h.handleClearFilter)
		sr.Post("/form/new", h.handleNewForm)
		sr.Post("/form/edit/{id}", h.handleEditForm)
		sr.Post("/form/cancel", h.handleCancelForm)
		sr.Post("/events", h.handleSubmit)
		sr.Delete("/events/{id}", h.handleDelete)
	})

	return r
}

// Sessions is the number of open viewer streams.
func (h *Handler) Sessions() int {
	return h.sessions.Len()
}

// RefreshAll recomputes every open board, so past/upcoming follow the date.
func (h *Handler) RefreshAll() int {
	sessions := h.sessions.snapshot()
	for _, s := range sessions {
		s.ctrl.Refresh()
	}
	return len(sessions)
}

// CloseAll ends every open stream.
func (h *Handler) CloseAll() {
	h.sessions.CancelAll()
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	h.handleHealth(w, r)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	streamCtx, cancelStream := context.WithCancel(r.Context())
	defer cancelStream()

	id := h.NewSessionID()
	logger := h.Logger.With(zap.String("session", id))
	view := newSSEView()
	sess := &session{
		id:     id,
		ctrl:   boardctl.New(h.Store, view, h.Engine, logger),
		view:   view,
		cancel: cancelStream,
	}
	h.sessions.Add(sess)
	liveSessions.Inc()
	defer func() {
		sess.ctrl.Close()
		h.sessions.Release(sess)
		liveSessions.Dec()
		logger.Debug("board stream closed")
	}()

	stream := sseStream{w: w, flusher: flusher}
	if err := stream.patchSignals(map[string]any{"session": id}); err != nil {
		logger.Error("session signal failed", zap.Error(err))
		return
	}
	logger.Debug("board stream opened")

	runDone := make(chan error, 1)
	go func() {
		runDone <- sess.ctrl.Run(streamCtx)
	}()

	runErr := (<-chan error)(runDone)
	for {
		select {
		case <-streamCtx.Done():
			return
		case <-view.ready:
			for _, p := range view.drain() {
				stream.patchElements(p)
				patchesTotal.WithLabelValues(p.selector).Inc()
			}
		case err := <-runErr:
			// The controller keeps serving actions; only live updates stop.
			runErr = nil
			if err != nil {
				logger.Warn("board subscription ended", zap.Error(err))
			}
		}
	}
}

func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (*session, bool) {
	s, ok := h.sessions.Get(chi.URLParam(r, "session"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

func (h *Handler) handleFilter(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	s.ctrl.SetFilter(filterPatch(r.Form))
	actionsTotal.WithLabelValues("filter", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// filterPatch takes only the fields present in the form.
func filterPatch(form url.Values) board.FilterPatch {
	var patch board.FilterPatch
	if _, ok := form["search"]; ok {
		search := form.Get("search")
		patch.Search = &search
	}
	if _, ok := form["category"]; ok {
		category := board.ParseCategoryFilter(form.Get("category"))
		patch.Category = &category
	}
	if _, ok := form["date"]; ok {
		bucket := board.ParseBucket(form.Get("date"))
		patch.Bucket = &bucket
	}
	if _, ok := form["sort"]; ok {
		order := board.ParseSortOrder(form.Get("sort"))
		patch.Sort = &order
	}
	return patch
}

func (h *Handler) handleClearFilter(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.ctrl.ClearFilter()
	actionsTotal.WithLabelValues("clear-filter", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleNewForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.ctrl.BeginCreate()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEditForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.ctrl.BeginEdit(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCancelForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.ctrl.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid form payload")
		return
	}

	action := "create"
	if s.ctrl.State().Form == boardctl.FormEdit {
		action = "update"
	}
	err := s.ctrl.Submit(r.Context(), boardctl.FormValues{
		Title:       r.Form.Get("title"),
		Date:        r.Form.Get("date"),
		Hour:        r.Form.Get("hour"),
		Minute:      r.Form.Get("minute"),
		Location:    r.Form.Get("location"),
		Description: r.Form.Get("description"),
		Category:    r.Form.Get("category"),
	})
	actionsTotal.WithLabelValues(action, outcome(err)).Inc()
	if err != nil {
		switch {
		case errors.Is(err, boardctl.ErrFieldRequired):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, boardctl.ErrInvariantViolation):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	confirmed := r.URL.Query().Get("confirmed") == "true"
	err := s.ctrl.Remove(r.Context(), chi.URLParam(r, "id"), func(string) bool {
		return confirmed
	})
	actionsTotal.WithLabelValues("delete", outcome(err)).Inc()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		h.writeError(w, http.StatusInternalServerError, "event reader is not configured")
		return
	}
	events, err := h.Events.List(r.Context())
	if err != nil {
		h.Logger.Error("calendar export failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	spec := board.DefaultFilter()
	spec.Sort = board.SortDateAsc
	ordered := h.Engine.Apply(events, spec)

	cal := buildCalendar(ordered, h.Engine.Location, h.Now().UTC())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	_, _ = io.WriteString(w, cal.Serialize())
}

func (h *Handler) allowOrigin(origin string) bool {
	allowed := strings.TrimSpace(h.AllowedOrigin)
	if allowed == "" || allowed == "*" {
		return true
	}
	origin = strings.TrimSpace(origin)
	return origin == allowed || isEquivalentLoopbackOrigin(origin, allowed)
}

func isEquivalentLoopbackOrigin(originA, originB string) bool {
	a, err := url.Parse(originA)
	if err != nil {
		return false
	}
	b, err := url.Parse(originB)
	if err != nil {
		return false
	}
	if !isLoopbackHost(a.Hostname()) || !isLoopbackHost(b.Hostname()) {
		return false
	}
	if a.Port() != b.Port() {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme)
}

func isLoopbackHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
