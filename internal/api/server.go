package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jomessina-code/EVS14/internal/adapt"
	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/imaging"
	"github.com/jomessina-code/EVS14/internal/monitoring"
	"github.com/jomessina-code/EVS14/internal/pipeline"
	"github.com/jomessina-code/EVS14/internal/preset"
	"github.com/jomessina-code/EVS14/internal/session"
)

const maxBodyBytes = 25 << 20

type Options struct {
	Pipeline       *pipeline.Orchestrator
	Adapter        *adapt.Manager
	Sessions       *session.Store
	Hub            *Hub
	ExportEncoding imaging.Encoding
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type Server struct {
	pipe     *pipeline.Orchestrator
	adapter  *adapt.Manager
	sessions *session.Store
	catalog  *preset.Catalog
	hub      *Hub
	encoding imaging.Encoding
	timeout  time.Duration
	logger   *slog.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &Server{
		pipe:     opts.Pipeline,
		adapter:  opts.Adapter,
		sessions: opts.Sessions,
		catalog:  opts.Pipeline.Catalog(),
		hub:      hub,
		encoding: opts.ExportEncoding,
		timeout:  timeout,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.withLogging)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/catalog", s.getCatalog).Methods(http.MethodGet)
	api.HandleFunc("/credentials", s.selectCredentials).Methods(http.MethodPost)

	api.HandleFunc("/presets", s.createPreset).Methods(http.MethodPost)
	api.HandleFunc("/presets/suggest", s.suggestPreset).Methods(http.MethodPost)
	api.HandleFunc("/presets/{id}", s.updatePreset).Methods(http.MethodPut)
	api.HandleFunc("/presets/{id}", s.deletePreset).Methods(http.MethodDelete)

	api.HandleFunc("/sessions", s.createSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}", s.withState(s.getSnapshot)).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}/options", s.withState(s.getOptions)).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}/options", s.withState(s.putOptions)).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{sid}/universes/{id}/toggle", s.withState(s.toggleUniverse)).Methods(http.MethodPost)

	api.HandleFunc("/sessions/{sid}/generate", s.withState(s.generate)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/variation", s.withState(s.variation)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/modify", s.withState(s.modify)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/adaptations", s.withState(s.adapt)).Methods(http.MethodPost)

	api.HandleFunc("/sessions/{sid}/prompt", s.withState(s.getPrompt)).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}/prompt/refine", s.withState(s.refinePrompt)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/correct", s.withState(s.correctText)).Methods(http.MethodPost)

	api.HandleFunc("/sessions/{sid}/history", s.withState(s.getHistory)).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}/history/{hid}", s.withState(s.deleteHistory)).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{sid}/history/{hid}/restore", s.withState(s.restoreHistory)).Methods(http.MethodPost)

	api.HandleFunc("/sessions/{sid}/export", s.withState(s.export)).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}/events", s.withState(s.events)).Methods(http.MethodGet)

	return s.withCORS(r)
}

// Publish forwards progress to the websocket clients of a session.
func (s *Server) Publish(sessionID string, p domain.Progress) {
	s.hub.Publish(sessionID, p)
}

type stateHandler func(w http.ResponseWriter, r *http.Request, st *session.State)

// withState resolves {sid} to an open session or answers 404.
func (s *Server) withState(next stateHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := s.sessions.Get(mux.Vars(r)["sid"])
		if !ok {
			s.fail(w, r, "session", errSessionNotFound)
			return
		}
		next(w, r, st)
	}
}

// runContext bounds model calls; the client hanging up cancels them.
func (s *Server) runContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "path", r.URL.Path, "status", status, "err", err)
		monitoring.Report(r.Context(), op, err)
	} else {
		s.logger.Info(op+" rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, errorBody(status, err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		dur := time.Since(start)
		s.logger.Info("http", "method", r.Method, "route", route, "status", rec.status, "dur_ms", dur.Milliseconds())
		monitoring.RecordRequest(r.Context(), r.Method+" "+route, rec.status, dur)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
