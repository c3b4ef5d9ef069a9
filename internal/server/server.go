package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
)

// MsgUnavailable is returned when a turn cannot be completed at all.
const MsgUnavailable = "Sorry, I'm having trouble answering right now. Please try again later."

const maxBodyBytes = 64 << 10

var (
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ayurwell_chat_requests_total",
			Help: "Total number of chat requests",
		},
		[]string{"intent", "status"},
	)
	chatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ayurwell_chat_request_duration_seconds",
			Help: "Duration of chat requests",
		},
		[]string{"intent"},
	)
)

func init() {
	prometheus.MustRegister(chatRequestsTotal)
	prometheus.MustRegister(chatRequestDuration)
}

// Runner executes one workflow turn.
type Runner interface {
	Run(ctx context.Context, turn graph.Turn) (graph.State, error)
}

// HistoryStore persists conversation messages per thread.
type HistoryStore interface {
	Load(ctx context.Context, threadID string, limit int) ([]graph.Message, error)
	Append(ctx context.Context, threadID string, msgs ...graph.Message) error
}

type ChatRequest struct {
	Message  string `json:"message" validate:"required,max=4000"`
	Intent   string `json:"intent" validate:"omitempty,oneof=health greeting off_topic offtopic off-topic"`
	ThreadID string `json:"thread_id" validate:"omitempty,uuid"`
}

type Source struct {
	Origin string  `json:"origin"`
	Source string  `json:"source,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

type ChatResponse struct {
	Reply    string   `json:"reply"`
	ThreadID string   `json:"thread_id"`
	Sources  []Source `json:"sources"`
}

type Server struct {
	runner      Runner
	history     HistoryStore
	historySize int
	validate    *validator.Validate
	logger      *zap.Logger
}

// New builds a Server. history may be nil, in which case every request is
// treated as a fresh conversation.
func New(runner Runner, history HistoryStore, historySize int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		runner:      runner,
		history:     history,
		historySize: historySize,
		validate:    validator.New(),
		logger:      logger.Named("server"),
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/chat", s.handleChat).Methods("POST")
	router.HandleFunc("/health", handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler())
	return router
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		chatRequestsTotal.WithLabelValues("unknown", "bad_request").Inc()
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		chatRequestsTotal.WithLabelValues("unknown", "bad_request").Inc()
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	intent, _ := graph.ParseIntent(req.Intent)
	defer func() {
		chatRequestDuration.WithLabelValues(string(intent)).Observe(time.Since(start).Seconds())
	}()

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	ctx := r.Context()
	history := s.loadHistory(ctx, threadID)
	userMsg := graph.Message{Role: graph.RoleUser, Content: req.Message}
	history = append(history, userMsg)

	state, err := s.runner.Run(ctx, graph.Turn{Intent: intent, Query: req.Message, History: history})
	if err != nil {
		s.logger.Error("chat turn failed", zap.String("thread_id", threadID), zap.Error(err))
		chatRequestsTotal.WithLabelValues(string(intent), "error").Inc()
		writeJSONResponse(w, ChatResponse{Reply: MsgUnavailable, ThreadID: threadID, Sources: []Source{}})
		return
	}

	s.saveHistory(ctx, threadID, userMsg, graph.Message{Role: graph.RoleAssistant, Content: state.Message})

	chatRequestsTotal.WithLabelValues(string(intent), "success").Inc()
	writeJSONResponse(w, ChatResponse{
		Reply:    state.Message,
		ThreadID: threadID,
		Sources:  sourcesOf(state.Evidence),
	})
}

func (s *Server) loadHistory(ctx context.Context, threadID string) []graph.Message {
	if s.history == nil {
		return nil
	}
	msgs, err := s.history.Load(ctx, threadID, s.historySize)
	if err != nil {
		s.logger.Warn("failed to load history", zap.String("thread_id", threadID), zap.Error(err))
		return nil
	}
	return msgs
}

func (s *Server) saveHistory(ctx context.Context, threadID string, msgs ...graph.Message) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, threadID, msgs...); err != nil {
		s.logger.Warn("failed to save history", zap.String("thread_id", threadID), zap.Error(err))
	}
}

func sourcesOf(evidence []graph.Passage) []Source {
	out := make([]Source, 0, len(evidence))
	for _, p := range evidence {
		out = append(out, Source{Origin: string(p.Origin), Source: p.Source, Score: p.Score})
	}
	return out
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " is too long"
	default:
		return fe.Field() + " is invalid"
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, map[string]string{"status": "healthy"})
}

func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
