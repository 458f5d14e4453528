package monitor

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/marketsnap/store-etl/models"
	"github.com/marketsnap/store-etl/utils"
)

// Server предоставляет HTTP API мониторинга ETL: журнал запусков,
// сводку состояния и websocket-ленту завершенных запусков
type Server struct {
	repo   models.ETLLogRepository
	hub    *Hub
	logger *utils.ETLLogger
	router *mux.Router
}

// statusResponse сводка состояния ETL для /api/etl/status
type statusResponse struct {
	LastSuccessfulRun *models.ETLRunLog `json:"last_successful_run,omitempty"`
	RunsLast7Days     int               `json:"runs_last_7_days"`
	FailedLast7Days   int               `json:"failed_last_7_days"`
}

// NewServer создает новый экземпляр Server и настраивает маршруты
func NewServer(repo models.ETLLogRepository, hub *Hub, logger *utils.ETLLogger) *Server {
	s := &Server{
		repo:   repo,
		hub:    hub,
		logger: logger,
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/api/etl/runs", s.handleRuns).Methods("GET")
	s.router.HandleFunc("/api/etl/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/ws/runs", hub.HandleWS)

	return s
}

// Router возвращает настроенный маршрутизатор
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe запускает HTTP-сервер мониторинга
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("Сервер мониторинга запущен на %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// handleRuns отдает журнал запусков ETL за запрошенный период
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	days := 7
	if param := r.URL.Query().Get("days"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed <= 0 {
			http.Error(w, "некорректный параметр days", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	runs, err := s.repo.GetETLRunStats(days)
	if err != nil {
		s.logger.Error("Ошибка при получении журнала запусков: %v", err)
		http.Error(w, "ошибка при получении журнала запусков", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"runs": runs})
}

// handleStatus отдает сводку состояния ETL
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	lastSuccess, err := s.repo.GetLastSuccessfulRun()
	if err != nil {
		s.logger.Error("Ошибка при получении последнего успешного запуска: %v", err)
		http.Error(w, "ошибка при получении состояния ETL", http.StatusInternalServerError)
		return
	}

	runs, err := s.repo.GetETLRunStats(7)
	if err != nil {
		s.logger.Error("Ошибка при получении статистики запусков: %v", err)
		http.Error(w, "ошибка при получении состояния ETL", http.StatusInternalServerError)
		return
	}

	status := statusResponse{
		LastSuccessfulRun: lastSuccess,
		RunsLast7Days:     len(runs),
	}
	for _, run := range runs {
		if run.Status == "failed" {
			status.FailedLast7Days++
		}
	}

	writeJSON(w, status)
}

// writeJSON сериализует ответ и выставляет заголовки
func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "ошибка сериализации ответа", http.StatusInternalServerError)
	}
}
