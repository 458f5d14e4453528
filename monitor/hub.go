package monitor

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/marketsnap/store-etl/models"
	"github.com/marketsnap/store-etl/utils"
)

// Hub раздает сводки завершенных запусков ETL подписчикам по websocket.
// Только широковещание: входящие сообщения клиентов игнорируются.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	logger  *utils.ETLLogger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Мониторинг доступен только внутри периметра, проверка Origin не нужна
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewHub создает новый экземпляр Hub
func NewHub(logger *utils.ETLLogger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// HandleWS обрабатывает подключение нового подписчика
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Ошибка при обновлении соединения до websocket: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	h.logger.Debug("Подписчик мониторинга подключен: %s", conn.RemoteAddr())

	// Читаем входящие сообщения только ради обнаружения разрыва соединения
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()
}

// NotifyRun рассылает сводку завершенного запуска всем подписчикам
func (h *Hub) NotifyRun(runLog models.ETLRunLog) {
	payload, err := json.Marshal(runLog)
	if err != nil {
		h.logger.Error("Ошибка при сериализации сводки запуска: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("Подписчик мониторинга отключен: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// remove закрывает и удаляет соединение подписчика
func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	delete(h.clients, conn)
}
