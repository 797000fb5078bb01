package handlers

import (
	"log"
	"net/http"

	"github.com/arenastats/scoring-system/live"
	"github.com/arenastats/scoring-system/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin,
		// чтобы разрешать подключения только с доверенных доменов.
		return true // Для разработки разрешаем все
	},
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeStageWs обрабатывает WebSocket подписки на таблицу этапа.
// Клиент подключается к /ws/stages/{stageID}.
func (h *WebSocketHandler) ServeStageWs(w http.ResponseWriter, r *http.Request) {
	h.serveScope(w, r, services.ScopeStage, "stageID")
}

// ServeTournamentWs обрабатывает WebSocket подписки на таблицу турнира.
// Клиент подключается к /ws/tournaments/{tournamentID}.
func (h *WebSocketHandler) ServeTournamentWs(w http.ResponseWriter, r *http.Request) {
	h.serveScope(w, r, services.ScopeTournament, "tournamentID")
}

func (h *WebSocketHandler) serveScope(w http.ResponseWriter, r *http.Request, scopeType, param string) {
	scopeID, err := getIDFromURL(r, param)
	if err != nil {
		http.Error(w, "invalid "+param, http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту, так что здесь просто логируем.
		log.Printf("failed to upgrade connection for %s %d: %v", scopeType, scopeID, err)
		return
	}

	roomID := live.RoomName(scopeType, scopeID)

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256), // Буферизированный канал
		Room: roomID,
	}
	client.Hub.Register <- client

	// Горутины живут, пока клиент не отключится.
	go client.WritePump()
	go client.ReadPump()

	log.Printf("client registered and pumps started for room %s", roomID)
}
