package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Внутренний инструмент: origin не проверяем
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeWS обрабатывает WebSocket подключения дашборда
func ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ Ошибка обновления WebSocket соединения: %v", err)
		return
	}

	DashboardHub.AddClient(conn)
	log.Printf("📱 Дашборд подключен. Всего подключений: %d", DashboardHub.GetClientsCount())

	defer func() {
		DashboardHub.RemoveClient(conn)
		log.Printf("📱 Дашборд отключен. Осталось подключений: %d", DashboardHub.GetClientsCount())
	}()

	// Читаем сообщения от клиента (ping/pong для поддержания соединения)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ WebSocket ошибка: %v", err)
			}
			break
		}
	}
}

// BroadcastDashboardUpdate отправляет событие всем открытым дашбордам
func BroadcastDashboardUpdate(eventType string, payload map[string]interface{}) {
	message := map[string]interface{}{
		"type":      eventType,
		"payload":   payload,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("⚠️ Ошибка сериализации события дашборда: %v", err)
		return
	}
	DashboardHub.BroadcastMessage(data)
}
