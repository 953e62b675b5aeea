package handler

import (
	"encoding/json"
	"net/http"

	"menew-api/internal/realtime"
	"menew-api/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The menu pages are served from arbitrary customer devices, so origin
	// checks stay open like the rest of the public API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is what browser sessions send to join or leave topics.
type clientMessage struct {
	Type    string `json:"type"`
	StoreID uint   `json:"store_id"`
}

// ServeWS upgrades the connection and runs the read pump. Customers join
// store topics for stock updates, dashboards join order topics for live
// order events. Every membership is dropped when the connection closes.
func ServeWS(c echo.Context) error {
	log := logger.FromContext(c)

	hub := realtime.GetHub()
	if hub == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "error": "realtime unavailable"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn("Websocket upgrade failed", zap.Error(err))
		return err
	}

	client := &realtime.Client{ID: uuid.New().String(), Conn: conn}
	hub.Register(client)
	log.Debug("Websocket connected", zap.String("client_id", client.ID))

	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("Websocket closed unexpectedly",
					zap.String("client_id", client.ID),
					zap.Error(err))
			}
			return nil
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "join:store":
			hub.Subscribe(realtime.StoreTopic(msg.StoreID), client.ID)
		case "leave:store":
			hub.Unsubscribe(realtime.StoreTopic(msg.StoreID), client.ID)
		case "join:orders":
			hub.Subscribe(realtime.OrdersTopic(msg.StoreID), client.ID)
		case "leave:orders":
			hub.Unsubscribe(realtime.OrdersTopic(msg.StoreID), client.ID)
		}
	}
}
