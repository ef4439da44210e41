package websocket

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	domainSession "github.com/AzielCF/az-reply/domains/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type client struct{}

type BroadcastMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}

var (
	Clients    = make(map[*websocket.Conn]client)
	Register   = make(chan *websocket.Conn)
	Broadcast  = make(chan BroadcastMessage, 64)
	Unregister = make(chan *websocket.Conn)
)

// Observer bridges the session observer contract onto the hub. Notify never
// blocks: if the hub is saturated the event is dropped, the panel state
// catches up on the next one.
type Observer struct{}

func NewObserver() *Observer {
	return &Observer{}
}

func (o *Observer) Notify(code, message string, result any) {
	select {
	case Broadcast <- BroadcastMessage{Code: code, Message: message, Result: result}:
	default:
		logrus.Debugf("[WS] Hub saturated, dropping %s", code)
	}
}

var _ domainSession.IObserver = (*Observer)(nil)

func handleRegister(conn *websocket.Conn) {
	Clients[conn] = client{}
	logrus.Debug("[WS] Connection registered")
}

func handleUnregister(conn *websocket.Conn) {
	delete(Clients, conn)
	logrus.Debug("[WS] Connection unregistered")
}

func broadcastToLocal(message BroadcastMessage) {
	marshalMessage, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	for conn := range Clients {
		if err := conn.WriteMessage(websocket.TextMessage, marshalMessage); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			closeConnection(conn)
		}
	}
}

func closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(Clients, conn)
}

func RunHub() {
	for {
		select {
		case conn := <-Register:
			handleRegister(conn)

		case conn := <-Unregister:
			handleUnregister(conn)

		case message := <-Broadcast:
			broadcastToLocal(message)
		}
	}
}

// RegisterRoutes monta el endpoint /ws; el panel lo usa para QR, estado de
// conexión y la cola de pendientes en vivo.
func RegisterRoutes(app fiber.Router, conn domainSession.IConnectionUsecase) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(wsConn *websocket.Conn) {
		defer func() {
			Unregister <- wsConn
			_ = wsConn.Close()
		}()

		Register <- wsConn

		for {
			messageType, message, err := wsConn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Println("read error:", err)
				}
				return
			}

			if messageType == websocket.TextMessage {
				var messageData BroadcastMessage
				if err := json.Unmarshal(message, &messageData); err != nil {
					logrus.Println("unmarshal error:", err)
					return
				}

				if messageData.Code == "FETCH_STATUS" {
					Broadcast <- BroadcastMessage{
						Code:    "ACCOUNT_STATUS",
						Message: "Current session state",
						Result:  conn.Status(),
					}
				}
			} else {
				logrus.Println("unsupported message type:", messageType)
			}
		}
	}))
}
