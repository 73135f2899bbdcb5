package events

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // OK for a personal deployment; restrict when exposed
	},
}

// WSHandler upgrades GET /ws into an event-feed subscription. The socket is
// receive-only: inbound messages are drained and discarded until the client
// hangs up.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug().Err(err).Msg("ws upgrade failed")
			return
		}

		hub.AddWS(conn)
		log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("ws event client connected")

		welcome, _ := json.Marshal(Event{Type: "welcome", Payload: hub.Stats()})
		_ = conn.WriteMessage(websocket.TextMessage, welcome)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(conn)
		log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("ws event client disconnected")
	}
}
