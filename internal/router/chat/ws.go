package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"refacto/internal/agent"
	"refacto/internal/logging"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/spf13/viper"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Frame is sent back for every chat frame received.
type Frame struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Connect upgrades to a websocket on which every text frame is a chat
// payload and every reply is a Frame.
func Connect(a *agent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			unavailable(c)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// the upgrader has already answered the request
			logging.Component("chat").WithError(err).Warn("fail to setup websocket connection")
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		ch := make(chan Frame)
		go writer(ctx, conn, ch)
		reader(ctx, conn, a, ch)
	}
}

func intervals() (ping, pong time.Duration) {
	ping = time.Duration(viper.GetInt("websocket.ping")) * time.Millisecond
	pong = time.Duration(viper.GetInt("websocket.pong")) * time.Millisecond
	if ping <= 0 {
		ping = 30 * time.Second
	}
	if pong <= 0 {
		pong = 10 * time.Second
	}
	return ping, pong
}

// reader serves frames until the peer goes away, then closes ch.
func reader(ctx context.Context, conn *websocket.Conn, a *agent.Agent, ch chan<- Frame) {
	defer close(ch)

	ping, pong := intervals()
	conn.SetReadDeadline(time.Now().Add(ping + pong))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ping + pong))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		conn.SetReadDeadline(time.Now().Add(ping + pong))

		var payload Payload
		if err := json.Unmarshal(data, &payload); err != nil {
			ch <- Frame{Error: "invalid chat payload: " + err.Error()}
			continue
		}

		reply, err := a.Chat(ctx, payload)
		if err != nil {
			logging.Component("chat").WithError(err).Error("chat failed")
			ch <- Frame{Error: "fail to get a reply: " + err.Error()}
			continue
		}
		ch <- Frame{Message: reply.Message}
	}
}

func writer(ctx context.Context, conn *websocket.Conn, ch <-chan Frame) {
	defer conn.Close()

	ping, pong := intervals()
	ticker := time.NewTicker(ping)
	defer ticker.Stop()

loop:
	for {
		select {
		case frame, ok := <-ch:
			if !ok {
				break loop
			}
			conn.SetWriteDeadline(time.Now().Add(pong))
			if err := conn.WriteJSON(frame); err != nil {
				break loop
			}
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			deadline := time.Now().Add(pong)
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
				break loop
			}
		}
	}

	// drain so the reader never blocks on a dead connection
	for range ch {
	}
}
