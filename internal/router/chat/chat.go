package chat

import (
	"net/http"
	"refacto/internal/agent"
	"refacto/internal/logging"
	"refacto/internal/router/resp"

	"github.com/gin-gonic/gin"
)

// Payload is whatever the client sends: usually some of messages, content,
// role, input and llm_history. It is handed to the mentor prompt as is.
type Payload map[string]interface{}

type HistoryOut struct {
	Summary string `json:"summary"`
	Length  int    `json:"length"`
}

func unavailable(c *gin.Context) {
	resp.Error(c, http.StatusServiceUnavailable, agent.ErrMissingAPIKey.Error())
}

func Chat(a *agent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload Payload
		if err := c.ShouldBindJSON(&payload); err != nil {
			resp.Error(c, http.StatusBadRequest, "invalid chat payload: "+err.Error())
			return
		}
		if a == nil {
			unavailable(c)
			return
		}

		reply, err := a.Chat(c.Request.Context(), payload)
		if err != nil {
			logging.Component("chat").WithError(err).Error("chat failed")
			resp.Error(c, http.StatusBadGateway, "fail to get a reply: "+err.Error())
			return
		}
		resp.Ok(c, http.StatusOK, reply)
	}
}

func History(a *agent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			unavailable(c)
			return
		}
		resp.Ok(c, http.StatusOK, HistoryOut{
			Summary: a.HistorySummary(),
			Length:  len(a.History()),
		})
	}
}

func ClearHistory(a *agent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			unavailable(c)
			return
		}
		a.ClearHistory()
		resp.Ok(c, http.StatusOK, HistoryOut{})
	}
}
