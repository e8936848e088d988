package resp

import (
	"errors"

	"github.com/gin-gonic/gin"
)

const MsgSuccess = "success"

// Response is the envelope of every JSON answer.
type Response struct {
	Data interface{} `json:"data"`
	Msg  string      `json:"message"`
}

func Ok(c *gin.Context, code int, data interface{}) {
	c.JSON(code, Response{
		Data: data,
		Msg:  MsgSuccess,
	})
}

// Error answers with msg and records it on the context so the request
// log carries it.
func Error(c *gin.Context, code int, msg string) {
	_ = c.Error(errors.New(msg))
	c.AbortWithStatusJSON(code, Response{
		Msg: msg,
	})
}
