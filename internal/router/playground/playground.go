package playground

import (
	"errors"
	"net/http"
	"refacto/internal/checker"
	"refacto/internal/engine"
	"refacto/internal/engine/runner"
	"refacto/internal/router/resp"

	"github.com/gin-gonic/gin"
)

type PlaygroundRequestBody struct {
	Code   string   `json:"code"`
	Args   []string `json:"args"`
	Inputs []string `json:"inputs"`
}

func Run(c *gin.Context) {
	var body PlaygroundRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		resp.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	res := runner.Run(c.Request.Context(), c.Param("language"), engine.Request{
		Code:   body.Code,
		Args:   body.Args,
		Inputs: body.Inputs,
	})

	if errors.Is(res.Err, runner.ErrUnsupportedLanguage) {
		resp.Error(c, http.StatusNotFound, res.Err.Error())
		return
	}
	if res.Err != nil {
		resp.Error(c, http.StatusBadRequest, res.Err.Error())
		return
	}

	resp.Ok(c, http.StatusOK, res.Val)
}

func Lint(c *gin.Context) {
	var body PlaygroundRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		resp.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	report, err := checker.New().Check(c.Request.Context(), body.Code)
	if err != nil {
		resp.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp.Ok(c, http.StatusOK, report)
}
