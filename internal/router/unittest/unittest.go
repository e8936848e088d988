package unittest

import (
	"net/http"
	"refacto/internal/engine"
	"refacto/internal/engine/runner"
	"refacto/internal/model"
	"refacto/internal/router/resp"
	"refacto/internal/router/submission"
	"refacto/internal/router/task"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type CaseResult struct {
	ID       int    `json:"id"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Duration int64  `json:"duration"`
}

type TestResult struct {
	Passed int          `json:"passed"`
	Total  int          `json:"total"`
	Cases  []CaseResult `json:"cases"`
}

// ExecuteTest runs the submission once per stored test case of the task,
// feeding the case inputs on stdin and comparing the trimmed output with
// the expected lines.
func ExecuteTest(c *gin.Context) {
	body, ok := submission.Bind(c)
	if !ok {
		return
	}
	t, ok := task.Lookup(c)
	if !ok {
		return
	}

	lang, err := runner.Normalize(body.Language)
	if err != nil {
		resp.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	cases, err := model.GetTaskCases(ctx, t.ID)
	if err != nil {
		resp.Error(c, http.StatusInternalServerError, "fail to get test cases: "+err.Error())
		return
	}

	result := TestResult{Total: len(cases), Cases: make([]CaseResult, 0, len(cases))}
	code := body.Code()

	for _, testCase := range cases {
		startTime := time.Now()
		res := runner.Run(ctx, lang, engine.Request{
			Code:   code,
			Args:   body.Args,
			Inputs: testCase.Stdin(),
		})
		duration := int64(time.Since(startTime) / time.Microsecond)

		expected := strings.Join(testCase.Expected(), "\n")
		matched := res.Err == nil && strings.TrimSpace(res.Val) == strings.TrimSpace(expected)
		if matched {
			result.Passed++
		}

		result.Cases = append(result.Cases, CaseResult{
			ID:       testCase.ID,
			Passed:   matched,
			Expected: expected,
			Actual:   res.String(),
			Duration: duration,
		})
	}

	resp.Ok(c, http.StatusOK, result)
}
