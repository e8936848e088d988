package submission

import (
	"context"
	"fmt"
	"net/http"
	"refacto/internal/agent"
	"refacto/internal/checker"
	"refacto/internal/engine"
	"refacto/internal/engine/runner"
	"refacto/internal/logging"
	"refacto/internal/metrics"
	"refacto/internal/redis"
	"refacto/internal/router/resp"
	"refacto/internal/router/task"
	"refacto/internal/utils"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"golang.org/x/sync/singleflight"
)

// Body is the code submitted against a task, one source line per element.
type Body struct {
	Lines    []string `json:"lines" binding:"required"`
	Args     []string `json:"args"`
	Inputs   []string `json:"inputs"`
	Language string   `json:"language"`
}

func (b Body) Code() string {
	return strings.Join(b.Lines, "\n")
}

type Result struct {
	Result string `json:"result"`
}

// in-flight reviews keyed like their cache entries
var reviews singleflight.Group

// nginx's code for a request whose client went away
const statusClientClosed = 499

// Bind reads the submission body. On failure the error response has
// already been written.
func Bind(c *gin.Context) (Body, bool) {
	var body Body
	if err := c.ShouldBindJSON(&body); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return body, false
	}
	return body, true
}

func Run(c *gin.Context) {
	body, ok := Bind(c)
	if !ok {
		return
	}
	if _, ok := task.Lookup(c); !ok {
		return
	}

	lang, err := runner.Normalize(body.Language)
	if err != nil {
		resp.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	res := runner.Run(c.Request.Context(), lang, engine.Request{
		Code:   body.Code(),
		Args:   body.Args,
		Inputs: body.Inputs,
	})
	resp.Ok(c, http.StatusOK, Result{Result: res.String()})
}

func ManualQualityChecker(c *gin.Context) {
	body, ok := Bind(c)
	if !ok {
		return
	}
	if _, ok := task.Lookup(c); !ok {
		return
	}

	resp.Ok(c, http.StatusOK, Result{Result: lint(c.Request.Context(), body.Code())})
}

// lint returns the linter report, or the failure as an "Error: " line.
func lint(ctx context.Context, code string) string {
	report, err := checker.New().Check(ctx, code)
	if err != nil {
		return "Error: " + err.Error()
	}
	return report
}

func ReviewKey(taskID int, code string) string {
	return fmt.Sprintf("review/%d/%s", taskID, utils.Hash(code))
}

// reviewContext detaches a shared review from the request that started it.
func reviewContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if timeout := viper.GetDuration("review.timeout"); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// AIChecker lints the submission and hands it to the review agent together
// with the task statement and its reference solution.
func AIChecker(a *agent.Agent) gin.HandlerFunc {
	log := logging.Component("review")

	return func(c *gin.Context) {
		body, ok := Bind(c)
		if !ok {
			return
		}
		t, ok := task.Lookup(c)
		if !ok {
			return
		}
		if a == nil {
			resp.Error(c, http.StatusServiceUnavailable, agent.ErrMissingAPIKey.Error())
			return
		}

		ctx := c.Request.Context()
		code := body.Code()
		cacheKey := ReviewKey(t.ID, code)

		// check redis
		if redis.Enabled() {
			if review, err := redis.Get[agent.Review](ctx, cacheKey); err == nil {
				metrics.Reviews.WithLabelValues(metrics.ResultCached).Inc()
				resp.Ok(c, http.StatusOK, review)
				return
			}
		}

		ch := reviews.DoChan(cacheKey, func() (interface{}, error) {
			ctx, cancel := reviewContext(ctx)
			defer cancel()

			review, err := a.Review(ctx, agent.ReviewInput{
				Problem:    t.Problem(),
				LintReport: lint(ctx, code),
				Reference:  t.CorrectCode,
				Code:       code,
			})
			if err != nil {
				metrics.Reviews.WithLabelValues(metrics.ResultError).Inc()
				return nil, err
			}

			if review.Fallback {
				metrics.Reviews.WithLabelValues(metrics.ResultFallback).Inc()
				return review, nil
			}
			metrics.Reviews.WithLabelValues(metrics.ResultOK).Inc()

			if redis.Enabled() {
				if err := redis.Set(ctx, cacheKey, review, redis.Expiration()); err != nil {
					log.WithError(err).WithField("key", cacheKey).Warn("fail to cache review")
				}
			}
			return review, nil
		})

		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			log.WithError(ctx.Err()).WithField("task_id", t.ID).Info("client left before the review finished")
			resp.Error(c, statusClientClosed, "review canceled: "+ctx.Err().Error())
			return
		}

		if res.Err != nil {
			log.WithError(res.Err).WithField("task_id", t.ID).Error("review failed")
			resp.Error(c, http.StatusBadGateway, "fail to review code: "+res.Err.Error())
			return
		}
		if res.Shared {
			log.WithField("task_id", t.ID).Debug("review shared with a concurrent request")
		}

		resp.Ok(c, http.StatusOK, res.Val.(agent.Review))
	}
}
