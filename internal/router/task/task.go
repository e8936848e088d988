package task

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"refacto/internal/logging"
	"refacto/internal/model"
	"refacto/internal/redis"
	"refacto/internal/router/resp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

type TaskOut struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

type TaskDetail struct {
	TaskOut
	MessedCode string `json:"messed_code"`
}

type Value struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

type CaseOut struct {
	ID      int     `json:"id"`
	Inputs  []Value `json:"inputs"`
	Outputs []Value `json:"outputs"`
}

func newTaskOut(task model.Task) TaskOut {
	return TaskOut{
		ID:          task.ID,
		Name:        task.Name,
		Topic:       task.Topic,
		Description: task.Description,
	}
}

func newTaskOuts(tasks []model.Task) []TaskOut {
	out := make([]TaskOut, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, newTaskOut(task))
	}
	return out
}

func newCaseOut(io model.InputOutput) CaseOut {
	out := CaseOut{ID: io.ID, Inputs: []Value{}, Outputs: []Value{}}
	for _, in := range io.Inputs {
		out.Inputs = append(out.Inputs, Value{Value: in.Value, Type: in.Type})
	}
	for _, o := range io.Outputs {
		out.Outputs = append(out.Outputs, Value{Value: o.Value, Type: o.Type})
	}
	return out
}

func List(c *gin.Context) {
	tasks, err := model.ListTasks(c.Request.Context())
	if err != nil {
		resp.Error(c, http.StatusInternalServerError, "fail to list tasks: "+err.Error())
		return
	}
	resp.Ok(c, http.StatusOK, newTaskOuts(tasks))
}

func ListByTopic(c *gin.Context) {
	tasks, err := model.ListTasksByTopic(c.Request.Context(), c.Param("topic"))
	if err != nil {
		resp.Error(c, http.StatusInternalServerError, "fail to list tasks: "+err.Error())
		return
	}
	resp.Ok(c, http.StatusOK, newTaskOuts(tasks))
}

func Get(c *gin.Context) {
	task, ok := Lookup(c)
	if !ok {
		return
	}
	resp.Ok(c, http.StatusOK, TaskDetail{TaskOut: newTaskOut(task), MessedCode: task.MessedCode})
}

func Cases(c *gin.Context) {
	task, ok := Lookup(c)
	if !ok {
		return
	}

	cases, err := model.GetTaskCases(c.Request.Context(), task.ID)
	if err != nil {
		resp.Error(c, http.StatusInternalServerError, "fail to get test cases: "+err.Error())
		return
	}

	out := make([]CaseOut, 0, len(cases))
	for _, io := range cases {
		out = append(out, newCaseOut(io))
	}
	resp.Ok(c, http.StatusOK, out)
}

func Delete(c *gin.Context) {
	// verify the identity of the request initiator
	secret := c.GetHeader("Secret")
	if secret == "" {
		resp.Error(c, http.StatusBadRequest, "missing secret")
		return
	}

	localSecret := viper.GetString("admin-secret")
	if localSecret == "" {
		resp.Error(c, http.StatusInternalServerError,
			"secret is not set properly in the server")
		return
	}

	if secret != localSecret {
		resp.Error(c, http.StatusForbidden, "wrong access secret")
		return
	}

	id, ok := ParseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := model.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			resp.Error(c, http.StatusNotFound, "Task not found")
			return
		}
		resp.Error(c, http.StatusInternalServerError, "fail to delete task: "+err.Error())
		return
	}

	if err := redis.Del(ctx, CacheKey(id)); err != nil {
		logging.Component("task").WithError(err).Warn("fail to evict cached task")
	}

	resp.Ok(c, http.StatusOK, gin.H{"deleted": id})
}

// ParseID reads the task_id path parameter, answering 400 when it is not
// an integer.
func ParseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("task_id"))
	if err != nil {
		resp.Error(c, http.StatusBadRequest, fmt.Sprintf("invalid task id '%s'", c.Param("task_id")))
		return 0, false
	}
	return id, true
}

// Lookup resolves the task named in the path. On failure the error response
// has already been written.
func Lookup(c *gin.Context) (model.Task, bool) {
	id, ok := ParseID(c)
	if !ok {
		return model.Task{}, false
	}

	task, err := Load(c.Request.Context(), id)
	switch {
	case errors.Is(err, model.ErrTaskNotFound):
		resp.Error(c, http.StatusNotFound, "Task not found")
		return task, false
	case err != nil:
		resp.Error(c, http.StatusInternalServerError, "fail to get task: "+err.Error())
		return task, false
	}
	return task, true
}

func CacheKey(id int) string {
	return "task/" + strconv.Itoa(id)
}

// Load returns a task, going through the cache when it is enabled.
func Load(ctx context.Context, id int) (model.Task, error) {
	cacheKey := CacheKey(id)
	log := logging.Component("task")

	// check redis
	if redis.Enabled() {
		task, err := redis.Get[model.Task](ctx, cacheKey)
		if err == nil {
			return *task, nil
		}
		if err != redis.ErrGet {
			log.WithError(err).WithField("key", cacheKey).Warn("drop corrupted cache entry")
		}
	}

	// cache miss, disabled cache or error
	task, err := model.GetTask(ctx, id)
	if err != nil {
		return task, err
	}

	if redis.Enabled() {
		if err := redis.Set(ctx, cacheKey, task, redis.Expiration()); err != nil {
			log.WithError(err).WithField("key", cacheKey).Warn("fail to cache task")
		}
	}
	return task, nil
}
