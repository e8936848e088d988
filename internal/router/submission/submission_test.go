package submission_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"refacto/internal/agent"
	"refacto/internal/agent/agenttest"
	"refacto/internal/model"
	"refacto/internal/redis"
	"refacto/internal/router"
	"refacto/internal/router/resp"
	"refacto/internal/router/submission"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const lintReport = "C0114: Missing module docstring (missing-module-docstring)"

var mock sqlmock.Sqlmock
var client *agenttest.Client

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "refacto-submission")
	if err != nil {
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	// stands in for pylint, which exits non-zero when it reports anything
	linter := filepath.Join(dir, "fake-pylint")
	script := "#!/bin/sh\necho \"" + lintReport + "\"\nexit 16\n"
	if err := os.WriteFile(linter, []byte(script), 0o755); err != nil {
		os.Exit(1)
	}

	// set default configuration values
	viper.SetDefault("allow-origins", []string{"*"})
	viper.SetDefault("checker.binary", linter)
	viper.SetDefault("checker.timeout", 2*time.Second)
	viper.SetDefault("runner.python", "/bin/sh")
	viper.SetDefault("runner.timeout", 2*time.Second)
	viper.SetDefault("timeout", 200*time.Millisecond)
	viper.SetDefault("redis.expiration", time.Minute)

	db, sqlMock, err := sqlmock.New()
	if err != nil {
		os.Exit(1)
	}
	defer db.Close()

	mock = sqlMock

	model.DB, err = gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})

	if err != nil {
		os.Exit(1)
	}

	client = agenttest.NewClient()
	router.SetupAPIService(agent.New(client))

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func testRequest(path string, body interface{}) (*httptest.ResponseRecorder, resp.Response) {
	data, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	router.Router.ServeHTTP(w, req)

	var response resp.Response
	json.Unmarshal(w.Body.Bytes(), &response)

	return w, response
}

var strategy = model.Task{
	ID:          1,
	Name:        "strategy",
	Description: "replace the if chain",
	Topic:       "behavioral",
	CorrectCode: "class Strategy: pass",
	MessedCode:  "if a: pass",
}

func expectTask(task model.Task) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `tasks`")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "topic", "correct_code", "messed_code",
		}).AddRow(task.ID, task.Name, task.Description, task.Topic, task.CorrectCode, task.MessedCode))
}

func expectNoTask() {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `tasks`")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
}

func result(response resp.Response) string {
	return response.Data.(map[string]interface{})["result"].(string)
}

func TestMissingLines(t *testing.T) {
	for _, endpoint := range []string{"run", "manual_quality_checker", "ai_checker", "test"} {
		w, _ := testRequest("/tasks/1/"+endpoint, map[string]interface{}{"language": "python"})
		assert.Equal(t, http.StatusBadRequest, w.Code, endpoint)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingTask(t *testing.T) {
	for _, endpoint := range []string{"run", "manual_quality_checker", "ai_checker", "test"} {
		expectNoTask()
		w, response := testRequest("/tasks/99/"+endpoint, submission.Body{Lines: []string{"x = 1"}})
		assert.Equal(t, http.StatusNotFound, w.Code, endpoint)
		assert.Equal(t, "Task not found", response.Msg)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun(t *testing.T) {
	expectTask(strategy)

	w, response := testRequest("/tasks/1/run", submission.Body{
		Lines:  []string{"read x", `echo "got $x $1"`},
		Args:   []string{"--fast"},
		Inputs: []string{"5"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "got 5 --fast", result(response))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunFailure(t *testing.T) {
	expectTask(strategy)

	w, response := testRequest("/tasks/1/run", submission.Body{
		Lines: []string{"echo oops >&2", "exit 3"},
	})
	assert.Equal(t, http.StatusOK, w.Code, "a failing script is still a result")
	assert.Equal(t, "Error: oops", result(response))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunEmptyCode(t *testing.T) {
	expectTask(strategy)

	w, response := testRequest("/tasks/1/run", submission.Body{Lines: []string{}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(result(response), "Error: empty code"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStarlark(t *testing.T) {
	expectTask(strategy)

	w, response := testRequest("/tasks/1/run", submission.Body{
		Lines:    []string{"x = input()", `print("got " + x)`},
		Inputs:   []string{"7"},
		Language: "starlark",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "got 7", result(response))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunUnsupportedLanguage(t *testing.T) {
	expectTask(strategy)

	w, _ := testRequest("/tasks/1/run", submission.Body{Lines: []string{"x"}, Language: "cobol"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManualQualityChecker(t *testing.T) {
	expectTask(strategy)

	w, response := testRequest("/tasks/1/manual_quality_checker", submission.Body{
		Lines: []string{"x = 1"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, lintReport, result(response))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManualQualityCheckerEmptyCode(t *testing.T) {
	expectTask(strategy)

	w, response := testRequest("/tasks/1/manual_quality_checker", submission.Body{Lines: []string{"  "}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Error: empty code string provided, pylint cannot check empty code", result(response))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAIChecker(t *testing.T) {
	expectTask(strategy)
	client.Push(`{"answer":"Nice.","hints":["Use a strategy map"],"score":81}`)
	before := len(client.Requests())

	w, response := testRequest("/tasks/1/ai_checker", submission.Body{
		Lines: []string{"def pick(a):", "    return a"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	review := response.Data.(map[string]interface{})
	assert.Equal(t, "Nice.", review["answer"])
	assert.Equal(t, []interface{}{"Use a strategy map"}, review["hints"])
	assert.Equal(t, float64(81), review["score"])
	assert.Len(t, review, 3)

	requests := client.Requests()
	assert.Len(t, requests, before+1)
	messages := requests[len(requests)-1].Messages
	payload := messages[len(messages)-1].Content
	assert.Contains(t, payload, "strategy\nreplace the if chain")
	assert.Contains(t, payload, lintReport)
	assert.Contains(t, payload, strategy.CorrectCode)
	assert.Contains(t, payload, "def pick(a):\n    return a")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAICheckerFallback(t *testing.T) {
	expectTask(strategy)
	client.Push("Sorry, I can only answer in prose.")

	w, response := testRequest("/tasks/1/ai_checker", submission.Body{Lines: []string{"x = 1"}})
	assert.Equal(t, http.StatusOK, w.Code)

	review := response.Data.(map[string]interface{})
	assert.Equal(t, agent.FallbackAnswer, review["answer"])
	assert.Equal(t, []interface{}{"Sorry, I can only answer in prose."}, review["hints"])
	assert.Equal(t, float64(0), review["score"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAICheckerModelFailure(t *testing.T) {
	expectTask(strategy)
	client.Fail(errors.New("rate limited"))
	defer client.Fail(nil)

	w, response := testRequest("/tasks/1/ai_checker", submission.Body{Lines: []string{"x = 2"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, response.Msg, "rate limited")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAICheckerCache(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	redis.Client = redisClient
	defer func() { redis.Client = nil }()

	lines := []string{"y = 3"}
	key := submission.ReviewKey(strategy.ID, "y = 3")

	// miss: task and review are both stored
	redisMock.ExpectGet("task/1").RedisNil()
	expectTask(strategy)
	redisMock.Regexp().ExpectSet("task/1", `.*`, time.Minute).SetVal("OK")
	redisMock.ExpectGet(key).RedisNil()
	redisMock.Regexp().ExpectSet(key, `.*"score":64.*`, time.Minute).SetVal("OK")
	client.Push(`{"answer":"Fine.","hints":[],"score":64}`)

	w, _ := testRequest("/tasks/1/ai_checker", submission.Body{Lines: lines})
	assert.Equal(t, http.StatusOK, w.Code)

	// hit: no database query and no model call
	before := len(client.Requests())
	cachedTask, _ := json.Marshal(strategy)
	redisMock.ExpectGet("task/1").SetVal(string(cachedTask))
	redisMock.ExpectGet(key).SetVal(`{"answer":"Fine.","hints":[],"score":64}`)

	w, response := testRequest("/tasks/1/ai_checker", submission.Body{Lines: lines})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(64), response.Data.(map[string]interface{})["score"])
	assert.Len(t, client.Requests(), before)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestReviewKey(t *testing.T) {
	assert.Equal(t, submission.ReviewKey(1, "a"), submission.ReviewKey(1, "a"))
	assert.NotEqual(t, submission.ReviewKey(1, "a"), submission.ReviewKey(2, "a"))
	assert.NotEqual(t, submission.ReviewKey(1, "a"), submission.ReviewKey(1, "b"))
	assert.True(t, strings.HasPrefix(submission.ReviewKey(12, "a"), "review/12/"))

	// same fnv32a sum, different code
	assert.NotEqual(t, submission.ReviewKey(1, "print(522789)"), submission.ReviewKey(1, "print(739192)"))
}

func reviewRequest(ctx context.Context, lines []string) *httptest.ResponseRecorder {
	data, _ := json.Marshal(submission.Body{Lines: lines})
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(ctx, "POST", "/tasks/1/ai_checker", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	router.Router.ServeHTTP(w, req)
	return w
}

func TestAICheckerSharedReviewOutlivesFirstClient(t *testing.T) {
	release := client.Hold()
	defer release()

	lines := []string{"z = 4"}
	before := len(client.Requests())
	client.Push(`{"answer":"Shared.","hints":[],"score":70}`)
	expectTask(strategy)
	expectTask(strategy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- reviewRequest(ctx, lines) }()

	// the first request is now waiting on the model
	assert.Eventually(t, func() bool {
		return len(client.Requests()) == before+1
	}, 2*time.Second, 10*time.Millisecond)

	second := make(chan *httptest.ResponseRecorder, 1)
	go func() { second <- reviewRequest(context.Background(), lines) }()
	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	cancel()
	w := <-first
	assert.Equal(t, 499, w.Code)

	release()
	w = <-second
	assert.Equal(t, http.StatusOK, w.Code)

	var response resp.Response
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "Shared.", response.Data.(map[string]interface{})["answer"])
	assert.Len(t, client.Requests(), before+1, "the second request joined the first review")
}
