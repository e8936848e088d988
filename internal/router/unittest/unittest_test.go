package unittest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"refacto/internal/model"
	"refacto/internal/router"
	"refacto/internal/router/submission"
	"refacto/internal/router/unittest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var mock sqlmock.Sqlmock

func TestMain(m *testing.M) {
	// set default configuration values
	viper.SetDefault("allow-origins", []string{"*"})
	viper.SetDefault("runner.python", "/bin/sh")
	viper.SetDefault("runner.timeout", 2*time.Second)
	viper.SetDefault("timeout", 200*time.Millisecond)

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

	router.SetupAPIService(nil)

	os.Exit(m.Run())
}

// sums two numbers read from stdin
var adder = []string{"read a", "read b", "echo $((a + b))"}

func setMockReturn() {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `tasks`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "topic"}).
			AddRow(2, "adder", "add two numbers", "basics"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `input_output` WHERE task_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id"}).AddRow(1, 2).AddRow(2, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `input` WHERE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "input", "input_type", "input_output_id"}).
			AddRow(1, "3", "int", 1).AddRow(2, "4", "int", 1).
			AddRow(3, "10", "int", 2).AddRow(4, "5", "int", 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `output` WHERE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "output", "output_type", "input_output_id"}).
			AddRow(1, "7", "int", 1).AddRow(2, "16", "int", 2))
}

func testRequest(body submission.Body) (int, unittest.TestResult) {
	setMockReturn()

	data, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/tasks/2/test", bytes.NewReader(data))
	router.Router.ServeHTTP(w, req)

	var response struct {
		Data unittest.TestResult `json:"data"`
		Msg  string              `json:"message"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)

	return w.Code, response.Data
}

func TestTestCases(t *testing.T) {
	code, result := testRequest(submission.Body{Lines: adder})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)

	assert.True(t, result.Cases[0].Passed)
	assert.Equal(t, "7", result.Cases[0].Actual)

	assert.False(t, result.Cases[1].Passed)
	assert.Equal(t, "16", result.Cases[1].Expected)
	assert.Equal(t, "15", result.Cases[1].Actual)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailingSubmission(t *testing.T) {
	code, result := testRequest(submission.Body{Lines: []string{"echo broken >&2", "exit 1"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, result.Passed)
	for _, c := range result.Cases {
		assert.False(t, c.Passed)
		assert.Equal(t, "Error: broken", c.Actual)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsupportedLanguage(t *testing.T) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `tasks`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "adder"))

	data, _ := json.Marshal(submission.Body{Lines: adder, Language: "cobol"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/tasks/2/test", bytes.NewReader(data))
	router.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
