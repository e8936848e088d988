package router

import (
	"fmt"
	"net/http"
	"refacto/internal/agent"
	"refacto/internal/router/chat"
	"refacto/internal/router/playground"
	"refacto/internal/router/resp"
	"refacto/internal/router/submission"
	"refacto/internal/router/task"
	"refacto/internal/router/unittest"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
)

var Router *gin.Engine

func Run() error {
	hostname := viper.GetString("hostname")
	port := viper.GetInt("port")
	return Router.Run(fmt.Sprintf("%s:%v", hostname, port))
}

func setupRouter() {
	Router = gin.New()
	Router.Use(RequestLogger(), gin.Recovery())
	Router.Use(cors.New(cors.Config{
		AllowOrigins:  viper.GetStringSlice("allow-origins"),
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Secret"},
		ExposeHeaders: []string{RequestIDHeader},
	}))

	Router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	Router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	Router.NoRoute(func(c *gin.Context) {
		resp.Error(c, http.StatusNotFound, "route not found")
	})
}

// SetupAPIService registers the task, review and chat endpoints. a may be
// nil, in which case the endpoints that need the model answer 503.
func SetupAPIService(a *agent.Agent) {
	setupRouter()

	t := Router.Group("/tasks")
	{
		t.GET("", task.List)
		t.GET("/topic/:topic", task.ListByTopic)
		t.GET("/:task_id", task.Get)
		t.DELETE("/:task_id", task.Delete)
		t.GET("/:task_id/cases", task.Cases)
		t.POST("/:task_id/run", submission.Run)
		t.POST("/:task_id/manual_quality_checker", submission.ManualQualityChecker)
		t.POST("/:task_id/ai_checker", submission.AIChecker(a))
		t.POST("/:task_id/test", unittest.ExecuteTest)
	}

	ch := Router.Group("/chat")
	{
		ch.POST("", chat.Chat(a))
		ch.GET("/ws", chat.Connect(a))
		ch.GET("/history", chat.History(a))
		ch.DELETE("/history", chat.ClearHistory(a))
	}
}

func SetupPlayground() {
	setupRouter()

	pg := Router.Group("/playground")
	{
		pg.POST("/lint", playground.Lint)
		pg.POST("/:language", playground.Run)
	}
}
