package http

import (
	"github.com/gin-gonic/gin"

	"medassist/internal/bootstrap"
	"medassist/internal/transport/http/handler"
	"medassist/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	voices := handler.VoiceConfig{
		Default: app.Config.Speech.DefaultVoice,
		Hindi:   app.Config.Speech.HindiVoice,
	}
	askHandler := handler.NewAskHandler(app.Sessions, app.Answers, app.Translator, app.Prober, app.CloudTTS, app.LocalTTS, voices)
	fileHandler := handler.NewFileHandler(app.Sessions, app.Answers, app.Translator, app.Prober, app.CloudOCR, app.LocalOCR, app.CloudTTS, app.LocalTTS, voices)
	transcribeHandler := handler.NewTranscribeHandler(app.Sessions, app.Answers, app.Translator, app.Prober, app.Converter, app.CloudSTT, app.LocalSTT, app.Speaker, voices)
	sessionHandler := handler.NewSessionHandler(app.Sessions)

	v1 := router.Group("/api/v1")
	if app.Config.Auth.Enabled {
		v1.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	}

	v1.POST("/ask", askHandler.Ask)
	v1.POST("/ask_with_file", fileHandler.AskWithFile)
	v1.POST("/transcribe", transcribeHandler.Transcribe)

	v1.POST("/sessions", sessionHandler.Create)
	v1.GET("/sessions", sessionHandler.List)
	v1.DELETE("/sessions/:id", sessionHandler.Delete)

	v1.GET("/history/:id", sessionHandler.History)
	v1.GET("/history/:id/export", sessionHandler.Export)

	return router
}
