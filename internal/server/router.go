package server

import (
	"github.com/gin-gonic/gin"

	"hillshield/internal/ai"
	"hillshield/internal/auth"
	"hillshield/internal/handler"
	"hillshield/internal/mesh"
	"hillshield/internal/middleware"
	"hillshield/internal/store"
)

type Deps struct {
	Store       *store.Store
	Monitor     *mesh.Monitor
	Transport   mesh.Transport
	AI          *ai.Client
	TokenConfig auth.TokenConfig
	Limiter     *middleware.RateLimiter
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	authHandler := &handler.AuthHandler{Store: deps.Store, TokenConfig: deps.TokenConfig, Limiter: deps.Limiter}

	r.POST("/v1/auth/signup", authHandler.SignUp)
	r.POST("/v1/auth/login", authHandler.Login)

	protected := r.Group("/v1")
	protected.Use(middleware.RequireAuth(deps.TokenConfig))
	protected.POST("/auth/logout", authHandler.Logout)

	accountHandler := &handler.AccountHandler{Store: deps.Store}
	protected.GET("/account", accountHandler.Get)
	protected.PATCH("/account", accountHandler.Update)

	chatHandler := &handler.ChatHandler{Store: deps.Store, Monitor: deps.Monitor, Transport: deps.Transport}
	protected.GET("/conversations/:id/messages", chatHandler.List)
	protected.POST("/conversations/:id/messages", chatHandler.Send)

	alertHandler := &handler.AlertHandler{Store: deps.Store, AI: deps.AI}
	protected.POST("/alerts", alertHandler.Raise)
	protected.GET("/alerts", alertHandler.List)
	protected.POST("/alerts/:id/resolve", alertHandler.Resolve)

	doctorHandler := &handler.DoctorHandler{AI: deps.AI}
	protected.POST("/doctor/advice", doctorHandler.Advice)
	protected.POST("/doctor/mental", doctorHandler.MentalSupport)
	protected.POST("/doctor/medicine", doctorHandler.IdentifyMedicine)
	protected.POST("/voice/interpret", doctorHandler.InterpretVoice)
	protected.GET("/mesh/reliability", doctorHandler.Reliability)

	meshHandler := &handler.MeshHandler{Monitor: deps.Monitor}
	r.GET("/v1/mesh/status", meshHandler.Status)
	protected.PUT("/mesh/status", meshHandler.SetStatus)

	refHandler := &handler.ReferenceHandler{}
	r.GET("/v1/shelters", refHandler.Shelters)
	r.GET("/v1/broadcasts", refHandler.Broadcasts)
	r.GET("/v1/firstaid", refHandler.FirstAid)

	syncHandler := &handler.SyncHandler{Store: deps.Store, Monitor: deps.Monitor, TokenConfig: deps.TokenConfig}
	r.GET("/ws", syncHandler.Serve)

	return r
}
