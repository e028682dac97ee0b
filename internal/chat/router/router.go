package router

import (
	"marketplace_chat_service/internal/chat/app"
	"marketplace_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 註冊聊天服務的路由
// @title Marketplace Chat Service API
// @version 1.0
// @description Realtime buyer / seller chat over websocket
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func RegisterRoutes(
	r *fiber.App,
	chatWebsocket *app.ChatWebsocketHandler,
	chatHTTP *app.ChatHTTPHandler,
	resolver middlewares.IdentityResolver,
) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/healthz", chatHTTP.Health)
	r.Post("/debug", middlewares.JWTMiddleware(resolver), app.DebugLogFlag)

	chatRoutes := r.Group("/chat")
	chatRoutes.Use(middlewares.JWTMiddleware(resolver))

	chatRoutes.Get("/ws/:room_id", chatWebsocket.Upgrade, websocket.New(chatWebsocket.HandleConnection))
	chatRoutes.Get("/history/:room_id", chatHTTP.History)
	chatRoutes.Get("/unread/:user_id", chatHTTP.Unread)
}
