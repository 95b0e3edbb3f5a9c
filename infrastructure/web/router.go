// Package web exposes the messaging core over HTTP: a JSON API for commands
// and queries, a server-sent event stream for live delivery.
package web

import (
	"github.com/kataras/iris/v12"

	"courier/auth"
)

// NewRouter wires all routes. Register and login are public; everything else
// sits behind the bearer-token middleware.
func NewRouter(authHandler *AuthHandler, messageHandler *MessageHandler,
	issuer *auth.TokenIssuer) *iris.Application {
	app := iris.New()

	api := app.Party("/api")

	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	authed := api.Party("/")
	authed.Use(RequireAuth(issuer))

	authed.Post("/auth/logout", authHandler.Logout)
	authed.Post("/messages", messageHandler.Post)
	authed.Get("/messages", messageHandler.Recent)
	authed.Get("/messages/{user}", messageHandler.Transcript)
	authed.Get("/users", messageHandler.Peers)
	authed.Get("/search", messageHandler.Search)
	authed.Get("/stats", messageHandler.Stats)
	authed.Get("/events", messageHandler.Events)

	return app
}
