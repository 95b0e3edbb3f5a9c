package web

import (
	"strings"

	"github.com/kataras/iris/v12"

	"courier/auth"
)

const (
	userIDKey   = "user_id"
	userNameKey = "user_name"
)

// RequireAuth validates the bearer token and injects the caller's identity
// into the request values for downstream handlers.
func RequireAuth(issuer *auth.TokenIssuer) iris.Handler {
	return func(ctx iris.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" {
			ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{"error": "authorization token is missing"})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := issuer.Validate(tokenStr)
		if err != nil {
			ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{"error": "invalid or expired token"})
			return
		}

		ctx.Values().Set(userIDKey, claims.UserID)
		ctx.Values().Set(userNameKey, claims.Name)
		ctx.Next()
	}
}

func callerID(ctx iris.Context) string {
	return ctx.Values().GetString(userIDKey)
}
