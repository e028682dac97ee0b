package middlewares

import (
	"context"

	"marketplace_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"
	//QueryTokenLegacy older clients send ?token=
	QueryTokenLegacy = "token"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
)

// IdentityResolver turn a raw token into a member id
type IdentityResolver interface {
	Resolve(ctx context.Context, rawToken string) (string, error)
}

// ExtractToken query auth -> query token -> cookie -> Authorization Bearer
func ExtractToken(c *fiber.Ctx) string {
	if tokenStr := c.Query(QueryToken); tokenStr != "" {
		return tokenStr
	}
	if tokenStr := c.Query(QueryTokenLegacy); tokenStr != "" {
		return tokenStr
	}
	if tokenStr := c.Cookies(CookieToken); tokenStr != "" {
		return tokenStr
	}
	return token.FromBearer(c.Get(fiber.HeaderAuthorization))
}

// JWTMiddleware validates the token and sets the member id in locals
func JWTMiddleware(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := ExtractToken(c)

		// 沒有 token，返回未授權錯誤
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		memberID, err := resolver.Resolve(c.UserContext(), tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenMemberID, memberID)
		return c.Next()
	}
}

// MemberID read the member id set by JWTMiddleware
func MemberID(c *fiber.Ctx) string {
	id, _ := c.Locals(TokenMemberID).(string)
	return id
}
