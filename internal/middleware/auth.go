// Package middleware holds the JWT verification layer. Tokens are issued by
// the external identity provider; this service only verifies them and reads
// the claims it needs.
package middleware

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"delivery-and-compliance/internal/models"
)

// JWT returns the echo middleware enforcing a valid bearer token on the
// protected route groups.
func JWT(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
	})
}

func claims(c echo.Context) jwt.MapClaims {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	return mc
}

func claimString(c echo.Context, key string) string {
	mc := claims(c)
	if mc == nil {
		return ""
	}
	s, _ := mc[key].(string)
	return s
}

// UserID returns the subject claim of the verified token.
func UserID(c echo.Context) string {
	return claimString(c, "sub")
}

// Email returns the email claim, used for order confirmations.
func Email(c echo.Context) string {
	return claimString(c, "email")
}

// UserType returns the user's limit class. Tokens without the claim are
// treated as recreational, the stricter limit table.
func UserType(c echo.Context) string {
	if t := claimString(c, "user_type"); t == models.UserTypeMedical {
		return models.UserTypeMedical
	}
	return models.UserTypeRecreational
}
