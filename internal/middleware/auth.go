package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"crm-pipeline-api/internal/response"
)

// Context keys set by Auth
const (
	ContextSubject = "subject"
	ContextToken   = "jwtToken"
)

// Auth returns a middleware that validates HMAC-signed JWT bearer tokens.
// An empty secret disables authentication.
func Auth(jwtSecret string) gin.HandlerFunc {
	if jwtSecret == "" {
		return func(c *gin.Context) { c.Next() }
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "Invalid authorization header format")
			return
		}
		tokenString := parts[1]

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "Invalid or expired token")
			return
		}

		// "sub" is standard; "user_id" and "uid" are accepted from older issuers
		var subject string
		for _, key := range []string{"sub", "user_id", "uid"} {
			if v, ok := claims[key].(string); ok && v != "" {
				subject = v
				break
			}
		}
		if subject == "" {
			unauthorized(c, "Subject not found in token")
			return
		}

		c.Set(ContextSubject, subject)
		c.Set(ContextToken, tokenString)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, message)
	c.Abort()
}
