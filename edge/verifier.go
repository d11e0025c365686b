package edge

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeauxdejuan/seen/models"
	"github.com/yeauxdejuan/seen/token"
)

const principalKey = "principal"

// RolePrefix marks role-derived authorities on the principal
const RolePrefix = "ROLE_"

// Verifier derives a request principal from a bearer token using the
// codec alone, with no store access. Stateless per request.
type Verifier struct {
	codec *token.Codec
}

func NewVerifier(codec *token.Codec) *Verifier {
	return &Verifier{codec: codec}
}

// Middleware parses the Authorization header if one is present. An
// invalid token is not an error here: the request simply continues
// without a principal and the surrounding authorization decision denies
// it downstream.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearer(c.Request)
		if raw == "" {
			c.Next()
			return
		}

		cred, err := v.codec.Parse(raw)
		if err != nil {
			slog.Debug("edge rejected bearer token", "reason", err)
			c.Next()
			return
		}

		authorities := make([]string, 0, len(cred.Roles))
		for _, role := range cred.Roles {
			authorities = append(authorities, RolePrefix+role)
		}

		c.Set(principalKey, models.Principal{
			Subject:     cred.Subject,
			Email:       cred.Email,
			Authorities: authorities,
		})
		c.Next()
	}
}

// RequireAuth is the deny half of the edge decision: without a principal
// the request ends here with 401
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(principalKey); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Please login first"})
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal the verifier attached, if any
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	val, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	principal, ok := val.(models.Principal)
	return principal, ok
}

// extractBearer pulls the token out of the Authorization header, with
// or without a scheme prefix, tolerating extra whitespace around either
func extractBearer(r *http.Request) string {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
