/*
auth.go - JWT authentication and actor resolution

PURPOSE:
  Parses the bearer token, then resolves the acting identity into a
  leave.Actor by looking up the membership for (user, organization). The
  ROLE ALWAYS COMES FROM THE MEMBERSHIP, never from the token: a stale or
  tampered role claim cannot grant anything, and a user holding different
  roles in different organizations acts under the role of the organization
  named by the request.

TOKEN CLAIMS:
  sub   user id (required)
  org   organization id the client acts within (required)

  Tokens are HMAC-signed (HS256). Key rotation and issuance are outside
  this service.

FAILURE MODES:
  401  missing/invalid token
  403  the user has no active membership in the named organization

SEE ALSO:
  - handlers.go: reads the Actor from the request context
  - cmd/leaved: provides the signing secret via --jwt-secret / JWT_SECRET
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/leave"
)

// ContextKey type for context keys.
type ContextKey string

const actorContextKey ContextKey = "actor"

// Authenticator resolves bearer tokens into actors.
type Authenticator struct {
	Secret      []byte
	Memberships leave.MembershipStore
	Logger      *zap.Logger
}

// Middleware authenticates the request and stores the resolved Actor in the
// request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "missing token", nil)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.Secret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token", nil)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token claims", nil)
			return
		}
		userID, _ := claims["sub"].(string)
		orgID, _ := claims["org"].(string)
		if userID == "" || orgID == "" {
			writeError(w, http.StatusUnauthorized, "token missing sub or org claim", nil)
			return
		}

		m, err := a.Memberships.GetMembership(r.Context(), userID, orgID)
		if err != nil {
			a.Logger.Error("membership lookup failed",
				zap.String("user_id", userID),
				zap.String("org_id", orgID),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error", nil)
			return
		}
		if m == nil || !m.IsActive {
			writeError(w, http.StatusForbidden, "no active membership in this organization", nil)
			return
		}

		actor := leave.Actor{
			UserID: m.UserID,
			OrgID:  m.OrgID,
			Role:   m.Role,
			TeamID: m.TeamID,
		}
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), actorContextKey, actor)))
	})
}

// ActorFrom returns the authenticated actor from the request context.
// The zero Actor means the middleware did not run.
func ActorFrom(r *http.Request) leave.Actor {
	if a, ok := r.Context().Value(actorContextKey).(leave.Actor); ok {
		return a
	}
	return leave.Actor{}
}

// RequireRole allows the request through only when the actor's membership
// role is one of the given roles. Must be used after Middleware.
func RequireRole(roles ...leave.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFrom(r)
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient role", nil)
		})
	}
}
