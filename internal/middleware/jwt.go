package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const actorKey = "actor"

// renewWindow is how close to expiry a token must be before a fresh one is
// returned in X-New-Token.
const renewWindow = 24 * time.Hour

// Tokens signs and verifies HS256 session tokens carrying the actor.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

type actorClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (t *Tokens) Issue(a model.Actor) (string, error) {
	now := t.now()
	claims := actorClaims{
		Name: a.Name,
		Role: a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Parse verifies the token and returns its actor and expiry.
func (t *Tokens) Parse(raw string) (model.Actor, time.Time, error) {
	var claims actorClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return model.Actor{}, time.Time{}, err
	}
	if !token.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return model.Actor{}, time.Time{}, errors.New("invalid token")
	}
	return model.Actor{ID: claims.Subject, Name: claims.Name, Role: claims.Role}, claims.ExpiresAt.Time, nil
}

// JWTAuth resolves the bearer token into the request actor.
func JWTAuth(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "ACTOR_REQUIRED", "error": "unauthorized"})
			return
		}
		actor, exp, err := tokens.Parse(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "ACTOR_REQUIRED", "error": "invalid token"})
			return
		}
		c.Set(actorKey, actor)

		if exp.Sub(tokens.now()) < renewWindow {
			if fresh, err := tokens.Issue(actor); err == nil {
				c.Header("X-New-Token", fresh)
			}
		}

		c.Next()
	}
}

// RequireReviewer rejects actors without the hr or admin role.
func RequireReviewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).IsReviewer() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "error": "hr or admin role required"})
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated actor, or the zero Actor when the
// request did not pass JWTAuth.
func ActorFrom(c *gin.Context) model.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(model.Actor); ok {
			return a
		}
	}
	return model.Actor{}
}
