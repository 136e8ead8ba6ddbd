package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"PinguinGuard/apperrors"
	"PinguinGuard/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const sessionKey = "session"

// TokenVerifier turns a bearer token into the caller's session.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (models.Session, error)
}

// Claims is the payload of tokens signed by the account service.
type Claims struct {
	FirebaseUID string `json:"firebase_uid"`
	UserType    string `json:"user_type"`
	ParentUID   string `json:"parent_uid,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 tokens signed with Secret.
type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Verify(_ context.Context, tokenString string) (models.Session, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Session{}, err
	}
	if claims.FirebaseUID == "" {
		return models.Session{}, errors.New("invalid token: missing firebase_uid")
	}

	session := models.Session{UserID: claims.FirebaseUID, UserType: claims.UserType}
	switch claims.UserType {
	case models.UserTypeParent:
		session.ParentID = claims.FirebaseUID
	case models.UserTypeChild:
		session.ParentID = claims.ParentUID
	default:
		return models.Session{}, errors.New("invalid token: missing user_type")
	}
	return session, nil
}

func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if authHeader == "" {
			// Websocket handshakes from browsers carry the token in the query.
			tokenString = c.Query("access_token")
			ok = true
		}
		if !ok || tokenString == "" {
			abortUnauthorized(c, "unauthorized")
			return
		}

		session, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(sessionKey, session)
		c.Set("firebase_uid", session.UserID)
		c.Set("user_type", session.UserType)
		c.Next()
	}
}

// SessionFrom returns the session stored by AuthMiddleware.
func SessionFrom(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return models.Session{}, false
	}
	session, ok := v.(models.Session)
	return session, ok
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": apperrors.CodeUnauthorized})
}
