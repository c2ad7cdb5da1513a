package endpoints

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nixie-Tech-LLC/adcast/internal/http/api"
	"github.com/Nixie-Tech-LLC/adcast/internal/http/api/auth/packets"
	"github.com/Nixie-Tech-LLC/adcast/internal/http/middleware"
)

type TokenIssuer struct {
	jwtSecret string
	keyHash   []byte
	ttl       time.Duration
	now       func() time.Time
}

// AuthModule mounts POST /auth/token, which trades the operator key for an admin JWT.
// With no key hash configured the endpoint refuses every request.
func AuthModule(jwtSecret, operatorKeyHash string, ttl time.Duration) api.Module {
	ctl := &TokenIssuer{jwtSecret: jwtSecret, keyHash: []byte(operatorKeyHash), ttl: ttl, now: time.Now}
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/auth/token", ctl.issueToken)
	})
}

// HashOperatorKey produces the value to configure as OPERATOR_KEY_HASH.
func HashOperatorKey(key string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(hashed), err
}

// POST /api/admin/auth/token
func (a *TokenIssuer) issueToken(ctx *gin.Context) (any, *api.APIError) {
	var request packets.TokenRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	if len(a.keyHash) == 0 {
		return nil, &api.APIError{Code: http.StatusServiceUnavailable, Message: "token issuance is not configured"}
	}
	if err := bcrypt.CompareHashAndPassword(a.keyHash, []byte(request.Key)); err != nil {
		log.Warn().Str("operator", request.Operator).Str("client_ip", ctx.ClientIP()).Msg("rejected operator key")
		return nil, &api.APIError{Code: http.StatusUnauthorized, Message: "invalid operator key"}
	}

	token, err := middleware.GenerateJWT(request.Operator, a.jwtSecret, a.ttl)
	if err != nil {
		log.Error().Err(err).Str("operator", request.Operator).Msg("could not sign token")
		return nil, api.Internal("something went wrong, please try again")
	}

	log.Info().Str("operator", request.Operator).Msg("admin token issued")
	return packets.TokenResponse{
		Token:     token,
		ExpiresAt: a.now().Add(a.ttl).UTC().Format(time.RFC3339),
	}, nil
}
