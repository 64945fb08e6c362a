package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/krodrigz/matricula/core"
	"github.com/krodrigz/matricula/core/admission"
)

// claimsContextKey is where the JWT middleware stashes the parsed token.
const claimsContextKey = "actorToken"

// Claims represents the authorization claims transmitted via a JWT. Tokens are
// issued by the school's identity provider, which shares the signing key; this
// API only verifies them.
type Claims struct {
	jwt.StandardClaims
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    claimsContextKey,
		Claims:        new(Claims),
	}
}

// GetActorClaims builds the claims the identity provider would mint for actor;
// used by the admin CLI and tests.
func GetActorClaims(conf *core.Config, actor admission.Actor) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   actor.ID,
			Audience:  "Matricula",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  actor.Name,
		Email: actor.Email,
		Roles: actor.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(claimsContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextActor(ctx echo.Context) (admission.Actor, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return admission.Actor{}, err
	}
	return admission.Actor{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
		Roles: claims.Roles,
	}, nil
}
