package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core"
)

const (
	contextTokenKey    = "userToken"
	contextIdentityKey = "identity"
	tokenAudience      = "prox"
)

type (
	// Claims represents the authorization claims of the identity provider's access tokens.
	Claims struct {
		jwt.StandardClaims
		Name              string      `json:"name,omitempty"`
		PreferredUsername string      `json:"preferred_username,omitempty"`
		Email             string      `json:"email,omitempty"`
		RealmAccess       RealmAccess `json:"realm_access"`
	}

	RealmAccess struct {
		Roles []string `json:"roles,omitempty"`
	}
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.Auth.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Identity returns the user the claims were issued for.
func (c Claims) Identity() core.Identity {
	roles := make([]string, len(c.RealmAccess.Roles))
	copy(roles, c.RealmAccess.Roles)
	return core.Identity{
		ID:       c.Subject,
		FullName: c.Name,
		Username: c.PreferredUsername,
		Email:    c.Email,
		Roles:    roles,
	}
}

// GetIdentityClaims returns claims for `identity`, valid for `ttl`.
func GetIdentityClaims(identity core.Identity, conf *core.Config, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   identity.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:              identity.FullName,
		PreferredUsername: identity.Username,
		Email:             identity.Email,
		RealmAccess:       RealmAccess{Roles: identity.Roles},
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	jwtConf := newJWTConfig(conf)
	token := jwt.NewWithClaims(jwt.GetSigningMethod(jwtConf.SigningMethod), claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextIdentity(ctx echo.Context) (core.Identity, error) {
	if identity, ok := ctx.Get(contextIdentityKey).(core.Identity); ok {
		return identity, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Identity{}, err
	}
	identity := claims.Identity()
	ctx.Set(contextIdentityKey, identity)
	return identity, nil
}
