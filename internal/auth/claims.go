package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"warimas-orderflow/internal/order"
	"warimas-orderflow/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrMissingUser  = errors.New("access token has no user_id")
)

// AccessTokenCookie is the cookie the storefront sets at login.
const AccessTokenCookie = "access_token"

// AccessToken returns the caller's raw access token. The cookie wins over
// the Authorization header, whose Bearer scheme matches in any case.
func AccessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v
		}
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Claims is what the coordinator needs out of an access token.
type Claims struct {
	UserID string
	Role   string
}

// ParseToken validates an HMAC-signed access token and extracts its claims.
// user_id may be encoded as a string or a number.
func ParseToken(secret []byte, tokenStr string) (Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	var c Claims
	switch uid := mc["user_id"].(type) {
	case string:
		c.UserID = uid
	case float64:
		c.UserID = strconv.FormatInt(int64(uid), 10)
	}
	if c.UserID == "" {
		return Claims{}, ErrMissingUser
	}
	c.Role, _ = mc["role"].(string)
	return c, nil
}

// RoleFromClaim maps the storefront's account role onto an order role.
// Unknown roles map to the purchaser role.
func RoleFromClaim(role string) order.Role {
	switch strings.ToUpper(role) {
	case "SELLER", "MERCHANT":
		return order.RoleMerchant
	case "ADMIN", "OPERATOR":
		return order.RoleOperator
	default:
		return order.RolePurchaser
	}
}

// ActorFromContext returns the authenticated caller set by the auth
// middleware.
func ActorFromContext(ctx context.Context) (order.Actor, bool) {
	id, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return order.Actor{}, false
	}
	role := utils.GetUserRoleFromContext(ctx)
	return order.Actor{ID: id, Role: RoleFromClaim(role)}, true
}
