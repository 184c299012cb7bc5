package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"admissions_backend/internals/constants"
	helperAuth "admissions_backend/internals/helpers/auth"
	"admissions_backend/internals/helpers/apperr"
)

type AuthJWTOpts struct {
	Secret              string
	BlacklistChecker    func(ctx context.Context, rawToken string) (bool, error) // true when revoked
	AllowCookieFallback bool                                                    // use the access_token cookie when there is no Bearer header
	Log                 *zap.Logger
}

// AuthJWT verifies an HS256 token and hydrates user_id, email and role
// locals for helperAuth.ActorFromCtx.
func AuthJWT(o AuthJWTOpts) fiber.Handler {
	secret := strings.TrimSpace(o.Secret)
	if secret == "" {
		panic("AuthJWT: Secret is required")
	}
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		// 1) Bearer header, or the cookie when allowed
		raw := ""
		if authz := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			raw = strings.TrimSpace(authz[7:])
		} else if o.AllowCookieFallback {
			raw = strings.TrimSpace(c.Cookies("access_token"))
		}
		if raw == "" {
			return apperr.New(apperr.ErrUnauthorized, "missing bearer token")
		}

		// 2) blacklist
		if o.BlacklistChecker != nil {
			black, err := o.BlacklistChecker(c.UserContext(), raw)
			if err != nil {
				log.Warn("token blacklist lookup failed", zap.Error(err))
			} else if black {
				return apperr.New(apperr.ErrUnauthorized, "token revoked")
			}
		}

		// 3) parse and pin the algorithm family
		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, apperr.New(apperr.ErrUnauthorized, "invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			return apperr.New(apperr.ErrUnauthorized, "invalid token")
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			return apperr.New(apperr.ErrUnauthorized, "invalid token claims")
		}
		c.Locals("jwt_claims", claims)

		// user_id: id, sub or user_id in that order
		switch {
		case strClaim(claims, "id") != "":
			c.Locals(helperAuth.LocUserID, strClaim(claims, "id"))
		case strClaim(claims, "sub") != "":
			c.Locals(helperAuth.LocUserID, strClaim(claims, "sub"))
		case strClaim(claims, "user_id") != "":
			c.Locals(helperAuth.LocUserID, strClaim(claims, "user_id"))
		}
		if email := strClaim(claims, "email"); email != "" {
			c.Locals(helperAuth.LocEmail, strings.ToLower(email))
		}
		c.Locals(helperAuth.LocRole, roleFromClaims(claims))

		return c.Next()
	}
}

// roleFromClaims prefers a single "role" claim, then the strongest entry of
// "roles", then applicant.
func roleFromClaims(claims jwt.MapClaims) string {
	if r := strings.ToLower(strClaim(claims, "role")); r != "" {
		return r
	}
	roles := readStringSlice(claims["roles"])
	for _, wanted := range []string{constants.RoleAdmin, constants.RoleStaff} {
		for _, r := range roles {
			if strings.EqualFold(r, wanted) {
				return wanted
			}
		}
	}
	return constants.RoleApplicant
}

func strClaim(m jwt.MapClaims, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func readStringSlice(v any) []string {
	out := make([]string, 0)
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, it := range t {
			if s, ok := it.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
