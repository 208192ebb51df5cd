package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mathvision/mdm/core/account"
)

// authMiddleware rejects requests without a valid, unrevoked token.
func authMiddleware(secret string, svc *account.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tokenStr := bearerToken(ctx.Request())
			if tokenStr == "" {
				return errUnauthorized
			}
			claims, err := ParseToken(secret, tokenStr)
			if err != nil || claims.UserID() == 0 {
				return errUnauthorized
			}
			revoked, err := svc.IsRevoked(ctx.Request().Context(), claims.ID)
			if err != nil {
				return errors.Wrap(err, "checking token revocation")
			}
			if revoked {
				return errUnauthorized
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func teacherMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if !claims.IsTeacher {
			return errTeacherRequired
		}
		return next(ctx)
	}
}

func studentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if !claims.IsStudent {
			return errStudentRequired
		}
		return next(ctx)
	}
}
