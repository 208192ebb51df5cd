package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/account"
	"github.com/mathvision/mdm/core/template"
)

var contextClaimsKey = "claims"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Account   string `json:"account,omitempty"`
	Name      string `json:"name,omitempty"`
	IsStudent bool   `json:"is_student,omitempty"`
	IsTeacher bool   `json:"is_teacher,omitempty"`
}

func newClaims(id int, acc, name string, lifetime time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
		Account: acc,
		Name:    name,
	}
}

func NewStudentClaims(s account.Student, lifetime time.Duration) *Claims {
	claims := newClaims(s.ID, s.Account, s.Name, lifetime)
	claims.IsStudent = true
	return claims
}

func NewTeacherClaims(t account.Teacher, lifetime time.Duration) *Claims {
	claims := newClaims(t.ID, t.Account, t.Name, lifetime)
	claims.IsTeacher = true
	return claims
}

// UserID is the id of the Student or Teacher the token was issued to.
func (c Claims) UserID() int {
	id, _ := strconv.Atoi(c.Subject)
	return id
}

func (c Claims) Role() string {
	if c.IsTeacher {
		return account.RoleTeacher
	}
	return account.RoleStudent
}

func (c Claims) Actor() core.Actor {
	return core.Actor{ID: c.Subject, Account: c.Account, Role: c.Role()}
}

func (c Claims) Caller() template.Caller {
	return template.Caller{ID: c.UserID(), Role: c.Role()}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(secret string, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// ParseToken verifies the signature and the expiry of tokenStr.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func bearerToken(req *http.Request) string {
	auth := req.Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}
