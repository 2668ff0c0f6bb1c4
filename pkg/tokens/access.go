package tokens

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

// AccessClaims is the payload of the accessToken cookie issued by the auth
// service. Subject carries the numeric user id.
type AccessClaims struct {
	Role  string `json:"role"`
	Guest bool   `json:"guest,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns 0 when the subject is missing or not a number.
func (c *AccessClaims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func AccessClaimsFromToken(tokenStr string, accessSecret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return accessSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &claims, nil
}

func SignAccess(userID int64, role string, guest bool, ttl time.Duration, accessSecret []byte) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Role:  role,
		Guest: guest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(accessSecret)
}
