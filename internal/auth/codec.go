package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedRecord marks a persisted record that cannot be turned back
// into a valid User.
var ErrMalformedRecord = errors.New("malformed session record")

// Codec converts the session user to and from its persisted form.
type Codec interface {
	Encode(user User) ([]byte, error)
	Decode(data []byte) (*User, error)
}

// JSONCodec stores the user as plain JSON.
type JSONCodec struct{}

func (JSONCodec) Encode(user User) ([]byte, error) {
	return json.Marshal(user)
}

func (JSONCodec) Decode(data []byte) (*User, error) {
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return &user, nil
}

const sessionIssuer = "patient-office"

type sessionClaims struct {
	jwt.RegisteredClaims
	User User `json:"user"`
}

// JWTCodec stores the user inside an HS256-signed token so a tampered
// record is rejected on restore.
type JWTCodec struct {
	secret []byte
	now    func() time.Time
}

// NewJWTCodec creates a codec signing with secret.
func NewJWTCodec(secret string) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("jwt codec requires a secret")
	}
	return &JWTCodec{secret: []byte(secret), now: time.Now}, nil
}

func (c *JWTCodec) Encode(user User) ([]byte, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   sessionIssuer,
			Subject:  user.ID.String(),
			IssuedAt: jwt.NewNumericDate(c.now()),
		},
		User: user,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}
	return []byte(signed), nil
}

func (c *JWTCodec) Decode(data []byte) (*User, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(string(data), claims,
		func(token *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if claims.Subject != claims.User.ID.String() {
		return nil, fmt.Errorf("%w: subject does not match user", ErrMalformedRecord)
	}
	if err := claims.User.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return &claims.User, nil
}
