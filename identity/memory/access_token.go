package memory

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/sade-booster/users"
)

// accessClaims is the payload of directory access tokens
type accessClaims struct {
	Email          string `json:"email"`
	SessionVersion int    `json:"sv"`
	jwt.RegisteredClaims
}

func (d *Directory) issueAccessToken(u *users.User) (string, time.Time, error) {
	now := d.nowTime()
	expiry := now.Add(d.accessTokenTTL)
	claims := accessClaims{
		Email:          u.Email,
		SessionVersion: u.SessionVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    d.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("[Memory issueAccessToken] sign: %w", err)
	}
	return signed, expiry, nil
}

func (d *Directory) parseAccessToken(raw string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return d.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(d.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(d.nowTime),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
