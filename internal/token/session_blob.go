// Package token implements the signed composite session blob written to the
// sb-session cookie. The blob is an HS256 JWT carrying the token pair and
// expiry; it is a last-known-good cache of the real session, never a
// substitute for the expiry check itself.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/theceo1/trustbank-gateway/internal/models"
)

// Codec encodes sessions into signed cookie blobs and back.
type Codec interface {
	// Encode signs the session into a compact blob.
	Encode(session *models.Session) (string, error)
	// Decode verifies a blob's signature and returns the session it
	// carries. Expired blobs decode successfully; validity is the
	// caller's check.
	Decode(blob string) (*models.Session, error)
}

// blobClaims is the JWT claim set carried by the session cookie.
type blobClaims struct {
	jwt.RegisteredClaims

	AccessToken  string `json:"act"`
	RefreshToken string `json:"rft"`
}

// BlobCodec is the HS256 implementation of Codec.
type BlobCodec struct {
	secret []byte
}

// NewBlobCodec creates a codec signing with the given secret.
func NewBlobCodec(secret string) *BlobCodec {
	return &BlobCodec{secret: []byte(secret)}
}

// Encode signs the session into a compact blob.
func (c *BlobCodec) Encode(session *models.Session) (string, error) {
	if session == nil {
		return "", errors.New("cannot encode nil session")
	}

	claims := blobClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Unix(session.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(session.ExpiresAt, 0)),
		},
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	}

	blob, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session blob: %w", err)
	}
	return blob, nil
}

// Decode verifies a blob's signature and returns the session it carries.
func (c *BlobCodec) Decode(blob string) (*models.Session, error) {
	claims := &blobClaims{}

	parsed, err := jwt.ParseWithClaims(blob, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("failed to parse session blob: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid session blob signature")
	}

	session := &models.Session{
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
		UserID:       claims.Subject,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Unix()
	}

	return session, nil
}
