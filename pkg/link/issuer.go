package link

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"liyu1981.xyz/printwatch-service/pkg/common"
)

const DefaultTTL = 24 * time.Hour

var (
	ErrInvalidToken  = errors.New("invalid or expired link")
	ErrLinksDisabled = errors.New("public links are disabled")
)

type Claims struct {
	PrinterID string `json:"printerId"`
	jwt.RegisteredClaims
}

// Issuer signs deep links to a printer's detail view. Without a secret it
// only hands out internal, login-protected links and rejects every token.
type Issuer struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

type Option func(*Issuer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secret, baseURL string, ttl time.Duration, opts ...Option) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	i := &Issuer{
		secret:  []byte(secret),
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Issuer) PublicEnabled() bool {
	return len(i.secret) > 0
}

// InternalURL is the authenticated detail view.
func (i *Issuer) InternalURL(printerID string) string {
	return fmt.Sprintf("%s/printers/%s/detail", i.baseURL, url.PathEscape(printerID))
}

// Issue returns the URL to embed in an alert for printerID.
func (i *Issuer) Issue(printerID string) (string, error) {
	if !i.PublicEnabled() {
		common.GetCoreLogger(common.LoggerCategoryLink).
			Warn("PUBLIC_LINK_SECRET not set, falling back to internal link", zap.String("printer_id", printerID))
		return i.InternalURL(printerID), nil
	}

	token, err := i.Sign(printerID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/printer-detail/%s?token=%s",
		i.baseURL, url.PathEscape(printerID), url.QueryEscape(token)), nil
}

// Sign creates the bare token. Expiry is rounded up to the next whole second
// so a token never expires before its TTL has elapsed.
func (i *Issuer) Sign(printerID string) (string, error) {
	if !i.PublicEnabled() {
		return "", ErrLinksDisabled
	}

	now := i.now()
	expires := now.Add(i.ttl)
	if truncated := expires.Truncate(time.Second); truncated.Before(expires) {
		expires = truncated.Add(time.Second)
	}

	claims := Claims{
		PrinterID: printerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify returns the printer id bound into token. Every failure other than
// disabled links is reported as ErrInvalidToken.
func (i *Issuer) Verify(token string) (string, error) {
	if !i.PublicEnabled() {
		return "", ErrLinksDisabled
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	if !claims.VerifyExpiresAt(i.now(), true) || claims.PrinterID == "" {
		return "", ErrInvalidToken
	}

	return claims.PrinterID, nil
}
