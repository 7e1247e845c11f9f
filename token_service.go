package grants

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	cfg    *Config
	logger Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg *Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		cfg:    cfg,
		logger: logger,
	}
}

// Issue mints a signed token of the given kind. The registered claims are
// stamped here: issuer, audience, and the [issuedAt, issuedAt+expiration)
// validity window come from the kind configuration, and a fresh jti is
// always attached. Caller-provided claims carry uid, roles, and the
// optional secure-status window.
func (ts *TokenServiceImpl) Issue(kind TokenKind, claims *GrantClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	kc, err := ts.cfg.GetKindConfig(kind)
	if err != nil {
		return "", err
	}

	now := time.Now()

	var aud jwt.ClaimStrings
	if len(kc.Audience) > 0 {
		aud = make(jwt.ClaimStrings, len(kc.Audience))
		copy(aud, kc.Audience)
	}

	claims.Kind = kind
	claims.RegisteredClaims.Issuer = kc.Issuer
	claims.RegisteredClaims.Subject = claims.UID
	claims.RegisteredClaims.Audience = aud
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(time.Duration(kc.Expiration) * time.Second))

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.cfg.GetSigningKey())
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signedString, nil
}

// Verify parses and validates a token string against the given kind's
// configuration, returning structured claims. Verification fails closed:
// expired, malformed, mis-signed, or wrong-kind tokens never resolve.
func (ts *TokenServiceImpl) Verify(kind TokenKind, raw string) (*GrantClaims, error) {
	kc, err := ts.cfg.GetKindConfig(kind)
	if err != nil {
		return nil, err
	}

	parserOptions := make([]jwt.ParserOption, 0, 2)
	if kc.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(kc.Issuer))
	}
	if len(kc.Audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(kc.Audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &GrantClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.cfg.GetSigningKey(), nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrTokenSignatureInvalid
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*GrantClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService verify could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	if claims.Kind != kind {
		return nil, ErrTokenWrongKind.Clone().WithMetadata(map[string]any{
			"expected": string(kind),
			"actual":   string(claims.Kind),
		})
	}

	return claims, nil
}

// Expiration returns the configured whole-seconds expiration for a kind.
// Callers use it to compute user-facing durations.
func (ts *TokenServiceImpl) Expiration(kind TokenKind) (int, error) {
	kc, err := ts.cfg.GetKindConfig(kind)
	if err != nil {
		return 0, err
	}
	return kc.Expiration, nil
}
