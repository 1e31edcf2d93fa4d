package identity

import (
	"context"
	"strings"
	"time"

	"github.com/doggopher/dogvault/internal/gwerror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// An Identity carries the verified claims of one request.
// It is created fresh per request and never persisted.
type Identity struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// DisplayName returns the best human readable identifier of the caller.
func (i *Identity) DisplayName() string {
	if i.Email != "" {
		return i.Email
	}
	return i.Subject
}

type (
	// A Verifier validates bearer tokens issued by the identity provider.
	// Verification failures are returned as 401 gwerror values carrying the
	// error kind as their tag. No token is ever trusted without signature
	// verification.
	Verifier interface {
		// Verify validates the given Authorization header value or bare token.
		Verify(ctx context.Context, raw string) (*Identity, error)
	}

	// VerifierParams is used to init a Verifier.
	VerifierParams struct {
		Resolver Resolver
		// Issuer is the expected `iss` claim, see Issuer().
		Issuer string
		// ClientID is the expected `aud` (or `client_id`) claim.
		ClientID string
		// Clock returns the current time. time.Now when nil.
		Clock func() time.Time
	}

	verifier struct {
		resolver Resolver
		issuer   string
		clientID string
		now      func() time.Time
		parser   *jwt.Parser
	}
)

// NewVerifier returns a new Verifier.
func NewVerifier(params VerifierParams) Verifier {
	if params.Clock == nil {
		params.Clock = time.Now
	}

	return &verifier{
		resolver: params.Resolver,
		issuer:   params.Issuer,
		clientID: params.ClientID,
		now:      params.Clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{AlgorithmRS256}),
			jwt.WithTimeFunc(params.Clock),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify validates the given Authorization header value or bare token.
func (v *verifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	token := stripBearer(raw)
	if token == "" {
		return nil, gwerror.Unauthorized(gwerror.TagNoToken, "No bearer token provided.")
	}

	// Structural checks before any network call: segment layout, key id and
	// expiry. An expired token is reported as such whatever its signature.
	claims := jwt.MapClaims{}
	unverified, _, err := v.parser.ParseUnverified(token, claims)
	if err != nil {
		return nil, gwerror.Unauthorized(gwerror.TagMalformedToken, "Could not parse token.")
	}

	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, gwerror.Unauthorized(gwerror.TagMalformedToken, "Token has no key id.")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, gwerror.Unauthorized(gwerror.TagMalformedToken, "Token has no expiry.")
	}
	if !exp.After(v.now()) {
		return nil, gwerror.Unauthorized(gwerror.TagExpired, "Token has expired.")
	}

	key, err := v.resolver.Resolve(ctx, kid)
	if err != nil {
		if errors.Cause(err) == ErrKeyNotFound {
			return nil, gwerror.Unauthorized(gwerror.TagKeyNotFound, "No signing key matches the token.")
		}
		// Raw provider errors are logged, never rendered to callers.
		logrus.WithError(err).Error("could not resolve signing keys")
		return nil, gwerror.Unauthorized(gwerror.TagKeyNotFound, "Could not resolve signing keys.")
	}

	public, err := key.PublicKey()
	if err != nil {
		logrus.WithError(err).Error("could not rebuild verification key")
		return nil, gwerror.Unauthorized(gwerror.TagKeyNotFound, "Could not resolve signing keys.")
	}

	verified, err := v.parser.Parse(token, func(*jwt.Token) (interface{}, error) {
		return public, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, gwerror.Unauthorized(gwerror.TagMalformedToken, "Could not parse token.")
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, gwerror.Unauthorized(gwerror.TagExpired, "Token has expired.")
		default:
			// Covers tampered signatures and any declared algorithm other
			// than RS256, `none` included.
			return nil, gwerror.Unauthorized(gwerror.TagSignatureInvalid, "Token signature could not be verified.")
		}
	}

	verifiedClaims, ok := verified.Claims.(jwt.MapClaims)
	if !ok {
		return nil, gwerror.Unauthorized(gwerror.TagMalformedToken, "Could not parse token claims.")
	}

	if iss, _ := verifiedClaims["iss"].(string); iss != v.issuer {
		return nil, gwerror.Unauthorized(gwerror.TagIssuerMismatch, "Token issuer is not trusted.")
	}
	if !v.audienceMatches(verifiedClaims) {
		return nil, gwerror.Unauthorized(gwerror.TagAudienceMismatch, "Token was not issued for this application.")
	}

	subject, _ := verifiedClaims["sub"].(string)
	if subject == "" {
		return nil, gwerror.Unauthorized(gwerror.TagMalformedToken, "Token has no subject.")
	}
	email, _ := verifiedClaims["email"].(string)

	return &Identity{
		Subject:   subject,
		Email:     email,
		ExpiresAt: exp.Time,
	}, nil
}

// audienceMatches checks `aud` and the provider's access-token `client_id`
// claim against the configured application identifier.
func (v *verifier) audienceMatches(claims jwt.MapClaims) bool {
	switch aud := claims["aud"].(type) {
	case string:
		if aud == v.clientID {
			return true
		}
	case []interface{}:
		for _, entry := range aud {
			if s, ok := entry.(string); ok && s == v.clientID {
				return true
			}
		}
	}

	clientID, _ := claims["client_id"].(string)
	return clientID == v.clientID
}

func stripBearer(authorization string) string {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return ""
	}

	parts := strings.SplitN(authorization, " ", 2)
	if strings.EqualFold(parts[0], "bearer") {
		if len(parts) == 2 {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if len(parts) == 2 {
		// Another authorization scheme.
		return ""
	}
	return parts[0]
}
