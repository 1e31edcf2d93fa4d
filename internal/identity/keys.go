package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrKeyNotFound is returned when a key id is absent from the provider's
// key set even after a refresh.
var ErrKeyNotFound = errors.New("signing key not found")

// AlgorithmRS256 is the only signature algorithm accepted by the gateway.
const AlgorithmRS256 = "RS256"

// DefaultKeyTTL is how long a fetched key set is trusted before the next
// resolution triggers a refresh.
const DefaultKeyTTL = 1 * time.Hour

// A SigningKey is one RSA public key from the provider's JWKS document.
// It is immutable once fetched, a refresh replaces the whole set.
type SigningKey struct {
	KeyID     string
	Algorithm string
	Modulus   []byte
	Exponent  []byte
}

// PublicKey rebuilds the RSA verification key from the modulus/exponent pair.
func (k *SigningKey) PublicKey() (*rsa.PublicKey, error) {
	if len(k.Modulus) == 0 || len(k.Exponent) == 0 {
		return nil, errors.New("signing key has an empty modulus or exponent")
	}

	e := new(big.Int).SetBytes(k.Exponent)
	if !e.IsInt64() || e.Int64() <= 0 {
		return nil, errors.New("signing key has an invalid exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(k.Modulus),
		E: int(e.Int64()),
	}, nil
}

type (
	// A Resolver fetches and caches the identity provider's public signing keys.
	Resolver interface {
		// Resolve returns the signing key for the given key id.
		// A cache miss triggers exactly one refetch (key rotation) before
		// returning ErrKeyNotFound.
		Resolve(ctx context.Context, kid string) (*SigningKey, error)
	}

	// ResolverParams is used to init a Resolver.
	ResolverParams struct {
		// Endpoint is the JWKS document URL.
		Endpoint string
		// Client used for outbound calls. A bounded-timeout default is used when nil.
		Client *http.Client
		// TTL before a cached key set is refetched. DefaultKeyTTL when zero.
		TTL time.Duration
		// Clock returns the current time. time.Now when nil.
		Clock func() time.Time
	}

	resolver struct {
		endpoint string
		client   *http.Client
		ttl      time.Duration
		now      func() time.Time

		mu        sync.RWMutex
		keys      map[string]*SigningKey
		fetchedAt time.Time
	}
)

// NewResolver returns a new Resolver.
func NewResolver(params ResolverParams) Resolver {
	if params.Client == nil {
		params.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if params.TTL == 0 {
		params.TTL = DefaultKeyTTL
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}

	return &resolver{
		endpoint: params.Endpoint,
		client:   params.Client,
		ttl:      params.TTL,
		now:      params.Clock,
	}
}

// Resolve returns the signing key for the given key id.
func (r *resolver) Resolve(ctx context.Context, kid string) (*SigningKey, error) {
	r.mu.RLock()
	key, ok := r.keys[kid]
	stale := r.fetchedAt.IsZero() || r.now().After(r.fetchedAt.Add(r.ttl))
	r.mu.RUnlock()

	if ok && !stale {
		return key, nil
	}

	if err := r.refresh(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	key, ok = r.keys[kid]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// refresh replaces the cached key set wholesale so concurrent readers never
// observe a partial set.
func (r *resolver) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "could not build key set request")
	}
	req.Header.Add("Accept", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not fetch key set")
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return errors.Errorf("could not fetch key set: status %d", res.StatusCode)
	}

	var document struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			Alg string `json:"alg"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err = json.NewDecoder(res.Body).Decode(&document); err != nil {
		return errors.Wrap(err, "could not parse key set")
	}
	if len(document.Keys) == 0 {
		return errors.New("key set document contains no keys")
	}

	keys := make(map[string]*SigningKey, len(document.Keys))
	for _, k := range document.Keys {
		if k.Kty != "RSA" {
			continue
		}

		n, err := decodeBase64URL(k.N)
		if err != nil {
			return errors.Wrapf(err, "could not decode modulus of key %s", k.Kid)
		}
		e, err := decodeBase64URL(k.E)
		if err != nil {
			return errors.Wrapf(err, "could not decode exponent of key %s", k.Kid)
		}

		keys[k.Kid] = &SigningKey{
			KeyID:     k.Kid,
			Algorithm: k.Alg,
			Modulus:   n,
			Exponent:  e,
		}
	}

	r.mu.Lock()
	r.keys = keys
	r.fetchedAt = r.now()
	r.mu.Unlock()
	return nil
}

func decodeBase64URL(s string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err == nil {
		return raw, nil
	}
	// Some providers pad their base64url fields.
	return base64.URLEncoding.DecodeString(s)
}

// Issuer builds the provider issuer URL for the given region and pool id.
func Issuer(region, poolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, poolID)
}

// JWKSEndpoint builds the well-known key set URL for the given issuer.
func JWKSEndpoint(issuer string) string {
	return issuer + "/.well-known/jwks.json"
}
