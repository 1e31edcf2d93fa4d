package identity_test

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/doggopher/dogvault/internal/gwerror"
	"github.com/doggopher/dogvault/internal/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://cognito-idp.eu-west-1.amazonaws.com/eu-west-1_AbCdEf"
	testClientID = "dogvault-client"
	testKid      = "kid-1"
)

type verifierEnv struct {
	key      *rsa.PrivateKey
	verifier identity.Verifier
	cleanup  func()
}

func setupVerifier(t *testing.T) *verifierEnv {
	t.Helper()

	key := generateKey(t)
	ks := newKeyset()
	ks.add(testKid, &key.PublicKey)
	srv := httptest.NewServer(ks)

	resolver := identity.NewResolver(identity.ResolverParams{Endpoint: srv.URL})
	verifier := identity.NewVerifier(identity.VerifierParams{
		Resolver: resolver,
		Issuer:   testIssuer,
		ClientID: testClientID,
	})

	return &verifierEnv{key: key, verifier: verifier, cleanup: srv.Close}
}

func (env *verifierEnv) sign(t *testing.T, kid string, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	raw, err := token.SignedString(key)
	require.NoError(t, err)
	return raw
}

func (env *verifierEnv) claims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "subject-42",
		"email": "george.abitbol@nowhere.lan",
		"iss":   testIssuer,
		"aud":   testClientID,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func assertTag(t *testing.T, err error, tag string) {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, tag, gwerror.Tag(err))
	assert.Equal(t, 401, gwerror.StatusCode(err))
}

func TestVerifierValidToken(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	raw := env.sign(t, testKid, env.key, env.claims())

	for _, header := range []string{"Bearer " + raw, raw} {
		ident, err := env.verifier.Verify(context.Background(), header)
		require.NoError(t, err)
		assert.Equal(t, "subject-42", ident.Subject)
		assert.Equal(t, "george.abitbol@nowhere.lan", ident.Email)
		assert.Equal(t, "george.abitbol@nowhere.lan", ident.DisplayName())
		assert.True(t, ident.ExpiresAt.After(time.Now()))
	}
}

func TestVerifierAccessTokenClientID(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	// Provider access tokens carry client_id instead of aud.
	claims := env.claims()
	delete(claims, "aud")
	delete(claims, "email")
	claims["client_id"] = testClientID

	ident, err := env.verifier.Verify(context.Background(), env.sign(t, testKid, env.key, claims))
	require.NoError(t, err)
	assert.Equal(t, "subject-42", ident.DisplayName())
}

func TestVerifierNoToken(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	for _, header := range []string{"", "Bearer", "Bearer "} {
		_, err := env.verifier.Verify(context.Background(), header)
		assertTag(t, err, gwerror.TagNoToken)
	}
}

func TestVerifierMalformedToken(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	_, err := env.verifier.Verify(context.Background(), "Bearer this.is.garbage")
	assertTag(t, err, gwerror.TagMalformedToken)

	_, err = env.verifier.Verify(context.Background(), "Bearer notatoken")
	assertTag(t, err, gwerror.TagMalformedToken)
}

func TestVerifierMissingKeyID(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, env.claims())
	raw, err := token.SignedString(env.key)
	require.NoError(t, err)

	_, err = env.verifier.Verify(context.Background(), "Bearer "+raw)
	assertTag(t, err, gwerror.TagMalformedToken)
}

func TestVerifierExpiredToken(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	claims := env.claims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	_, err := env.verifier.Verify(context.Background(), "Bearer "+env.sign(t, testKid, env.key, claims))
	assertTag(t, err, gwerror.TagExpired)

	// Expired wins even when the signature is garbage.
	other := generateKey(t)
	_, err = env.verifier.Verify(context.Background(), "Bearer "+env.sign(t, testKid, other, claims))
	assertTag(t, err, gwerror.TagExpired)
}

func TestVerifierKeyNotFound(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	_, err := env.verifier.Verify(context.Background(), "Bearer "+env.sign(t, "rotated-away", env.key, env.claims()))
	assertTag(t, err, gwerror.TagKeyNotFound)
}

func TestVerifierTamperedSignature(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	other := generateKey(t)
	_, err := env.verifier.Verify(context.Background(), "Bearer "+env.sign(t, testKid, other, env.claims()))
	assertTag(t, err, gwerror.TagSignatureInvalid)
}

func TestVerifierRejectsNoneAlgorithm(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT","kid":"` + testKid + `"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"subject-42","iss":"` + testIssuer + `","aud":"` + testClientID + `","exp":` + expIn(time.Hour) + `}`))

	_, err := env.verifier.Verify(context.Background(), "Bearer "+header+"."+payload+".")
	assertTag(t, err, gwerror.TagSignatureInvalid)
}

func TestVerifierRejectsHMACAlgorithm(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, env.claims())
	token.Header["kid"] = testKid
	raw, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = env.verifier.Verify(context.Background(), "Bearer "+raw)
	assertTag(t, err, gwerror.TagSignatureInvalid)
}

func TestVerifierIssuerMismatch(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	claims := env.claims()
	claims["iss"] = "https://evil.example.com"

	_, err := env.verifier.Verify(context.Background(), "Bearer "+env.sign(t, testKid, env.key, claims))
	assertTag(t, err, gwerror.TagIssuerMismatch)
}

func TestVerifierAudienceMismatch(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	claims := env.claims()
	claims["aud"] = "somebody-else"

	_, err := env.verifier.Verify(context.Background(), "Bearer "+env.sign(t, testKid, env.key, claims))
	assertTag(t, err, gwerror.TagAudienceMismatch)
}

func TestVerifierMissingSubject(t *testing.T) {
	env := setupVerifier(t)
	defer env.cleanup()

	claims := env.claims()
	delete(claims, "sub")

	_, err := env.verifier.Verify(context.Background(), "Bearer "+env.sign(t, testKid, env.key, claims))
	assertTag(t, err, gwerror.TagMalformedToken)
}

func expIn(d time.Duration) string {
	return strconv.FormatInt(time.Now().Add(d).Unix(), 10)
}
