package dogapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doggopher/dogvault/pkg/dogapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRandom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"https://images.dog.ceo/breeds/hound-afghan/n02088094.jpg","status":"success"}`))
	}))
	defer srv.Close()

	client, err := dogapi.NewClient(http.DefaultClient, srv.URL)
	require.NoError(t, err)

	data, err := client.Random(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://images.dog.ceo/breeds/hound-afghan/n02088094.jpg", data.Message)
	assert.Equal(t, "success", data.Status)
}

func TestClientRandomUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := dogapi.NewClient(http.DefaultClient, srv.URL)
	require.NoError(t, err)

	_, err = client.Random(context.Background())
	assert.Error(t, err)
}

func TestClientRandomMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("woof"))
	}))
	defer srv.Close()

	client, err := dogapi.NewClient(http.DefaultClient, srv.URL)
	require.NoError(t, err)

	_, err = client.Random(context.Background())
	assert.Error(t, err)
}
