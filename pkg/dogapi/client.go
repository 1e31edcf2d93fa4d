// Package dogapi provides a narrow client over the external endpoint used
// as placeholder payload data by the gateway. Any URL-returning JSON
// service with the same document shape can be plugged in.
package dogapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// DefaultEndpoint is the public random dog image endpoint.
const DefaultEndpoint = "https://dog.ceo/api/breeds/image/random"

type (
	// A Client fetches fresh image descriptors from the upstream service.
	Client interface {
		// Random returns a freshly fetched image descriptor.
		Random(ctx context.Context) (*DogData, error)
	}

	// DogData is the upstream response document. Message carries the image URL.
	DogData struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}

	client struct {
		http     *http.Client
		endpoint string
	}
)

// NewDefaultClient returns a new Client on the public endpoint with a
// bounded-timeout HTTP client.
func NewDefaultClient() Client {
	c, _ := NewClient(&http.Client{Timeout: 10 * time.Second}, DefaultEndpoint)
	return c
}

// NewClient returns a new Client.
func NewClient(c *http.Client, endpoint string) (Client, error) {
	_, err := url.Parse(endpoint)
	return &client{http: c, endpoint: endpoint}, errors.Wrap(err, "could not parse endpoint")
}

func (c *client) Random(ctx context.Context) (*DogData, error) {
	//
	// Build request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build request")
	}
	req.Header.Add("Accept", "application/json")

	//
	// Perform request
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "could not perform request")
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return nil, errors.Errorf("upstream image service answered status %d", res.StatusCode)
	}

	//
	// Process response
	var data DogData
	dec := json.NewDecoder(res.Body)
	return &data, errors.Wrap(dec.Decode(&data), "could not parse response")
}
