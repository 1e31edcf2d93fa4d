package model_test

import (
	"strings"
	"testing"

	"github.com/doggopher/dogvault/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	cases := map[string]string{
		"https://x/y/breed-name/img.jpg":                             "breed name",
		"https://images.dog.ceo/breeds/hound-afghan/n02088094.jpg":   "hound afghan",
		"https://images.dog.ceo/breeds/pug/n02110958_12120.jpg":      "pug",
		"https://example.com/img.jpg":                                model.UnknownCategory,
		"https://example.com/":                                       model.UnknownCategory,
		"":                                                           model.UnknownCategory,
		"::not a url::":                                              model.UnknownCategory,
		"https://images.dog.ceo/breeds/setter-gordon/n02101006.jpg": "setter gordon",
	}

	for rawurl, expected := range cases {
		assert.Equal(t, expected, model.Category(rawurl), rawurl)
	}
}

func TestNewImage(t *testing.T) {
	image := model.NewImage("subject-42", "https://images.dog.ceo/breeds/hound-afghan/n02088094.jpg")

	assert.Equal(t, "subject-42", image.OwnerID)
	assert.Equal(t, "https://images.dog.ceo/breeds/hound-afghan/n02088094.jpg", image.URL)
	assert.Equal(t, "hound afghan", image.Category)
	assert.Equal(t, "hound afghan image", image.Description)
	assert.True(t, strings.HasPrefix(image.ID, "subject-42-"))
	assert.NotNil(t, image.CreatedAt)
}

func TestNewImageDistinctIDs(t *testing.T) {
	a := model.NewImage("subject-42", "https://x/y/pug/a.jpg")
	b := model.NewImage("subject-42", "https://x/y/pug/a.jpg")

	// Same owner and URL still give two records.
	assert.NotEqual(t, a.ID, b.ID)
}
