package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// UnknownCategory is used when no category can be derived from an image URL.
const UnknownCategory = "unknown"

// An Image represents a saved image record and the rendered API response.
type Image struct {
	Base `msgpack:",inline" storm:"inline"`

	OwnerID     string `json:"owner_uuid"  msgpack:"owner_id" storm:"index"`
	URL         string `json:"imageUrl"    msgpack:"url"`
	Category    string `json:"category"    msgpack:"category"`
	Description string `json:"description" msgpack:"description"`
}

// NewImage returns an image record owned by the given subject.
// The ID is derived from the owner and the creation time so that
// (OwnerID, CreatedAt) stays a unique pair. Saving the same URL twice
// creates two distinct records.
func NewImage(ownerID, rawurl string) *Image {
	t := time.Now().UTC()
	category := Category(rawurl)

	image := &Image{
		OwnerID:     ownerID,
		URL:         rawurl,
		Category:    category,
		Description: fmt.Sprintf("%s image", category),
	}
	image.SetCreatedAt(t)
	image.SetID(fmt.Sprintf("%s-%d", ownerID, t.UnixNano()))
	return image
}

// Category derives a category from the image URL path.
// The segment before the filename is used, with dashes turned into spaces
// (e.g. https://x/breeds/hound-afghan/img.jpg gives "hound afghan").
// It never fails, ambiguous URLs fall back to UnknownCategory.
func Category(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return UnknownCategory
	}

	segments := make([]string, 0, 4)
	for _, segment := range strings.Split(u.Path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) < 2 {
		return UnknownCategory
	}

	category := strings.ReplaceAll(segments[len(segments)-2], "-", " ")
	if strings.TrimSpace(category) == "" {
		return UnknownCategory
	}
	return category
}
