package database

import (
	"github.com/doggopher/dogvault/internal/model"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool

		ImageInteraction
	}

	// An ImageInteraction defines all the methods used to interact with image records.
	ImageInteraction interface {
		// FindImage returns the image for the given id.
		FindImage(id string) (*model.Image, error)
		// FindImagesByOwner returns the owner's images, newest first.
		// Each call is a fresh bounded query. limit equals to 0 means all images.
		FindImagesByOwner(ownerID string, limit int) ([]*model.Image, error)
		// FindImageByOwnerAndURL returns the owner's newest image matching the exact URL.
		// When several records share the URL, the most recent one is returned.
		FindImageByOwnerAndURL(ownerID, url string) (*model.Image, error)
		// DeleteImagesByOwner removes all the owner's images and returns how many were deleted.
		DeleteImagesByOwner(ownerID string) (int, error)
	}
)
