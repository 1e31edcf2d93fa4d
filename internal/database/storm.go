package database

import (
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/asdine/storm/v3/q"
	"github.com/doggopher/dogvault/internal/model"
	"github.com/doggopher/dogvault/pkg/stormcodec"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

type strm struct {
	db *storm.DB
}

// StormCodec is the default format used to store data in the database.
var StormCodec = storm.Codec(msgpack.Codec)

// StormCodecByName returns the codec registered under the given name.
// An empty name falls back to msgpack.
func StormCodecByName(name string) (func(*storm.Options) error, error) {
	switch name {
	case "", "msgpack":
		return StormCodec, nil
	case "cbor":
		return storm.Codec(stormcodec.CBOR), nil
	case "binc":
		return storm.Codec(stormcodec.Binc), nil
	}
	return nil, errors.Errorf("unknown database codec %q", name)
}

// StormInit initializes Storm database.
func StormInit(database string, codec func(*storm.Options) error) error {
	db, err := storm.Open(database, codec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	err = db.Init(&model.Image{})
	return errors.Wrap(err, "could not init image index")
}

// StormReIndex reindex Storm database.
func StormReIndex(database string, codec func(*storm.Options) error) error {
	db, err := storm.Open(database, codec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	err = db.ReIndex(&model.Image{})
	return errors.Wrap(err, "could not ReIndex images")
}

// StormOpen returns a new Storm database connection with the default codec.
func StormOpen(database string) (Client, error) {
	return StormOpenWithCodec(database, StormCodec)
}

// StormOpenWithCodec returns a new Storm database connection.
func StormOpenWithCodec(database string, codec func(*storm.Options) error) (Client, error) {
	db, err := storm.Open(database, codec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	return &strm{
		db: db,
	}, nil
}

// Save inserts or updates the entry in database with the given model.
func (c *strm) Save(m model.Model) error {
	if m.GetCreatedAt() == nil {
		m.SetCreatedAt(time.Now().UTC())
	}
	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
	}

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

// Delete deletes the entry in database with the given model.
func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

// Close the database.
func (c *strm) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

// FindImage returns the image for the given id.
func (c *strm) FindImage(id string) (*model.Image, error) {
	var image model.Image
	if err := c.db.One("ID", id, &image); err != nil {
		return nil, errors.Wrap(err, "could not find image")
	}
	return &image, nil
}

// FindImagesByOwner returns the owner's images, newest first.
// limit equals to 0 means all images.
func (c *strm) FindImagesByOwner(ownerID string, limit int) ([]*model.Image, error) {
	images := make([]*model.Image, 0)
	stmt := c.db.Select(q.Eq("OwnerID", ownerID)).OrderBy("CreatedAt").Reverse()
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	err := stmt.Find(&images)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find images by owner")
	}
	return images, nil
}

// FindImageByOwnerAndURL returns the owner's newest image matching the exact URL.
func (c *strm) FindImageByOwnerAndURL(ownerID, url string) (*model.Image, error) {
	var image model.Image
	err := c.db.Select(q.Eq("OwnerID", ownerID), q.Eq("URL", url)).OrderBy("CreatedAt").Reverse().First(&image)
	if err != nil {
		return nil, errors.Wrap(err, "could not find image by owner and url")
	}
	return &image, nil
}

// DeleteImagesByOwner removes all the owner's images.
func (c *strm) DeleteImagesByOwner(ownerID string) (int, error) {
	images, err := c.FindImagesByOwner(ownerID, 0)
	if err != nil {
		return 0, err
	}

	for i, image := range images {
		if err := c.Delete(image); err != nil {
			return i, err
		}
	}
	return len(images), nil
}
