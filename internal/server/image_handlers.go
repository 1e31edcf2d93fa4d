package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/doggopher/dogvault/internal/database"
	"github.com/doggopher/dogvault/internal/gwerror"
	"github.com/doggopher/dogvault/internal/model"
	"github.com/doggopher/dogvault/pkg/dogapi"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
)

// Action flags of the legacy single-path surface.
const (
	actionList   = "list"
	actionSave   = "save_image"
	actionDelete = "delete_image"
)

// image contains all image handlers.
type image struct {
	db      database.Client
	fetcher dogapi.Client
	limit   int
}

type imageParams struct {
	Action   string `json:"action"`
	ImageURL string `json:"imageUrl"`
}

///// Dispatch
////
//

// Dispatch routes a legacy GET either to the list of saved images or to a
// fresh fetch, depending on the list query flag.
func (h *image) Dispatch(c echo.Context) error {
	if c.QueryParam("action") == actionList || c.QueryParam(actionList) != "" {
		return h.List(c)
	}
	return h.Fetch(c)
}

// DispatchBody routes a legacy POST/DELETE according to the action flag
// found in the body. Unknown or absent actions fall through to the default
// fetch response, only an unparsable body is an error.
func (h *image) DispatchBody(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errors.Wrap(err, "could not read request body")
	}
	if len(body) == 0 {
		return h.Fetch(c)
	}

	doc, err := fastjson.ParseBytes(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, gwerror.New("Could not parse request body."))
	}

	action := string(doc.GetStringBytes("action"))
	imageURL := string(doc.GetStringBytes("imageUrl"))

	switch {
	case action == actionSave && c.Request().Method == http.MethodPost:
		return h.save(c, imageURL)
	case action == actionDelete && c.Request().Method == http.MethodDelete:
		return h.delete(c, imageURL)
	default:
		return h.Fetch(c)
	}
}

///// Fetch
////
//

// Fetch returns a freshly fetched image descriptor from the upstream service.
func (h *image) Fetch(c echo.Context) error {
	data, err := h.fetcher.Random(c.Request().Context())
	if err != nil {
		return errors.Wrap(err, "could not fetch a fresh image")
	}

	return c.JSON(http.StatusOK, h.envelope(c, "Dog image fetched successfully", echo.Map{
		"dogData": data,
	}))
}

///// List
////
//

// List returns the caller's saved images, newest first.
func (h *image) List(c echo.Context) error {
	limit := h.limit
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		limit = n
	}

	images, err := h.db.FindImagesByOwner(currentIdentity(c).Subject, limit)
	if err != nil {
		return errors.Wrap(err, "could not list saved images")
	}

	return c.JSON(http.StatusOK, h.envelope(c, "Saved images retrieved successfully", echo.Map{
		"savedImages": images,
	}))
}

///// Save
////
//

// Save stores a new image record for the caller.
func (h *image) Save(c echo.Context) error {
	// Filter params
	var params imageParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, gwerror.New("Could not parse request body."))
	}

	return h.save(c, params.ImageURL)
}

func (h *image) save(c echo.Context, imageURL string) error {
	if imageURL == "" {
		return c.JSON(http.StatusBadRequest, gwerror.New("No imageUrl provided."))
	}

	record := model.NewImage(currentIdentity(c).Subject, imageURL)
	if err := h.db.Save(record); err != nil {
		return errors.Wrap(err, "could not save image")
	}

	return c.JSON(http.StatusCreated, h.envelope(c, "Image saved successfully", echo.Map{
		"savedImage": record,
	}))
}

///// Delete
////
//

// Delete removes the caller's saved image matching the given URL.
func (h *image) Delete(c echo.Context) error {
	// Filter params
	var params imageParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, gwerror.New("Could not parse request body."))
	}

	return h.delete(c, params.ImageURL)
}

func (h *image) delete(c echo.Context, imageURL string) error {
	if imageURL == "" {
		return c.JSON(http.StatusBadRequest, gwerror.New("No imageUrl provided."))
	}

	// When several records share the URL, the newest one is removed.
	record, err := h.db.FindImageByOwnerAndURL(currentIdentity(c).Subject, imageURL)
	if err != nil {
		if h.db.IsNotFound(err) {
			return gwerror.NotFound("No saved image matches the given URL.")
		}
		return errors.Wrap(err, "could not look up image")
	}

	if err := h.db.Delete(record); err != nil {
		return errors.Wrap(err, "could not delete image")
	}

	return c.JSON(http.StatusOK, h.envelope(c, "Image deleted successfully", echo.Map{
		"deleteResult": echo.Map{
			"deletedId": record.ID,
			"imageUrl":  record.URL,
		},
	}))
}

// envelope builds the common response document.
func (h *image) envelope(c echo.Context, message string, payload echo.Map) echo.Map {
	m := echo.Map{
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"requestId": uuid.Must(uuid.NewV4()).String(),
	}
	if ident := currentIdentity(c); ident != nil {
		m["user"] = ident.DisplayName()
	}
	for k, v := range payload {
		m[k] = v
	}
	return m
}
