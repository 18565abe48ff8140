// Package api provides typed access to the cabin-rental endpoints on top of
// the session store's authenticated request chokepoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/cabanalodge/adminctl/internal/errs"
	"github.com/cabanalodge/adminctl/internal/model"
	"github.com/cabanalodge/adminctl/internal/session"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Doer is the slice of the session store the client needs: every call goes
// through it so the 401 teardown policy applies uniformly.
type Doer interface {
	Do(ctx context.Context, method, path string, body io.Reader, opts ...session.RequestOption) (json.RawMessage, error)
}

// Client is the typed data-access layer. Results are always decoded into
// model types; nothing is cached, each call reflects the server's answer.
type Client struct {
	doer     Doer
	validate *validator.Validate
	log      *zap.Logger
}

// New builds a Client over the given request chokepoint.
func New(doer Doer, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		doer:     doer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// decode unmarshals a response body, unwrapping the {data: ...} envelope when
// the server used one.
func decode[T any](raw json.RawMessage) (T, error) {
	var out T
	var env model.Envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", errs.ErrBadResponse, err)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string) (json.RawMessage, error) {
	return c.doer.Do(ctx, http.MethodGet, path, nil)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return c.doer.Do(ctx, method, path, bytes.NewReader(body),
		session.WithHeader("Content-Type", "application/json"))
}

// checkForm rejects a write payload locally before any network call.
func (c *Client) checkForm(form any) error {
	if err := c.validate.Struct(form); err != nil {
		c.log.Debug("payload rejected locally", zap.Error(err))
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return nil
}

// ---- cabins ----

// Cabins lists every cabin with its amenities and images.
func (c *Client) Cabins(ctx context.Context) ([]model.Cabin, error) {
	raw, err := c.getJSON(ctx, "/cabin")
	if err != nil {
		return nil, err
	}
	return decode[[]model.Cabin](raw)
}

// Cabin fetches one cabin by id.
func (c *Client) Cabin(ctx context.Context, id int64) (model.Cabin, error) {
	raw, err := c.getJSON(ctx, fmt.Sprintf("/cabin/%d", id))
	if err != nil {
		return model.Cabin{}, err
	}
	return decode[model.Cabin](raw)
}

// CreateCabin validates the form and creates a cabin.
func (c *Client) CreateCabin(ctx context.Context, form model.CabinForm) (model.Cabin, error) {
	if err := c.checkForm(form); err != nil {
		return model.Cabin{}, err
	}
	raw, err := c.sendJSON(ctx, http.MethodPost, "/cabin", form)
	if err != nil {
		return model.Cabin{}, err
	}
	return decode[model.Cabin](raw)
}

// UpdateCabin validates the form and replaces the cabin's fields.
func (c *Client) UpdateCabin(ctx context.Context, id int64, form model.CabinForm) (model.Cabin, error) {
	if err := c.checkForm(form); err != nil {
		return model.Cabin{}, err
	}
	raw, err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/cabin/%d", id), form)
	if err != nil {
		return model.Cabin{}, err
	}
	return decode[model.Cabin](raw)
}

// DeleteCabin removes a cabin.
func (c *Client) DeleteCabin(ctx context.Context, id int64) error {
	_, err := c.doer.Do(ctx, http.MethodDelete, fmt.Sprintf("/cabin/%d", id), nil)
	return err
}

// AddCabinImageURL attaches an already-hosted image to a cabin.
func (c *Client) AddCabinImageURL(ctx context.Context, id int64, imageURL string, isMain bool) (model.CabinImage, error) {
	if imageURL == "" {
		return model.CabinImage{}, fmt.Errorf("%w: image url is required", errs.ErrValidation)
	}
	payload := map[string]any{"imageUrl": imageURL, "isMain": isMain}
	raw, err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/cabin/%d/image-url", id), payload)
	if err != nil {
		return model.CabinImage{}, err
	}
	return decode[model.CabinImage](raw)
}

// Upload is one file for UploadCabinImages.
type Upload struct {
	Name   string
	Reader io.Reader
}

// UploadCabinImages sends image files as multipart form data. The request
// goes through the same chokepoint as everything else, so the session cookie
// is the credential here too.
func (c *Client) UploadCabinImages(ctx context.Context, id int64, files []Upload) ([]model.CabinImage, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files to upload", errs.ErrValidation)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("build upload: %w", err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	raw, err := c.doer.Do(ctx, http.MethodPost, fmt.Sprintf("/cabin/%d/images", id), &buf,
		session.WithHeader("Content-Type", mw.FormDataContentType()))
	if err != nil {
		return nil, err
	}
	return decode[[]model.CabinImage](raw)
}

// ---- amenities ----

// Amenities lists the amenity catalog.
func (c *Client) Amenities(ctx context.Context) ([]model.Amenity, error) {
	raw, err := c.getJSON(ctx, "/amenity")
	if err != nil {
		return nil, err
	}
	return decode[[]model.Amenity](raw)
}

// ---- bookings ----

// Bookings lists every booking with its cabin and customer expanded.
func (c *Client) Bookings(ctx context.Context) ([]model.Booking, error) {
	raw, err := c.getJSON(ctx, "/booking")
	if err != nil {
		return nil, err
	}
	return decode[[]model.Booking](raw)
}

// Booking fetches one booking by id.
func (c *Client) Booking(ctx context.Context, id int64) (model.Booking, error) {
	raw, err := c.getJSON(ctx, fmt.Sprintf("/booking/%d", id))
	if err != nil {
		return model.Booking{}, err
	}
	return decode[model.Booking](raw)
}

// CreateBooking validates the form and creates a booking.
func (c *Client) CreateBooking(ctx context.Context, form model.BookingForm) (model.Booking, error) {
	if err := c.checkForm(form); err != nil {
		return model.Booking{}, err
	}
	raw, err := c.sendJSON(ctx, http.MethodPost, "/booking", form)
	if err != nil {
		return model.Booking{}, err
	}
	return decode[model.Booking](raw)
}

// BookingPayments lists the settlement records attached to a booking.
func (c *Client) BookingPayments(ctx context.Context, id int64) ([]model.Payment, error) {
	raw, err := c.getJSON(ctx, fmt.Sprintf("/booking/%d/payments", id))
	if err != nil {
		return nil, err
	}
	return decode[[]model.Payment](raw)
}

// SetBookingStatus moves a booking to Confirmada, Pendiente, or Cancelada.
func (c *Client) SetBookingStatus(ctx context.Context, id int64, status string) (model.Booking, error) {
	switch status {
	case model.BookingConfirmed, model.BookingPending, model.BookingCancelled:
	default:
		return model.Booking{}, fmt.Errorf("%w: unknown booking status %q", errs.ErrValidation, status)
	}
	raw, err := c.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("/booking/%d/status", id), map[string]string{"status": status})
	if err != nil {
		return model.Booking{}, err
	}
	return decode[model.Booking](raw)
}
