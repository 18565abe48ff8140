package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/cabanalodge/adminctl/internal/errs"
	"github.com/cabanalodge/adminctl/internal/model"
	"github.com/cabanalodge/adminctl/internal/session"
)

// recordedCall captures one request that reached the fake doer.
type recordedCall struct {
	method  string
	path    string
	body    []byte
	headers http.Header
}

// fakeDoer answers with canned bodies keyed by "METHOD path".
type fakeDoer struct {
	responses map[string]string
	err       error
	calls     []recordedCall
}

func (f *fakeDoer) Do(ctx context.Context, method, path string, body io.Reader, opts ...session.RequestOption) (json.RawMessage, error) {
	var b []byte
	if body != nil {
		b, _ = io.ReadAll(body)
	}
	req, _ := http.NewRequest(method, "http://test"+path, nil)
	for _, opt := range opts {
		opt(req)
	}
	f.calls = append(f.calls, recordedCall{method: method, path: path, body: b, headers: req.Header})

	if f.err != nil {
		return nil, f.err
	}
	if resp, ok := f.responses[method+" "+path]; ok {
		return json.RawMessage(resp), nil
	}
	return nil, errs.ErrNotFound
}

func validCabinForm() model.CabinForm {
	return model.CabinForm{
		Name:     "Del Lago",
		Capacity: 4,
		Price:    120,
		Status:   model.CabinAvailable,
		Location: "Villa La Angostura",
	}
}

func TestCabins_DecodesEnvelopedList(t *testing.T) {
	doer := &fakeDoer{responses: map[string]string{
		"GET /cabin": `{"data":[{"id":1,"name":"Del Lago","capacity":4,"price":120,"status":"Disponible"}]}`,
	}}
	c := New(doer, nil)

	cabins, err := c.Cabins(context.Background())
	if err != nil {
		t.Fatalf("Cabins: %v", err)
	}
	if len(cabins) != 1 || cabins[0].Name != "Del Lago" || cabins[0].Status != model.CabinAvailable {
		t.Fatalf("unexpected cabins: %+v", cabins)
	}
}

func TestCabins_DecodesBareList(t *testing.T) {
	doer := &fakeDoer{responses: map[string]string{
		"GET /cabin": `[{"id":2,"name":"Del Bosque","capacity":2,"price":80,"status":"Ocupada"}]`,
	}}
	c := New(doer, nil)

	cabins, err := c.Cabins(context.Background())
	if err != nil {
		t.Fatalf("Cabins: %v", err)
	}
	if len(cabins) != 1 || cabins[0].ID != 2 {
		t.Fatalf("unexpected cabins: %+v", cabins)
	}
}

func TestCreateCabin_ValidatesBeforeNetwork(t *testing.T) {
	doer := &fakeDoer{}
	c := New(doer, nil)

	form := validCabinForm()
	form.Capacity = 0
	if _, err := c.CreateCabin(context.Background(), form); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err=%v, want ErrValidation", err)
	}
	form = validCabinForm()
	form.Status = "Libre" // not a wire status
	if _, err := c.CreateCabin(context.Background(), form); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err=%v, want ErrValidation", err)
	}
	if len(doer.calls) != 0 {
		t.Fatalf("invalid form reached the network: %+v", doer.calls)
	}
}

func TestCreateCabin_SendsJSON(t *testing.T) {
	doer := &fakeDoer{responses: map[string]string{
		"POST /cabin": `{"data":{"id":7,"name":"Del Lago","capacity":4,"price":120,"status":"Disponible"}}`,
	}}
	c := New(doer, nil)

	cabin, err := c.CreateCabin(context.Background(), validCabinForm())
	if err != nil {
		t.Fatalf("CreateCabin: %v", err)
	}
	if cabin.ID != 7 {
		t.Fatalf("cabin.ID=%d, want 7", cabin.ID)
	}

	call := doer.calls[0]
	if ct := call.headers.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type=%q", ct)
	}
	var sent map[string]any
	if err := json.Unmarshal(call.body, &sent); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if sent["name"] != "Del Lago" {
		t.Fatalf("sent=%v", sent)
	}
}

func TestUpdateAndDeleteCabin_Paths(t *testing.T) {
	doer := &fakeDoer{responses: map[string]string{
		"PUT /cabin/3":    `{"data":{"id":3,"name":"Del Lago","capacity":4,"price":120,"status":"Disponible"}}`,
		"DELETE /cabin/3": `{"message":"ok"}`,
	}}
	c := New(doer, nil)

	if _, err := c.UpdateCabin(context.Background(), 3, validCabinForm()); err != nil {
		t.Fatalf("UpdateCabin: %v", err)
	}
	if err := c.DeleteCabin(context.Background(), 3); err != nil {
		t.Fatalf("DeleteCabin: %v", err)
	}
	if doer.calls[0].path != "/cabin/3" || doer.calls[1].method != http.MethodDelete {
		t.Fatalf("calls=%+v", doer.calls)
	}
}

func TestAddCabinImageURL_Payload(t *testing.T) {
	doer := &fakeDoer{responses: map[string]string{
		"POST /cabin/5/image-url": `{"data":{"id":9,"cabin_id":5,"imageUrl":"https://img/x.jpg","is_main":true}}`,
	}}
	c := New(doer, nil)

	img, err := c.AddCabinImageURL(context.Background(), 5, "https://img/x.jpg", true)
	if err != nil {
		t.Fatalf("AddCabinImageURL: %v", err)
	}
	if !img.IsMain || img.CabinID != 5 {
		t.Fatalf("img=%+v", img)
	}

	var sent map[string]any
	if err := json.Unmarshal(doer.calls[0].body, &sent); err != nil {
		t.Fatalf("body: %v", err)
	}
	if sent["imageUrl"] != "https://img/x.jpg" || sent["isMain"] != true {
		t.Fatalf("sent=%v", sent)
	}

	if _, err := c.AddCabinImageURL(context.Background(), 5, "", false); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("empty url: err=%v, want ErrValidation", err)
	}
}

func TestUploadCabinImages_MultipartOverSameChokepoint(t *testing.T) {
	doer := &fakeDoer{responses: map[string]string{
		"POST /cabin/5/images": `{"data":[{"id":1,"cabin_id":5,"imageUrl":"https://img/a.jpg","is_main":false}]}`,
	}}
	c := New(doer, nil)

	imgs, err := c.UploadCabinImages(context.Background(), 5, []Upload{
		{Name: "a.jpg", Reader: strings.NewReader("jpeg-bytes")},
	})
	if err != nil {
		t.Fatalf("UploadCabinImages: %v", err)
	}
	if len(imgs) != 1 {
		t.Fatalf("imgs=%+v", imgs)
	}

	call := doer.calls[0]
	ct := call.headers.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data; boundary=") {
		t.Fatalf("Content-Type=%q", ct)
	}
	if got := call.headers.Get("Authorization"); got != "" {
		t.Fatalf("upload must not carry a bearer token, got %q", got)
	}
	if !strings.Contains(string(call.body), `filename="a.jpg"`) ||
		!strings.Contains(string(call.body), "jpeg-bytes") {
		t.Fatalf("multipart body missing file part")
	}

	if _, err := c.UploadCabinImages(context.Background(), 5, nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("no files: err=%v, want ErrValidation", err)
	}
}

func TestBookings_Lifecycle(t *testing.T) {
	doer := &fakeDoer{responses: map[string]string{
		"GET /booking":            `{"data":[{"id":1,"cabin_id":2,"status":"Pendiente"}]}`,
		"POST /booking":           `{"data":{"id":4,"cabin_id":2,"status":"Pendiente"}}`,
		"PATCH /booking/4/status": `{"data":{"id":4,"cabin_id":2,"status":"Confirmada"}}`,
	}}
	c := New(doer, nil)

	bookings, err := c.Bookings(context.Background())
	if err != nil || len(bookings) != 1 {
		t.Fatalf("Bookings: %v %+v", err, bookings)
	}

	created, err := c.CreateBooking(context.Background(), model.BookingForm{
		CabinID:    2,
		CustomerID: 3,
		StartDate:  "2026-09-01",
		EndDate:    "2026-09-05",
		Guests:     2,
	})
	if err != nil || created.ID != 4 {
		t.Fatalf("CreateBooking: %v %+v", err, created)
	}

	confirmed, err := c.SetBookingStatus(context.Background(), 4, model.BookingConfirmed)
	if err != nil || confirmed.Status != model.BookingConfirmed {
		t.Fatalf("SetBookingStatus: %v %+v", err, confirmed)
	}

	if _, err := c.SetBookingStatus(context.Background(), 4, "Approved"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("bad status: err=%v, want ErrValidation", err)
	}
}

func TestBookingPayments_Decodes(t *testing.T) {
	doer := &fakeDoer{responses: map[string]string{
		"GET /booking/4/payments": `{"data":[
			{"id":11,"booking_id":4,"amount":240,"payment_method":"card","payment_status":"Pagado","transaction_id":"tx-9","payment_date":"2026-08-01T12:00:00Z"},
			{"id":12,"booking_id":4,"amount":60,"payment_method":"cash","payment_status":"Pendiente","transaction_id":null,"payment_date":null}
		]}`,
	}}
	c := New(doer, nil)

	payments, err := c.BookingPayments(context.Background(), 4)
	if err != nil {
		t.Fatalf("BookingPayments: %v", err)
	}
	if len(payments) != 2 || payments[0].Amount != 240 || payments[0].PaymentStatus != "Pagado" {
		t.Fatalf("payments=%+v", payments)
	}
	if payments[0].TransactionID == nil || *payments[0].TransactionID != "tx-9" || payments[0].PaymentDate == nil {
		t.Fatalf("settled payment mishandled: %+v", payments[0])
	}
	if payments[1].TransactionID != nil || payments[1].PaymentDate != nil {
		t.Fatalf("pending payment mishandled: %+v", payments[1])
	}
	if doer.calls[0].path != "/booking/4/payments" {
		t.Fatalf("path=%q", doer.calls[0].path)
	}
}

func TestCreateBooking_DateFormatEnforced(t *testing.T) {
	doer := &fakeDoer{}
	c := New(doer, nil)

	_, err := c.CreateBooking(context.Background(), model.BookingForm{
		CabinID:    2,
		CustomerID: 3,
		StartDate:  "01/09/2026",
		EndDate:    "2026-09-05",
		Guests:     2,
	})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err=%v, want ErrValidation", err)
	}
	if len(doer.calls) != 0 {
		t.Fatal("invalid booking reached the network")
	}
}

func TestDecode_BadBody(t *testing.T) {
	doer := &fakeDoer{responses: map[string]string{"GET /amenity": `{"data":"not-a-list"}`}}
	c := New(doer, nil)

	if _, err := c.Amenities(context.Background()); !errors.Is(err, errs.ErrBadResponse) {
		t.Fatalf("err=%v, want ErrBadResponse", err)
	}
}

func TestErrorsPassThrough(t *testing.T) {
	doer := &fakeDoer{err: errs.ErrUnauthorized}
	c := New(doer, nil)

	if _, err := c.Cabins(context.Background()); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("err=%v, want ErrUnauthorized", err)
	}
}
