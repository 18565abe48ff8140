package model

import "time"

// Cabin and booking statuses are part of the wire contract; the API stores
// them in Spanish.
const (
	CabinAvailable   = "Disponible"
	CabinOccupied    = "Ocupada"
	CabinMaintenance = "Mantenimiento"

	BookingConfirmed = "Confirmada"
	BookingPending   = "Pendiente"
	BookingCancelled = "Cancelada"
)

// Amenity is a bookable cabin feature.
type Amenity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Icon      *string   `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

// CabinImage links an image URL to a cabin.
type CabinImage struct {
	ID        int64     `json:"id"`
	CabinID   int64     `json:"cabin_id"`
	ImageURL  string    `json:"imageUrl"`
	IsMain    bool      `json:"is_main"`
	CreatedAt time.Time `json:"created_at"`
}

// Cabin is a rentable unit.
type Cabin struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Capacity    int          `json:"capacity"`
	Price       float64      `json:"price"`
	Status      string       `json:"status"`
	Location    string       `json:"location"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Amenities   []Amenity    `json:"amenities"`
	Images      []CabinImage `json:"images"`
}

// Booking is a stay reservation for a cabin.
type Booking struct {
	ID           int64     `json:"id"`
	CabinID      int64     `json:"cabin_id"`
	CustomerID   int64     `json:"customer_id"`
	StartDate    string    `json:"start_date"` // YYYY-MM-DD as the API sends it
	EndDate      string    `json:"end_date"`
	Nights       int       `json:"nights"`
	Guests       int       `json:"guests"`
	TotalAmount  float64   `json:"total_amount"`
	Status       string    `json:"status"`
	Observations *string   `json:"observations"`
	CreatedBy    *int64    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Cabin        *Cabin    `json:"cabin,omitempty"`
	Customer     *Identity `json:"customer,omitempty"`
}

// Payment is a settlement record attached to a booking.
type Payment struct {
	ID            int64      `json:"id"`
	BookingID     int64      `json:"booking_id"`
	Amount        float64    `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
	PaymentStatus string     `json:"payment_status"`
	TransactionID *string    `json:"transaction_id"`
	PaymentDate   *time.Time `json:"payment_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CabinForm is the write payload for creating or updating a cabin.
type CabinForm struct {
	Name        string   `json:"name" validate:"required"`
	Capacity    int      `json:"capacity" validate:"required,gt=0"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	Status      string   `json:"status" validate:"required,oneof=Disponible Ocupada Mantenimiento"`
	Location    string   `json:"location" validate:"required"`
	Description string   `json:"description"`
	Amenities   []string `json:"amenities,omitempty"`
}

// BookingForm is the write payload for creating a booking.
type BookingForm struct {
	CabinID      int64   `json:"cabin_id" validate:"required,gt=0"`
	CustomerID   int64   `json:"customer_id" validate:"required,gt=0"`
	StartDate    string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Guests       int     `json:"guests" validate:"required,gt=0"`
	Observations *string `json:"observations,omitempty"`
}
