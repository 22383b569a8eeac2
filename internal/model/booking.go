package model

import "time"

// BookingStatus is the lifecycle state of a booking.
//
// Booked -> Attended and Booked -> Cancelled are the only transitions.
type BookingStatus string

const (
	BookingBooked    BookingStatus = "Booked"
	BookingAttended  BookingStatus = "Attended"
	BookingCancelled BookingStatus = "Cancelled"
)

// Booking is a user's reservation of tickets of one type for one event.
type Booking struct {
	ID                string        `json:"id"`
	EventID           string        `json:"event"`
	UserID            string        `json:"user"`
	TicketType        string        `json:"ticketType"`
	TicketsBooked     int           `json:"ticketsBooked"`
	PricePerTicket    float64       `json:"pricePerTicket"`
	TotalPrice        float64       `json:"totalPrice"`
	Status            BookingStatus `json:"bookingStatus"`
	QRToken           string        `json:"qrToken,omitempty"`
	QRCode            string        `json:"qrCode,omitempty"`
	QRCodeUsed        bool          `json:"qrCodeUsed"`
	QRCodeScannedAt   *time.Time    `json:"qrCodeScannedAt"`
	InventoryReleased bool          `json:"-"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// Active reports whether the booking still holds inventory.
func (b *Booking) Active() bool {
	return b.Status == BookingBooked && !b.InventoryReleased
}

// TicketView is the public projection of a booking shown when a QR ticket
// is opened.
type TicketView struct {
	ID            string        `json:"id"`
	EventTitle    string        `json:"eventTitle"`
	EventDate     string        `json:"eventDate"`
	EventTime     string        `json:"eventTime"`
	EventLocation string        `json:"eventLocation"`
	UserName      string        `json:"userName"`
	TicketType    string        `json:"ticketType"`
	TicketsBooked int           `json:"ticketsBooked"`
	TotalPrice    float64       `json:"totalPrice"`
	QRCodeUsed    bool          `json:"qrCodeUsed"`
	ScannedAt     *time.Time    `json:"scannedAt"`
	Status        BookingStatus `json:"status"`
}

// Reservation is the ledger's answer to a successful reserve.
type Reservation struct {
	EventID    string
	TicketType string
	Quantity   int
	Price      float64
	Remaining  int
}
