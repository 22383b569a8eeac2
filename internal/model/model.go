// Package model defines the core domain types for the event booking system.
package model

import "time"

// EventStatus is the approval state of an event.
type EventStatus string

const (
	EventPending  EventStatus = "Pending"
	EventApproved EventStatus = "approved"
	// EventDeclined is stored as "Cancelled", the value clients already render.
	EventDeclined EventStatus = "Cancelled"
)

// Categories lists the event categories accepted on create and update.
var Categories = []string{"Music", "Sports", "Food", "Arts", "Technology", "Business", "Other"}

// TicketType is one priced tier of an event's inventory.
type TicketType struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Remaining int     `json:"remaining"`
}

// Sold returns how many tickets of this type are currently reserved.
func (t TicketType) Sold() int {
	return t.Quantity - t.Remaining
}

// Event represents a bookable event created by an organizer.
type Event struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	Location         string       `json:"location"`
	Category         string       `json:"category"`
	Date             string       `json:"date"`
	Time             string       `json:"time"`
	Image            string       `json:"image,omitempty"`
	Status           EventStatus  `json:"status"`
	OrganizerID      string       `json:"organizer"`
	TicketTypes      []TicketType `json:"ticketTypes"`
	TotalTickets     int          `json:"totalTickets"`
	RemainingTickets int          `json:"remainingTickets"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// Recount derives the aggregate ticket counters from the ticket types.
func (e *Event) Recount() {
	e.TotalTickets, e.RemainingTickets = 0, 0
	for _, t := range e.TicketTypes {
		e.TotalTickets += t.Quantity
		e.RemainingTickets += t.Remaining
	}
}

// FindTicketType returns the ticket type with the given name.
func (e *Event) FindTicketType(name string) (TicketType, bool) {
	for _, t := range e.TicketTypes {
		if t.Name == name {
			return t, true
		}
	}
	return TicketType{}, false
}

// EventAnalytics summarises sales for one event.
type EventAnalytics struct {
	EventID      string      `json:"eventId"`
	Title        string      `json:"title"`
	Status       EventStatus `json:"status"`
	Date         string      `json:"date"`
	TicketsSold  int         `json:"ticketsSold"`
	TotalTickets int         `json:"totalTickets"`
	Revenue      float64     `json:"revenue"`
	Bookings     int         `json:"bookings"`
	Attended     int         `json:"attended"`
}

// AnalyticsReport is the organizer dashboard payload.
type AnalyticsReport struct {
	EventBreakdown []EventAnalytics `json:"eventBreakdown"`
	TotalEvents    int              `json:"totalEvents"`
	TotalSold      int              `json:"totalTicketsSold"`
	TotalRevenue   float64          `json:"totalRevenue"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
