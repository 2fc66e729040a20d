package dispatch

import (
	"context"
	"errors"
)

var (
	ErrTechnicianNotFound  = errors.New("technician not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrRegionNotFound      = errors.New("region not found")

	// ErrSlotTaken is the conditional-write failure: an appointment pointer
	// with the same date, technician and start already exists.
	ErrSlotTaken = errors.New("slot already booked")
)

// Repository contains all store interactions needed by the service.
//
// CreateTicket, RescheduleTicket and CancelTicket must apply all of their
// keys in one transaction; a ticket without its pointer (or the reverse)
// must never become visible.
type Repository interface {
	GetTechnician(ctx context.Context, id string) (*Technician, error)
	ListTechnicianIDsBySkill(ctx context.Context, skill string) ([]string, error)
	// GetTechnicians batch-fetches technician records; ids absent from the
	// store are simply missing from the result, not an error.
	GetTechnicians(ctx context.Context, ids []string) (map[string]*Technician, error)

	// ListAppointmentsForDate returns every pointer for one civil date,
	// grouped by technician id.
	ListAppointmentsForDate(ctx context.Context, date string) (map[string][]Appointment, error)
	GetAppointmentAt(ctx context.Context, date, technicianID, start string) (*Appointment, error)
	// FindAppointmentByTicket locates a pointer under date/technician by its
	// embedded ticket id.
	FindAppointmentByTicket(ctx context.Context, date, technicianID, ticketID string) (*Appointment, error)

	// CreateTicket writes the ticket and its pointer together. The pointer
	// insert is conditional on (date, technician, start) being free and
	// fails the whole transaction with ErrSlotTaken otherwise.
	CreateTicket(ctx context.Context, t *Ticket, ptr Appointment) error
	GetTicket(ctx context.Context, ticketID string) (*Ticket, error)
	UpdateTicket(ctx context.Context, ticketID string, upd TicketUpdate) (*Ticket, error)
	// RescheduleTicket retires oldPtr (when non-nil), inserts newPtr under
	// the same ErrSlotTaken condition as CreateTicket, and rewrites the
	// ticket's scheduling fields from newPtr and tech, all atomically.
	RescheduleTicket(ctx context.Context, ticketID string, oldPtr *Appointment, newPtr Appointment, tech *Technician) (*Ticket, error)
	// CancelTicket flips the status to Cancelled and removes the ticket's
	// pointer in the same transaction, freeing the calendar slot.
	CancelTicket(ctx context.Context, ticketID string) (*Ticket, error)

	// Duplicate-booking guards.
	FindOpenTicketByPhone(ctx context.Context, phone string) (*Ticket, error)
	FindOpenTicketForAppliance(ctx context.Context, phone, appliance string) (*Ticket, error)

	// Pass-through lookups.
	GetCustomerByPhone(ctx context.Context, phone string) (*Customer, error)
	GetRegionByPrefix(ctx context.Context, prefix string) (string, error)
}
