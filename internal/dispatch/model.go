package dispatch

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anbuchelvanvk/ServeEasy/internal/schedule"
)

type TicketStatus string

const (
	StatusBooked     TicketStatus = "Booked"
	StatusInProgress TicketStatus = "InProgress"
	StatusCompleted  TicketStatus = "Completed"
	StatusCancelled  TicketStatus = "Cancelled"
)

// ValidTransition reports whether a ticket may move from one status to
// another. Forward progression runs Booked -> InProgress -> Completed;
// cancellation is reachable from Booked or InProgress and is terminal.
func ValidTransition(from, to TicketStatus) bool {
	switch from {
	case StatusBooked:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

// NormalizeCode is the single normalization applied to region and appliance
// codes on both the stored and the requested side before comparison.
func NormalizeCode(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Technician is administrative data, read-only to this service.
// WorkingHours maps the seven lowercase English weekday names to either
// an "HH:MM-HH:MM" shift or the literal "none".
type Technician struct {
	ID           string
	Name         string
	Phone        string
	Region       string
	Appliances   []string
	WorkingHours map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (t *Technician) SupportsAppliance(code string) bool {
	want := NormalizeCode(code)
	for _, a := range t.Appliances {
		if NormalizeCode(a) == want {
			return true
		}
	}
	return false
}

// ShiftOn returns the technician's working interval for a lowercase weekday
// name, or false when the technician is off that day or the entry is absent.
func (t *Technician) ShiftOn(weekday string) (schedule.Interval, bool) {
	raw, ok := t.WorkingHours[weekday]
	if !ok || raw == "none" {
		return schedule.Interval{}, false
	}
	shift, err := schedule.ParseInterval(raw)
	if err != nil {
		return schedule.Interval{}, false
	}
	return shift, true
}

// Appointment is the pointer that reserves one interval on one technician's
// calendar for one civil date and links it back to its ticket. It is created
// atomically with the ticket and removed on reschedule or cancellation,
// never mutated.
type Appointment struct {
	Key          uuid.UUID
	Date         string // "YYYY-MM-DD"
	TechnicianID string
	Start        string // "HH:MM"
	End          string // "HH:MM"
	TicketID     string
	CreatedAt    time.Time
}

// Ticket is the durable booking record. Technician fields are a snapshot
// taken at booking (or reschedule) time.
type Ticket struct {
	TicketID        string
	Status          TicketStatus
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	TechnicianID    string
	TechnicianName  string
	TechnicianPhone string
	Appliance       string
	Description     string
	RequestType     string
	Urgency         string
	ModelInfo       string
	AppointmentDate string // "YYYY-MM-DD"
	AppointmentTime string // "HH:MM-HH:MM"
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TicketUpdate is the field set a simple update may merge into a ticket.
// Scheduling fields are deliberately absent: date, time and technician only
// change through a reschedule, so a malformed update cannot corrupt them.
type TicketUpdate struct {
	Status          *TicketStatus
	Description     *string
	Urgency         *string
	ModelInfo       *string
	RequestType     *string
	CustomerName    *string
	CustomerAddress *string
}

// Reschedule carries the intent to move a ticket to a new date, technician
// and time. OldDate/OldTechnicianID locate the pointer to retire.
type Reschedule struct {
	OldDate         string
	OldTechnicianID string
	NewDate         string
	NewSlot         SlotRef
}

// SlotRef names one concrete bookable window on one technician's calendar.
type SlotRef struct {
	TechnicianID string
	Time         string // "HH:MM-HH:MM"
}

// Slot is one bookable window in an availability result, tagged with the
// technician offering it.
type Slot struct {
	Time           string // "HH:MM-HH:MM"
	TechnicianID   string
	TechnicianName string
}

type Customer struct {
	Phone   string
	Name    string
	Address string
}
