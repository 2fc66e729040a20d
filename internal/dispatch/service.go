package dispatch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/anbuchelvanvk/ServeEasy/internal/redis"
	"github.com/anbuchelvanvk/ServeEasy/internal/schedule"
)

const maxOfferedSlots = 4

var (
	ErrNoAvailability = errors.New("no technicians available for the requested day")

	// ErrSlotBeingBooked means another request holds the slot lock right now.
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")

	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// ValidationError marks caller input problems: missing or malformed fields.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationError(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports a booking that clashes with existing state and
// carries the existing ticket id so the caller can self-resolve.
type ConflictError struct {
	ExistingTicketID string
	msg              string
}

func (e *ConflictError) Error() string { return e.msg }

type Service struct {
	repo   Repository
	locker redisclient.Locker
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		now:    time.Now,
	}
}

type FindSlotsInput struct {
	Region         string
	Skill          string
	Appliance      string
	TimePreference string
	CustomerPhone  string // optional
}

// FindAvailableSlots computes the bookable service windows for a request.
//
// An unknown skill is a normal zero-result outcome and returns an empty,
// non-nil slice. ErrNoAvailability is returned when technicians exist but
// no window survives filtering. The result is deduplicated, sorted by start
// time and capped.
func (s *Service) FindAvailableSlots(ctx context.Context, in FindSlotsInput) ([]Slot, error) {
	if in.Region == "" || in.Skill == "" || in.Appliance == "" {
		return nil, validationError("region, skill and appliance are required")
	}

	if in.CustomerPhone != "" {
		existing, err := s.repo.FindOpenTicketByPhone(ctx, in.CustomerPhone)
		if err != nil && !errors.Is(err, ErrTicketNotFound) {
			return nil, fmt.Errorf("check open tickets: %w", err)
		}
		if existing != nil {
			return nil, &ConflictError{
				ExistingTicketID: existing.TicketID,
				msg:              fmt.Sprintf("customer already has open ticket %s", existing.TicketID),
			}
		}
	}

	day, err := schedule.ResolvePreference(in.TimePreference, s.now())
	if err != nil {
		return nil, err
	}

	techIDs, err := s.repo.ListTechnicianIDsBySkill(ctx, in.Skill)
	if err != nil {
		return nil, fmt.Errorf("skill index lookup: %w", err)
	}
	if len(techIDs) == 0 {
		return []Slot{}, nil
	}

	// One batch read for the whole day, one for all candidate records.
	dayAppointments, err := s.repo.ListAppointmentsForDate(ctx, day.Date)
	if err != nil {
		return nil, fmt.Errorf("load appointments for %s: %w", day.Date, err)
	}
	techs, err := s.repo.GetTechnicians(ctx, techIDs)
	if err != nil {
		return nil, fmt.Errorf("load technicians: %w", err)
	}

	var offered []Slot
	for _, id := range techIDs {
		tech, ok := techs[id]
		if !ok {
			continue // indexed but missing from the store, silently excluded
		}
		shift, ok := eligibleShift(tech, in.Region, in.Appliance, day.Weekday)
		if !ok {
			continue
		}

		booked := make([]schedule.Interval, 0, len(dayAppointments[id]))
		for _, appt := range dayAppointments[id] {
			iv, err := schedule.ParseInterval(appt.Start + "-" + appt.End)
			if err != nil {
				return nil, fmt.Errorf("corrupt appointment %s: %w", appt.Key, err)
			}
			booked = append(booked, iv)
		}

		for _, free := range schedule.FreeSlots(shift, booked, schedule.ServiceDuration) {
			if free.Start < day.Window.Start || free.Start >= day.Window.End {
				continue
			}
			offered = append(offered, Slot{
				Time:           free.String(),
				TechnicianID:   tech.ID,
				TechnicianName: tech.Name,
			})
		}
	}

	offered = dedupeAndSort(offered)
	if len(offered) == 0 {
		return nil, ErrNoAvailability
	}
	if len(offered) > maxOfferedSlots {
		offered = offered[:maxOfferedSlots]
	}
	return offered, nil
}

// eligibleShift applies the technician filter: region match, appliance
// capability and a working shift on the resolved weekday.
func eligibleShift(t *Technician, region, appliance, weekday string) (schedule.Interval, bool) {
	if NormalizeCode(t.Region) != NormalizeCode(region) {
		return schedule.Interval{}, false
	}
	if !t.SupportsAppliance(appliance) {
		return schedule.Interval{}, false
	}
	return t.ShiftOn(weekday)
}

func dedupeAndSort(slots []Slot) []Slot {
	seen := make(map[string]struct{}, len(slots))
	out := slots[:0]
	for _, sl := range slots {
		key := sl.Time + "|" + sl.TechnicianID
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, sl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].TechnicianID < out[j].TechnicianID
	})
	return out
}

type CustomerInfo struct {
	Name    string
	Phone   string
	Address string
}

type JobInfo struct {
	RequestType string
	Appliance   string
	Description string
	Urgency     string
	ModelInfo   string
}

type CreateTicketInput struct {
	AppointmentDate string // "YYYY-MM-DD"
	Slot            SlotRef
	Customer        CustomerInfo
	Job             JobInfo
}

var dateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// CreateTicket books a slot and writes the ticket with its appointment
// pointer in one transaction. A per-slot lock narrows the race between the
// conflict check and the write; the conditional pointer insert in the
// repository is what actually guarantees at most one booking per slot.
func (s *Service) CreateTicket(ctx context.Context, in CreateTicketInput) (*Ticket, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	window, err := schedule.ParseInterval(in.Slot.Time)
	if err != nil {
		return nil, validationError("slot time: %v", err)
	}

	dup, err := s.repo.FindOpenTicketForAppliance(ctx, in.Customer.Phone, NormalizeCode(in.Job.Appliance))
	if err != nil && !errors.Is(err, ErrTicketNotFound) {
		return nil, fmt.Errorf("duplicate ticket check: %w", err)
	}
	if dup != nil {
		return nil, &ConflictError{
			ExistingTicketID: dup.TicketID,
			msg:              fmt.Sprintf("open ticket %s already exists for this appliance", dup.TicketID),
		}
	}

	start := schedule.MinutesToTime(window.Start)
	var created *Ticket

	err = s.locker.WithSlotLock(ctx, in.AppointmentDate, in.Slot.TechnicianID, start, func(lockCtx context.Context) error {
		// Authoritative conflict check at the moment of write; the
		// availability view the caller acted on may be stale.
		occupied, err := s.repo.GetAppointmentAt(lockCtx, in.AppointmentDate, in.Slot.TechnicianID, start)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot occupancy: %w", err)
		}
		if occupied != nil {
			return &ConflictError{
				ExistingTicketID: occupied.TicketID,
				msg:              fmt.Sprintf("slot %s is already booked", in.Slot.Time),
			}
		}

		// Fresh fetch so the snapshot never comes from a cached record.
		tech, err := s.repo.GetTechnician(lockCtx, in.Slot.TechnicianID)
		if err != nil {
			return fmt.Errorf("load technician: %w", err)
		}

		now := s.now()
		ticket := &Ticket{
			TicketID:        newTicketID(now),
			Status:          StatusBooked,
			CustomerName:    in.Customer.Name,
			CustomerPhone:   in.Customer.Phone,
			CustomerAddress: in.Customer.Address,
			TechnicianID:    tech.ID,
			TechnicianName:  tech.Name,
			TechnicianPhone: tech.Phone,
			Appliance:       NormalizeCode(in.Job.Appliance),
			Description:     in.Job.Description,
			RequestType:     in.Job.RequestType,
			Urgency:         in.Job.Urgency,
			ModelInfo:       in.Job.ModelInfo,
			AppointmentDate: in.AppointmentDate,
			AppointmentTime: window.String(),
			CreatedAt:       now,
		}
		ptr := Appointment{
			Key:          uuid.New(),
			Date:         in.AppointmentDate,
			TechnicianID: tech.ID,
			Start:        start,
			End:          schedule.MinutesToTime(window.End),
			TicketID:     ticket.TicketID,
			CreatedAt:    now,
		}

		if err := s.repo.CreateTicket(lockCtx, ticket, ptr); err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return &ConflictError{msg: fmt.Sprintf("slot %s is already booked", in.Slot.Time)}
			}
			return fmt.Errorf("write ticket: %w", err)
		}
		created = ticket
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}
	return created, nil
}

func validateCreate(in CreateTicketInput) error {
	switch {
	case !dateShape.MatchString(in.AppointmentDate):
		return validationError("appointmentDate must be YYYY-MM-DD")
	case in.Slot.TechnicianID == "":
		return validationError("slot technician id is required")
	case in.Slot.Time == "":
		return validationError("slot time is required")
	case strings.TrimSpace(in.Customer.Name) == "":
		return validationError("customer name is required")
	case in.Customer.Phone == "":
		return validationError("customer phone is required")
	case in.Job.RequestType == "":
		return validationError("request type is required")
	case in.Job.Appliance == "":
		return validationError("appliance is required")
	case strings.TrimSpace(in.Job.Description) == "":
		return validationError("description is required")
	}
	if _, err := time.Parse("2006-01-02", in.AppointmentDate); err != nil {
		return validationError("appointmentDate: %v", err)
	}
	return nil
}

// newTicketID derives an id from the wall clock, as customer-facing ticket
// numbers tend to, with a random suffix so concurrent creations in the same
// millisecond cannot collide.
func newTicketID(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:6])
	return fmt.Sprintf("TKT-%d-%s", now.UnixMilli(), suffix)
}

func (s *Service) GetTicket(ctx context.Context, ticketID string) (*Ticket, error) {
	if ticketID == "" {
		return nil, validationError("ticket id is required")
	}
	return s.repo.GetTicket(ctx, ticketID)
}

// UpdateTicket merges a plain field set into the ticket. The appointment
// pointer is never touched here; rescheduling is a separate operation.
func (s *Service) UpdateTicket(ctx context.Context, ticketID string, upd TicketUpdate) (*Ticket, error) {
	if ticketID == "" {
		return nil, validationError("ticket id is required")
	}

	if upd.Status != nil {
		current, err := s.repo.GetTicket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if *upd.Status == StatusCancelled {
			return nil, validationError("use cancelTicket to cancel")
		}
		if !ValidTransition(current.Status, *upd.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, *upd.Status)
		}
	}

	return s.repo.UpdateTicket(ctx, ticketID, upd)
}

// RescheduleTicket moves a ticket to a new slot: it retires the old
// appointment pointer, creates the new one and rewrites the ticket's
// scheduling fields, all in one transaction. A missing old pointer does not
// fail the move; its removal is best-effort.
func (s *Service) RescheduleTicket(ctx context.Context, ticketID string, r Reschedule) (*Ticket, error) {
	if ticketID == "" {
		return nil, validationError("ticket id is required")
	}
	if !dateShape.MatchString(r.NewDate) {
		return nil, validationError("newDate must be YYYY-MM-DD")
	}
	if r.NewSlot.TechnicianID == "" {
		return nil, validationError("new slot technician id is required")
	}
	window, err := schedule.ParseInterval(r.NewSlot.Time)
	if err != nil {
		return nil, validationError("new slot time: %v", err)
	}

	start := schedule.MinutesToTime(window.Start)
	var moved *Ticket

	err = s.locker.WithSlotLock(ctx, r.NewDate, r.NewSlot.TechnicianID, start, func(lockCtx context.Context) error {
		oldPtr, err := s.repo.FindAppointmentByTicket(lockCtx, r.OldDate, r.OldTechnicianID, ticketID)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("locate old appointment: %w", err)
		}

		occupied, err := s.repo.GetAppointmentAt(lockCtx, r.NewDate, r.NewSlot.TechnicianID, start)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot occupancy: %w", err)
		}
		if occupied != nil && occupied.TicketID != ticketID {
			return &ConflictError{
				ExistingTicketID: occupied.TicketID,
				msg:              fmt.Sprintf("slot %s is already booked", r.NewSlot.Time),
			}
		}

		tech, err := s.repo.GetTechnician(lockCtx, r.NewSlot.TechnicianID)
		if err != nil {
			return fmt.Errorf("load technician: %w", err)
		}

		newPtr := Appointment{
			Key:          uuid.New(),
			Date:         r.NewDate,
			TechnicianID: tech.ID,
			Start:        start,
			End:          schedule.MinutesToTime(window.End),
			TicketID:     ticketID,
			CreatedAt:    s.now(),
		}

		moved, err = s.repo.RescheduleTicket(lockCtx, ticketID, oldPtr, newPtr, tech)
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return &ConflictError{msg: fmt.Sprintf("slot %s is already booked", r.NewSlot.Time)}
			}
			return err
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}
	return moved, nil
}

// CancelTicket flips the ticket to Cancelled and frees the technician's
// calendar slot. History is retained; only the pointer is removed.
func (s *Service) CancelTicket(ctx context.Context, ticketID string) (*Ticket, error) {
	if ticketID == "" {
		return nil, validationError("ticket id is required")
	}

	current, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ValidTransition(current.Status, StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, StatusCancelled)
	}

	return s.repo.CancelTicket(ctx, ticketID)
}

var phoneShape = regexp.MustCompile(`^\d{10}$`)

func (s *Service) GetCustomerByPhone(ctx context.Context, phone string) (*Customer, error) {
	if !phoneShape.MatchString(phone) {
		return nil, validationError("a valid 10-digit phone number is required")
	}
	return s.repo.GetCustomerByPhone(ctx, phone)
}

var pincodeShape = regexp.MustCompile(`^\d{6}$`)

// GetRegionByKey maps a 6-digit pincode to its service region via the
// pincode's 3-digit prefix.
func (s *Service) GetRegionByKey(ctx context.Context, pincode string) (string, error) {
	if !pincodeShape.MatchString(pincode) {
		return "", validationError("a valid 6-digit pincode is required")
	}
	return s.repo.GetRegionByPrefix(ctx, pincode[:3])
}
