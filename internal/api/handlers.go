package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/anbuchelvanvk/ServeEasy/internal/dispatch"
	"github.com/anbuchelvanvk/ServeEasy/internal/schedule"
)

// DispatchService is the slice of the dispatch core the request layer needs.
type DispatchService interface {
	FindAvailableSlots(ctx context.Context, in dispatch.FindSlotsInput) ([]dispatch.Slot, error)
	CreateTicket(ctx context.Context, in dispatch.CreateTicketInput) (*dispatch.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (*dispatch.Ticket, error)
	UpdateTicket(ctx context.Context, ticketID string, upd dispatch.TicketUpdate) (*dispatch.Ticket, error)
	RescheduleTicket(ctx context.Context, ticketID string, r dispatch.Reschedule) (*dispatch.Ticket, error)
	CancelTicket(ctx context.Context, ticketID string) (*dispatch.Ticket, error)
	GetCustomerByPhone(ctx context.Context, phone string) (*dispatch.Customer, error)
	GetRegionByKey(ctx context.Context, pincode string) (string, error)
}

// taskHandler dispatches on the request's task discriminator.
func taskHandler(svc DispatchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		switch req.Task {
		case "findAvailableSlots":
			handleFindAvailableSlots(w, r, svc, req)
		case "createTicket":
			handleCreateTicket(w, r, svc, req)
		case "getTicket":
			handleGetTicket(w, r, svc, req)
		case "updateTicket":
			handleUpdateTicket(w, r, svc, req)
		case "cancelTicket":
			handleCancelTicket(w, r, svc, req)
		case "getCustomerByPhone":
			handleGetCustomerByPhone(w, r, svc, req)
		case "getRegionByKey":
			handleGetRegionByKey(w, r, svc, req)
		default:
			writeError(w, http.StatusBadRequest, "invalid_task", "unknown task "+req.Task)
		}
	}
}

func handleFindAvailableSlots(w http.ResponseWriter, r *http.Request, svc DispatchService, req TaskRequest) {
	slots, err := svc.FindAvailableSlots(r.Context(), dispatch.FindSlotsInput{
		Region:         req.Region,
		Skill:          req.Skill,
		Appliance:      req.Appliance,
		TimePreference: req.TimePreference,
		CustomerPhone:  req.CustomerPhone,
	})
	if err != nil {
		var conflict *dispatch.ConflictError
		switch {
		case errors.Is(err, dispatch.ErrNoAvailability):
			// A normal scheduling outcome, not a fault.
			writeJSON(w, http.StatusOK, SlotsResponse{Slots: []SlotResult{}, Error: err.Error()})
		case errors.As(err, &conflict):
			writeJSON(w, http.StatusConflict, SlotsResponse{
				Slots:            []SlotResult{},
				Error:            conflict.Error(),
				ExistingTicketID: conflict.ExistingTicketID,
			})
		case isInputError(err):
			writeJSON(w, http.StatusBadRequest, SlotsResponse{Slots: []SlotResult{}, Error: err.Error()})
		default:
			internalError(w, r, "findAvailableSlots", err)
		}
		return
	}

	out := make([]SlotResult, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResult{Time: s.Time, TechID: s.TechnicianID, TechName: s.TechnicianName})
	}
	writeJSON(w, http.StatusOK, SlotsResponse{Slots: out})
}

func handleCreateTicket(w http.ResponseWriter, r *http.Request, svc DispatchService, req TaskRequest) {
	in := dispatch.CreateTicketInput{AppointmentDate: req.AppointmentDate}
	if req.Slot != nil {
		in.Slot = dispatch.SlotRef{TechnicianID: req.Slot.TechID, Time: req.Slot.Time}
	}
	if req.CustomerInfo != nil {
		in.Customer = dispatch.CustomerInfo{
			Name:    req.CustomerInfo.Name,
			Phone:   req.CustomerInfo.Phone,
			Address: req.CustomerInfo.Address,
		}
	}
	if req.JobInfo != nil {
		in.Job = dispatch.JobInfo{
			RequestType: req.JobInfo.RequestType,
			Appliance:   req.JobInfo.Appliance,
			Description: req.JobInfo.Description,
			Urgency:     req.JobInfo.Urgency,
			ModelInfo:   req.JobInfo.ModelInfo,
		}
	}

	ticket, err := svc.CreateTicket(r.Context(), in)
	if err != nil {
		writeTicketError(w, r, "createTicket", err)
		return
	}
	writeJSON(w, http.StatusCreated, TicketActionResponse{Status: "confirmed", TicketID: ticket.TicketID})
}

func handleGetTicket(w http.ResponseWriter, r *http.Request, svc DispatchService, req TaskRequest) {
	ticket, err := svc.GetTicket(r.Context(), req.TicketID)
	if err != nil {
		writeTicketError(w, r, "getTicket", err)
		return
	}
	writeJSON(w, http.StatusOK, TicketResponse{Ticket: toTicketPayload(ticket)})
}

func handleUpdateTicket(w http.ResponseWriter, r *http.Request, svc DispatchService, req TaskRequest) {
	if req.Updates == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "updates payload is required")
		return
	}

	if req.Updates.Reschedule != nil {
		rs := req.Updates.Reschedule
		_, err := svc.RescheduleTicket(r.Context(), req.TicketID, dispatch.Reschedule{
			OldDate:         rs.OldDate,
			OldTechnicianID: rs.OldTechID,
			NewDate:         rs.NewDate,
			NewSlot:         dispatch.SlotRef{TechnicianID: rs.NewSlot.TechID, Time: rs.NewSlot.Time},
		})
		if err != nil {
			writeTicketError(w, r, "updateTicket", err)
			return
		}
		writeJSON(w, http.StatusOK, TicketActionResponse{Status: "rescheduled", TicketID: req.TicketID})
		return
	}

	upd := dispatch.TicketUpdate{
		Description:     req.Updates.Description,
		Urgency:         req.Updates.Urgency,
		ModelInfo:       req.Updates.ModelInfo,
		RequestType:     req.Updates.RequestType,
		CustomerName:    req.Updates.CustomerName,
		CustomerAddress: req.Updates.CustomerAddress,
	}
	if req.Updates.Status != nil {
		status := dispatch.TicketStatus(*req.Updates.Status)
		upd.Status = &status
	}

	_, err := svc.UpdateTicket(r.Context(), req.TicketID, upd)
	if err != nil {
		writeTicketError(w, r, "updateTicket", err)
		return
	}
	writeJSON(w, http.StatusOK, TicketActionResponse{Status: "updated", TicketID: req.TicketID})
}

func handleCancelTicket(w http.ResponseWriter, r *http.Request, svc DispatchService, req TaskRequest) {
	ticket, err := svc.CancelTicket(r.Context(), req.TicketID)
	if err != nil {
		writeTicketError(w, r, "cancelTicket", err)
		return
	}
	writeJSON(w, http.StatusOK, TicketActionResponse{Status: "cancelled", TicketID: ticket.TicketID})
}

func handleGetCustomerByPhone(w http.ResponseWriter, r *http.Request, svc DispatchService, req TaskRequest) {
	customer, err := svc.GetCustomerByPhone(r.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, dispatch.ErrCustomerNotFound) {
			writeJSON(w, http.StatusOK, CustomerResponse{Customer: nil})
			return
		}
		writeTicketError(w, r, "getCustomerByPhone", err)
		return
	}
	writeJSON(w, http.StatusOK, CustomerResponse{Customer: &CustomerPayload{
		Name:    customer.Name,
		Phone:   customer.Phone,
		Address: customer.Address,
	}})
}

func handleGetRegionByKey(w http.ResponseWriter, r *http.Request, svc DispatchService, req TaskRequest) {
	region, err := svc.GetRegionByKey(r.Context(), req.Pincode)
	if err != nil {
		if errors.Is(err, dispatch.ErrRegionNotFound) {
			writeJSON(w, http.StatusOK, RegionResponse{Region: nil})
			return
		}
		writeTicketError(w, r, "getRegionByKey", err)
		return
	}
	writeJSON(w, http.StatusOK, RegionResponse{Region: &region})
}

// writeTicketError maps core errors onto the shared error taxonomy.
func writeTicketError(w http.ResponseWriter, r *http.Request, task string, err error) {
	var conflict *dispatch.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:            conflict.Error(),
			ExistingTicketID: conflict.ExistingTicketID,
		})
	case errors.Is(err, dispatch.ErrSlotTaken),
		errors.Is(err, dispatch.ErrSlotBeingBooked),
		errors.Is(err, dispatch.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, dispatch.ErrTicketNotFound),
		errors.Is(err, dispatch.ErrTechnicianNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case isInputError(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		internalError(w, r, task, err)
	}
}

func isInputError(err error) bool {
	var v *dispatch.ValidationError
	return errors.As(err, &v) ||
		errors.Is(err, schedule.ErrUnresolvablePreference) ||
		errors.Is(err, schedule.ErrPastDate)
}

func internalError(w http.ResponseWriter, r *http.Request, task string, err error) {
	log.Printf("task=%s request_id=%s internal error: %v", task, GetRequestID(r.Context()), err)
	writeError(w, http.StatusInternalServerError, "internal_error", "an internal server error occurred")
}

func toTicketPayload(t *dispatch.Ticket) *TicketPayload {
	return &TicketPayload{
		TicketID:        t.TicketID,
		Status:          string(t.Status),
		CustomerName:    t.CustomerName,
		CustomerPhone:   t.CustomerPhone,
		CustomerAddress: t.CustomerAddress,
		TechID:          t.TechnicianID,
		TechName:        t.TechnicianName,
		TechPhone:       t.TechnicianPhone,
		Appliance:       t.Appliance,
		Description:     t.Description,
		RequestType:     t.RequestType,
		Urgency:         t.Urgency,
		ModelInfo:       t.ModelInfo,
		AppointmentDate: t.AppointmentDate,
		AppointmentTime: t.AppointmentTime,
		CreatedAt:       t.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code + ": " + details})
}
