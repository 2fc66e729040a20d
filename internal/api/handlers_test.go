package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anbuchelvanvk/ServeEasy/internal/dispatch"
	"github.com/anbuchelvanvk/ServeEasy/internal/schedule"
)

// fakeService implements DispatchService with per-method hooks.
type fakeService struct {
	findAvailableSlots func(ctx context.Context, in dispatch.FindSlotsInput) ([]dispatch.Slot, error)
	createTicket       func(ctx context.Context, in dispatch.CreateTicketInput) (*dispatch.Ticket, error)
	getTicket          func(ctx context.Context, ticketID string) (*dispatch.Ticket, error)
	updateTicket       func(ctx context.Context, ticketID string, upd dispatch.TicketUpdate) (*dispatch.Ticket, error)
	rescheduleTicket   func(ctx context.Context, ticketID string, r dispatch.Reschedule) (*dispatch.Ticket, error)
	cancelTicket       func(ctx context.Context, ticketID string) (*dispatch.Ticket, error)
	getCustomerByPhone func(ctx context.Context, phone string) (*dispatch.Customer, error)
	getRegionByKey     func(ctx context.Context, pincode string) (string, error)
}

func (f *fakeService) FindAvailableSlots(ctx context.Context, in dispatch.FindSlotsInput) ([]dispatch.Slot, error) {
	return f.findAvailableSlots(ctx, in)
}

func (f *fakeService) CreateTicket(ctx context.Context, in dispatch.CreateTicketInput) (*dispatch.Ticket, error) {
	return f.createTicket(ctx, in)
}

func (f *fakeService) GetTicket(ctx context.Context, ticketID string) (*dispatch.Ticket, error) {
	return f.getTicket(ctx, ticketID)
}

func (f *fakeService) UpdateTicket(ctx context.Context, ticketID string, upd dispatch.TicketUpdate) (*dispatch.Ticket, error) {
	return f.updateTicket(ctx, ticketID, upd)
}

func (f *fakeService) RescheduleTicket(ctx context.Context, ticketID string, r dispatch.Reschedule) (*dispatch.Ticket, error) {
	return f.rescheduleTicket(ctx, ticketID, r)
}

func (f *fakeService) CancelTicket(ctx context.Context, ticketID string) (*dispatch.Ticket, error) {
	return f.cancelTicket(ctx, ticketID)
}

func (f *fakeService) GetCustomerByPhone(ctx context.Context, phone string) (*dispatch.Customer, error) {
	return f.getCustomerByPhone(ctx, phone)
}

func (f *fakeService) GetRegionByKey(ctx context.Context, pincode string) (string, error) {
	return f.getRegionByKey(ctx, pincode)
}

func postTask(t *testing.T, svc DispatchService, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/handler", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	taskHandler(svc)(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestTaskHandler_UnknownTask(t *testing.T) {
	rec := postTask(t, &fakeService{}, `{"task":"launchRocket"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if !strings.Contains(resp.Error, "invalid_task") {
		t.Errorf("error = %q, want invalid_task", resp.Error)
	}
}

func TestTaskHandler_MalformedBody(t *testing.T) {
	rec := postTask(t, &fakeService{}, `{"task": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFindAvailableSlots_OK(t *testing.T) {
	svc := &fakeService{
		findAvailableSlots: func(ctx context.Context, in dispatch.FindSlotsInput) ([]dispatch.Slot, error) {
			if in.Region != "Bangalore North" || in.Skill != "repair" || in.TimePreference != "tomorrow morning" {
				t.Errorf("input not forwarded: %+v", in)
			}
			return []dispatch.Slot{
				{Time: "09:00-11:00", TechnicianID: "TECH-001", TechnicianName: "Arun"},
				{Time: "11:00-13:00", TechnicianID: "TECH-002", TechnicianName: "Meera"},
			}, nil
		},
	}

	rec := postTask(t, svc, `{
		"task": "findAvailableSlots",
		"region": "Bangalore North",
		"skill": "repair",
		"appliance": "ac",
		"timePreference": "tomorrow morning"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp SlotsResponse
	decodeBody(t, rec, &resp)
	if len(resp.Slots) != 2 {
		t.Fatalf("slots = %v, want 2 entries", resp.Slots)
	}
	if resp.Slots[0].TechID != "TECH-001" || resp.Slots[0].TechName != "Arun" {
		t.Errorf("slots[0] = %+v", resp.Slots[0])
	}
}

func TestFindAvailableSlots_NoAvailabilityIsOK(t *testing.T) {
	svc := &fakeService{
		findAvailableSlots: func(ctx context.Context, in dispatch.FindSlotsInput) ([]dispatch.Slot, error) {
			return nil, dispatch.ErrNoAvailability
		},
	}

	rec := postTask(t, svc, `{"task":"findAvailableSlots","region":"r","skill":"s","appliance":"a","timePreference":"tomorrow"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (no availability is a normal outcome)", rec.Code)
	}

	var resp SlotsResponse
	decodeBody(t, rec, &resp)
	if resp.Slots == nil || len(resp.Slots) != 0 {
		t.Errorf("slots = %v, want present and empty", resp.Slots)
	}
	if resp.Error == "" {
		t.Error("expected an explanatory error message")
	}
}

func TestFindAvailableSlots_OpenTicketConflict(t *testing.T) {
	svc := &fakeService{
		findAvailableSlots: func(ctx context.Context, in dispatch.FindSlotsInput) ([]dispatch.Slot, error) {
			return nil, &dispatch.ConflictError{ExistingTicketID: "TKT-123"}
		},
	}

	rec := postTask(t, svc, `{"task":"findAvailableSlots","region":"r","skill":"s","appliance":"a","timePreference":"tomorrow","customerPhone":"9876543210"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	var resp SlotsResponse
	decodeBody(t, rec, &resp)
	if resp.ExistingTicketID != "TKT-123" {
		t.Errorf("existingTicketId = %q, want TKT-123", resp.ExistingTicketID)
	}
}

func TestFindAvailableSlots_BadPreferenceIs400(t *testing.T) {
	svc := &fakeService{
		findAvailableSlots: func(ctx context.Context, in dispatch.FindSlotsInput) ([]dispatch.Slot, error) {
			return nil, schedule.ErrUnresolvablePreference
		},
	}

	rec := postTask(t, svc, `{"task":"findAvailableSlots","region":"r","skill":"s","appliance":"a","timePreference":"gibberish"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateTicket_Created(t *testing.T) {
	svc := &fakeService{
		createTicket: func(ctx context.Context, in dispatch.CreateTicketInput) (*dispatch.Ticket, error) {
			if in.Slot.TechnicianID != "TECH-001" || in.Slot.Time != "09:00-11:00" {
				t.Errorf("slot not forwarded: %+v", in.Slot)
			}
			if in.Customer.Phone != "9876543210" || in.Job.Appliance != "ac" {
				t.Errorf("payload not forwarded: %+v", in)
			}
			return &dispatch.Ticket{TicketID: "TKT-1700000000000-ABCDEF", Status: dispatch.StatusBooked}, nil
		},
	}

	rec := postTask(t, svc, `{
		"task": "createTicket",
		"appointmentDate": "2026-03-05",
		"slot": {"techId": "TECH-001", "time": "09:00-11:00"},
		"customerInfo": {"name": "Priya", "phone": "9876543210", "address": "12 MG Road"},
		"jobInfo": {"requestType": "repair", "appliance": "ac", "description": "not cooling"}
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp TicketActionResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "confirmed" || resp.TicketID != "TKT-1700000000000-ABCDEF" {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateTicket_SlotConflict(t *testing.T) {
	svc := &fakeService{
		createTicket: func(ctx context.Context, in dispatch.CreateTicketInput) (*dispatch.Ticket, error) {
			return nil, dispatch.ErrSlotBeingBooked
		},
	}

	rec := postTask(t, svc, `{"task":"createTicket"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestGetTicket_OKAndNotFound(t *testing.T) {
	svc := &fakeService{
		getTicket: func(ctx context.Context, ticketID string) (*dispatch.Ticket, error) {
			if ticketID == "TKT-1" {
				return &dispatch.Ticket{
					TicketID:        "TKT-1",
					Status:          dispatch.StatusBooked,
					CustomerName:    "Priya",
					AppointmentDate: "2026-03-05",
					AppointmentTime: "09:00-11:00",
				}, nil
			}
			return nil, dispatch.ErrTicketNotFound
		},
	}

	rec := postTask(t, svc, `{"task":"getTicket","ticketId":"TKT-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp TicketResponse
	decodeBody(t, rec, &resp)
	if resp.Ticket == nil || resp.Ticket.TicketID != "TKT-1" || resp.Ticket.Status != "Booked" {
		t.Errorf("ticket = %+v", resp.Ticket)
	}

	rec = postTask(t, svc, `{"task":"getTicket","ticketId":"TKT-404"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateTicket_FieldMerge(t *testing.T) {
	var gotUpd dispatch.TicketUpdate
	svc := &fakeService{
		updateTicket: func(ctx context.Context, ticketID string, upd dispatch.TicketUpdate) (*dispatch.Ticket, error) {
			gotUpd = upd
			return &dispatch.Ticket{TicketID: ticketID}, nil
		},
	}

	rec := postTask(t, svc, `{
		"task": "updateTicket",
		"ticketId": "TKT-1",
		"updates": {"status": "InProgress", "description": "new description"}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if gotUpd.Status == nil || *gotUpd.Status != dispatch.StatusInProgress {
		t.Errorf("status not forwarded: %+v", gotUpd.Status)
	}
	if gotUpd.Description == nil || *gotUpd.Description != "new description" {
		t.Errorf("description not forwarded: %+v", gotUpd.Description)
	}
	if gotUpd.Urgency != nil {
		t.Errorf("absent field forwarded as set: %v", *gotUpd.Urgency)
	}
}

func TestUpdateTicket_RescheduleBranch(t *testing.T) {
	var gotReschedule dispatch.Reschedule
	svc := &fakeService{
		rescheduleTicket: func(ctx context.Context, ticketID string, r dispatch.Reschedule) (*dispatch.Ticket, error) {
			gotReschedule = r
			return &dispatch.Ticket{TicketID: ticketID}, nil
		},
		updateTicket: func(ctx context.Context, ticketID string, upd dispatch.TicketUpdate) (*dispatch.Ticket, error) {
			t.Fatal("plain update called for a reschedule payload")
			return nil, nil
		},
	}

	rec := postTask(t, svc, `{
		"task": "updateTicket",
		"ticketId": "TKT-1",
		"updates": {
			"reschedule": {
				"oldDate": "2026-03-05",
				"oldTechId": "TECH-001",
				"newDate": "2026-03-06",
				"newSlot": {"techId": "TECH-002", "time": "13:00-15:00"}
			}
		}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp TicketActionResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "rescheduled" {
		t.Errorf("status = %q, want rescheduled", resp.Status)
	}
	if gotReschedule.NewSlot.TechnicianID != "TECH-002" || gotReschedule.OldDate != "2026-03-05" {
		t.Errorf("reschedule not forwarded: %+v", gotReschedule)
	}
}

func TestUpdateTicket_MissingUpdates(t *testing.T) {
	rec := postTask(t, &fakeService{}, `{"task":"updateTicket","ticketId":"TKT-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateTicket_InvalidTransitionIsConflict(t *testing.T) {
	svc := &fakeService{
		updateTicket: func(ctx context.Context, ticketID string, upd dispatch.TicketUpdate) (*dispatch.Ticket, error) {
			return nil, errors.New("wrapped: " + dispatch.ErrInvalidStatusTransition.Error())
		},
	}
	// Plain opaque errors are internal faults.
	rec := postTask(t, svc, `{"task":"updateTicket","ticketId":"TKT-1","updates":{"status":"Completed"}}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 for opaque error", rec.Code)
	}

	svc.updateTicket = func(ctx context.Context, ticketID string, upd dispatch.TicketUpdate) (*dispatch.Ticket, error) {
		return nil, dispatch.ErrInvalidStatusTransition
	}
	rec = postTask(t, svc, `{"task":"updateTicket","ticketId":"TKT-1","updates":{"status":"Completed"}}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestCancelTicket_OK(t *testing.T) {
	svc := &fakeService{
		cancelTicket: func(ctx context.Context, ticketID string) (*dispatch.Ticket, error) {
			return &dispatch.Ticket{TicketID: ticketID, Status: dispatch.StatusCancelled}, nil
		},
	}

	rec := postTask(t, svc, `{"task":"cancelTicket","ticketId":"TKT-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp TicketActionResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "cancelled" || resp.TicketID != "TKT-1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetCustomerByPhone_NullOnMiss(t *testing.T) {
	svc := &fakeService{
		getCustomerByPhone: func(ctx context.Context, phone string) (*dispatch.Customer, error) {
			return nil, dispatch.ErrCustomerNotFound
		},
	}

	rec := postTask(t, svc, `{"task":"getCustomerByPhone","phone":"9876543210"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (miss is not an error)", rec.Code)
	}

	var resp CustomerResponse
	decodeBody(t, rec, &resp)
	if resp.Customer != nil {
		t.Errorf("customer = %+v, want null", resp.Customer)
	}
}

func TestGetRegionByKey(t *testing.T) {
	svc := &fakeService{
		getRegionByKey: func(ctx context.Context, pincode string) (string, error) {
			if pincode == "560001" {
				return "Bangalore Central", nil
			}
			return "", dispatch.ErrRegionNotFound
		},
	}

	rec := postTask(t, svc, `{"task":"getRegionByKey","pincode":"560001"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp RegionResponse
	decodeBody(t, rec, &resp)
	if resp.Region == nil || *resp.Region != "Bangalore Central" {
		t.Errorf("region = %v", resp.Region)
	}

	rec = postTask(t, svc, `{"task":"getRegionByKey","pincode":"999999"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp = RegionResponse{}
	decodeBody(t, rec, &resp)
	if resp.Region != nil {
		t.Errorf("region = %v, want null", resp.Region)
	}
}
