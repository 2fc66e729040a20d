package api

import "time"

// TaskRequest is the single envelope the agent posts to /api/handler; the
// Task field selects the operation and the remaining fields are per-task.
type TaskRequest struct {
	Task string `json:"task"`

	// findAvailableSlots
	Region         string `json:"region,omitempty"`
	Skill          string `json:"skill,omitempty"`
	Appliance      string `json:"appliance,omitempty"`
	TimePreference string `json:"timePreference,omitempty"`
	CustomerPhone  string `json:"customerPhone,omitempty"`

	// createTicket
	AppointmentDate string           `json:"appointmentDate,omitempty"`
	Slot            *SlotPayload     `json:"slot,omitempty"`
	CustomerInfo    *CustomerPayload `json:"customerInfo,omitempty"`
	JobInfo         *JobPayload      `json:"jobInfo,omitempty"`

	// getTicket / updateTicket / cancelTicket
	TicketID string         `json:"ticketId,omitempty"`
	Updates  *UpdatePayload `json:"updates,omitempty"`

	// pass-through lookups
	Phone   string `json:"phone,omitempty"`
	Pincode string `json:"pincode,omitempty"`
}

type SlotPayload struct {
	TechID string `json:"techId"`
	Time   string `json:"time"`
}

type CustomerPayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

type JobPayload struct {
	RequestType string `json:"requestType"`
	Appliance   string `json:"appliance"`
	Description string `json:"description"`
	Urgency     string `json:"urgency,omitempty"`
	ModelInfo   string `json:"modelInfo,omitempty"`
}

// UpdatePayload is the updateTicket body. The presence of Reschedule decides
// between a plain field merge and a reschedule, once, here at the boundary.
type UpdatePayload struct {
	Status          *string `json:"status,omitempty"`
	Description     *string `json:"description,omitempty"`
	Urgency         *string `json:"urgency,omitempty"`
	ModelInfo       *string `json:"modelInfo,omitempty"`
	RequestType     *string `json:"requestType,omitempty"`
	CustomerName    *string `json:"customerName,omitempty"`
	CustomerAddress *string `json:"customerAddress,omitempty"`

	Reschedule *ReschedulePayload `json:"reschedule,omitempty"`
}

type ReschedulePayload struct {
	OldDate   string      `json:"oldDate"`
	OldTechID string      `json:"oldTechId"`
	NewDate   string      `json:"newDate"`
	NewSlot   SlotPayload `json:"newSlot"`
}

type SlotResult struct {
	Time     string `json:"time"`
	TechID   string `json:"techId"`
	TechName string `json:"techName"`
}

type SlotsResponse struct {
	Slots            []SlotResult `json:"slots"`
	Error            string       `json:"error,omitempty"`
	ExistingTicketID string       `json:"existingTicketId,omitempty"`
}

type TicketActionResponse struct {
	Status   string `json:"status"`
	TicketID string `json:"ticketId"`
}

type TicketPayload struct {
	TicketID        string    `json:"ticketId"`
	Status          string    `json:"status"`
	CustomerName    string    `json:"customerName"`
	CustomerPhone   string    `json:"customerPhone"`
	CustomerAddress string    `json:"customerAddress,omitempty"`
	TechID          string    `json:"techId"`
	TechName        string    `json:"techName"`
	TechPhone       string    `json:"techPhone,omitempty"`
	Appliance       string    `json:"appliance"`
	Description     string    `json:"description"`
	RequestType     string    `json:"requestType"`
	Urgency         string    `json:"urgency,omitempty"`
	ModelInfo       string    `json:"modelInfo,omitempty"`
	AppointmentDate string    `json:"appointmentDate"`
	AppointmentTime string    `json:"appointmentTime"`
	CreatedAt       time.Time `json:"createdAt"`
}

type TicketResponse struct {
	Ticket *TicketPayload `json:"ticket"`
}

type CustomerResponse struct {
	Customer *CustomerPayload `json:"customer"`
}

type RegionResponse struct {
	Region *string `json:"region"`
}

type ErrorResponse struct {
	Error            string `json:"error"`
	ExistingTicketID string `json:"existingTicketId,omitempty"`
}
