package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanTechnician(row pgx.Row) (*Technician, error) {
	var t Technician
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Phone,
		&t.Region,
		&t.Appliances,
		&t.WorkingHours,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTechnicianNotFound
		}
		return nil, err
	}
	return &t, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.Key,
		&a.Date,
		&a.TechnicianID,
		&a.Start,
		&a.End,
		&a.TicketID,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(
		&t.TicketID,
		&t.Status,
		&t.CustomerName,
		&t.CustomerPhone,
		&t.CustomerAddress,
		&t.TechnicianID,
		&t.TechnicianName,
		&t.TechnicianPhone,
		&t.Appliance,
		&t.Description,
		&t.RequestType,
		&t.Urgency,
		&t.ModelInfo,
		&t.AppointmentDate,
		&t.AppointmentTime,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

const technicianColumns = `id, name, phone, region, appliances, working_hours, created_at, updated_at`
const appointmentColumns = `key, date, technician_id, start_time, end_time, ticket_id, created_at`
const ticketColumns = `ticket_id, status, customer_name, customer_phone, customer_address,
	technician_id, technician_name, technician_phone,
	appliance, description, request_type, urgency, model_info,
	appointment_date, appointment_time, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetTechnician(ctx context.Context, id string) (*Technician, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+technicianColumns+`
		FROM technicians
		WHERE id = $1
	`, id)
	return scanTechnician(row)
}

func (r *PgRepository) ListTechnicianIDsBySkill(ctx context.Context, skill string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT technician_id
		FROM technician_skills
		WHERE skill = $1
		ORDER BY technician_id
	`, NormalizeCode(skill))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgRepository) GetTechnicians(ctx context.Context, ids []string) (map[string]*Technician, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+technicianColumns+`
		FROM technicians
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	techs := make(map[string]*Technician, len(ids))
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		techs[t.ID] = t
	}
	return techs, rows.Err()
}

func (r *PgRepository) ListAppointmentsForDate(ctx context.Context, date string) (map[string][]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byTech := make(map[string][]Appointment)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		byTech[a.TechnicianID] = append(byTech[a.TechnicianID], *a)
	}
	return byTech, rows.Err()
}

func (r *PgRepository) GetAppointmentAt(ctx context.Context, date, technicianID, start string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1 AND technician_id = $2 AND start_time = $3
	`, date, technicianID, start)
	return scanAppointment(row)
}

func (r *PgRepository) FindAppointmentByTicket(ctx context.Context, date, technicianID, ticketID string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1 AND technician_id = $2 AND ticket_id = $3
	`, date, technicianID, ticketID)
	return scanAppointment(row)
}

// insertAppointment is the conditional write guarding double booking: the
// unique (date, technician_id, start_time) index makes the insert a no-op
// when the slot is taken, which fails the surrounding transaction.
func insertAppointment(ctx context.Context, tx pgx.Tx, a Appointment) error {
	tag, err := tx.Exec(ctx, `
		INSERT INTO appointments (key, date, technician_id, start_time, end_time, ticket_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (date, technician_id, start_time) DO NOTHING
	`, a.Key, a.Date, a.TechnicianID, a.Start, a.End, a.TicketID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotTaken
	}
	return nil
}

func (r *PgRepository) CreateTicket(ctx context.Context, t *Ticket, ptr Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertAppointment(ctx, tx, ptr); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (ticket_id, status, customer_name, customer_phone, customer_address,
			technician_id, technician_name, technician_phone,
			appliance, description, request_type, urgency, model_info,
			appointment_date, appointment_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
	`, t.TicketID, t.Status, t.CustomerName, t.CustomerPhone, t.CustomerAddress,
		t.TechnicianID, t.TechnicianName, t.TechnicianPhone,
		t.Appliance, t.Description, t.RequestType, t.Urgency, t.ModelInfo,
		t.AppointmentDate, t.AppointmentTime)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) GetTicket(ctx context.Context, ticketID string) (*Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE ticket_id = $1
	`, ticketID)
	return scanTicket(row)
}

func (r *PgRepository) UpdateTicket(ctx context.Context, ticketID string, upd TicketUpdate) (*Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tickets
		SET status           = COALESCE($2, status),
		    description      = COALESCE($3, description),
		    urgency          = COALESCE($4, urgency),
		    model_info       = COALESCE($5, model_info),
		    request_type     = COALESCE($6, request_type),
		    customer_name    = COALESCE($7, customer_name),
		    customer_address = COALESCE($8, customer_address),
		    updated_at       = now()
		WHERE ticket_id = $1
		RETURNING `+ticketColumns+`
	`, ticketID, upd.Status, upd.Description, upd.Urgency, upd.ModelInfo,
		upd.RequestType, upd.CustomerName, upd.CustomerAddress)
	return scanTicket(row)
}

func (r *PgRepository) RescheduleTicket(ctx context.Context, ticketID string, oldPtr *Appointment, newPtr Appointment, tech *Technician) (*Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if oldPtr != nil {
		// Best effort: the old pointer may already be gone.
		if _, err := tx.Exec(ctx, `DELETE FROM appointments WHERE key = $1`, oldPtr.Key); err != nil {
			return nil, fmt.Errorf("remove old appointment: %w", err)
		}
	}

	if err := insertAppointment(ctx, tx, newPtr); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET appointment_date = $2,
		    appointment_time = $3,
		    technician_id    = $4,
		    technician_name  = $5,
		    technician_phone = $6,
		    updated_at       = now()
		WHERE ticket_id = $1
		RETURNING `+ticketColumns+`
	`, ticketID, newPtr.Date, newPtr.Start+"-"+newPtr.End, tech.ID, tech.Name, tech.Phone)

	t, err := scanTicket(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PgRepository) CancelTicket(ctx context.Context, ticketID string) (*Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $2,
		    updated_at = now()
		WHERE ticket_id = $1
		RETURNING `+ticketColumns+`
	`, ticketID, StatusCancelled)

	t, err := scanTicket(row)
	if err != nil {
		return nil, err
	}

	// Free the calendar slot in the same transaction as the status flip.
	if _, err := tx.Exec(ctx, `DELETE FROM appointments WHERE ticket_id = $1`, ticketID); err != nil {
		return nil, fmt.Errorf("remove appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PgRepository) FindOpenTicketByPhone(ctx context.Context, phone string) (*Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE customer_phone = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT 1
	`, phone, StatusBooked, StatusInProgress)
	return scanTicket(row)
}

func (r *PgRepository) FindOpenTicketForAppliance(ctx context.Context, phone, appliance string) (*Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE customer_phone = $1 AND appliance = $2 AND status IN ($3, $4)
		ORDER BY created_at DESC
		LIMIT 1
	`, phone, appliance, StatusBooked, StatusInProgress)
	return scanTicket(row)
}

func (r *PgRepository) GetCustomerByPhone(ctx context.Context, phone string) (*Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `
		SELECT phone, name, address
		FROM customers
		WHERE phone = $1
	`, phone).Scan(&c.Phone, &c.Name, &c.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PgRepository) GetRegionByPrefix(ctx context.Context, prefix string) (string, error) {
	var region string
	err := r.pool.QueryRow(ctx, `
		SELECT region
		FROM regions
		WHERE prefix = $1
	`, prefix).Scan(&region)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrRegionNotFound
		}
		return "", err
	}
	return region, nil
}
