package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anbuchelvanvk/ServeEasy/internal/db"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS technicians (
		id            text PRIMARY KEY,
		name          text NOT NULL,
		phone         text NOT NULL,
		region        text NOT NULL,
		appliances    text[] NOT NULL DEFAULT '{}',
		working_hours jsonb NOT NULL DEFAULT '{}',
		created_at    timestamptz NOT NULL DEFAULT now(),
		updated_at    timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS technician_skills (
		skill         text NOT NULL,
		technician_id text NOT NULL REFERENCES technicians(id),
		PRIMARY KEY (skill, technician_id)
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		key           uuid PRIMARY KEY,
		date          text NOT NULL,
		technician_id text NOT NULL,
		start_time    text NOT NULL,
		end_time      text NOT NULL,
		ticket_id     text NOT NULL,
		created_at    timestamptz NOT NULL DEFAULT now(),
		UNIQUE (date, technician_id, start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS appointments_ticket_idx ON appointments (ticket_id)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		ticket_id        text PRIMARY KEY,
		status           text NOT NULL,
		customer_name    text NOT NULL,
		customer_phone   text NOT NULL,
		customer_address text NOT NULL DEFAULT '',
		technician_id    text NOT NULL,
		technician_name  text NOT NULL,
		technician_phone text NOT NULL DEFAULT '',
		appliance        text NOT NULL,
		description      text NOT NULL,
		request_type     text NOT NULL,
		urgency          text NOT NULL DEFAULT '',
		model_info       text NOT NULL DEFAULT '',
		appointment_date text NOT NULL,
		appointment_time text NOT NULL,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS tickets_phone_idx ON tickets (customer_phone, status)`,
	`CREATE TABLE IF NOT EXISTS customers (
		phone   text PRIMARY KEY,
		name    text NOT NULL,
		address text NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS regions (
		prefix text PRIMARY KEY,
		region text NOT NULL
	)`,
}

var (
	skills     = []string{"repair", "installation", "maintenance"}
	appliances = []string{"ac", "refrigerator", "washing_machine", "microwave", "tv"}
	regions    = map[string]string{
		"560": "Bangalore Central",
		"561": "Bangalore North",
		"562": "Bangalore Rural",
	}
	weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	shifts   = []string{"08:00-17:00", "09:00-18:00", "10:00-19:00", "11:00-20:00"}
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := applySchema(context.Background(), pool); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedRegions(context.Background(), pool); err != nil {
		log.Fatalf("seed regions: %v", err)
	}
	if err := seedTechnicians(context.Background(), pool, 40); err != nil {
		log.Fatalf("seed technicians: %v", err)
	}
	if err := seedCustomers(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed customers: %v", err)
	}

	log.Println("seed complete")
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaDDL {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	log.Println("schema applied")
	return nil
}

func seedRegions(ctx context.Context, pool *pgxpool.Pool) error {
	for prefix, name := range regions {
		_, err := pool.Exec(ctx, `
			INSERT INTO regions (prefix, region)
			VALUES ($1, $2)
			ON CONFLICT (prefix) DO NOTHING
		`, prefix, name)
		if err != nil {
			return err
		}
	}
	log.Println("regions seeded")
	return nil
}

func seedTechnicians(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d technicians", count)

	regionNames := make([]string, 0, len(regions))
	for _, name := range regions {
		regionNames = append(regionNames, name)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("TECH-%03d", i+1)
		name := gofakeit.Name()
		phone := gofakeit.Numerify("9#########")
		region := regionNames[gofakeit.Number(0, len(regionNames)-1)]

		supported := pick(appliances, gofakeit.Number(2, len(appliances)))

		hours := make(map[string]string, len(weekdays))
		for _, day := range weekdays {
			if day == "sunday" || gofakeit.Number(0, 9) == 0 {
				hours[day] = "none"
				continue
			}
			hours[day] = shifts[gofakeit.Number(0, len(shifts)-1)]
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO technicians (id, name, phone, region, appliances, working_hours, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (id) DO NOTHING
		`, id, name, phone, region, supported, hours)
		if err != nil {
			return err
		}

		for _, skill := range pick(skills, gofakeit.Number(1, len(skills))) {
			_, err := tx.Exec(ctx, `
				INSERT INTO technician_skills (skill, technician_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, skill, id)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("technicians seeded")
	return nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d customers", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		phone := gofakeit.Numerify("9#########")
		name := gofakeit.Name()
		address := gofakeit.Street() + ", " + gofakeit.City()

		_, err := tx.Exec(ctx, `
			INSERT INTO customers (phone, name, address)
			VALUES ($1, $2, $3)
			ON CONFLICT (phone) DO NOTHING
		`, phone, name, address)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("customers seeded")
	return nil
}

// pick returns n distinct random elements of values.
func pick(values []string, n int) []string {
	shuffled := make([]string, len(values))
	copy(shuffled, values)
	gofakeit.ShuffleStrings(shuffled)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
