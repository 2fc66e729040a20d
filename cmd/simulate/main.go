package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anbuchelvanvk/ServeEasy/internal/db"
)

// simulate hammers one calendar slot with concurrent createTicket calls and
// reports how many bookings actually landed. With the conditional pointer
// write in place, exactly one attempt should succeed no matter how many race.

type SimConfig struct {
	APIBaseURL string
	Workers    int
	Attempts   int
	TechID     string
	Date       string
	SlotTime   string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95idx := len(latencies) * 95 / 100
	if p95idx >= len(latencies) {
		p95idx = len(latencies) - 1
	}
	p95 = latencies[p95idx]
	max = latencies[len(latencies)-1]
	return avg, p50, p95, max
}

func main() {
	log.SetFlags(log.LstdFlags)

	cfg := SimConfig{}
	flag.StringVar(&cfg.APIBaseURL, "api", "http://127.0.0.1:8080", "api-server base URL")
	flag.IntVar(&cfg.Workers, "workers", 16, "concurrent workers")
	flag.IntVar(&cfg.Attempts, "attempts", 64, "total booking attempts")
	flag.StringVar(&cfg.TechID, "tech", "", "target technician id (default: first in store)")
	flag.StringVar(&cfg.Date, "date", "", "target date YYYY-MM-DD (default: tomorrow)")
	flag.StringVar(&cfg.SlotTime, "slot", "09:00-11:00", "target slot HH:MM-HH:MM")
	flag.Parse()

	if cfg.Date == "" {
		cfg.Date = time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	}
	if cfg.TechID == "" {
		id, err := firstTechnicianID()
		if err != nil {
			log.Fatalf("pick technician: %v", err)
		}
		cfg.TechID = id
	}

	log.Printf("targeting slot date=%s tech=%s time=%s with %d attempts across %d workers",
		cfg.Date, cfg.TechID, cfg.SlotTime, cfg.Attempts, cfg.Workers)

	metrics := &OperationMetrics{}
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}
			for i := range jobs {
				attemptBooking(client, cfg, i, metrics)
			}
		}()
	}

	start := time.Now()
	for i := 0; i < cfg.Attempts; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	avg, p50, p95, max := metrics.Stats()
	fmt.Printf("\n--- simulate summary ---\n")
	fmt.Printf("attempts: %d in %s\n", metrics.Total, elapsed.Round(time.Millisecond))
	fmt.Printf("success:  %d\n", metrics.Success)
	fmt.Printf("conflict: %d\n", metrics.Conflict)
	fmt.Printf("error:    %d\n", metrics.Error)
	fmt.Printf("latency:  avg=%s p50=%s p95=%s max=%s\n", avg, p50, p95, max)

	switch {
	case metrics.Success == 1:
		fmt.Println("verdict: OK — exactly one booking won the slot")
	case metrics.Success == 0:
		fmt.Println("verdict: no booking succeeded (was the slot already taken?)")
	default:
		fmt.Printf("verdict: DOUBLE BOOKING — %d attempts succeeded for one slot\n", metrics.Success)
		os.Exit(1)
	}
}

func attemptBooking(client *http.Client, cfg SimConfig, n int, metrics *OperationMetrics) {
	// Distinct phone per attempt so the duplicate-customer guard stays out
	// of the way; this run measures the slot race only.
	body := map[string]any{
		"task":            "createTicket",
		"appointmentDate": cfg.Date,
		"slot": map[string]string{
			"techId": cfg.TechID,
			"time":   cfg.SlotTime,
		},
		"customerInfo": map[string]string{
			"name":    fmt.Sprintf("Load Tester %d", n),
			"phone":   fmt.Sprintf("9%09d", n),
			"address": "1 Simulation Street",
		},
		"jobInfo": map[string]string{
			"requestType": "repair",
			"appliance":   "ac",
			"description": "simulated load test booking",
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		log.Printf("marshal attempt %d: %v", n, err)
		return
	}

	start := time.Now()
	resp, err := client.Post(cfg.APIBaseURL+"/api/handler", "application/json", bytes.NewReader(payload))
	latency := time.Since(start)
	if err != nil {
		log.Printf("attempt %d: %v", n, err)
		metrics.Record(latency, 0)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	metrics.Record(latency, resp.StatusCode)
}

func firstTechnicianID() (string, error) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		return "", fmt.Errorf("POSTGRES_DSN is required to pick a technician")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		return "", err
	}
	defer pool.Close()

	var id string
	err = pool.QueryRow(ctx, `SELECT id FROM technicians ORDER BY id LIMIT 1`).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
