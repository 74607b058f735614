package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-operations/internal/config"
	"github.com/hackgods/clinic-operations/internal/db"
	"github.com/hackgods/clinic-operations/internal/identity"
	"github.com/hackgods/clinic-operations/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	AcceptRatio  float64
	ReadRatio    float64
	DoctorLimit  int
	PostgresDSN  string
}

// DataPool holds doctors and employees loaded up front and appointments booked during the run.
type DataPool struct {
	Doctors   []uuid.UUID
	Employees []uuid.UUID

	mu           sync.RWMutex
	appointments map[uuid.UUID]uuid.UUID // appointment -> doctor
	ids          []uuid.UUID
}

func (dp *DataPool) AddAppointment(id, doctorID uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if dp.appointments == nil {
		dp.appointments = map[uuid.UUID]uuid.UUID{}
	}
	dp.appointments[id] = doctorID
	dp.ids = append(dp.ids, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (id, doctorID uuid.UUID, ok bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.ids) == 0 {
		return uuid.Nil, uuid.Nil, false
	}
	id = dp.ids[rng.Intn(len(dp.ids))]
	return id, dp.appointments[id], true
}

type OperationMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err == nil && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case err == nil && status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

type LatencyStats struct {
	Avg, Min, Max, P50, P95, P99 time.Duration
}

func (om *OperationMetrics) Stats() LatencyStats {
	om.mu.Lock()
	sorted := append([]time.Duration(nil), om.latencies...)
	om.mu.Unlock()

	if len(sorted) == 0 {
		return LatencyStats{}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	pct := func(p int) time.Duration {
		idx := len(sorted) * p / 100
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}
	return LatencyStats{
		Avg: sum / time.Duration(len(sorted)),
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		P50: pct(50),
		P95: pct(95),
		P99: pct(99),
	}
}

type Metrics struct {
	Booking        OperationMetrics
	Accept         OperationMetrics
	ReadByID       OperationMetrics
	DoctorCalendar OperationMetrics
	UnreadCount    OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	logger  zerolog.Logger
	metrics Metrics
}

var departments = []string{"Cardiology", "Dermatology", "General Practice", "Neurology", "Pediatrics"}

func main() {
	base, err := config.Load()
	logger := logging.New("simulate", base.Env, base.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load base config")
	}

	cfg := loadConfig(base)
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("accept", cfg.AcceptRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 4)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	logger.Info().Int("doctors", len(dataPool.Doctors)).Msg("data loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
	sim.Run()
	sim.PrintReport(os.Stdout)
}

func loadConfig(base config.Config) SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:"+base.HTTPPort),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.4),
		AcceptRatio:  getFloat("SIM_ACCEPT_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.4),
		DoctorLimit:  getInt("SIM_DOCTOR_LIMIT", 100),
		PostgresDSN:  base.PostgresDSN,
	}

	total := cfg.BookingRatio + cfg.AcceptRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.AcceptRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	rows, err := pool.Query(ctx, `SELECT id FROM doctors ORDER BY created_at LIMIT $1`, cfg.DoctorLimit)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	defer rows.Close()

	dp := &DataPool{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dp.Doctors = append(dp.Doctors, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(dp.Doctors) == 0 {
		return nil, fmt.Errorf("no doctors loaded, run cmd/seed first")
	}

	employees, err := identity.NewPgRepository(pool).ListActiveEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	for _, e := range employees {
		dp.Employees = append(dp.Employees, e.ID)
	}
	return dp, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	faker := gofakeit.New(uint64(rng.Int63()))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng, faker)
		case r < s.config.BookingRatio+s.config.AcceptRatio:
			s.doAccept(ctx, rng)
		default:
			switch rng.Intn(3) {
			case 0:
				s.doReadByID(ctx, rng)
			case 1:
				s.doDoctorCalendar(ctx, rng)
			case 2:
				s.doUnreadCount(ctx, rng)
			}
		}
	}
}

// call performs one request and returns the status code and body.
func (s *Simulator) call(ctx context.Context, method, path string, body any, headers map[string]string) (int, []byte, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, 0, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, nil, latency, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, latency, err
}

func (s *Simulator) randomDoctor(rng *rand.Rand) uuid.UUID {
	return s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, faker *gofakeit.Faker) {
	doctorID := s.randomDoctor(rng)
	date := time.Now().AddDate(0, 0, rng.Intn(30)+1).Format("2006-01-02")

	status, body, latency, err := s.call(ctx, http.MethodPost, "/appointments", map[string]any{
		"name":          faker.Name(),
		"email":         faker.Email(),
		"phone":         faker.Phone(),
		"department":    departments[rng.Intn(len(departments))],
		"doctorId":      doctorID,
		"preferredDate": date,
		"preferredTime": fmt.Sprintf("%02d:%02d %s", rng.Intn(12)+1, rng.Intn(4)*15, []string{"AM", "PM"}[rng.Intn(2)]),
	}, nil)
	if ctx.Err() != nil {
		return
	}
	s.metrics.Booking.Record(latency, status, err)

	if err == nil && status == http.StatusCreated {
		var out struct {
			AppointmentID uuid.UUID `json:"appointmentId"`
		}
		if json.Unmarshal(body, &out) == nil && out.AppointmentID != uuid.Nil {
			s.pool.AddAppointment(out.AppointmentID, doctorID)
		}
	}
}

func (s *Simulator) doAccept(ctx context.Context, rng *rand.Rand) {
	id, doctorID, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	status, _, latency, err := s.call(ctx, http.MethodPatch, "/doctor/appointments/"+id.String()+"/accept", nil,
		map[string]string{"X-Doctor-ID": doctorID.String()})
	if ctx.Err() != nil {
		return
	}
	s.metrics.Accept.Record(latency, status, err)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	id, _, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	status, _, latency, err := s.call(ctx, http.MethodGet, "/appointments/"+id.String(), nil, nil)
	if ctx.Err() != nil {
		return
	}
	s.metrics.ReadByID.Record(latency, status, err)
}

func (s *Simulator) doDoctorCalendar(ctx context.Context, rng *rand.Rand) {
	status, _, latency, err := s.call(ctx, http.MethodGet, "/doctor/appointments?limit=20", nil,
		map[string]string{"X-Doctor-ID": s.randomDoctor(rng).String()})
	if ctx.Err() != nil {
		return
	}
	s.metrics.DoctorCalendar.Record(latency, status, err)
}

// doUnreadCount alternates between doctor inboxes and the employee inboxes
// that KYC and calendar broadcasts land in.
func (s *Simulator) doUnreadCount(ctx context.Context, rng *rand.Rand) {
	kind, id := "doctor", s.randomDoctor(rng)
	if n := len(s.pool.Employees); n > 0 && rng.Intn(2) == 0 {
		kind, id = "employee", s.pool.Employees[rng.Intn(n)]
	}
	status, _, latency, err := s.call(ctx, http.MethodGet,
		"/notifications/unread/count?recipientType="+kind+"&recipientId="+id.String(), nil, nil)
	if ctx.Err() != nil {
		return
	}
	s.metrics.UnreadCount.Record(latency, status, err)
}

func (s *Simulator) PrintReport(w io.Writer) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "SIMULATION REPORT")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Duration: %s\nWorkers: %d\n\n", s.config.Duration, s.config.Workers)

	printOperationReport(w, "Booking", &s.metrics.Booking)
	printOperationReport(w, "Accept", &s.metrics.Accept)
	printOperationReport(w, "Read by ID", &s.metrics.ReadByID)
	printOperationReport(w, "Doctor calendar", &s.metrics.DoctorCalendar)
	printOperationReport(w, "Unread count", &s.metrics.UnreadCount)
}

func printOperationReport(w io.Writer, name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	share := func(n int64) float64 { return float64(n) / float64(total) * 100 }

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	st := om.Stats()

	fmt.Fprintf(w, "%s:\n  Total: %d\n  Success: %d (%.1f%%)\n", name, total, success, share(success))
	if conflict > 0 {
		fmt.Fprintf(w, "  Conflicts: %d (%.1f%%)\n", conflict, share(conflict))
	}
	if failed > 0 {
		fmt.Fprintf(w, "  Errors: %d (%.1f%%)\n", failed, share(failed))
	}
	fmt.Fprintf(w, "  Latency: avg=%s min=%s max=%s p50=%s p95=%s p99=%s\n\n",
		st.Avg.Round(time.Millisecond), st.Min.Round(time.Millisecond), st.Max.Round(time.Millisecond),
		st.P50.Round(time.Millisecond), st.P95.Round(time.Millisecond), st.P99.Round(time.Millisecond))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
