package main

import (
	"context"
	"encoding/json"
	"fmt"
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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	ReserveRatio float64
	CancelRatio  float64
	ReadRatio    float64
	Patients     int
	SlotLimit    int
	JWTSecret    string
}

type patientSession struct {
	id    uuid.UUID
	token string

	mu       sync.Mutex
	reserved []uuid.UUID
}

func (p *patientSession) addReservation(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reserved = append(p.reserved, id)
}

// takeReservation removes and returns one held reservation.
func (p *patientSession) takeReservation(pick func(n int) int) (uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.reserved) == 0 {
		return uuid.Nil, false
	}
	idx := pick(len(p.reserved))
	id := p.reserved[idx]
	p.reserved = append(p.reserved[:idx], p.reserved[idx+1:]...)
	return id, true
}

type DataPool struct {
	Slots    []uuid.UUID
	Patients []*patientSession

	mu           sync.Mutex
	reservations map[uuid.UUID][]uuid.UUID // appointment -> patients that got a 200
}

func (dp *DataPool) recordReservation(appointmentID, patientID uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.reservations[appointmentID] = append(dp.reservations[appointmentID], patientID)
}

// doubleBooked returns appointments that more than one reserve call won.
// Canceled slots never reopen, so every appointment has at most one winner.
func (dp *DataPool) doubleBooked() map[uuid.UUID][]uuid.UUID {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	out := make(map[uuid.UUID][]uuid.UUID)
	for id, winners := range dp.reservations {
		if len(winners) > 1 {
			out[id] = winners
		}
	}
	return out
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Reserve       OperationMetrics
	Cancel        OperationMetrics
	ListByPatient OperationMetrics
	ListCanceled  OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	logger  *zap.Logger
	metrics Metrics
}

func main() {
	_ = godotenv.Load()

	logger := logging.MustNew(getEnv("APP_ENV", "dev"), getEnv("LOG_LEVEL", "info"))
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	logger.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("reserve", cfg.ReserveRatio),
		zap.Float64("cancel", cfg.CancelRatio),
		zap.Float64("read", cfg.ReadRatio),
	)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.Duration+time.Hour)
	sim := &Simulator{
		config: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dataPool, err := sim.loadDataPool(ctx, tokens)
	if err != nil {
		logger.Fatal("load data pool", zap.Error(err))
	}
	sim.pool = dataPool

	logger.Info("data pool loaded",
		zap.Int("patients", len(dataPool.Patients)),
		zap.Int("slots", len(dataPool.Slots)),
	)

	// Run simulation
	sim.Run()

	// Print report
	if ok := sim.PrintReport(); !ok {
		os.Exit(1)
	}
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		ReserveRatio: getFloat("SIM_RESERVE_RATIO", 0.5),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		Patients:     getInt("SIM_PATIENTS", 50),
		SlotLimit:    getInt("SIM_SLOT_LIMIT", 500),
		JWTSecret:    os.Getenv("JWT_SECRET"),
	}

	// Normalize ratios
	total := cfg.ReserveRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.ReserveRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Patients <= 0 {
		return fmt.Errorf("SIM_PATIENTS must be > 0")
	}
	return nil
}

// loadDataPool mints tokens locally and collects available slots through the
// API, the same way a patient browsing doctors would.
func (s *Simulator) loadDataPool(ctx context.Context, tokens *auth.TokenManager) (*DataPool, error) {
	dataPool := &DataPool{reservations: make(map[uuid.UUID][]uuid.UUID)}

	for i := 0; i < s.config.Patients; i++ {
		id := uuid.New()
		token, err := tokens.Issue(auth.Identity{SubjectID: id, Role: auth.RolePatient})
		if err != nil {
			return nil, fmt.Errorf("issue patient token: %w", err)
		}
		dataPool.Patients = append(dataPool.Patients, &patientSession{id: id, token: token})
	}
	browser := dataPool.Patients[0].token

	var doctors []struct {
		ID uuid.UUID `json:"id"`
	}
	if err := s.getJSON(ctx, "/api/doctors", browser, &doctors); err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}

	for _, d := range doctors {
		if len(dataPool.Slots) >= s.config.SlotLimit {
			break
		}
		var detail struct {
			Available struct {
				Items []struct {
					ID uuid.UUID `json:"id"`
				} `json:"items"`
			} `json:"availableAppointments"`
		}
		if err := s.getJSON(ctx, "/api/doctors/"+d.ID.String()+"?limit=100", browser, &detail); err != nil {
			return nil, fmt.Errorf("load doctor %s: %w", d.ID, err)
		}
		for _, slot := range detail.Available.Items {
			dataPool.Slots = append(dataPool.Slots, slot.ID)
		}
	}

	if len(dataPool.Slots) > s.config.SlotLimit {
		dataPool.Slots = dataPool.Slots[:s.config.SlotLimit]
	}
	if len(dataPool.Slots) == 0 {
		return nil, fmt.Errorf("no available slots loaded, run the seed first")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("starting simulation", zap.Duration("duration", s.config.Duration), zap.Int("workers", s.config.Workers))

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx)
		}()
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context) {
	faker := gofakeit.New(0)
	pick := func(n int) int { return faker.Number(0, n-1) }

	for {
		select {
		case <-ctx.Done():
			return
		default:
			patient := s.pool.Patients[pick(len(s.pool.Patients))]

			// Select operation based on ratios
			r := faker.Float64()
			if r < s.config.ReserveRatio {
				s.doReserve(ctx, patient, s.pool.Slots[pick(len(s.pool.Slots))])
			} else if r < s.config.ReserveRatio+s.config.CancelRatio {
				s.doCancel(ctx, patient, pick)
			} else if pick(2) == 0 {
				s.doList(ctx, patient, "/api/appointments/mine?limit=20", &s.metrics.ListByPatient)
			} else {
				s.doList(ctx, patient, "/api/appointments/canceled?limit=20", &s.metrics.ListCanceled)
			}
		}
	}
}

func (s *Simulator) doReserve(ctx context.Context, patient *patientSession, slotID uuid.UUID) {
	start := time.Now()
	status, err := s.post(ctx, "/api/appointments/"+slotID.String()+"/reserve", patient.token)
	latency := time.Since(start)

	success := err == nil && status == http.StatusOK
	taken := err == nil && status == http.StatusNotFound
	if success {
		patient.addReservation(slotID)
		s.pool.recordReservation(slotID, patient.id)
	}

	s.metrics.Reserve.Record(latency, success, taken)
}

func (s *Simulator) doCancel(ctx context.Context, patient *patientSession, pick func(n int) int) {
	apptID, ok := patient.takeReservation(pick)
	if !ok {
		return
	}

	start := time.Now()
	status, err := s.post(ctx, "/api/appointments/"+apptID.String()+"/cancel", patient.token)
	latency := time.Since(start)

	success := err == nil && status == http.StatusOK
	s.metrics.Cancel.Record(latency, success, err == nil && status == http.StatusNotFound)
}

func (s *Simulator) doList(ctx context.Context, patient *patientSession, path string, om *OperationMetrics) {
	start := time.Now()
	var page struct {
		Items []json.RawMessage `json:"items"`
	}
	err := s.getJSON(ctx, path, patient.token, &page)
	om.Record(time.Since(start), err == nil, false)
}

func (s *Simulator) post(ctx context.Context, path, token string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func (s *Simulator) getJSON(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// PrintReport prints per operation stats and the double-booking audit. It
// returns false when the audit failed.
func (s *Simulator) PrintReport() bool {
	fmt.Println("\n" + repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Patients: %d  Slots: %d\n", len(s.pool.Patients), len(s.pool.Slots))
	fmt.Println()

	printOperationReport("Reserve", "Taken", &s.metrics.Reserve)
	printOperationReport("Cancel", "Not cancelable", &s.metrics.Cancel)
	printOperationReport("List mine", "", &s.metrics.ListByPatient)
	printOperationReport("List canceled", "", &s.metrics.ListCanceled)

	doubles := s.pool.doubleBooked()
	if len(doubles) == 0 {
		fmt.Println("Double-booking audit: OK")
		return true
	}

	fmt.Printf("Double-booking audit: FAILED (%d appointments)\n", len(doubles))
	for id, winners := range doubles {
		fmt.Printf("  %s reserved by %d patients\n", id, len(winners))
	}
	return false
}

func printOperationReport(name, conflictLabel string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  %s: %d (%.1f%%)\n", conflictLabel, conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

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

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}
