package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/clinicdesk/appointments/internal/domain"
	"github.com/clinicdesk/appointments/internal/http/handlers"
	"github.com/clinicdesk/appointments/internal/http/response"
	"github.com/clinicdesk/appointments/internal/service"
	"github.com/clinicdesk/appointments/pkg/config"
	"github.com/clinicdesk/appointments/pkg/events"
)

// ---------- In-memory store ----------

// memStore implements the user, slot and booking repositories over shared
// state, with the reserve check-and-insert under one lock like the real
// transaction.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*domain.User
	slots    map[int64]domain.Slot
	bookings map[int64]domain.Booking // keyed by slot ID
}

func newMemStore() *memStore {
	return &memStore{
		nextID:   1,
		users:    make(map[int64]*domain.User),
		slots:    make(map[int64]domain.Slot),
		bookings: make(map[int64]domain.Booking),
	}
}

func (m *memStore) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memStore) Create(_ context.Context, name, email, passwordHash string, role domain.Role) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, domain.ErrEmailTaken
		}
	}
	u := &domain.User{ID: m.id(), Name: name, Email: email, PasswordHash: passwordHash, Role: role, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *memStore) EnsureAdmin(ctx context.Context, name, email, passwordHash string) error {
	if existing, _ := m.FindByEmail(ctx, email); existing != nil {
		return nil
	}
	_, err := m.Create(ctx, name, email, passwordHash, domain.RoleAdmin)
	return err
}

func (m *memStore) ListAvailable(_ context.Context, from, to time.Time) ([]domain.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Slot{}
	for id, s := range m.slots {
		if _, booked := m.bookings[id]; booked {
			continue
		}
		if s.StartAt.Before(from) || s.StartAt.After(to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (m *memStore) CreateBatch(_ context.Context, slots []domain.Slot) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range slots {
		s.ID = m.id()
		m.slots[s.ID] = s
	}
	return len(slots), nil
}

func (m *memStore) addSlot(startAt time.Time) domain.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.Slot{ID: m.id(), StartAt: startAt, EndAt: startAt.Add(30 * time.Minute)}
	m.slots[s.ID] = s
	return s
}

func (m *memStore) Reserve(_ context.Context, userID, slotID int64, now time.Time) (*domain.BookingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotID]
	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	if _, booked := m.bookings[slotID]; booked {
		return nil, domain.ErrSlotAlreadyBooked
	}
	if !slot.StartAt.After(now) {
		return nil, domain.ErrSlotExpired
	}

	b := domain.Booking{ID: m.id(), UserID: userID, SlotID: slotID, CreatedAt: now}
	m.bookings[slotID] = b
	return &domain.BookingDetail{Booking: b, Slot: slot, User: m.users[userID].Summary()}, nil
}

func (m *memStore) ListByUser(_ context.Context, userID int64) ([]domain.BookingWithSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.BookingWithSlot{}
	for slotID, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, domain.BookingWithSlot{Booking: b, Slot: m.slots[slotID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.StartAt.Before(out[j].Slot.StartAt) })
	return out, nil
}

func (m *memStore) ListAll(_ context.Context) ([]domain.BookingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.BookingDetail{}
	for slotID, b := range m.bookings {
		out = append(out, domain.BookingDetail{Booking: b, Slot: m.slots[slotID], User: m.users[b.UserID].Summary()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.StartAt.Before(out[j].Slot.StartAt) })
	return out, nil
}

type noopMailer struct{}

func (noopMailer) SendBookingConfirmation(string, string, time.Time, time.Time) error { return nil }

// ---------- Harness ----------

type testAPI struct {
	store  *memStore
	server http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret",
			AccessTokenTTL: time.Hour,
		},
	}

	store := newMemStore()
	authService := service.NewAuthService(store, cfg)
	bookingService := service.NewBookingService(store, events.NoopPublisher{}, noopMailer{})
	slotService := service.NewSlotService(store, events.NoopPublisher{})

	h := handlers.New(authService, bookingService, slotService, cfg)
	return &testAPI{
		store:  store,
		server: handlers.NewRouter(h, handlers.RouterOptions{}),
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[response.ErrorResponse](t, rec).Error.Code
}

func (a *testAPI) register(t *testing.T, name, email, password string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
}

func (a *testAPI) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": email, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	return decode[domain.LoginResponse](t, rec).Token
}

func (a *testAPI) seedAdmin(t *testing.T, email, password string) {
	t.Helper()
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("hash admin password: %v", err)
	}
	if err := a.store.EnsureAdmin(context.Background(), "Admin User", email, hash); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

// nextMonday returns a Monday at least a week out, so every generated slot is
// in the future.
func nextMonday() time.Time {
	now := time.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return day.AddDate(0, 0, 7)
}

// ---------- Tests ----------

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t)

	// Register and log in patient A
	api.register(t, "Alice", "alice@example.com", "secret123")
	tokenA := api.login(t, "alice@example.com", "secret123")

	// Duplicate registration is rejected
	rec := api.do(t, http.MethodPost, "/register", "", map[string]string{
		"name": "Alice Again", "email": "alice@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != response.CodeEmailExists {
		t.Fatalf("duplicate register: status %d body %s", rec.Code, rec.Body.String())
	}

	// Admin generates the upcoming week
	api.seedAdmin(t, "admin@example.com", "admin-secret")
	adminToken := api.login(t, "admin@example.com", "admin-secret")

	monday := nextMonday()
	rec = api.do(t, http.MethodPost, "/admin/slots/generate", adminToken, map[string]string{
		"start": monday.Format("2006-01-02"),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate: status %d body %s", rec.Code, rec.Body.String())
	}
	if created := decode[map[string]int](t, rec); created["created"] != 80 {
		t.Fatalf("created = %d, want 80", created["created"])
	}

	// Patients cannot generate slots
	rec = api.do(t, http.MethodPost, "/admin/slots/generate", tokenA, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("patient generate: status %d, want 403", rec.Code)
	}

	// List the week's open slots
	from := monday.Format("2006-01-02")
	to := monday.AddDate(0, 0, 6).Format("2006-01-02")
	rec = api.do(t, http.MethodGet, "/slots?from="+from+"&to="+to, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("slots: status %d body %s", rec.Code, rec.Body.String())
	}
	slots := decode[[]domain.Slot](t, rec)
	if len(slots) != 80 {
		t.Fatalf("len(slots) = %d, want 80", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].StartAt.Before(slots[i-1].StartAt) {
			t.Fatalf("slots not ascending at %d", i)
		}
	}

	// Listing twice with no writes returns identical results
	rec = api.do(t, http.MethodGet, "/slots?from="+from+"&to="+to, "", nil)
	again := decode[[]domain.Slot](t, rec)
	if len(again) != len(slots) {
		t.Fatalf("second listing differs: %d vs %d", len(again), len(slots))
	}
	for i := range slots {
		if again[i].ID != slots[i].ID {
			t.Fatalf("second listing order differs at %d", i)
		}
	}

	// Book the first slot
	first := slots[0]
	rec = api.do(t, http.MethodPost, "/book", tokenA, map[string]int64{"slot_id": first.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: status %d body %s", rec.Code, rec.Body.String())
	}
	booking := decode[domain.BookingDetail](t, rec)
	if booking.SlotID != first.ID {
		t.Fatalf("booking.SlotID = %d, want %d", booking.SlotID, first.ID)
	}
	if booking.User.Email != "alice@example.com" {
		t.Fatalf("booking.User = %+v, want requester", booking.User)
	}

	// The booked slot disappears from the availability listing
	rec = api.do(t, http.MethodGet, "/slots?from="+from+"&to="+to, "", nil)
	remaining := decode[[]domain.Slot](t, rec)
	if len(remaining) != 79 {
		t.Fatalf("len(remaining) = %d, want 79", len(remaining))
	}
	for _, s := range remaining {
		if s.ID == first.ID {
			t.Fatalf("booked slot %d still listed as available", first.ID)
		}
	}

	// My bookings returns exactly the one booking, linked to its slot
	rec = api.do(t, http.MethodGet, "/my-bookings", tokenA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("my-bookings: status %d body %s", rec.Code, rec.Body.String())
	}
	mine := decode[[]domain.BookingWithSlot](t, rec)
	if len(mine) != 1 || mine[0].SlotID != first.ID || !mine[0].Slot.StartAt.Equal(first.StartAt) {
		t.Fatalf("my-bookings = %+v, want single booking for slot %d", mine, first.ID)
	}

	// A second patient cannot book the same slot
	api.register(t, "Bob", "bob@example.com", "secret123")
	tokenB := api.login(t, "bob@example.com", "secret123")

	rec = api.do(t, http.MethodPost, "/book", tokenB, map[string]int64{"slot_id": first.ID})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != response.CodeSlotTaken {
		t.Fatalf("double book: status %d body %s, want 409 SLOT_TAKEN", rec.Code, rec.Body.String())
	}

	// Admin sees the booking with the patient summary
	rec = api.do(t, http.MethodGet, "/all-bookings", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("all-bookings: status %d body %s", rec.Code, rec.Body.String())
	}
	all := decode[[]domain.BookingDetail](t, rec)
	if len(all) != 1 || all[0].User.Email != "alice@example.com" {
		t.Fatalf("all-bookings = %+v, want Alice's booking", all)
	}
}

func TestBookErrorMapping(t *testing.T) {
	api := newTestAPI(t)

	api.register(t, "Alice", "alice@example.com", "secret123")
	token := api.login(t, "alice@example.com", "secret123")

	// Unknown slot
	rec := api.do(t, http.MethodPost, "/book", token, map[string]int64{"slot_id": 9999})
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != response.CodeSlotNotFound {
		t.Errorf("unknown slot: status %d body %s, want 404 SLOT_NOT_FOUND", rec.Code, rec.Body.String())
	}

	// Expired slot
	past := api.store.addSlot(time.Now().Add(-time.Hour))
	rec = api.do(t, http.MethodPost, "/book", token, map[string]int64{"slot_id": past.ID})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != response.CodeSlotExpired {
		t.Errorf("expired slot: status %d body %s, want 400 SLOT_EXPIRED", rec.Code, rec.Body.String())
	}

	// Missing slot_id
	rec = api.do(t, http.MethodPost, "/book", token, map[string]int64{})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != response.CodeValidationError {
		t.Errorf("missing slot_id: status %d body %s, want 400 VALIDATION_ERROR", rec.Code, rec.Body.String())
	}
}

func TestAuthAndRoleGates(t *testing.T) {
	api := newTestAPI(t)

	api.register(t, "Alice", "alice@example.com", "secret123")
	token := api.login(t, "alice@example.com", "secret123")

	// No token
	for _, path := range []string{"/my-bookings", "/all-bookings"} {
		rec := api.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != response.CodeUnauthorized {
			t.Errorf("GET %s without token: status %d, want 401", path, rec.Code)
		}
	}

	rec := api.do(t, http.MethodPost, "/book", "", map[string]int64{"slot_id": 1})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("book without token: status %d, want 401", rec.Code)
	}

	// Garbage token
	rec = api.do(t, http.MethodGet, "/my-bookings", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status %d, want 401", rec.Code)
	}

	// Patient on admin route
	rec = api.do(t, http.MethodGet, "/all-bookings", token, nil)
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != response.CodeForbidden {
		t.Errorf("patient on /all-bookings: status %d, want 403", rec.Code)
	}

	// Admin on patient routes
	api.seedAdmin(t, "admin@example.com", "admin-secret")
	adminToken := api.login(t, "admin@example.com", "admin-secret")

	rec = api.do(t, http.MethodPost, "/book", adminToken, map[string]int64{"slot_id": 1})
	if rec.Code != http.StatusForbidden {
		t.Errorf("admin booking: status %d, want 403", rec.Code)
	}
}

func TestSlotsQueryValidation(t *testing.T) {
	api := newTestAPI(t)

	cases := []struct {
		path string
		code string
	}{
		{"/slots", response.CodeMissingParams},
		{"/slots?from=2025-09-01", response.CodeMissingParams},
		{"/slots?from=bad&to=2025-09-05", response.CodeValidationError},
		{"/slots?from=2025-09-05&to=2025-09-01", response.CodeValidationError},
	}
	for _, tc := range cases {
		rec := api.do(t, http.MethodGet, tc.path, "", nil)
		if rec.Code != http.StatusBadRequest || errorCode(t, rec) != tc.code {
			t.Errorf("GET %s: status %d code %s, want 400 %s", tc.path, rec.Code, rec.Body.String(), tc.code)
		}
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: status %d, want 200", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["status"] != "ok" {
		t.Fatalf("healthz body = %v", body)
	}
}
