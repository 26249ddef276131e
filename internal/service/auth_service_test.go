package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/clinicdesk/appointments/internal/domain"
	"github.com/clinicdesk/appointments/pkg/auth"
	"github.com/clinicdesk/appointments/pkg/config"
)

type mockUserRepo struct {
	nextID  int64
	byEmail map[string]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{nextID: 1, byEmail: make(map[string]*domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, name, email, passwordHash string, role domain.Role) (*domain.User, error) {
	if _, exists := m.byEmail[email]; exists {
		return nil, domain.ErrEmailTaken
	}
	u := &domain.User{
		ID:           m.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	m.nextID++
	m.byEmail[email] = u
	return u, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.byEmail[email], nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) EnsureAdmin(_ context.Context, name, email, passwordHash string) error {
	if _, exists := m.byEmail[email]; exists {
		return nil
	}
	_, err := m.Create(context.Background(), name, email, passwordHash, domain.RoleAdmin)
	return err
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret",
			AccessTokenTTL: time.Hour,
		},
	}
}

func TestRegisterCreatesPatient(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, testConfig())

	user, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Name:     "Alice",
		Email:    "  Alice@Example.COM ",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if user.Role != domain.RolePatient {
		t.Errorf("role = %s, want PATIENT", user.Role)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", user.Email)
	}
	if user.PasswordHash == "secret123" || !strings.HasPrefix(user.PasswordHash, "$argon2id$") {
		t.Errorf("password stored without argon2id hashing")
	}

	ok, err := argon2id.ComparePasswordAndHash("secret123", user.PasswordHash)
	if err != nil || !ok {
		t.Errorf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), testConfig())

	cases := []domain.RegisterRequest{
		{Name: "A", Email: "a@example.com", Password: "secret123"},
		{Name: "Alice", Email: "not-an-email", Password: "secret123"},
		{Name: "Alice", Email: "a@example.com", Password: "short"},
	}
	for _, req := range cases {
		if _, err := svc.Register(context.Background(), &req); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Register(%+v) err = %v, want ErrInvalidInput", req, err)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, testConfig())

	req := domain.RegisterRequest{Name: "Alice", Email: "a@example.com", Password: "secret123"}
	if _, err := svc.Register(context.Background(), &req); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	again := domain.RegisterRequest{Name: "Alice Again", Email: "a@example.com", Password: "secret123"}
	if _, err := svc.Register(context.Background(), &again); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("second Register err = %v, want ErrEmailTaken", err)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	repo := newMockUserRepo()
	cfg := testConfig()
	svc := NewAuthService(repo, cfg)

	if _, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Name: "Alice", Email: "a@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "a@example.com", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := auth.Parse(resp.Token, cfg.Auth.JWTSecret)
	if err != nil {
		t.Fatalf("Parse token: %v", err)
	}
	if claims.Email != "a@example.com" || claims.Role != string(domain.RolePatient) {
		t.Errorf("claims = %+v, want patient identity", claims)
	}
	if claims.Sub != resp.User.ID {
		t.Errorf("claims.Sub = %d, want %d", claims.Sub, resp.User.ID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, testConfig())

	if _, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Name: "Alice", Email: "a@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "a@example.com", Password: "wrong",
	}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}

	if _, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "nobody@example.com", Password: "secret123",
	}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}
