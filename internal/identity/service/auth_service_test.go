package service

import (
	"context"
	"errors"
	"testing"

	identitydomain "library-service/backend/internal/identity/domain"
	"library-service/backend/internal/server/middleware"
	userdomain "library-service/backend/internal/user/domain"
)

func TestLogin_IssuesChallenge(t *testing.T) {
	f := newFixture()
	a := f.repo.seed("alice", "alice@example.com", "Passw0rd!", userdomain.RoleViewer)

	resp, err := f.svc.Login(context.Background(), identitydomain.LoginRequest{UsernameOrEmail: "alice", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.ID != a.ID {
		t.Errorf("ID = %d, want %d", resp.ID, a.ID)
	}
	if resp.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", resp.RequestID)
	}
	if len(f.tokens.issued) != 0 {
		t.Error("Login must not issue a token")
	}
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture()
	f.repo.seed("alice", "alice@example.com", "Passw0rd!", userdomain.RoleViewer)

	_, err := f.svc.Login(context.Background(), identitydomain.LoginRequest{UsernameOrEmail: "alice", Password: "nope"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}

	f.mfa.issueErr = errBoom
	_, err = f.svc.Login(context.Background(), identitydomain.LoginRequest{UsernameOrEmail: "alice", Password: "Passw0rd!"})
	if !errors.Is(err, errBoom) {
		t.Errorf("issue failure: got %v, want errBoom", err)
	}
}

func TestValidate(t *testing.T) {
	f := newFixture()
	a := f.repo.seed("alice", "alice@example.com", "Passw0rd!", userdomain.RoleViewer)
	ctx := context.Background()
	login, err := f.svc.Login(ctx, identitydomain.LoginRequest{UsernameOrEmail: "alice@example.com", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	tests := []struct {
		name    string
		req     identitydomain.ValidateRequest
		wantErr error
	}{
		{"wrong code", identitydomain.ValidateRequest{RequestID: login.RequestID, OTP: 111111}, ErrInvalidOTP},
		{"unknown request", identitydomain.ValidateRequest{RequestID: "req-99", OTP: 123456}, ErrInvalidOTP},
		{"empty request", identitydomain.ValidateRequest{RequestID: "  ", OTP: 123456}, ErrInvalidOTP},
		{"ok", identitydomain.ValidateRequest{RequestID: " " + login.RequestID + " ", OTP: 123456}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := f.svc.Validate(ctx, tc.req)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("got %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if resp.ID != a.ID || resp.Token != "token-for-alice" {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}

func TestValidate_StoreErrorIsNotInvalidOTP(t *testing.T) {
	f := newFixture()
	f.mfa.storeErr = errBoom
	_, err := f.svc.Validate(context.Background(), identitydomain.ValidateRequest{RequestID: "req-1", OTP: 123456})
	if errors.Is(err, ErrInvalidOTP) {
		t.Fatal("store outage reported as ErrInvalidOTP")
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("got %v, want errBoom", err)
	}
}

func TestValidate_TokenError(t *testing.T) {
	f := newFixture()
	f.repo.seed("alice", "alice@example.com", "Passw0rd!", userdomain.RoleViewer)
	login, _ := f.svc.Login(context.Background(), identitydomain.LoginRequest{UsernameOrEmail: "alice", Password: "Passw0rd!"})
	f.tokens.err = errBoom
	_, err := f.svc.Validate(context.Background(), identitydomain.ValidateRequest{RequestID: login.RequestID, OTP: 123456})
	if !errors.Is(err, errBoom) {
		t.Errorf("got %v, want errBoom", err)
	}
}

func TestRegister(t *testing.T) {
	valid := identitydomain.RegisterRequest{FullName: "Bob Reader", Username: "bob", Email: "Bob@Example.com", Password: "secret123"}

	t.Run("creates viewer", func(t *testing.T) {
		f := newFixture()
		got, err := f.svc.Register(context.Background(), valid)
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if got.ID == 0 || got.Username != "bob" || got.Email != "bob@example.com" || got.Role != userdomain.RoleViewer {
			t.Errorf("summary = %+v", got)
		}
		if _, err := f.verifier.Authenticate(context.Background(), "bob", "secret123"); err != nil {
			t.Errorf("stored hash does not verify: %v", err)
		}
	})

	invalid := []struct {
		name string
		edit func(r *identitydomain.RegisterRequest)
	}{
		{"missing full name", func(r *identitydomain.RegisterRequest) { r.FullName = " " }},
		{"short username", func(r *identitydomain.RegisterRequest) { r.Username = "ab" }},
		{"username with spaces", func(r *identitydomain.RegisterRequest) { r.Username = "bob smith" }},
		{"bad email", func(r *identitydomain.RegisterRequest) { r.Email = "bob@" }},
		{"short password", func(r *identitydomain.RegisterRequest) { r.Password = "abc1" }},
		{"password without digit", func(r *identitydomain.RegisterRequest) { r.Password = "abcdefgh" }},
		{"password without letter", func(r *identitydomain.RegisterRequest) { r.Password = "12345678" }},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			req := valid
			tc.edit(&req)
			if _, err := f.svc.Register(context.Background(), req); !errors.Is(err, ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}

	t.Run("conflicts", func(t *testing.T) {
		f := newFixture()
		f.repo.seed("bob", "other@example.com", "Passw0rd!", userdomain.RoleViewer)
		f.repo.seed("carol", "bob@example.com", "Passw0rd!", userdomain.RoleViewer)

		if _, err := f.svc.Register(context.Background(), valid); !errors.Is(err, userdomain.ErrUsernameTaken) {
			t.Errorf("username conflict: got %v", err)
		}
		req := valid
		req.Username = "bobby"
		if _, err := f.svc.Register(context.Background(), req); !errors.Is(err, userdomain.ErrEmailTaken) {
			t.Errorf("email conflict: got %v", err)
		}
	})
}

func TestMe(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Me(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous: got %v, want ErrUnauthenticated", err)
	}
	ctx := middleware.WithPrincipal(context.Background(), identitydomain.Principal{AccountID: 7, Username: "alice"})
	got, err := f.svc.Me(ctx)
	if err != nil || got != "alice" {
		t.Errorf("Me = %q, %v; want alice", got, err)
	}
}

func TestLogin_WithEmailAsRegistered(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	if _, err := f.svc.Register(ctx, identitydomain.RegisterRequest{
		FullName: "Bob Reader", Username: "bob", Email: "Bob@Example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	login, err := f.svc.Login(ctx, identitydomain.LoginRequest{UsernameOrEmail: "Bob@Example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.RequestID == "" {
		t.Error("RequestID empty")
	}
}
