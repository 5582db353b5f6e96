package ctxutil

import (
	"context"
	"testing"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setup  func() context.Context
		wantID string
		wantOK bool
	}{
		{
			name:   "empty context",
			setup:  context.Background,
			wantID: "",
			wantOK: false,
		},
		{
			name: "with request ID",
			setup: func() context.Context {
				return WithRequestID(context.Background(), "req-123")
			},
			wantID: "req-123",
			wantOK: true,
		},
		{
			name: "overwrite request ID",
			setup: func() context.Context {
				ctx := WithRequestID(context.Background(), "req-123")
				return WithRequestID(ctx, "req-456")
			},
			wantID: "req-456",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gotID, gotOK := RequestID(tt.setup())
			if gotID != tt.wantID {
				t.Errorf("RequestID() id = %v, want %v", gotID, tt.wantID)
			}
			if gotOK != tt.wantOK {
				t.Errorf("RequestID() ok = %v, want %v", gotOK, tt.wantOK)
			}
		})
	}
}

func TestPrincipal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		setup       func() context.Context
		wantSubject string
		wantOK      bool
	}{
		{
			name:   "empty context",
			setup:  context.Background,
			wantOK: false,
		},
		{
			name: "full principal",
			setup: func() context.Context {
				return WithPrincipal(context.Background(), Principal{
					Subject:     "auth0|director",
					Permissions: []string{"get:actors", "post:actors"},
				})
			},
			wantSubject: "auth0|director",
			wantOK:      true,
		},
		{
			name: "principal without subject",
			setup: func() context.Context {
				return WithPrincipal(context.Background(), Principal{
					Permissions: []string{"get:movies"},
				})
			},
			wantSubject: "",
			wantOK:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Subject(tt.setup())
			if ok != tt.wantOK {
				t.Errorf("Subject() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.wantSubject {
				t.Errorf("Subject() = %q, want %q", got, tt.wantSubject)
			}
		})
	}
}

func TestPermissions(t *testing.T) {
	t.Parallel()

	ctx := WithPrincipal(context.Background(), Principal{
		Subject:     "auth0|assistant",
		Permissions: []string{"get:actors"},
	})

	perms, ok := Permissions(ctx)
	if !ok || len(perms) != 1 || perms[0] != "get:actors" {
		t.Errorf("Permissions() = %v, %v, want [get:actors], true", perms, ok)
	}

	if perms, ok := Permissions(context.Background()); ok || perms != nil {
		t.Errorf("Permissions() on empty context = %v, %v, want nil, false", perms, ok)
	}
}

func TestPrincipalRecorder(t *testing.T) {
	t.Parallel()

	ctx, recorded := WithPrincipalRecorder(context.Background())
	if _, ok := recorded(); ok {
		t.Fatal("recorder reported a principal before one was set")
	}

	inner := WithPrincipal(ctx, Principal{Subject: "auth0|42"})
	if _, ok := GetPrincipal(ctx); ok {
		t.Error("outer context must not carry the principal")
	}
	if sub, _ := Subject(inner); sub != "auth0|42" {
		t.Errorf("Subject(inner) = %q", sub)
	}

	p, ok := recorded()
	if !ok || p.Subject != "auth0|42" {
		t.Errorf("recorded() = %+v, %v", p, ok)
	}
}

func TestWithPrincipal_NoRecorder(t *testing.T) {
	t.Parallel()

	ctx := WithPrincipal(context.Background(), Principal{Subject: "auth0|1"})
	if sub, ok := Subject(ctx); !ok || sub != "auth0|1" {
		t.Errorf("Subject() = %q, %v", sub, ok)
	}
}
