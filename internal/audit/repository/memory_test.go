package repository

import (
	"context"
	"testing"
	"time"

	"library-service/backend/internal/audit/domain"
)

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)

func TestMemoryRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for _, rec := range []*domain.Record{
		{ID: "a", Action: domain.ActionUserLogin, Timestamp: base},
		{ID: "c", Action: domain.ActionUserValidate, Timestamp: base.Add(time.Minute)},
		{ID: "b", Action: domain.ActionUserRegister, Timestamp: base},
	} {
		if err := r.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tests := []struct {
		name          string
		limit, offset int
		want          []string
	}{
		{"all", 10, 0, []string{"c", "b", "a"}},
		{"first page", 2, 0, []string{"c", "b"}},
		{"second page", 2, 2, []string{"a"}},
		{"past the end", 2, 5, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.List(ctx, tc.limit, tc.offset)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tc.want))
			}
			for i, id := range tc.want {
				if got[i].ID != id {
					t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestMemoryRepository_StoresCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	rec := &domain.Record{ID: "a", Username: "alice", Timestamp: time.Now()}
	if err := r.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec.Username = "mallory"
	got, _ := r.List(ctx, 1, 0)
	if got[0].Username != "alice" {
		t.Errorf("Username = %q, stored record was mutated", got[0].Username)
	}
}
