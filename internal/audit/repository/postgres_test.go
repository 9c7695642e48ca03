package repository

import (
	"database/sql"
	"testing"
	"time"

	"library-service/backend/internal/audit/domain"
)

func TestRowMapping_RoundTripsOptionalColumns(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	id := int64(42)
	msg := "invalid credentials"

	tests := []struct {
		name string
		rec  *domain.Record
	}{
		{"with entity and error", &domain.Record{ID: "a", Action: domain.ActionUserLogin, EntityType: domain.EntityAuth,
			EntityID: &id, Username: domain.Anonymous, Timestamp: ts, ErrorMessage: &msg}},
		{"bare success", &domain.Record{ID: "b", Action: domain.ActionUserRegister, EntityType: domain.EntityUser,
			Username: "admin", Timestamp: ts, Success: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			row := domainToRow(tc.rec)
			if row.EntityID.Valid != (tc.rec.EntityID != nil) {
				t.Errorf("EntityID.Valid = %v", row.EntityID.Valid)
			}
			if row.ErrorMessage.Valid != (tc.rec.ErrorMessage != nil) {
				t.Errorf("ErrorMessage.Valid = %v", row.ErrorMessage.Valid)
			}
			got := rowToDomain(row)
			if (got.EntityID == nil) != (tc.rec.EntityID == nil) || (got.EntityID != nil && *got.EntityID != *tc.rec.EntityID) {
				t.Errorf("EntityID = %v, want %v", got.EntityID, tc.rec.EntityID)
			}
			if (got.ErrorMessage == nil) != (tc.rec.ErrorMessage == nil) {
				t.Errorf("ErrorMessage = %v, want %v", got.ErrorMessage, tc.rec.ErrorMessage)
			}
			if got.Action != tc.rec.Action || got.Username != tc.rec.Username || !got.Timestamp.Equal(ts) {
				t.Errorf("record = %+v", got)
			}
		})
	}
}

func TestRowToDomain_NormalizesTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	row := &recordRow{Timestamp: time.Date(2024, 5, 1, 11, 0, 0, 0, loc), ErrorMessage: sql.NullString{}}
	if got := rowToDomain(row).Timestamp; got.Location() != time.UTC || got.Hour() != 9 {
		t.Errorf("Timestamp = %v, want 09:00 UTC", got)
	}
}
