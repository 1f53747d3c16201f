package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"arenapanel/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(ctx context.Context, t *testing.T) (*http.ServeMux, *SheetsService) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("sheets.NewService: %v", err)
	}
	return mux, newSheetsService(srv, "bookings_tid", "Bookings")
}

func testBooking(id int64) *models.Booking {
	return &models.Booking{
		ID:        id,
		Title:     "Treino",
		SpaceID:   7,
		SpaceName: "Quadra Central",
		Date:      time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
		StartTime: models.ClockOf(10, 0),
		EndTime:   models.ClockOf(11, 30),
		Status:    models.BookingConfirmed,
		UpdatedAt: time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
	}
}

func TestBookingRowValues(t *testing.T) {
	got := bookingRowValues(testBooking(123))
	want := []interface{}{
		int64(123), "Treino", int64(7), "Quadra Central", "2025-06-14", "10:00", "11:30", "confirmed", "", "2025-06-10 08:00:00",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("bookingRowValues() = %v, want %v", got, want)
	}
	if len(got) != len(bookingHeaders) {
		t.Errorf("row has %d cells, headers have %d", len(got), len(bookingHeaders))
	}
}

func TestRowFromRange(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Bookings!A10:J10", 10, true},
		{"'Bookings'!$A$7:$J$7", 7, true},
		{"A3", 3, true},
		{"Bookings!A:A", 0, false},
	}
	for _, tt := range tests {
		got, ok := rowFromRange(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("rowFromRange(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSheetsService_TestConnection(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	if err := s.TestConnection(ctx); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"123"}, {}, {456}},
		})
	})
	if err := s.WarmUpCache(ctx); err != nil {
		t.Fatalf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow(123); !ok || row != 2 {
		t.Errorf("expected row 2 for ID 123, got %d", row)
	}
	if row, ok := s.getCachedRow(456); !ok || row != 4 {
		t.Errorf("expected row 4 for ID 456, got %d", row)
	}
}

func TestSheetsService_UpsertBooking_Append(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A10:J10"},
		})
	})

	if err := s.UpsertBooking(ctx, testBooking(789)); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if row, _ := s.getCachedRow(789); row != 10 {
		t.Errorf("expected cached row 10, got %d", row)
	}
}

func TestSheetsService_UpsertBooking_Update(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	s.setCachedRow(123, 2)

	var got sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A2:J2", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	if err := s.UpsertBooking(ctx, testBooking(123)); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if len(got.Values) != 1 || got.Values[0][1] != "Treino" {
		t.Errorf("unexpected row written: %v", got.Values)
	}
}

func TestSheetsService_DeleteBooking(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	s.setCachedRow(456, 3)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A3:J3:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	if err := s.DeleteBooking(ctx, 456); err != nil {
		t.Errorf("DeleteBooking failed: %v", err)
	}
	if _, ok := s.getCachedRow(456); ok {
		t.Error("expected 456 to be removed from cache")
	}
}

func TestSheetsService_DeleteMissingBooking(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}, {"1"}}})
	})
	if err := s.DeleteBooking(ctx, 99); err != nil {
		t.Errorf("expected missing row to be ignored, got %v", err)
	}
}

func TestSheetsService_ReplaceBookings(t *testing.T) {
	ctx := context.Background()
	mux, s := setupMockServer(ctx, t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:J:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})

	var written sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&written)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	if err := s.ReplaceBookings(ctx, []*models.Booking{testBooking(1), testBooking(2)}); err != nil {
		t.Fatalf("ReplaceBookings failed: %v", err)
	}
	if len(written.Values) != 3 {
		t.Errorf("expected header plus 2 rows, got %d", len(written.Values))
	}
	if row, _ := s.getCachedRow(2); row != 3 {
		t.Errorf("expected booking 2 at row 3, got %d", row)
	}
}

func TestNewSheetsServiceMissingCredentials(t *testing.T) {
	if _, err := NewSheetsService(context.Background(), "/nonexistent/creds.json", "id", "Bookings"); err == nil {
		t.Error("expected error for missing credentials file")
	}
}
