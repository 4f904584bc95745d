package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "studyrooms/pkg/errors"
	httputil "studyrooms/pkg/http"
	"studyrooms/pkg/logger"
	"studyrooms/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockReservationService struct {
	submitFunc  func(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error)
	cancelFunc  func(ctx context.Context, id string, cred *model.Credential) error
	checkInFunc func(ctx context.Context, id string, cred *model.Credential) (*model.Reservation, error)
	getFunc     func(ctx context.Context, id string) (*model.Reservation, error)
	listFunc    func(ctx context.Context) ([]*model.Reservation, error)
	readyErr    error
}

func (m *mockReservationService) Submit(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, req)
	}
	return nil, nil
}

func (m *mockReservationService) Cancel(ctx context.Context, id string, cred *model.Credential) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, id, cred)
	}
	return nil
}

func (m *mockReservationService) CheckIn(ctx context.Context, id string, cred *model.Credential) (*model.Reservation, error) {
	if m.checkInFunc != nil {
		return m.checkInFunc(ctx, id, cred)
	}
	return nil, nil
}

func (m *mockReservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockReservationService) ListUpcoming(ctx context.Context) ([]*model.Reservation, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationService) Rooms() []string {
	return []string{"Room 101"}
}

func (m *mockReservationService) Ready(context.Context) error {
	return m.readyErr
}

func newRouter(svc *mockReservationService) *httprouter.Router {
	router := httprouter.New()
	NewReservationHandler(svc, logger.Discard()).RegisterRoutes(router)
	NewHealthHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return resp
}

func TestCreate(t *testing.T) {
	start := time.Date(2025, 11, 14, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		submitErr  error
		wantStatus int
		wantError  string
	}{
		{
			name:       "created",
			body:       `{"roomName":"Room 101","startTime":"2025-11-14T13:00","duration":60,"userEmail":"a@organization.edu","verificationToken":"N12345678"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "malformed body",
			body:       `{"roomName":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name:       "email policy",
			body:       `{"roomName":"Room 101"}`,
			submitErr:  apperrors.PolicyViolation("Must use @organization.edu email"),
			wantStatus: http.StatusForbidden,
			wantError:  "Must use @organization.edu email",
		},
		{
			name:       "conflict",
			body:       `{"roomName":"Room 101"}`,
			submitErr:  apperrors.Conflict("This room is already booked from 1:00 PM to 2:00 PM. Please choose a different time."),
			wantStatus: http.StatusConflict,
			wantError:  "This room is already booked from 1:00 PM to 2:00 PM. Please choose a different time.",
		},
		{
			name:       "upstream",
			body:       `{"roomName":"Room 101"}`,
			submitErr:  apperrors.Upstream("Failed to create booking", errors.New("boom")),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to create booking",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received *model.CreateReservationRequest
			svc := &mockReservationService{
				submitFunc: func(_ context.Context, req *model.CreateReservationRequest) (*model.Reservation, error) {
					received = req
					if tt.submitErr != nil {
						return nil, tt.submitErr
					}
					return &model.Reservation{
						ID:                "evt1",
						ResourceID:        "room-101",
						RoomName:          req.RoomName,
						Start:             start,
						End:               start.Add(time.Duration(req.Duration) * time.Minute),
						OwnerEmail:        req.UserEmail,
						VerificationToken: req.VerificationToken,
					}, nil
				},
			}

			rec := serve(newRouter(svc), http.MethodPost, "/api/bookings", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantError != "" {
				if got := decodeError(t, rec).Error; got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
				return
			}

			if received == nil || received.Duration != 60 {
				t.Fatalf("service received %+v", received)
			}
			if strings.Contains(rec.Body.String(), "N12345678") {
				t.Errorf("response leaks the verification token: %s", rec.Body.String())
			}
			var got model.Reservation
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.ID != "evt1" || got.OwnerEmail != "a@organization.edu" {
				t.Errorf("unexpected reservation %+v", got)
			}
		})
	}
}

func TestDelete_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		cancelErr  error
		wantStatus int
	}{
		{"success", `{"verificationToken":"N12345678"}`, nil, http.StatusOK},
		{"empty body reaches service", "", nil, http.StatusOK},
		{"missing credential", `{}`, apperrors.Validation("userEmail or verificationToken is required", nil), http.StatusBadRequest},
		{"malformed json", `{"verificationToken":`, nil, http.StatusBadRequest},
		{"not owner", `{"verificationToken":"N12345678"}`, apperrors.Forbidden("You can only delete your own bookings"), http.StatusForbidden},
		{"upstream failure", `{"verificationToken":"N12345678"}`, apperrors.Upstream("Failed to cancel booking", errors.New("boom")), http.StatusForbidden},
		{"unexpected error", `{"verificationToken":"N12345678"}`, errors.New("boom"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			svc := &mockReservationService{
				cancelFunc: func(_ context.Context, id string, _ *model.Credential) error {
					gotID = id
					return tt.cancelErr
				},
			}

			rec := serve(newRouter(svc), http.MethodDelete, "/api/bookings/evt1", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				if gotID != "evt1" {
					t.Errorf("service got id %q", gotID)
				}
				var resp httputil.SuccessResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || !resp.Success {
					t.Errorf("body = %s, want success", rec.Body.String())
				}
				return
			}
			if decodeError(t, rec).Error == "" {
				t.Error("error body must carry a message")
			}
		})
	}
}

func TestGetAll(t *testing.T) {
	start := time.Date(2025, 11, 14, 18, 0, 0, 0, time.UTC)
	svc := &mockReservationService{
		listFunc: func(context.Context) ([]*model.Reservation, error) {
			return []*model.Reservation{
				{ID: "a", RoomName: "Room 101", Start: start, End: start.Add(time.Hour)},
				{ID: "b", RoomName: "Room 101", Start: start.Add(time.Hour), End: start.Add(2 * time.Hour)},
			}, nil
		},
	}

	rec := serve(newRouter(svc), http.MethodGet, "/api/bookings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []model.Reservation
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("unexpected list %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc := &mockReservationService{
		getFunc: func(_ context.Context, id string) (*model.Reservation, error) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		},
	}

	rec := serve(newRouter(svc), http.MethodGet, "/api/bookings/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Details["id"] != "missing" {
		t.Errorf("details = %v", resp.Details)
	}
}

func TestCheckIn(t *testing.T) {
	at := time.Date(2025, 11, 14, 18, 5, 0, 0, time.UTC)
	svc := &mockReservationService{
		checkInFunc: func(_ context.Context, id string, cred *model.Credential) (*model.Reservation, error) {
			if cred.VerificationToken != "N12345678" {
				return nil, apperrors.Forbidden("You can only delete your own bookings")
			}
			return &model.Reservation{ID: id, CheckedInAt: &at}, nil
		},
	}
	router := newRouter(svc)

	rec := serve(router, http.MethodPost, "/api/bookings/evt1/checkin", `{"verificationToken":"N12345678"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"checkedInAt"`) {
		t.Errorf("body = %s, want checkedInAt", rec.Body.String())
	}

	rec = serve(router, http.MethodPost, "/api/bookings/evt1/checkin", `{"verificationToken":"N00000000"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestRooms(t *testing.T) {
	rec := serve(newRouter(&mockReservationService{}), http.MethodGet, "/api/rooms", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp RoomsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Rooms) != 1 || resp.Rooms[0] != "Room 101" {
		t.Errorf("rooms = %v", resp.Rooms)
	}
}

func TestHealthAndReady(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		readyErr   error
		wantStatus int
	}{
		{"health", "/health", errors.New("ignored"), http.StatusOK},
		{"ready", "/ready", nil, http.StatusOK},
		{"not ready", "/ready", errors.New("calendar unreachable"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newRouter(&mockReservationService{readyErr: tt.readyErr}), http.MethodGet, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
