package handler

import (
	"net/http"

	"studyrooms/internal/reservations/service"
	apperrors "studyrooms/pkg/errors"
	httputil "studyrooms/pkg/http"
	"studyrooms/pkg/logger"
	"studyrooms/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RoomsResponse struct {
	Rooms []string `json:"rooms"`
}

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateReservationRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	reservation, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	reservations, err := h.service.ListUpcoming(r.Context())
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservations); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reservation, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

// Delete answers 400 for a missing or malformed credential and 403 for every
// other failure, including unknown ids and store errors.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var cred model.Credential
	if err := httputil.DecodeJSON(r, &cred, true); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Cancel(r.Context(), ps.ByName("id"), &cred); err != nil {
		if isClientInputError(err) {
			h.writeError(w, "Delete", err)
			return
		}
		if !apperrors.HasCode(err, apperrors.CodeForbidden) {
			h.log.Error("Cancel failed", "id", ps.ByName("id"), "error", err)
		}
		if writeErr := httputil.WriteErrorStatus(w, http.StatusForbidden, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteErrorStatus", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, httputil.SuccessResponse{Success: true}); err != nil {
		h.log.Error("failed to write success response", "handler", "Delete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) CheckIn(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var cred model.Credential
	if err := httputil.DecodeJSON(r, &cred, true); err != nil {
		h.writeError(w, "CheckIn", err)
		return
	}

	reservation, err := h.service.CheckIn(r.Context(), ps.ByName("id"), &cred)
	if err != nil {
		h.writeError(w, "CheckIn", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", "CheckIn", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Rooms(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if err := httputil.WriteSuccess(w, RoomsResponse{Rooms: h.service.Rooms()}); err != nil {
		h.log.Error("failed to write success response", "handler", "Rooms", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/bookings", h.GetAll)
	router.POST("/api/bookings", h.Create)
	router.GET("/api/bookings/:id", h.GetByID)
	router.DELETE("/api/bookings/:id", h.Delete)
	router.POST("/api/bookings/:id/checkin", h.CheckIn)
	router.GET("/api/rooms", h.Rooms)
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func isClientInputError(err error) bool {
	appErr := apperrors.AsAppError(err)
	if appErr.StatusCode() != http.StatusBadRequest && appErr.StatusCode() != http.StatusRequestEntityTooLarge {
		return false
	}
	return appErr.Code == apperrors.CodeValidation || appErr.Code == apperrors.CodeInvalidInput
}
