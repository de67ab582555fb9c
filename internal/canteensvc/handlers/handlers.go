package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/smms/canteen-services/internal/canteensvc/service"
)

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	sessions  *service.SessionService
	scans     *service.ScanService
	deposits  *service.DepositService
}

func NewHandler(sessions *service.SessionService, scans *service.ScanService, deposits *service.DepositService) *Handler {
	return &Handler{sessions: sessions, scans: scans, deposits: deposits}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) writeResponse(w http.ResponseWriter, status int, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeResponse(w, status, Response{Code: status, Data: data})
}

// writeError maps service errors to the legacy numeric codes the
// terminals and apps already understand.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := service.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Errorf("request failed: %s", err)
		h.writeResponse(w, status, Response{Code: 500, Message: "General System error"})
		return
	}
	h.writeResponse(w, status, Response{Code: service.APICode(err), Message: err.Error()})
}

// actor pulls the authenticated caller out of the verified JWT.
func (h *Handler) actor(r *http.Request) (service.Actor, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return service.Actor{}, err
	}

	a := service.Actor{}
	if v, ok := claims["user_id"].(string); ok {
		a.ID = v
	}
	if v, ok := claims["role"].(string); ok {
		a.Role = v
	}
	return a, nil
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "canteen service is running at port " + os.Getenv("SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	json.NewEncoder(w).Encode(rsp)
}

// --- sessions ---

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, service.ErrForbidden)
		return
	}

	var req struct {
		Type string `json:"type"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, service.ErrInvalidInput)
		return
	}

	session, err := h.sessions.Start(r.Context(), actor, req.Type)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, session)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, service.ErrForbidden)
		return
	}

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, service.ErrInvalidInput)
		return
	}

	session, err := h.sessions.End(r.Context(), actor, req.SessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, session)
}

func (h *Handler) ActiveSession(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, service.ErrForbidden)
		return
	}

	session, err := h.sessions.Active(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, session)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, service.ErrForbidden)
		return
	}

	sessions, err := h.sessions.List(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, sessions)
}

func (h *Handler) SessionScans(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, service.ErrForbidden)
		return
	}

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, service.ErrInvalidInput)
		return
	}

	scans, err := h.sessions.Scans(r.Context(), actor, req.SessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, scans)
}

// --- scan ---

func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, service.ErrForbidden)
		return
	}

	var req service.ScanRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, service.ErrInvalidInput)
		return
	}

	scan, err := h.scans.Scan(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, scan)
}

// --- deposits ---

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, service.ErrForbidden)
		return
	}

	var req service.DepositRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, service.ErrInvalidInput)
		return
	}

	deposit, err := h.deposits.Process(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, deposit)
}
