package stubapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	apperrors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/transport"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

type ctxKey string

const userKey ctxKey = "stub_user"

func userFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(svc *Service, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// homeRequest covers every POST and PUT body on /home/.
type homeRequest struct {
	GatePassID      int64           `json:"gatepass_id"`
	Action          gatepass.Action `json:"action"`
	RejectionReason string          `json:"rejection_reason"`
	TimeIn          string          `json:"time_in"`
	TimeOut         string          `json:"time_out"`
	Purpose         string          `json:"purpose"`
}

func (r homeRequest) form() gatepass.FormDTO {
	return gatepass.FormDTO{TimeIn: r.TimeIn, TimeOut: r.TimeOut, Purpose: r.Purpose}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		h.WriteError(w, http.StatusBadRequest, "refresh is required")
		return
	}

	resp, err := h.Service.Refresh(r.Context(), req.Refresh)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		h.WriteError(w, http.StatusBadRequest, "refresh is required")
		return
	}

	if err := h.Service.Logout(r.Context(), req.Refresh); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware resolves the bearer token to a user.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		u, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, u)
		ctx = logger.With(ctx, "user_id", u.ID, "user_type", string(u.UserType))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	snap, err := h.Service.Dashboard(r.Context(), u)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, snap)
}

// HomePost creates a pass, or approves or rejects one when an action is given.
func (h *Handler) HomePost(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	var req homeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Action != "" {
		if req.GatePassID <= 0 {
			h.WriteError(w, http.StatusBadRequest, "gatepass_id is required")
			return
		}
		gp, err := h.Service.Decide(r.Context(), u, req.GatePassID, req.Action, req.RejectionReason)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, gp)
		return
	}

	gp, err := h.Service.Create(r.Context(), u, req.form())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, gp)
}

func (h *Handler) HomePut(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	var req homeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GatePassID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "gatepass_id is required")
		return
	}

	gp, err := h.Service.Update(r.Context(), u, req.GatePassID, req.form())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, gp)
}

func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid gatepass id")
		return
	}

	gp, err := h.Service.Approved(r.Context(), u, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	doc, err := RenderPDF(gp)
	if err != nil {
		h.Logger.Error("pdf render failed", "gatepass_id", id, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, gatepass.PDFFileName(id)))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.Logger.Error("failed to write pdf", "error", err)
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired):
		h.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrWrongRole), errors.Is(err, ErrNotOwner):
		h.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		h.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrReasonRequired),
		errors.Is(err, ErrUnknownAction):
		h.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		if appErr, ok := apperrors.IsAppError(err); ok && appErr.Type == apperrors.ErrorTypeValidation {
			h.WriteError(w, http.StatusBadRequest, appErr.GetDetailedMessage())
			return
		}
		h.Logger.Error("unhandled service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
