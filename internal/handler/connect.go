package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/walletbridge/link-server-go/internal/errors"
	"github.com/walletbridge/link-server-go/internal/service"
)

type ConnectHandler struct {
	connectService *service.ConnectService
}

func NewConnectHandler(connectService *service.ConnectService) *ConnectHandler {
	return &ConnectHandler{connectService: connectService}
}

func (h *ConnectHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Post("/callback", h.Callback)
	r.Get("/status", h.Status)
	r.Get("/{connectionID}", h.Get)
	r.Delete("/{connectionID}", h.Cancel)
	return r
}

type createConnectionRequest struct {
	UserID int64 `json:"userId"`
	ChatID int64 `json:"chatId"`
}

func (h *ConnectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}

	result, err := h.connectService.CreateConnectionRequest(r.Context(), req.UserID, req.ChatID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *ConnectHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var payload service.CallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}

	result, err := h.connectService.HandleCallback(r.Context(), &payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"connectionId": result.ConnectionID,
		"wallet": map[string]any{
			"address":    result.Wallet.Address,
			"walletType": result.Wallet.WalletType,
			"active":     result.Wallet.Active,
		},
	})
}

func (h *ConnectHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		writeError(w, apperrors.InvalidInput("userId", "must be a positive integer"))
		return
	}

	result, svcErr := h.connectService.CheckConnectionStatus(r.Context(), userID)
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ConnectHandler) Get(w http.ResponseWriter, r *http.Request) {
	connectionID := chi.URLParam(r, "connectionID")

	conn, err := h.connectService.GetConnection(r.Context(), connectionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conn)
}

func (h *ConnectHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	connectionID := chi.URLParam(r, "connectionID")

	conn, err := h.connectService.CancelConnection(r.Context(), connectionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conn)
}
