/**
 * @description
 * This file contains the HTTP handlers for the luckypool-service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/luckypool/luckypool-service/internal/app"
	"github.com/luckypool/luckypool-service/internal/domain"
	"github.com/luckypool/luckypool-service/internal/store"
)

// LuckyPoolHandlers holds the application service that handlers will use.
type LuckyPoolHandlers struct {
	service *app.Service
}

// NewLuckyPoolHandlers creates a new instance of LuckyPoolHandlers.
func NewLuckyPoolHandlers(service *app.Service) *LuckyPoolHandlers {
	return &LuckyPoolHandlers{service: service}
}

type prizeClaimRequest struct {
	Cryptogram string `json:"cryptogram"`
}

// CaptchaHandler issues a human-verification challenge for the caller.
func (h *LuckyPoolHandlers) CaptchaHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := GetAccount(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	out, err := h.service.RequestChallenge(r.Context(), account)
	if err != nil {
		h.writeServiceError(w, account, "captcha", err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// AirdropClaimHandler handles airdrop registration claims.
func (h *LuckyPoolHandlers) AirdropClaimHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := GetAccount(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req domain.AirdropClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	out, err := h.service.ClaimAirdrop(r.Context(), account, req)
	if err != nil {
		h.writeServiceError(w, account, "airdrop", err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// AirdropStateHandler returns the caller's reward state.
func (h *LuckyPoolHandlers) AirdropStateHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := GetAccount(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	out, err := h.service.AirdropStateOf(r.Context(), account)
	if err != nil {
		h.writeServiceError(w, account, "airdrop_state", err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// PrizeClaimHandler redeems a prize cryptogram.
func (h *LuckyPoolHandlers) PrizeClaimHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := GetAccount(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req prizeClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Cryptogram == "" {
		h.writeError(w, http.StatusBadRequest, "cryptogram is required")
		return
	}

	out, err := h.service.ClaimPrize(r.Context(), account, req.Cryptogram)
	if err != nil {
		h.writeServiceError(w, account, "prize", err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HarvestHandler withdraws claimable tokens to the external ledger.
func (h *LuckyPoolHandlers) HarvestHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := GetAccount(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req domain.HarvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	out, err := h.service.Harvest(r.Context(), account, req.Amount)
	if err != nil {
		h.writeServiceError(w, account, "harvest", err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// LuckyDrawHandler settles one draw for the caller.
func (h *LuckyPoolHandlers) LuckyDrawHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := GetAccount(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req domain.LuckyDrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	out, err := h.service.LuckyDraw(r.Context(), account, req)
	if err != nil {
		h.writeServiceError(w, account, "luckydraw", err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// PrizeIssueHandler mints a prize voucher. Internal endpoint, guarded by the
// shared API key.
func (h *LuckyPoolHandlers) PrizeIssueHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.PrizeIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.service.IssuePrize(req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"cryptogram": token})
}

// StateHandler returns the aggregate pool snapshot.
func (h *LuckyPoolHandlers) StateHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.State())
}

// writeServiceError maps orchestrator errors to HTTP responses. Transient
// contention maps to 429; validation failures to 4xx; everything else is a
// logged 500 with a generic body.
func (h *LuckyPoolHandlers) writeServiceError(w http.ResponseWriter, account domain.AccountID, op string, err error) {
	switch {
	case errors.Is(err, store.ErrTryAgainLater):
		h.writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, store.ErrAccountBanned):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrIdentityAlreadyBound),
		errors.Is(err, store.ErrPrizeAlreadyRedeemed),
		errors.Is(err, store.ErrPrizeExhausted),
		errors.Is(err, store.ErrAlreadyRegistered):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInsufficientClaimable),
		errors.Is(err, app.ErrInvalidWager),
		errors.Is(err, app.ErrMissingClaimProof),
		errors.Is(err, app.ErrInvalidChallenge),
		errors.Is(err, app.ErrInvalidVoucher),
		errors.Is(err, app.ErrInvalidPrize),
		errors.Is(err, app.ErrNoLuckyCode),
		errors.Is(err, app.ErrPrizeFloor),
		errors.Is(err, app.ErrHarvestTooSmall):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrAirdropPoolEmpty),
		errors.Is(err, app.ErrDrawPoolExhausted):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("level=error component=api op=%s account=%s msg=\"operation failed\" err=%v", op, account, err)
		h.writeError(w, http.StatusInternalServerError, "operation failed")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *LuckyPoolHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *LuckyPoolHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
