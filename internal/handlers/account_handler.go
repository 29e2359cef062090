package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schoolpoints/backend/internal/models"
	"github.com/schoolpoints/backend/internal/services"
)

const (
	// IdempotencyKeyHeader lets a till retry a credit or debit safely.
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayedHeader marks a response served from the idempotency cache.
	ReplayedHeader = "Idempotent-Replayed"
)

// AmountRequest is the body of a credit or debit.
// @Description Credit or debit request structure
type AmountRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0" example:"50"` // Points to move, positive integer
}

// BalanceResponse is returned after a committed credit or debit.
// @Description Balance update response structure
type BalanceResponse struct {
	Message    string `json:"message" example:"Points added"`
	NewBalance int64  `json:"newBalance" example:"1050"`
}

// HistoryResponse lists an account's journal.
type HistoryResponse struct {
	Transactions []models.JournalEntry `json:"transactions"`
	Count        int                   `json:"count"`
}

type postFunc func(ctx context.Context, accountID, amount int64, reference string) (int64, error)

type AccountHandler struct {
	ledger      *services.LedgerService
	idempotency *services.IdempotencyCache
	validator   *services.ValidationHelper
	logger      *zap.Logger
}

func NewAccountHandler(ledger *services.LedgerService, idempotency *services.IdempotencyCache, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		ledger:      ledger,
		idempotency: idempotency,
		validator:   services.NewValidationHelper(),
		logger:      logger,
	}
}

// Routes mounts the account endpoints. The {account} segment is a scan code
// for the lookup and an account id everywhere else.
func (h *AccountHandler) Routes(r chi.Router) {
	r.Post("/accounts", h.OpenAccount)
	r.Route("/account/{account}", func(r chi.Router) {
		r.Get("/", h.Lookup)
		r.Delete("/", h.CloseAccount)
		r.Post("/credit", h.Credit)
		r.Post("/add", h.Credit)
		r.Post("/debit", h.Debit)
		r.Post("/subtract", h.Debit)
		r.Get("/transactions", h.History)
		r.Get("/reconcile", h.Reconcile)
	})
	// paths used by the first till UI
	r.Route("/student/{account}", func(r chi.Router) {
		r.Get("/", h.Lookup)
		r.Post("/add", h.Credit)
		r.Post("/subtract", h.Debit)
	})
}

// Lookup resolves a scanned code to an account
// @Summary Look up an account by scan code
// @Description Resolve the QR or typed scan code to the account's public view
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param account path string true "Scan code"
// @Success 200 {object} models.AccountView
// @Failure 404 {object} services.ErrorResponse
// @Router /account/{account} [get]
func (h *AccountHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	scanCode := chi.URLParam(r, "account")

	view, err := h.ledger.Lookup(r.Context(), scanCode)
	if err != nil {
		h.logger.Info("[ACCOUNT] lookup failed", zap.String("scan_code", scanCode), zap.Error(err))
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Credit adds points to an account
// @Summary Credit points
// @Description Add a positive amount of points to the account balance
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param account path int true "Account ID"
// @Param Idempotency-Key header string false "Retry key; also stored as the journal reference"
// @Param request body AmountRequest true "Amount"
// @Success 200 {object} BalanceResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /account/{account}/credit [post]
func (h *AccountHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, string(models.EntryCredit), "Points added", h.ledger.Credit)
}

// Debit subtracts points from an account
// @Summary Debit points
// @Description Subtract a positive amount of points; the balance never goes below zero
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param account path int true "Account ID"
// @Param Idempotency-Key header string false "Retry key; also stored as the journal reference"
// @Param request body AmountRequest true "Amount"
// @Success 200 {object} BalanceResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /account/{account}/debit [post]
func (h *AccountHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, string(models.EntryDebit), "Points subtracted", h.ledger.Subtract)
}

func (h *AccountHandler) post(w http.ResponseWriter, r *http.Request, op, message string, apply postFunc) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req AmountRequest
	if err := h.decode(w, r, &req); err != nil {
		h.logger.Info("[LEDGER] rejected request body", zap.Int64("account_id", accountID), zap.Error(err))
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			services.SendCodedErrorResponse(w, models.ErrInvalidAmount.Error(), models.ErrorCode(models.ErrInvalidAmount), http.StatusBadRequest, err)
			return
		}
		writeLedgerError(w, models.ErrInvalidAmount)
		return
	}

	reference := r.Header.Get(IdempotencyKeyHeader)
	cacheKey := ""
	if reference != "" && h.idempotency.Enabled() {
		cacheKey = h.idempotency.Key(op, accountID, reference)
		stored, err := h.idempotency.Begin(r.Context(), cacheKey)
		switch {
		case errors.Is(err, services.ErrRequestInFlight):
			services.SendCodedErrorResponse(w, err.Error(), "RequestInFlight", http.StatusConflict, nil)
			return
		case err != nil:
			h.logger.Warn("[IDEMPOTENCY] cache unavailable, posting without replay protection",
				zap.String("key", cacheKey), zap.Error(err))
			cacheKey = ""
		case stored != nil:
			h.logger.Info("[IDEMPOTENCY] replaying stored response", zap.String("key", cacheKey))
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(ReplayedHeader, "true")
			w.WriteHeader(stored.Status)
			w.Write(stored.Body)
			return
		}
	}

	balance, err := apply(r.Context(), accountID, req.Amount, reference)
	if err != nil {
		if cacheKey != "" {
			if relErr := h.idempotency.Release(r.Context(), cacheKey); relErr != nil {
				h.logger.Warn("[IDEMPOTENCY] failed to release key", zap.String("key", cacheKey), zap.Error(relErr))
			}
		}
		writeLedgerError(w, err)
		return
	}

	body, err := json.Marshal(BalanceResponse{Message: message, NewBalance: balance})
	if err != nil {
		services.SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}
	if cacheKey != "" {
		stored := services.StoredResponse{Status: http.StatusOK, Body: body}
		if err := h.idempotency.Complete(r.Context(), cacheKey, stored); err != nil {
			h.logger.Warn("[IDEMPOTENCY] failed to store response", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// History lists the account's journal
// @Summary Account journal
// @Description List every credit and debit of the account, oldest first
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Param account path int true "Account ID"
// @Success 200 {object} HistoryResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /account/{account}/transactions [get]
func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	entries, err := h.ledger.History(r.Context(), accountID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Transactions: entries, Count: len(entries)})
}

// Reconcile checks the stored balance against the journal
// @Summary Reconcile an account
// @Description Replay the journal from the opening balance and compare it with the stored balance
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Param account path int true "Account ID"
// @Success 200 {object} models.Reconciliation
// @Failure 404 {object} services.ErrorResponse
// @Router /account/{account}/reconcile [get]
func (h *AccountHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.ledger.Reconcile(r.Context(), accountID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// OpenAccount creates an account
// @Summary Open an account
// @Description Create an account with a unique scan code and an opening balance
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.NewAccount true "Account"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req models.NewAccount
	if err := h.decode(w, r, &req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			services.SendCodedErrorResponse(w, "Invalid request body", "InvalidRequest", http.StatusBadRequest, nil)
			return
		}
		code := "InvalidRequest"
		for _, fe := range fieldErrs {
			if fe.Field() == "InitialBalance" {
				code = models.ErrorCode(models.ErrInvalidAmount)
			}
		}
		services.SendCodedErrorResponse(w, "Validation failed", code, http.StatusBadRequest, err)
		return
	}

	account, err := h.ledger.OpenAccount(r.Context(), req)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// CloseAccount deletes an account
// @Summary Close an account
// @Description Delete an account that has no journal entries
// @Tags accounts
// @Security BearerAuth
// @Param account path int true "Account ID"
// @Success 204
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /account/{account} [delete]
func (h *AccountHandler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	if err := h.ledger.CloseAccount(r.Context(), accountID); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads exactly one JSON object into dst and validates it.
func (h *AccountHandler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must only contain a single JSON object")
	}
	return h.validator.ValidateStruct(dst)
}

// accountIDParam parses {account} as an id. Ids are never anything but
// positive integers, so anything else cannot name an account.
func accountIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "account"), 10, 64)
	if err != nil || id <= 0 {
		writeLedgerError(w, models.ErrNotFound)
		return 0, false
	}
	return id, true
}

// writeLedgerError maps ledger errors to HTTP responses.
func writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "An Internal Error Occurred"

	switch {
	case errors.Is(err, models.ErrInvalidAmount):
		status, message = http.StatusBadRequest, models.ErrInvalidAmount.Error()
	case errors.Is(err, models.ErrInsufficientFunds):
		status, message = http.StatusBadRequest, models.ErrInsufficientFunds.Error()
	case errors.Is(err, models.ErrNotFound):
		status, message = http.StatusNotFound, models.ErrNotFound.Error()
	case errors.Is(err, models.ErrDuplicateScanCode):
		status, message = http.StatusConflict, models.ErrDuplicateScanCode.Error()
	case errors.Is(err, models.ErrAccountInUse):
		status, message = http.StatusConflict, models.ErrAccountInUse.Error()
	case errors.Is(err, models.ErrStorageUnavailable):
		status, message = http.StatusServiceUnavailable, models.ErrStorageUnavailable.Error()
	}

	services.SendCodedErrorResponse(w, message, models.ErrorCode(err), status, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		services.SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
