package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"referral-deposit-go/internal/api"
	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Age          int    `json:"age"`
	ReferralCode string `json:"referral_code"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps store errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrDepositNotFound),
		errors.Is(err, store.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "the account changed concurrently, please retry")
	default:
		zap.L().Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func resultStatus(success bool, ok int) int {
	if success {
		return ok
	}
	return http.StatusUnprocessableEntity
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.HealthCheck(r.Context()); err != nil {
		zap.L().Error("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.ledger.RegisterUser(r.Context(), api.RegisterParams{
		Name:         req.Name,
		Email:        req.Email,
		Age:          req.Age,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, resultStatus(result.Success, http.StatusCreated), result)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	user, err := s.ledger.GetUser(r.Context(), p.UserId)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	balance, err := s.ledger.GetUserBalance(r.Context(), p.UserId)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	q := r.URL.Query()

	entryType, err := models.ParseEntryType(q.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := queryInt(q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	history, err := s.ledger.GetTransactionHistory(r.Context(), p.UserId, entryType, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []models.TransactionRecord{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleDeposits(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	deposits, err := s.ledger.GetDeposits(r.Context(), p.UserId)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}

func (s *Server) handleStartDeposit(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.ledger.StartDeposit(r.Context(), p.UserId, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, resultStatus(result.Success, http.StatusCreated), result)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.ledger.Withdraw(r.Context(), p.UserId, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, resultStatus(result.Success, http.StatusAccepted), result)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.ledger.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteUser(r.Context(), chi.URLParam(r, "userId")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.ledger.CreditAdmin(r.Context(), chi.URLParam(r, "userId"), req.Amount, req.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, resultStatus(result.Success, http.StatusOK), result)
}

func (s *Server) handleDebit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.ledger.DebitAdmin(r.Context(), chi.URLParam(r, "userId"), req.Amount, req.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, resultStatus(result.Success, http.StatusOK), result)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.ledger.ReconcileUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    report.UserId,
		"balance":    report.Balance,
		"calculated": report.Calculated,
		"difference": report.Difference(),
		"entries":    report.Entries,
		"balanced":   report.Balanced(),
	})
}

func (s *Server) handleConfirmWithdrawal(w http.ResponseWriter, r *http.Request) {
	record, err := s.ledger.ConfirmWithdrawal(r.Context(), chi.URLParam(r, "entryId"), "admin")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleRunAccrual(w http.ResponseWriter, r *http.Request) {
	if s.accrual == nil {
		writeError(w, http.StatusServiceUnavailable, "accrual engine not configured")
		return
	}
	summary, err := s.accrual.RunTick(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func queryInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
