package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"budgetd/internal/core"
	"budgetd/internal/services"
)

// Users

type createUserRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err)
		return
	}
	user, err := s.ledger.CreateUser(r.Context(), req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.ledger.ListUsers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if users == nil {
		users = []core.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.ledger.GetUser(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteUser(r.Context(), mux.Vars(r)["userID"]); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories

type categoryRequest struct {
	Name string         `json:"name"`
	Type core.EntryType `json:"type"`
	Icon string         `json:"icon"`
}

type categoryPatchRequest struct {
	Name *string `json:"name"`
	Icon *string `json:"icon"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err)
		return
	}
	cat, err := s.ledger.CreateCategory(r.Context(), mux.Vars(r)["userID"], services.CategoryInput{
		Name: req.Name,
		Type: req.Type,
		Icon: req.Icon,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.ListCategories(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		respondError(w, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	respondJSON(w, http.StatusOK, cats)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cat, err := s.ledger.GetCategory(r.Context(), vars["userID"], vars["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err)
		return
	}
	vars := mux.Vars(r)
	cat, err := s.ledger.UpdateCategory(r.Context(), vars["userID"], vars["id"], services.CategoryPatch{
		Name: req.Name,
		Icon: req.Icon,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.ledger.DeleteCategory(r.Context(), vars["userID"], vars["id"]); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transactions

type transactionRequest struct {
	CategoryID string         `json:"categoryId"`
	Amount     core.Money     `json:"amount"`
	Type       core.EntryType `json:"type"`
	Date       core.Date      `json:"date"`
	Notes      string         `json:"notes"`
}

type transactionPatchRequest struct {
	CategoryID *string         `json:"categoryId"`
	Amount     *core.Money     `json:"amount"`
	Type       *core.EntryType `json:"type"`
	Date       *core.Date      `json:"date"`
	Notes      *string         `json:"notes"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err)
		return
	}
	txn, err := s.ledger.CreateTransaction(r.Context(), mux.Vars(r)["userID"], services.TransactionInput{
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Type:       req.Type,
		Date:       req.Date,
		Notes:      req.Notes,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, txn)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.ledger.ListTransactions(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		respondError(w, err)
		return
	}
	if txns == nil {
		txns = []core.Transaction{}
	}
	respondJSON(w, http.StatusOK, txns)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	txn, err := s.ledger.GetTransaction(r.Context(), vars["userID"], vars["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txn)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err)
		return
	}
	vars := mux.Vars(r)
	txn, err := s.ledger.UpdateTransaction(r.Context(), vars["userID"], vars["id"], services.TransactionPatch{
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Type:       req.Type,
		Date:       req.Date,
		Notes:      req.Notes,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txn)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.ledger.DeleteTransaction(r.Context(), vars["userID"], vars["id"]); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recurring rules

type ruleRequest struct {
	Name       string         `json:"name"`
	CategoryID string         `json:"categoryId"`
	Amount     core.Money     `json:"amount"`
	Type       core.EntryType `json:"type"`
	Frequency  core.Frequency `json:"frequency"`
	StartDate  core.Date      `json:"startDate"`
	Notes      string         `json:"notes"`
}

type rulePatchRequest struct {
	Name        *string         `json:"name"`
	CategoryID  *string         `json:"categoryId"`
	Amount      *core.Money     `json:"amount"`
	Type        *core.EntryType `json:"type"`
	Frequency   *core.Frequency `json:"frequency"`
	Notes       *string         `json:"notes"`
	IsActive    *bool           `json:"isActive"`
	NextDueDate *core.Date      `json:"nextDueDate"`
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err)
		return
	}
	rule, err := s.ledger.CreateRule(r.Context(), mux.Vars(r)["userID"], services.RuleInput{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Type:       req.Type,
		Frequency:  req.Frequency,
		StartDate:  req.StartDate,
		Notes:      req.Notes,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.ledger.ListRules(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		respondError(w, err)
		return
	}
	if rules == nil {
		rules = []core.RecurringRule{}
	}
	respondJSON(w, http.StatusOK, rules)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rule, err := s.ledger.GetRule(r.Context(), vars["userID"], vars["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req rulePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err)
		return
	}
	vars := mux.Vars(r)
	rule, err := s.ledger.UpdateRule(r.Context(), vars["userID"], vars["id"], services.RulePatch{
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Type:        req.Type,
		Frequency:   req.Frequency,
		Notes:       req.Notes,
		IsActive:    req.IsActive,
		NextDueDate: req.NextDueDate,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.ledger.DeleteRule(r.Context(), vars["userID"], vars["id"]); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Engine triggers

type processRuleResponse struct {
	TransactionsGenerated int `json:"transactionsGenerated"`
}

func (s *Server) handleProcessRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	generated, err := s.engine.ProcessRuleByID(r.Context(), vars["userID"], vars["id"], time.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, processRuleResponse{TransactionsGenerated: generated})
}

func (s *Server) handleProcessAll(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.ProcessAll(r.Context(), time.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
