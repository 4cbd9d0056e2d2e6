package http

import (
	"net/http"

	"saldo/internal/core"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, mapSlice(s.state.Accounts(), toAccountResponse))
}

func (s *Server) handleTotalBalance(w http.ResponseWriter, r *http.Request) {
	total := s.state.TotalBalance()
	writeJSON(w, r, http.StatusOK, totalResponse{TotalCents: total, Total: core.FormatCents(total)})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	acc, ok := s.state.AccountByID(id)
	if !ok {
		writeError(w, r, core.NewNotFoundError("account", id))
		return
	}
	writeJSON(w, r, http.StatusOK, toAccountResponse(acc))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "", err.Error())
		return
	}
	balance, err := parseBalance(req.Balance)
	if err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := s.state.CreateAccount(r.Context(), core.NewAccount{Name: req.Name, Balance: balance})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toAccountResponse(acc))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "", err.Error())
		return
	}

	acc, err := s.state.UpdateAccount(r.Context(), id, core.AccountPatch{Name: req.Name})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAccountResponse(acc))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.state.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req adjustRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "", err.Error())
		return
	}
	amount, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	direction, err := core.ParseTransactionType(req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := s.state.AdjustBalance(r.Context(), id, direction.SignedAmount(amount))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAccountResponse(acc))
}
