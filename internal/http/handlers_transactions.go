package http

import (
	"net/http"
	"strings"

	"saldo/internal/core"
)

// handleListTransactions serves the newest transactions, optionally
// narrowed by account, category or type. Filters combine.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	accountID, err := queryID(r, "account_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	categoryID, err := queryID(r, "category_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var txType core.TransactionType
	if v := strings.TrimSpace(r.URL.Query().Get("type")); v != "" {
		if txType, err = core.ParseTransactionType(v); err != nil {
			writeError(w, r, err)
			return
		}
	}

	// The state window only holds the newest transactions; filtered
	// listings go to the ledger so older matches are not dropped.
	f := core.TransactionFilter{AccountID: accountID, CategoryID: categoryID, Type: txType, Limit: limit}
	var txs []core.TransactionDetails
	if f.AccountID == 0 && f.CategoryID == 0 && f.Type == "" {
		txs = s.state.RecentTransactions(limit)
	} else if txs, err = s.txReader.ListTransactions(r.Context(), f); err != nil {
		writeError(w, r, err)
		return
	}

	out := mapSlice(txs, toTransactionResponse)
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.txReader.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "", err.Error())
		return
	}
	in, err := s.newTransaction(req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.state.CreateTransaction(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toTransactionResponse(s.withNames(t)))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "", err.Error())
		return
	}
	patch, err := s.transactionPatch(req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.state.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toTransactionResponse(s.withNames(t)))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.state.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) newTransaction(req createTransactionRequest) (core.NewTransaction, error) {
	t, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.NewTransaction{}, err
	}
	amount, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.NewTransaction{}, err
	}
	date, err := parseDate(req.Date, s.loc)
	if err != nil {
		return core.NewTransaction{}, err
	}
	return core.NewTransaction{
		Type:        t,
		Amount:      amount,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Date:        date,
	}, nil
}

func (s *Server) transactionPatch(req updateTransactionRequest) (core.TransactionPatch, error) {
	patch := core.TransactionPatch{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Description: req.Description,
	}
	if req.Type != nil {
		t, err := core.ParseTransactionType(*req.Type)
		if err != nil {
			return patch, err
		}
		patch.Type = &t
	}
	if req.Amount != nil {
		amount, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			return patch, err
		}
		patch.Amount = &amount
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date, s.loc)
		if err != nil {
			return patch, err
		}
		patch.Date = &date
	}
	return patch, nil
}

// withNames decorates t with the account and category display data held in state.
func (s *Server) withNames(t core.Transaction) core.TransactionDetails {
	d := core.TransactionDetails{Transaction: t}
	if acc, ok := s.state.AccountByID(t.AccountID); ok {
		d.AccountName = acc.Name
	}
	if c, ok := s.state.CategoryByID(t.CategoryID); ok {
		d.CategoryName = c.Name
		d.CategoryIcon = c.Icon
		d.CategoryColor = c.Color
	}
	return d
}
