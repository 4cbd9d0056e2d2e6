package http

import (
	"net/http"
)

func (s *Server) handleMonthAnalytics(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthQuery(r, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.state.MonthAnalytics(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toMonthAnalyticsResponse(m))
}
