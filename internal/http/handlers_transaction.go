package http

import (
	"encoding/json"
	"net/http"
	"time"

	"dompet/internal/core"
	"dompet/internal/log"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "Rejected malformed transaction body", log.FieldError, err.Error())
		NewErrorResponse("Invalid request body").Message(err.Error()).Write(w)
		return
	}

	n, rerr := req.toNewEntry(s.loc)
	if rerr != nil {
		logger.WarnContext(ctx, "Rejected transaction", log.FieldOperation, log.OpValidate, "reason", rerr.resp.body.Error)
		rerr.Write(w)
		return
	}

	e, err := s.entries.Create(ctx, n)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create transaction", log.FieldError, err.Error())
		s.storeError(ctx, "Failed to create transaction", err).Write(w)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.entries.List(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to fetch transactions", log.FieldError, err.Error())
		s.storeError(ctx, "Failed to fetch transactions", err).Write(w)
		return
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "test okay3",
		"timestamp":  time.Now().UTC(),
		"storeState": s.entries.State(r.Context()),
	})
}

func handleTransactionTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Transaction endpoint is accessible",
		"timestamp": time.Now().UTC(),
	})
}
