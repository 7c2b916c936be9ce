package http

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"dompet/internal/core"
	"dompet/internal/log"
)

// datetimeLocalLayout is the value format of an <input type="datetime-local">.
const datetimeLocalLayout = "2006-01-02T15:04"

// formValues repopulates the form after a rejected submit.
type formValues struct {
	Name        string
	Description string
	Datetime    string
}

type indexPage struct {
	Ledger core.Ledger
	Error  string
	Form   formValues
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, "", formValues{Datetime: defaultDatetime(time.Now(), s.loc)})
}

// renderIndex lists the entries and renders the page. A listing failure is
// shown in the page, never as a 500.
func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, errMsg string, form formValues) {
	ctx := r.Context()
	page := indexPage{Error: errMsg, Form: form}

	entries, err := s.entries.List(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to fetch transactions", log.FieldError, err.Error(), log.FieldOperation, log.OpRender)
		if page.Error == "" {
			page.Error = "Failed to fetch transactions"
		}
	}
	items := make([]core.LedgerItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, core.ItemFromEntry(e))
	}
	page.Ledger = core.BuildLedger(items, s.loc)

	if s.templates == nil {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", page); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Template execution failed", log.FieldError, err.Error())
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCreateFromForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.renderIndex(w, r, http.StatusBadRequest, "Invalid form submission", formValues{})
		return
	}
	form := formValues{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Datetime:    strings.TrimSpace(r.PostFormValue("datetime")),
	}

	n, err := s.formEntry(form)
	if err != nil {
		s.renderIndex(w, r, http.StatusUnprocessableEntity, core.UserMessage(err), form)
		return
	}

	if _, err := s.entries.Create(ctx, n); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to add transaction", log.FieldError, err.Error())
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrValidation) {
			status = http.StatusUnprocessableEntity
		}
		s.renderIndex(w, r, status, "Failed to add transaction: "+err.Error(), form)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// formEntry runs the price parser on the name field before building an entry.
func (s *Server) formEntry(form formValues) (core.NewEntry, error) {
	if strings.TrimSpace(form.Name) == "" || form.Datetime == "" {
		return core.NewEntry{}, core.ErrRequiredFields
	}
	tok, err := core.ParsePriceToken(form.Name)
	if err != nil {
		return core.NewEntry{}, err
	}
	when, err := core.ParseDatetime(form.Datetime, s.loc)
	if err != nil {
		return core.NewEntry{}, err
	}
	return core.NewEntry{
		Name:        tok.Label,
		Description: form.Description,
		Datetime:    when,
		Price:       tok.Price(),
		PriceSet:    true,
	}, nil
}

// defaultDatetime pre-fills the datetime input with the current minute.
func defaultDatetime(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(datetimeLocalLayout)
}
