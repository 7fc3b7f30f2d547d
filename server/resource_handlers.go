package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/rentdesk/rentdesk/auth"
	apperrors "github.com/rentdesk/rentdesk/internal/errors"
)

// bearerToken returns a usable access token, refreshing once when the stored
// one is expired. A session whose refresh fails is unauthenticated no matter
// what the persisted flags claim.
func (s *Server) bearerToken(ctx context.Context) (string, error) {
	tokens, err := s.store.GetTokens()
	if err != nil || tokens.Expired(time.Now()) {
		if refreshErr := s.auth.Refresh(ctx); refreshErr != nil {
			return "", errors.Wrapf(auth.AuthExpiredErr, "%v", refreshErr)
		}
		tokens, err = s.store.GetTokens()
		if err != nil {
			return "", errors.Wrap(auth.AuthExpiredErr, "no tokens after refresh")
		}
	}
	return tokens.AccessToken, nil
}

func (s *Server) writeBackendFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.AuthExpiredErr):
		writeFailure(w, http.StatusUnauthorized, auth.AuthExpiredErr.Error())
	case errors.Is(err, apperrors.ErrNetwork):
		writeFailure(w, http.StatusBadGateway, apperrors.ErrNetwork.Error())
	default:
		writeFailure(w, http.StatusBadGateway, err.Error())
	}
}

// ListDocsHandler lists all documents of a doctype.
func (s *Server) ListDocsHandler(doctype string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := s.bearerToken(r.Context())
		if err != nil {
			s.writeBackendFailure(w, err)
			return
		}
		docs, err := s.backend.ListDocs(r.Context(), token, doctype, nil)
		if err != nil {
			log.Error().Err(err).Str("doctype", doctype).Msg("list failed")
			s.writeBackendFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResult{Success: true, Data: docs})
	}
}

// GetDocHandler fetches a single document by name.
func (s *Server) GetDocHandler(doctype string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := s.bearerToken(r.Context())
		if err != nil {
			s.writeBackendFailure(w, err)
			return
		}
		doc, err := s.backend.GetDoc(r.Context(), token, doctype, r.PathValue("name"))
		if err != nil {
			s.writeBackendFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResult{Success: true, Data: doc})
	}
}

// CreateDocHandler inserts a document from the request body.
func (s *Server) CreateDocHandler(doctype string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.createDoc(w, r, doctype, nil)
	}
}

// UpdateDocHandler applies a partial update from the request body.
func (s *Server) UpdateDocHandler(doctype string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, ok := decodeBody(w, r)
		if !ok {
			return
		}
		token, err := s.bearerToken(r.Context())
		if err != nil {
			s.writeBackendFailure(w, err)
			return
		}
		doc, err := s.backend.UpdateDoc(r.Context(), token, doctype, r.PathValue("name"), fields)
		if err != nil {
			s.writeBackendFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResult{Success: true, Data: doc})
	}
}

// DeleteDocHandler removes a document.
func (s *Server) DeleteDocHandler(doctype string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := s.bearerToken(r.Context())
		if err != nil {
			s.writeBackendFailure(w, err)
			return
		}
		if err := s.backend.DeleteDoc(r.Context(), token, doctype, r.PathValue("name")); err != nil {
			s.writeBackendFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResult{Success: true})
	}
}

// PaymentDraftHandler records a payment as a draft (docstatus 0); it only
// becomes effective once submitted.
func (s *Server) PaymentDraftHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.createDoc(w, r, DoctypePayment, map[string]any{"docstatus": 0})
	}
}

// PaymentSubmitHandler moves a draft payment to submitted.
func (s *Server) PaymentSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := s.bearerToken(r.Context())
		if err != nil {
			s.writeBackendFailure(w, err)
			return
		}
		doc, err := s.backend.SubmitDoc(r.Context(), token, DoctypePayment, r.PathValue("name"))
		if err != nil {
			s.writeBackendFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResult{Success: true, Data: doc})
	}
}

// MyRentalHandler returns the rental tied to the signed-in tenant's email.
func (s *Server) MyRentalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.listForSessionEmail(w, r, DoctypeRental, "tenant_email")
	}
}

// MyPaymentsHandler returns the signed-in tenant's payments.
func (s *Server) MyPaymentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.listForSessionEmail(w, r, DoctypePayment, "party_email")
	}
}

// ReportSummaryHandler gathers per-doctype counts, one backend call at a
// time, for the admin reporting view.
func (s *Server) ReportSummaryHandler() http.HandlerFunc {
	reportDoctypes := map[string]string{
		"properties": DoctypeProperty,
		"rentals":    DoctypeRental,
		"payments":   DoctypePayment,
		"tenants":    DoctypeTenant,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := s.bearerToken(r.Context())
		if err != nil {
			s.writeBackendFailure(w, err)
			return
		}
		summary := make(map[string]int, len(reportDoctypes))
		for key, doctype := range reportDoctypes {
			docs, err := s.backend.ListDocs(r.Context(), token, doctype, nil)
			if err != nil {
				s.writeBackendFailure(w, err)
				return
			}
			summary[key] = len(docs)
		}
		writeJSON(w, http.StatusOK, apiResult{Success: true, Data: summary})
	}
}

func (s *Server) createDoc(w http.ResponseWriter, r *http.Request, doctype string, forced map[string]any) {
	fields, ok := decodeBody(w, r)
	if !ok {
		return
	}
	for k, v := range forced {
		fields[k] = v
	}
	token, err := s.bearerToken(r.Context())
	if err != nil {
		s.writeBackendFailure(w, err)
		return
	}
	doc, err := s.backend.CreateDoc(r.Context(), token, doctype, fields)
	if err != nil {
		s.writeBackendFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, apiResult{Success: true, Data: doc})
}

func (s *Server) listForSessionEmail(w http.ResponseWriter, r *http.Request, doctype, emailField string) {
	flags, ok := FlagsFromContext(r.Context())
	if !ok || flags.Email == "" {
		writeFailure(w, http.StatusUnauthorized, "no session email")
		return
	}
	token, err := s.bearerToken(r.Context())
	if err != nil {
		s.writeBackendFailure(w, err)
		return
	}
	docs, err := s.backend.ListDocs(r.Context(), token, doctype, map[string]string{emailField: flags.Email})
	if err != nil {
		s.writeBackendFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResult{Success: true, Data: docs})
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	fields := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return fields, true
}
