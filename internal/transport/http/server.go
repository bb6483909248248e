// package http implements the HTTP transport layer for the service.
// It handles incoming requests, decodes them, calls the appropriate service
// methods, and encodes the responses.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/avialabs/exam-pool-service/internal/apperrors"
	"github.com/avialabs/exam-pool-service/internal/domain"
	"github.com/avialabs/exam-pool-service/internal/service"
	"github.com/avialabs/exam-pool-service/internal/validation"
	"github.com/avialabs/exam-pool-service/pkg/logger/sl"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the dependencies for the HTTP server, including the logger and
// service interfaces.
type Server struct {
	log          *slog.Logger
	pools        service.PoolService
	confirmation service.ConfirmationService
	merge        service.MergeService
}

func NewServer(
	log *slog.Logger,
	pools service.PoolService,
	confirmation service.ConfirmationService,
	merge service.MergeService,
) *Server {
	return &Server{
		log:          log,
		pools:        pools,
		confirmation: confirmation,
		merge:        merge,
	}
}

// Routes sets up the router with all middleware and API endpoints.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)
	mux.Use(s.callerIdentity)

	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/pools", func(r chi.Router) {
		r.Get("/", s.ListPools)
		r.Get("/pending-confirmation", s.ListPendingConfirmation)
		r.Get("/merge-candidates", s.ListMergeCandidates)
		r.Post("/", s.CreatePool)
		r.Post("/reserve", s.ReserveSeat)
		r.Post("/confirm", s.ConfirmPool)
		r.Post("/fail", s.FailPool)
		r.Post("/cancel", s.CancelPool)
		r.Post("/merge", s.MergePools)
	})

	return mux
}

func (s *Server) ListPools(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.ListPools"

	pools, err := s.pools.ListPools(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]poolResponse{"pools": toPoolResponses(pools)})
}

func (s *Server) ListPendingConfirmation(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.ListPendingConfirmation"

	pending, err := s.pools.ListPendingConfirmation(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]pendingPoolResponse{"pending": toPendingPoolResponses(pending)})
}

func (s *Server) ListMergeCandidates(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.ListMergeCandidates"

	candidates, err := s.merge.ListMergeCandidates(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]mergeCandidateResponse{"candidates": toMergeCandidateResponses(candidates)})
}

func (s *Server) CreatePool(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.CreatePool"

	var req createPoolRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	pool, err := s.pools.CreatePool(r.Context(), callerFromContext(r.Context()), service.CreatePoolParams{
		Name:            req.Name,
		ExamDate:        req.ExamDate,
		JoinDeadline:    req.JoinDeadline,
		ConfirmDeadline: req.ConfirmDeadline,
		MinCandidates:   req.MinCandidates,
		MaxCandidates:   req.MaxCandidates,
	})
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]poolResponse{"pool": toPoolResponse(pool)})
}

func (s *Server) ReserveSeat(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.ReserveSeat"

	var req reserveRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	pool, err := s.pools.Reserve(r.Context(), callerFromContext(r.Context()),
		req.PoolID, req.CandidateID, req.ModuleCode, req.ModuleName)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]poolResponse{"pool": toPoolResponse(pool)})
}

func (s *Server) ConfirmPool(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.ConfirmPool"

	var req confirmPoolRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	assignments := make([]domain.RoomAssignment, len(req.RoomAssignments))
	for i, a := range req.RoomAssignments {
		assignments[i] = domain.RoomAssignment{
			PoolID:     req.PoolID,
			ModuleCode: a.ModuleCode,
			Room:       a.Room,
			ExamTime:   a.ExamTime,
		}
	}

	pool, err := s.confirmation.Confirm(r.Context(), callerFromContext(r.Context()), req.PoolID, assignments)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]poolResponse{"pool": toPoolResponse(pool)})
}

func (s *Server) FailPool(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.FailPool"

	var req failPoolRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	pool, err := s.confirmation.Fail(r.Context(), callerFromContext(r.Context()), req.PoolID, req.Reason)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]poolResponse{"pool": toPoolResponse(pool)})
}

func (s *Server) CancelPool(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.CancelPool"

	var req cancelPoolRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	pool, err := s.confirmation.Cancel(r.Context(), callerFromContext(r.Context()), req.PoolID, req.Reason)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]poolResponse{"pool": toPoolResponse(pool)})
}

func (s *Server) MergePools(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.MergePools"

	var req mergePoolsRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	pool, err := s.merge.Merge(r.Context(), callerFromContext(r.Context()), req.SourcePoolID, req.TargetPoolID)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]poolResponse{"pool": toPoolResponse(pool)})
}

// respond is a helper function to encode data to JSON and write it to the response.
func (s *Server) respond(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.respond(w, code, map[string]string{"error": message})
}

func (s *Server) respondAPIError(w http.ResponseWriter, code int, apiCode, message string) {
	s.respond(w, code, errorResponse{Error: errorBody{Code: apiCode, Message: message}})
}

// decodeAndValidate deserializes a JSON request body into a struct and then
// runs validation checks on it.
func (s *Server) decodeAndValidate(r *http.Request, v interface{}) error {
	if err := s.decode(r.Body, v); err != nil {
		return err
	}

	if err := validation.ValidateStruct(v); err != nil {
		return err
	}

	return nil
}

func (s *Server) decode(body io.ReadCloser, v interface{}) error {
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return nil
}

// handleServiceError provides centralized error handling for all HTTP handlers.
// It logs the internal error and maps it to a machine-distinguishable kind plus
// a human-readable message.
func (s *Server) handleServiceError(w http.ResponseWriter, op string, err error) {
	log := s.log.With(slog.String("op", op))
	log.Error("service error occurred", sl.Err(err))

	var (
		validationErr   *validation.ValidationError
		preconditionErr *apperrors.PreconditionFailedError
		mergeErr        *apperrors.MergeConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		s.respondError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, apperrors.ErrValidation):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrInvalidRequest):
		s.respondError(w, http.StatusBadRequest, "invalid request body")
	case errors.Is(err, apperrors.ErrForbidden):
		s.respondAPIError(w, http.StatusForbidden, codeForbidden, apperrors.ErrForbidden.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		s.respondAPIError(w, http.StatusNotFound, codeNotFound, "resource not found")
	case errors.As(err, &preconditionErr):
		s.respondAPIError(w, http.StatusConflict, codePreconditionFailed, preconditionErr.Error())
	case errors.As(err, &mergeErr):
		s.respondAPIError(w, http.StatusConflict, codeMergeConflict, mergeErr.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
