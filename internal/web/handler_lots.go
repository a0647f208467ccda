package web

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/AlfilAlex/taller-upy/internal/domain"
	"github.com/AlfilAlex/taller-upy/internal/service"
	"github.com/AlfilAlex/taller-upy/internal/store"
)

// publishRequest is the client payload for POST /lots. Owner, status and
// timestamps are not part of it: the service assigns them from the
// authenticated identity and the clock, so a client-supplied ownerId or
// status never has any effect.
type publishRequest struct {
	Material  domain.Material  `json:"material"`
	Condition domain.Condition `json:"condition"`
	WeightKg  float64          `json:"weightKg"`
	Scheme    domain.Scheme    `json:"scheme"`
	Price     float64          `json:"price"`
	Address   domain.Address   `json:"address"`
	Images    []string         `json:"images"`
	ExpiresAt int64            `json:"expiresAt"`
}

func (s *Server) handlePublishLot(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lot, err := s.service.Publish(r.Context(), service.PublishInput{
		Material:  req.Material,
		Condition: req.Condition,
		WeightKg:  req.WeightKg,
		Scheme:    req.Scheme,
		Price:     req.Price,
		Address:   req.Address,
		Images:    req.Images,
		ExpiresAt: req.ExpiresAt,
	}, callerIdentity(r.Context()))
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			jsonError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.logger.Error("failed to publish lot", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	jsonResponse(w, http.StatusCreated, lot)
}

var dayBucketRe = regexp.MustCompile(`^\d{8}$`)

func (s *Server) handleListLots(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		jsonError(w, http.StatusBadRequest, "unknown status")
		return
	}
	day := r.URL.Query().Get("createdDay")
	if day != "" && !dayBucketRe.MatchString(day) {
		jsonError(w, http.StatusBadRequest, "createdDay must be YYYYMMDD")
		return
	}
	material := domain.Material(r.URL.Query().Get("material"))
	if material != "" && !material.Valid() {
		jsonError(w, http.StatusBadRequest, "unknown material")
		return
	}

	lots, err := s.service.List(r.Context(), status, day, material)
	if err != nil {
		s.logger.Error("failed to list lots", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if lots == nil {
		lots = []*domain.Lot{}
	}
	jsonResponse(w, http.StatusOK, lots)
}

func (s *Server) handleGetLot(w http.ResponseWriter, r *http.Request) {
	lotID := r.PathValue("lotId")

	lot, err := s.service.Get(r.Context(), lotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "lot not found")
			return
		}
		s.logger.Error("failed to get lot", "error", err, "lot_id", lotID)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	jsonResponse(w, http.StatusOK, lot)
}

func (s *Server) handleReserveLot(w http.ResponseWriter, r *http.Request) {
	lotID := r.PathValue("lotId")
	if lotID == "" {
		jsonError(w, http.StatusBadRequest, "missing lot id")
		return
	}

	lot, err := s.service.Reserve(r.Context(), lotID, callerIdentity(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			jsonError(w, http.StatusNotFound, "lot not found")
		case errors.Is(err, service.ErrSelfReservation):
			jsonError(w, http.StatusForbidden, "you cannot reserve a lot that you own")
		case errors.Is(err, service.ErrAlreadyReserved):
			jsonError(w, http.StatusConflict, "lot already reserved")
		default:
			s.logger.Error("failed to reserve lot", "error", err, "lot_id", lotID)
			jsonError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	jsonResponse(w, http.StatusOK, lot)
}

func (s *Server) handleMyLots(w http.ResponseWriter, r *http.Request) {
	lots, err := s.service.ListByOwner(r.Context(), callerIdentity(r.Context()))
	if err != nil {
		s.logger.Error("failed to list own lots", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if lots == nil {
		lots = []*domain.Lot{}
	}
	jsonResponse(w, http.StatusOK, lots)
}

func (s *Server) handleMyReservations(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		jsonError(w, http.StatusBadRequest, "unknown status")
		return
	}

	lots, err := s.service.ListByReceiver(r.Context(), callerIdentity(r.Context()), status)
	if err != nil {
		s.logger.Error("failed to list reservations", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if lots == nil {
		lots = []*domain.Lot{}
	}
	jsonResponse(w, http.StatusOK, lots)
}
