package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chronicle/internal/projection"
)

// countResponse mirrors the legacy count payload, which carries the total as a string.
type countResponse struct {
	Total string `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, projection.ErrNotFound) {
		status = http.StatusNotFound
	} else {
		s.logger.Error("query failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// pagination reads the page and limit query parameters.
func pagination(r *http.Request) (projection.Pagination, error) {
	var p projection.Pagination
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, errors.New("page must be an integer")
		}
		p.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, errors.New("limit must be an integer")
		}
		p.Limit = n
	}
	return p, nil
}

func respond[T any](s *Server, w http.ResponseWriter, r *http.Request, v T, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func respondCount(s *Server, w http.ResponseWriter, r *http.Request, n int64, err error) {
	respond(s, w, r, countResponse{Total: strconv.FormatInt(n, 10)}, err)
}

// paged parses pagination and runs list, answering 400 on bad parameters.
func paged[T any](s *Server, w http.ResponseWriter, r *http.Request, list func(projection.Pagination) (T, error)) {
	p, err := pagination(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	v, err := list(p)
	respond(s, w, r, v, err)
}

func (s *Server) getAllPools(w http.ResponseWriter, r *http.Request) {
	paged(s, w, r, func(p projection.Pagination) (any, error) { return s.reader.Pools(r.Context(), p) })
}

func (s *Server) getPoolByRewardAddress(w http.ResponseWriter, r *http.Request) {
	v, err := s.reader.PoolByRewardAddress(r.Context(), chi.URLParam(r, "address"))
	respond(s, w, r, v, err)
}

func (s *Server) getPoolCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.reader.PoolCount(r.Context())
	respondCount(s, w, r, n, err)
}

func (s *Server) getBrandByName(w http.ResponseWriter, r *http.Request) {
	v, err := s.reader.BrandByName(r.Context(), chi.URLParam(r, "name"))
	respond(s, w, r, v, err)
}

func (s *Server) getBrandByID(w http.ResponseWriter, r *http.Request) {
	v, err := s.reader.BrandByID(r.Context(), chi.URLParam(r, "id"))
	respond(s, w, r, v, err)
}

func (s *Server) getBrandCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.reader.BrandCount(r.Context())
	respondCount(s, w, r, n, err)
}

func (s *Server) getAllBrands(w http.ResponseWriter, r *http.Request) {
	paged(s, w, r, func(p projection.Pagination) (any, error) { return s.reader.Brands(r.Context(), p) })
}

func (s *Server) getBrandWithRewards(w http.ResponseWriter, r *http.Request) {
	v, err := s.reader.BrandWithRewards(r.Context(), chi.URLParam(r, "id"))
	respond(s, w, r, v, err)
}

func (s *Server) getAllRedemptions(w http.ResponseWriter, r *http.Request) {
	paged(s, w, r, func(p projection.Pagination) (any, error) { return s.reader.Redemptions(r.Context(), p) })
}

func (s *Server) getRedemptionsByReward(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	paged(s, w, r, func(p projection.Pagination) (any, error) {
		return s.reader.RedemptionsByReward(r.Context(), address, p)
	})
}

func (s *Server) getRedemptionCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.reader.RedemptionCount(r.Context())
	respondCount(s, w, r, n, err)
}

func (s *Server) getRedemptionsByUser(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	paged(s, w, r, func(p projection.Pagination) (any, error) {
		return s.reader.RedemptionsByUser(r.Context(), address, p)
	})
}

func (s *Server) getRedemptionByTxHash(w http.ResponseWriter, r *http.Request) {
	v, err := s.reader.RedemptionByTxHash(r.Context(), chi.URLParam(r, "hash"))
	respond(s, w, r, v, err)
}

func (s *Server) getRewardCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.reader.RewardCount(r.Context())
	respondCount(s, w, r, n, err)
}

func (s *Server) getRewardByAddress(w http.ResponseWriter, r *http.Request) {
	v, err := s.reader.RewardByAddress(r.Context(), chi.URLParam(r, "address"))
	respond(s, w, r, v, err)
}

func (s *Server) getRewardByBrandID(w http.ResponseWriter, r *http.Request) {
	v, err := s.reader.RewardByBrandID(r.Context(), chi.URLParam(r, "id"))
	respond(s, w, r, v, err)
}

func (s *Server) getAllRewards(w http.ResponseWriter, r *http.Request) {
	paged(s, w, r, func(p projection.Pagination) (any, error) { return s.reader.Rewards(r.Context(), p) })
}
