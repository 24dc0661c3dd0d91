package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/app"
	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	pricingDomain "github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// SetSourceRequest is the body of PUT /v1/sources/{slug}.
type SetSourceRequest struct {
	Enabled *bool `json:"enabled"`
}

// QuotesResponse is the body of GET /v1/quotes.
type QuotesResponse struct {
	Pair    string                         `json:"pair"`
	ChainID uint64                         `json:"chainId"`
	Quotes  map[string]pricingDomain.Quote `json:"quotes"`
}

// OpportunitiesResponse is the body of GET /v1/opportunities.
type OpportunitiesResponse struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	base, quote, err := s.pair(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	investment, err := decimalParam(q.Get("investment"), s.cfg.Investment, apperror.CodeInvalidTradeSize)
	if err != nil {
		writeError(w, err)
		return
	}
	minProfit, err := decimalParam(q.Get("minProfit"), s.cfg.MinProfitPercent, apperror.CodeInvalidProfitThreshold)
	if err != nil {
		writeError(w, err)
		return
	}

	var opts []app.ScanOption
	if refresh, _ := strconv.ParseBool(q.Get("refresh")); refresh {
		opts = append(opts, app.WithRefresh())
	}

	res, err := s.scanner.Scan(r.Context(), base, quote, investment, minProfit, opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scanner.Sources())
}

func (s *Server) handleSetSource(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	var req SetSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, apperror.Validation(apperror.CodeInvalidInput, `body must be {"enabled": true|false}`))
		return
	}

	if err := s.scanner.SetSourceEnabled(r.Context(), slug, *req.Enabled); err != nil {
		writeError(w, err)
		return
	}

	for _, st := range s.scanner.Sources() {
		if st.Slug == slug {
			writeJSON(w, http.StatusOK, st)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	if s.quotes == nil {
		s.handleNotFound(w, r)
		return
	}

	base, quote, err := s.pair(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var opts []pricingApp.AggregateOption
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		opts = append(opts, pricingApp.WithForceRefresh())
	}

	quotes, err := s.quotes.Aggregate(r.Context(), base, quote, opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QuotesResponse{
		Pair:    asset.PairLabel(base, quote),
		ChainID: base.ChainID(),
		Quotes:  quotes,
	})
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.handleNotFound(w, r)
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, apperror.Validation(apperror.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxRecentLimit)
	}

	opps, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, OpportunitiesResponse{Opportunities: opps})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeError(w, apperror.NotFound(apperror.CodeNotFound, r.URL.Path))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeError(w, apperror.New(apperror.CodeMethodNotAllowed, apperror.WithContext(r.Method+" "+r.URL.Path)))
}

func (s *Server) pair(r *http.Request) (*asset.Asset, *asset.Asset, error) {
	spec := r.URL.Query().Get("pair")
	if spec == "" {
		return nil, nil, apperror.Validation(apperror.CodeRequiredField, "pair")
	}
	base, quote, err := s.assets.ResolvePair(spec)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeInvalidPairFormat, spec)
	}
	return base, quote, nil
}

func decimalParam(raw string, def decimal.Decimal, code apperror.Code) (decimal.Decimal, error) {
	if raw == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.Validation(code, raw)
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, err error) {
	appErr := apperror.Wrap(err, apperror.CodeInternalError, "")
	writeJSON(w, appErr.StatusCode, appErr.ToResponse())
}
