package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/app"
	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	pricingDomain "github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
)

type scanCall struct {
	pair       string
	investment decimal.Decimal
	minProfit  decimal.Decimal
	opts       int
}

type stubScanner struct {
	calls   []scanCall
	scanErr error
	toggled map[string]bool
	sources []app.SourceStatus
}

func (s *stubScanner) Scan(_ context.Context, base, quote *asset.Asset, investment, minProfit decimal.Decimal, opts ...app.ScanOption) (*app.ScanResult, error) {
	s.calls = append(s.calls, scanCall{asset.PairLabel(base, quote), investment, minProfit, len(opts)})
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	return &app.ScanResult{
		Pair:          asset.PairLabel(base, quote),
		ChainID:       base.ChainID(),
		Network:       asset.ChainName(base.ChainID()),
		Investment:    investment,
		Quotes:        map[string]pricingDomain.Quote{},
		Opportunities: []domain.Opportunity{},
		Message:       "no profitable opportunities above 0.5%",
	}, nil
}

func (s *stubScanner) Sources() []app.SourceStatus {
	return s.sources
}

func (s *stubScanner) SetSourceEnabled(_ context.Context, slug string, enabled bool) error {
	for i := range s.sources {
		if s.sources[i].Slug == slug {
			s.sources[i].Enabled = enabled
			s.toggled[slug] = enabled
			return nil
		}
	}
	return apperror.NotFound(apperror.CodeSourceNotFound, slug)
}

type stubQuotes struct {
	refreshed bool
}

func (q *stubQuotes) Aggregate(_ context.Context, _, _ *asset.Asset, opts ...pricingApp.AggregateOption) (map[string]pricingDomain.Quote, error) {
	q.refreshed = len(opts) > 0
	return map[string]pricingDomain.Quote{
		"uniswap-v3": {Source: "uniswap-v3", Price: decimal.NewFromInt(3000), Timestamp: time.Now()},
	}, nil
}

type stubJournal struct {
	limit int
	err   error
}

func (j *stubJournal) Recent(_ context.Context, limit int) ([]domain.Opportunity, error) {
	j.limit = limit
	if j.err != nil {
		return nil, j.err
	}
	return []domain.Opportunity{{ID: "opp-1", TokenPair: "WETH/USDC"}}, nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *stubScanner) {
	t.Helper()
	scanner := &stubScanner{
		toggled: map[string]bool{},
		sources: []app.SourceStatus{
			{SourceConfig: pricingDomain.SourceConfig{Name: "Uniswap V3", Slug: "uniswap-v3", Enabled: true}, ChainIDs: []uint64{1}, Breaker: "closed"},
			{SourceConfig: pricingDomain.SourceConfig{Name: "0x", Slug: "0x", Enabled: true}, ChainIDs: []uint64{1, 137}, Breaker: "closed"},
		},
	}
	cfg := Config{
		Investment:       decimal.NewFromInt(1000),
		MinProfitPercent: decimal.RequireFromString("0.5"),
	}
	return NewServer(cfg, scanner, asset.DefaultRegistry(), logger.NewNop(), opts...), scanner
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) apperror.Code {
	t.Helper()
	var body struct {
		Error struct {
			Code apperror.Code `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestScan_UsesDefaultsAndOverrides(t *testing.T) {
	s, scanner := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/scan?pair=WETH/USDC@ethereum", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var res app.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "WETH/USDC", res.Pair)
	assert.Equal(t, "ethereum", res.Network)
	assert.NotNil(t, res.Opportunities)

	rec = do(t, s, http.MethodGet, "/v1/scan?pair=WETH/USDC@1&investment=250&minProfit=1.5&refresh=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, scanner.calls, 2)
	assert.True(t, scanner.calls[0].investment.Equal(decimal.NewFromInt(1000)))
	assert.True(t, scanner.calls[0].minProfit.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, 0, scanner.calls[0].opts)
	assert.True(t, scanner.calls[1].investment.Equal(decimal.NewFromInt(250)))
	assert.True(t, scanner.calls[1].minProfit.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, 1, scanner.calls[1].opts)
}

func TestScan_Errors(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		scanErr error
		status  int
		code    apperror.Code
	}{
		{"missing pair", "/v1/scan", nil, http.StatusBadRequest, apperror.CodeRequiredField},
		{"malformed pair", "/v1/scan?pair=WETHUSDC", nil, http.StatusBadRequest, apperror.CodeInvalidPairFormat},
		{"unknown chain", "/v1/scan?pair=WETH/USDC@mars", nil, http.StatusBadRequest, apperror.CodeChainUnsupported},
		{"unknown token", "/v1/scan?pair=NOPE/USDC@ethereum", nil, http.StatusNotFound, apperror.CodeTokenNotFound},
		{"bad investment", "/v1/scan?pair=WETH/USDC@ethereum&investment=lots", nil, http.StatusBadRequest, apperror.CodeInvalidTradeSize},
		{"bad threshold", "/v1/scan?pair=WETH/USDC@ethereum&minProfit=x", nil, http.StatusBadRequest, apperror.CodeInvalidProfitThreshold},
		{"scan validation", "/v1/scan?pair=WETH/USDC@ethereum", apperror.Validation(apperror.CodeInvalidTradeSize, "0"), http.StatusBadRequest, apperror.CodeInvalidTradeSize},
		{"plain error", "/v1/scan?pair=WETH/USDC@ethereum", errors.New("boom"), http.StatusInternalServerError, apperror.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, scanner := newTestServer(t)
			scanner.scanErr = tt.scanErr

			rec := do(t, s, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestSources_ListAndToggle(t *testing.T) {
	s, scanner := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []app.SourceStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, []uint64{1, 137}, listed[1].ChainIDs)

	rec = do(t, s, http.MethodPut, "/v1/sources/0x", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var st app.SourceStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "0x", st.Slug)
	assert.False(t, st.Enabled)
	assert.Equal(t, map[string]bool{"0x": false}, scanner.toggled)

	rec = do(t, s, http.MethodPut, "/v1/sources/kyber", `{"enabled": true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperror.CodeSourceNotFound, errorCode(t, rec))

	for _, body := range []string{`{}`, `not json`} {
		rec = do(t, s, http.MethodPut, "/v1/sources/0x", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, apperror.CodeInvalidInput, errorCode(t, rec), body)
	}

	rec = do(t, s, http.MethodPost, "/v1/sources/0x", `{"enabled": true}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWrongMethod(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/sources/0x"},
		{http.MethodDelete, "/v1/sources/0x"},
		{http.MethodPost, "/v1/scan"},
		{http.MethodPut, "/v1/sources"},
		{http.MethodDelete, "/v1/opportunities"},
	}

	s, scanner := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, `{"enabled": true}`)
			require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, apperror.CodeMethodNotAllowed, errorCode(t, rec))
		})
	}
	assert.Empty(t, scanner.toggled, "rejected requests must not toggle sources")
}

func TestQuotes(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/v1/quotes?pair=WETH/USDC@ethereum", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "disabled without a quote source")

	quotes := &stubQuotes{}
	s, _ = newTestServer(t, WithQuotes(quotes))
	rec = do(t, s, http.MethodGet, "/v1/quotes?pair=WETH/USDC@ethereum&refresh=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, quotes.refreshed)

	var body QuotesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "WETH/USDC", body.Pair)
	assert.Equal(t, uint64(asset.ChainIDEthereum), body.ChainID)
	require.Contains(t, body.Quotes, "uniswap-v3")
	assert.Equal(t, "3000", body.Quotes["uniswap-v3"].Price.String())
}

func TestOpportunities(t *testing.T) {
	journal := &stubJournal{}
	s, _ := newTestServer(t, WithJournal(journal))

	rec := do(t, s, http.MethodGet, "/v1/opportunities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultRecentLimit, journal.limit)

	var body OpportunitiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Opportunities, 1)
	assert.Equal(t, "opp-1", body.Opportunities[0].ID)

	do(t, s, http.MethodGet, "/v1/opportunities?limit=100000", "")
	assert.Equal(t, maxRecentLimit, journal.limit)

	rec = do(t, s, http.MethodGet, "/v1/opportunities?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	journal.err = apperror.External(apperror.CodeStoreUnavailable, "history", errors.New("down"))
	rec = do(t, s, http.MethodGet, "/v1/opportunities", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apperror.CodeStoreUnavailable, errorCode(t, rec))
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/v2/anything", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperror.CodeNotFound, errorCode(t, rec))
}
