package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/shopspring/decimal"
)

type graphQLRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

func TestSubgraphQuoter_V3(t *testing.T) {
	var got graphQLRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// USDC sorts before WETH, so token0 is USDC.
		w.Write([]byte(`{"data":{"pools":[{"feeTier":"500","token0Price":"3001.25","token1Price":"0.000333194502290712","liquidityUSD":"250000000.5"}]}}`))
	}))
	defer srv.Close()

	q := NewSubgraphQuoter("uniswap-v3", true, map[uint64]string{1: srv.URL}, testClient(t, ""))
	vq, err := q.Quote(context.Background(), quoteRequest(t, asset.WETH, asset.USDC, "1", "3000"))
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}

	if got.Variables["token0"] != strings.ToLower(asset.USDC.Address()) {
		t.Errorf("token0 = %s, want lowercase USDC", got.Variables["token0"])
	}
	if !strings.Contains(got.Query, "pools(") {
		t.Errorf("query = %s, want pools query", got.Query)
	}
	if !vq.Price.Equal(decimal.RequireFromString("3001.25")) {
		t.Errorf("Price = %s, want 3001.25", vq.Price)
	}
	if !vq.LiquidityUSD.Equal(decimal.RequireFromString("250000000.5")) {
		t.Errorf("LiquidityUSD = %s, want 250000000.5", vq.LiquidityUSD)
	}
	if !vq.FeeRate.Valid || !vq.FeeRate.Decimal.Equal(decimal.RequireFromString("0.0005")) {
		t.Errorf("FeeRate = %v, want 0.0005", vq.FeeRate)
	}
}

func TestSubgraphQuoter_V2BaseIsToken0(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"pairs":[{"token0Price":"0.000333","token1Price":"3003","liquidityUSD":"80000000"}]}}`))
	}))
	defer srv.Close()

	q := NewSubgraphQuoter("sushiswap", false, map[uint64]string{1: srv.URL}, testClient(t, ""))
	// USDC is token0 here, so the USDC/WETH price is token1Price.
	vq, err := q.Quote(context.Background(), quoteRequest(t, asset.USDC, asset.WETH, "3000", "3000"))
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if !vq.Price.Equal(decimal.NewFromInt(3003)) {
		t.Errorf("Price = %s, want 3003", vq.Price)
	}
	if vq.FeeRate.Valid {
		t.Error("FeeRate set for a v2 subgraph, want configured fee")
	}
}

func TestSubgraphQuoter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"graphql error", `{"errors":[{"message":"indexing error"}]}`, "indexing error"},
		{"no pool", `{"data":{"pools":[]}}`, "no pool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			q := NewSubgraphQuoter("uniswap-v3", true, map[uint64]string{1: srv.URL}, testClient(t, ""))
			_, err := q.Quote(context.Background(), quoteRequest(t, asset.WETH, asset.USDC, "1", "3000"))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Quote() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	t.Run("no endpoint for chain", func(t *testing.T) {
		q := NewSubgraphQuoter("uniswap-v3", true, map[uint64]string{}, testClient(t, ""))
		if _, err := q.Quote(context.Background(), quoteRequest(t, asset.WETH, asset.USDC, "1", "3000")); err == nil {
			t.Error("Quote() error = nil, want missing endpoint error")
		}
	})
}
