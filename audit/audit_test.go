package audit

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/luca-patrignani/product-ledger/ledger"
	"github.com/luca-patrignani/product-ledger/product"
)

var (
	iphone = product.New("Apple iPhone 12", "Apple Inc.", "123456")
	galaxy = product.New("Samsung Galaxy S21", "Samsung Electronics", "789012")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newScenarioLedger mines iPhone+Galaxy, then the iPhone again, and leaves
// one product staged.
func newScenarioLedger() *ledger.Blockchain {
	bc := ledger.NewBlockchain(ledger.WithClock(ledger.NewStepClock(time.Unix(1700000000, 0), time.Second)))
	bc.AddProduct(iphone)
	bc.AddProduct(galaxy)
	bc.MinePendingProducts()
	bc.AddProduct(iphone)
	bc.MinePendingProducts()
	bc.AddProduct(product.New("Sony PlayStation 5", "Sony Corporation", "901234"))
	return bc
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, r))
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	rr := do(t, NewHandler(newScenarioLedger(), discardLogger()), http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if got := decode[map[string]string](t, rr); got["status"] != "ok" {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestChain(t *testing.T) {
	bc := newScenarioLedger()
	rr := do(t, NewHandler(bc, discardLogger()), http.MethodGet, "/chain", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	got := decode[chainResponse](t, rr)
	if got.Length != 3 || len(got.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got length=%d blocks=%d", got.Length, len(got.Blocks))
	}
	for i, b := range got.Blocks {
		if b.Index != i {
			t.Fatalf("block %d has index %d", i, b.Index)
		}
		if b.ComputeHash() != b.Hash {
			t.Fatalf("block %d does not survive a JSON round trip: %s vs %s", i, b.ComputeHash(), b.Hash)
		}
	}
}

func TestLatestAndBlock(t *testing.T) {
	bc := newScenarioLedger()
	h := NewHandler(bc, discardLogger())

	want, _ := bc.GetLatest()
	rr := do(t, h, http.MethodGet, "/chain/latest", "")
	if got := decode[ledger.Block](t, rr); got.Hash != want.Hash {
		t.Fatalf("latest: got %s, want %s", got.Hash, want.Hash)
	}

	first, _ := bc.GetByIndex(1)
	rr = do(t, h, http.MethodGet, "/chain/blocks/1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	got := decode[ledger.Block](t, rr)
	if got.Hash != first.Hash || len(got.Products) != 2 {
		t.Fatalf("unexpected block %+v", got)
	}

	tests := []struct {
		target string
		status int
	}{
		{"/chain/blocks/3", http.StatusNotFound},
		{"/chain/blocks/-1", http.StatusNotFound},
		{"/chain/blocks/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rr := do(t, h, http.MethodGet, tt.target, ""); rr.Code != tt.status {
			t.Errorf("%s: status %d, want %d", tt.target, rr.Code, tt.status)
		}
	}
}

func TestIntegrity(t *testing.T) {
	rr := do(t, NewHandler(newScenarioLedger(), discardLogger()), http.MethodGet, "/chain/verify", "")
	got := decode[integrityResponse](t, rr)
	if !got.Valid || got.Error != "" {
		t.Fatalf("expected a valid chain, got %+v", got)
	}
}

type brokenLedger struct {
	*ledger.Blockchain
}

func (brokenLedger) Verify() error {
	return ledger.ErrIntegrity
}

func TestIntegrityReportsFailure(t *testing.T) {
	rr := do(t, NewHandler(brokenLedger{newScenarioLedger()}, discardLogger()), http.MethodGet, "/chain/verify", "")
	got := decode[integrityResponse](t, rr)
	if got.Valid || got.Error == "" {
		t.Fatalf("expected an invalid chain, got %+v", got)
	}
}

func TestVerifyProduct(t *testing.T) {
	h := NewHandler(newScenarioLedger(), discardLogger())

	tests := []struct {
		name     string
		body     string
		status   int
		verified bool
	}{
		{
			name:     "committed",
			body:     `{"name":"Samsung Galaxy S21","manufacturer":"Samsung Electronics","serial_number":"789012"}`,
			status:   http.StatusOK,
			verified: true,
		},
		{
			name:   "staged only",
			body:   `{"name":"Sony PlayStation 5","manufacturer":"Sony Corporation","serial_number":"901234"}`,
			status: http.StatusOK,
		},
		{
			name:   "unknown",
			body:   `{"name":"x","manufacturer":"y","serial_number":"z"}`,
			status: http.StatusOK,
		},
		{
			name:   "missing field",
			body:   `{"name":"x","manufacturer":"y"}`,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "extra field",
			body:   `{"name":"x","manufacturer":"y","serial_number":"z","batch":"7"}`,
			status: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/products/verify", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status %d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			if got := decode[verifyResponse](t, rr); got.Verified != tt.verified {
				t.Fatalf("verified = %v, want %v", got.Verified, tt.verified)
			}
		})
	}
}

func TestFakes(t *testing.T) {
	rr := do(t, NewHandler(newScenarioLedger(), discardLogger()), http.MethodGet, "/products/fakes", "")
	var got struct {
		Fakes []json.RawMessage `json:"fakes"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Fakes) != 1 {
		t.Fatalf("expected 1 fake, got %d", len(got.Fakes))
	}
	p, err := product.Parse(got.Fakes[0])
	if err != nil {
		t.Fatal(err)
	}
	if !p.Equal(iphone) {
		t.Fatalf("unexpected fake %v", p)
	}
}

func TestFakesEmptyIsArray(t *testing.T) {
	rr := do(t, NewHandler(ledger.NewBlockchain(), discardLogger()), http.MethodGet, "/products/fakes", "")
	if body := strings.TrimSpace(rr.Body.String()); body != `{"fakes":[]}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestCollector(t *testing.T) {
	expected := `
# HELP product_ledger_chain_length Number of committed blocks, genesis included.
# TYPE product_ledger_chain_length gauge
product_ledger_chain_length 3
# HELP product_ledger_fake_products Number of distinct products committed more than once.
# TYPE product_ledger_fake_products gauge
product_ledger_fake_products 1
# HELP product_ledger_pending_products Number of products staged for the next block.
# TYPE product_ledger_pending_products gauge
product_ledger_pending_products 1
`
	if err := testutil.CollectAndCompare(NewCollector(newScenarioLedger()), strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := do(t, NewHandler(newScenarioLedger(), discardLogger()), http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "product_ledger_chain_length 3") {
		t.Fatalf("metrics do not expose the chain length:\n%s", rr.Body.String())
	}
}

func TestServer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(l.Addr().String(), newScenarioLedger(), discardLogger())
	s.Start(l)

	resp, err := http.Get("http://" + l.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	if err := s.Close(time.Second); err != nil {
		t.Fatalf("failed to close server: %v", err)
	}
	if err, ok := <-s.Err(); ok {
		t.Fatalf("unexpected serving error: %v", err)
	}
}
