package audit

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luca-patrignani/product-ledger/ledger"
	"github.com/luca-patrignani/product-ledger/product"
)

const maxBodyBytes = 1 << 20

// Ledger is the read side of a ledger.Blockchain.
type Ledger interface {
	Len() int
	Blocks() []ledger.Block
	GetLatest() (ledger.Block, error)
	GetByIndex(index int) (ledger.Block, error)
	Pending() []product.Product
	VerifyProduct(p product.Product) bool
	CheckForFakeProducts() []product.Product
	CountFakeProducts() int
	Verify() error
}

type chainResponse struct {
	Length int            `json:"length"`
	Blocks []ledger.Block `json:"blocks"`
}

type integrityResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

type fakesResponse struct {
	Fakes []product.Product `json:"fakes"`
}

type handler struct {
	ledger Ledger
	logger *slog.Logger
}

// NewHandler returns the audit router over l. Metrics are registered on a
// dedicated registry so that several handlers can coexist in one process.
func NewHandler(l Ledger, logger *slog.Logger) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(l))

	h := handler{ledger: l, logger: logger}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		requestLogger(logger),
		middleware.Recoverer,
	)
	r.Get("/healthz", h.health)
	r.Route("/chain", func(r chi.Router) {
		r.Get("/", h.chain)
		r.Get("/latest", h.latest)
		r.Get("/blocks/{index}", h.block)
		r.Get("/verify", h.integrity)
	})
	r.Route("/products", func(r chi.Router) {
		r.Post("/verify", h.verifyProduct)
		r.Get("/fakes", h.fakes)
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return r
}

func (h handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h handler) chain(w http.ResponseWriter, _ *http.Request) {
	blocks := h.ledger.Blocks()
	writeJSON(w, http.StatusOK, chainResponse{Length: len(blocks), Blocks: blocks})
}

func (h handler) latest(w http.ResponseWriter, _ *http.Request) {
	b, err := h.ledger.GetLatest()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h handler) block(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	b, err := h.ledger.GetByIndex(index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h handler) integrity(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Verify(); err != nil {
		h.logger.WarnContext(r.Context(), "integrity check failed", "error", err)
		writeJSON(w, http.StatusOK, integrityResponse{Valid: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, integrityResponse{Valid: true})
}

func (h handler) verifyProduct(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	p, err := product.Parse(body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Verified: h.ledger.VerifyProduct(p)})
}

func (h handler) fakes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, fakesResponse{Fakes: h.ledger.CheckForFakeProducts()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps ledger and product sentinel errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, product.ErrMalformedProduct):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrIndexOutOfRange):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
