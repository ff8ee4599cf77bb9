package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"walletlog/internal/application"
	"walletlog/internal/config"
	"walletlog/internal/domain"
)

type HistoryLog interface {
	Records() []domain.TransactionRecord
	ByKind(kind domain.Kind) []domain.TransactionRecord
	Add(record domain.TransactionRecord) bool
	Clear(ctx context.Context)
}

type ReceiptDetailer interface {
	Details(ctx context.Context, txHash string) application.ReceiptDetails
}

type BalanceQuerier interface {
	Balances(ctx context.Context, owner string) ([]application.TokenBalance, error)
}

type ChainStatus interface {
	ChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

type StoragePinger interface {
	Ping(ctx context.Context) error
}

// ActivityPublisher is the optional activity-stream sink; publish failures
// never fail the request.
type ActivityPublisher interface {
	PublishRecord(ctx context.Context, record domain.TransactionRecord) error
	PublishClear(ctx context.Context, count int) error
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type Server struct {
	cfg       config.Config
	history   HistoryLog
	receipts  ReceiptDetailer
	balances  BalanceQuerier
	chain     ChainStatus
	storage   StoragePinger
	publisher ActivityPublisher
	registry  *domain.Registry
	metrics   *Metrics
	buildInfo BuildInfo
}

func NewServer(cfg config.Config, history HistoryLog, receipts ReceiptDetailer, balances BalanceQuerier, chain ChainStatus, storage StoragePinger, publisher ActivityPublisher, registry *domain.Registry, metrics *Metrics, buildInfo BuildInfo) (*Server, error) {
	if history == nil || receipts == nil || balances == nil || chain == nil || registry == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{
		cfg:       cfg,
		history:   history,
		receipts:  receipts,
		balances:  balances,
		chain:     chain,
		storage:   storage,
		publisher: publisher,
		registry:  registry,
		metrics:   metrics,
		buildInfo: buildInfo,
	}, nil
}

func (s *Server) MetricsObserver() *Metrics {
	return s.metrics
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/receipts", s.handleReceipts)
	mux.HandleFunc("/balances", s.handleBalances)
	mux.HandleFunc("/tokens", s.handleTokens)
	mux.HandleFunc("/network", s.handleNetwork)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/version", s.handleVersion)
	return mux
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.storage != nil {
		if err := s.storage.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "storage not ready")
			return
		}
	}
	if _, err := s.chain.LatestBlockNumber(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "rpc not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleHistoryList(w, r)
	case http.MethodPost:
		s.handleHistoryAdd(w, r)
	case http.MethodDelete:
		s.handleHistoryClear(w, r)
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("kind")
	if raw == "" {
		respondJSON(w, http.StatusOK, s.history.Records())
		return
	}
	kind := domain.Kind(raw)
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "invalid kind")
		return
	}
	records := s.history.ByKind(kind)
	if records == nil {
		records = []domain.TransactionRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

type addRecordRequest struct {
	Identifier           string `json:"identifier"`
	Kind                 string `json:"kind"`
	TokenContractAddress string `json:"tokenContractAddress"`
	Amount               string `json:"amount"`
	SubmittedAt          int64  `json:"submittedAt"`
}

func (s *Server) handleHistoryAdd(w http.ResponseWriter, r *http.Request) {
	var payload addRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Identifier == "" {
		respondError(w, http.StatusBadRequest, "identifier is required")
		return
	}
	kind := domain.Kind(payload.Kind)
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "invalid kind")
		return
	}
	if payload.SubmittedAt == 0 {
		payload.SubmittedAt = time.Now().UnixMilli()
	}

	symbol := s.registry.ResolveSymbol(payload.TokenContractAddress)
	if payload.Amount != "" && symbol != domain.TokenUnknown {
		if _, err := s.registry.ParseAmount(payload.Amount, symbol); err != nil {
			respondError(w, http.StatusBadRequest, "invalid amount")
			return
		}
	}

	record := domain.TransactionRecord{
		Identifier:           payload.Identifier,
		Kind:                 kind,
		TokenContractAddress: payload.TokenContractAddress,
		TokenSymbol:          symbol,
		Amount:               payload.Amount,
		SubmittedAt:          payload.SubmittedAt,
	}

	inserted := s.history.Add(record)
	if inserted {
		slog.Info("record accepted",
			"tx", domain.FormatHash(record.Identifier),
			"kind", record.Kind,
			"token", record.TokenSymbol,
		)
	}
	if inserted && s.publisher != nil {
		if err := s.publisher.PublishRecord(r.Context(), record); err != nil {
			slog.Warn("activity publish failed", "tx_hash", record.Identifier, "error", err)
			s.metrics.IncPublishError()
		} else {
			s.metrics.IncEventPublished()
		}
	}
	respondJSON(w, http.StatusAccepted, record)
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	count := len(s.history.Records())
	s.history.Clear(r.Context())
	if s.publisher != nil {
		if err := s.publisher.PublishClear(r.Context(), count); err != nil {
			slog.Warn("activity publish failed", "error", err)
			s.metrics.IncPublishError()
		} else {
			s.metrics.IncEventPublished()
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"cleared": count})
}

type receiptResponse struct {
	TxHash  string                  `json:"txHash"`
	State   application.FetchState  `json:"state"`
	Receipt *domain.EnrichedReceipt `json:"receipt,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	txHash := r.URL.Query().Get("tx_hash")
	if txHash == "" {
		respondError(w, http.StatusBadRequest, "tx_hash is required")
		return
	}
	details := s.receipts.Details(r.Context(), txHash)
	respondJSON(w, http.StatusOK, receiptResponse{
		TxHash:  txHash,
		State:   details.State,
		Receipt: details.Receipt,
		Error:   details.Err,
	})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	owner := r.URL.Query().Get("address")
	if owner == "" {
		respondError(w, http.StatusBadRequest, "address is required")
		return
	}
	balances, err := s.balances.Balances(r.Context(), owner)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "balance query failed")
		return
	}
	respondJSON(w, http.StatusOK, balances)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.registry.Tokens()
	response := make([]map[string]any, 0, len(tokens))
	for _, token := range tokens {
		response = append(response, map[string]any{
			"symbol":   token.Symbol,
			"address":  token.Address.Hex(),
			"decimals": token.Decimals,
		})
	}
	respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	chainID, err := s.chain.ChainID(ctx)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "chain id query failed")
		return
	}
	latest, err := s.chain.LatestBlockNumber(ctx)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "block number query failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"chain_id":     chainID.String(),
		"latest_block": latest,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	snap := s.metrics.Snapshot()

	fmt.Fprintf(w, "walletlog_uptime_seconds %.0f\n", time.Since(snap.StartTime).Seconds())
	fmt.Fprintf(w, "walletlog_history_size %d\n", snap.HistorySize)
	fmt.Fprintf(w, "walletlog_records_added_total %d\n", snap.RecordsAdded)
	fmt.Fprintf(w, "walletlog_duplicates_ignored_total %d\n", snap.DuplicatesIgnored)
	fmt.Fprintf(w, "walletlog_records_rejected_total %d\n", snap.RecordsRejected)
	fmt.Fprintf(w, "walletlog_saves_total %d\n", snap.Saves)
	fmt.Fprintf(w, "walletlog_save_errors_total %d\n", snap.SaveErrors)
	fmt.Fprintf(w, "walletlog_clears_total %d\n", snap.Clears)
	fmt.Fprintf(w, "walletlog_receipt_fetches_total %d\n", snap.ReceiptFetches)
	fmt.Fprintf(w, "walletlog_receipts_loaded_total %d\n", snap.ReceiptsLoaded)
	fmt.Fprintf(w, "walletlog_receipt_failures_total %d\n", snap.ReceiptFailures)
	fmt.Fprintf(w, "walletlog_receipt_cache_hits_total %d\n", snap.ReceiptCacheHits)
	fmt.Fprintf(w, "walletlog_events_published_total %d\n", snap.EventsPublished)
	fmt.Fprintf(w, "walletlog_publish_errors_total %d\n", snap.PublishErrors)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
