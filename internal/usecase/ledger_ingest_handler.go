package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgkafka "FinCast/pkg/kafka"
	"FinCast/pkg/util"
)

// LedgerIngestHandler consumes ledger entry messages and writes them to the ledger store.
type LedgerIngestHandler struct {
	topic    string
	store    domrepo.LedgerStore
	metrics  domrepo.Metrics
	validate *validator.Validate
}

func NewLedgerIngestHandler(topic string, store domrepo.LedgerStore, metrics domrepo.Metrics) *LedgerIngestHandler {
	return &LedgerIngestHandler{topic: topic, store: store, metrics: metrics, validate: validator.New()}
}

func (h *LedgerIngestHandler) Topic() string { return h.topic }

// incoming message schema: {id?, user_id, kind, amount, date, description?}
func (h *LedgerIngestHandler) Handle(ctx context.Context, b []byte) error {
	if err := h.handle(ctx, b); err != nil {
		if id := pkgkafka.TraceIDFrom(ctx); id != "" {
			return fmt.Errorf("trace %s: %w", id, err)
		}
		return err
	}
	return nil
}

func (h *LedgerIngestHandler) handle(ctx context.Context, b []byte) error {
	entry, err := h.decode(b)
	if err != nil {
		h.metrics.RecordError("ledger_decode")
		return err
	}

	start := time.Now()
	err = h.store.StoreBatch(ctx, []*models.LedgerEntry{entry})
	h.metrics.RecordLatency("ledger_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("ledger_store")
		return err
	}
	h.metrics.RecordLedgerEntry(string(entry.Kind))
	return nil
}

func (h *LedgerIngestHandler) decode(b []byte) (*models.LedgerEntry, error) {
	var m models.LedgerMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal ledger message: %w", err)
	}
	if err := h.validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid ledger message: %w", err)
	}

	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", m.Amount, err)
	}
	date, err := util.ParseDate(m.Date)
	if err != nil {
		return nil, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	entry := &models.LedgerEntry{
		ID:          m.ID,
		UserID:      m.UserID,
		Kind:        models.EntryKind(m.Kind),
		Amount:      amount,
		Date:        date,
		Description: m.Description,
	}
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger entry: %w", err)
	}
	return entry, nil
}

var _ pkgkafka.MessageHandler = (*LedgerIngestHandler)(nil)
