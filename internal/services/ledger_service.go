package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"maks/internal/amqp"
	"maks/internal/balance"
	"maks/internal/core"
	"maks/internal/log"
	"maks/internal/secure"
	"maks/internal/storage"
	"maks/internal/tax"
)

// inheritLookback is how many months back a missing rate is searched for.
const inheritLookback = 12

// EventPublisher announces ledger changes. Implemented by *amqp.Client.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerStore is the part of a backend the ledger reads and writes.
type LedgerStore interface {
	storage.EntryStore
	storage.MonthStore
	storage.CorrectionStore
}

// InputMode is how the amount of a new entry was typed in.
type InputMode string

const (
	ModeNet   InputMode = "NET"
	ModeGross InputMode = "BRUTO"
	ModeCash  InputMode = "CASH"
)

// Default descriptions per input mode.
const (
	descNet   = "Alga"
	descGross = "Alga (No Bruto: %s€)"
	descCash  = "Alga (Uz rokas)"
)

// ParseInputMode accepts the three modes case-insensitively; empty is NET.
func ParseInputMode(s string) (InputMode, error) {
	switch m := InputMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case "":
		return ModeNet, nil
	case ModeNet, ModeGross, ModeCash:
		return m, nil
	}
	return "", core.Invalid("mode", core.ErrUnknownInputMode)
}

// EntryInput is a new entry as submitted.
type EntryInput struct {
	Date        string
	Amount      string
	Mode        InputMode
	Description string
	// Dependents and HasTaxBook only feed the net preview of a BRUTO entry.
	Dependents int
	HasTaxBook bool
}

// AddedEntry is the stored entry. NetPreview is set for BRUTO input.
type AddedEntry struct {
	Entry      core.Entry
	NetPreview *decimal.Decimal
}

// EffectiveRecord is a month record as displayed. When the stored rate is
// zero the rate of the closest earlier month is borrowed.
type EffectiveRecord struct {
	Record        core.MonthRecord
	Stored        bool
	InheritedFrom *core.MonthKey
}

// LedgerService encrypts ledger records on write, decrypts them on read and
// feeds the decrypted snapshot to the reconciler.
type LedgerService struct {
	store     LedgerStore
	publisher EventPublisher
	logger    *log.Logger
	events    *log.StructuredLogger
	now       func() time.Time
	newID     func() string
}

func NewLedgerService(store LedgerStore, publisher EventPublisher) *LedgerService {
	logger := log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentLedger})
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func requireUnlocked(sess *secure.Session) error {
	if sess == nil || sess.State() != secure.StateUnlocked {
		return secure.ErrLocked
	}
	return nil
}

// AddEntry validates, seals and stores a new entry.
func (s *LedgerService) AddEntry(ctx context.Context, sess *secure.Session, in EntryInput) (AddedEntry, error) {
	if err := requireUnlocked(sess); err != nil {
		return AddedEntry{}, err
	}
	mode, err := ParseInputMode(string(in.Mode))
	if err != nil {
		return AddedEntry{}, err
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return AddedEntry{}, core.Invalid("date", err)
	}
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return AddedEntry{}, core.Invalid("amount", err)
	}

	e := core.Entry{
		ID:          s.newID(),
		Date:        date,
		Amount:      core.Money{Cents: cents},
		Kind:        core.KindTransfer,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.now().UTC(),
	}
	var preview *decimal.Decimal
	switch mode {
	case ModeGross:
		if in.Dependents < 0 || in.Dependents > core.MaxDependents {
			return AddedEntry{}, core.Invalid("dependents", core.ErrInvalidDependents)
		}
		net := tax.NetFromGross(e.Amount.Decimal(), in.Dependents, in.HasTaxBook)
		preview = &net
		if e.Description == "" {
			e.Description = fmt.Sprintf(descGross, strings.TrimSpace(in.Amount))
		}
	case ModeCash:
		e.Kind = core.KindCash
		if e.Description == "" {
			e.Description = descCash
		}
	default:
		if e.Description == "" {
			e.Description = descNet
		}
	}
	if err := e.Validate(); err != nil {
		return AddedEntry{}, err
	}

	content, err := sess.Seal(newEntryPayload(e))
	if err != nil {
		return AddedEntry{}, fmt.Errorf("seal entry: %w", err)
	}
	body, err := json.Marshal(entryEnvelope{CreatedAt: e.CreatedAt.Format(time.RFC3339Nano), Content: content})
	if err != nil {
		return AddedEntry{}, fmt.Errorf("marshal entry: %w", err)
	}
	doc := storage.Document{ID: e.ID, CreatedAt: e.CreatedAt, Body: body}
	if err := s.store.PutEntry(ctx, sess.UserID(), doc); err != nil {
		return AddedEntry{}, storageErr("add entry", err)
	}

	s.changed(ctx, sess.UserID(), amqp.OpCreate, amqp.RecordEntry, e.ID)
	return AddedEntry{Entry: e, NetPreview: preview}, nil
}

// DeleteEntry removes an entry. A missing entry yields storage.ErrNotFound.
func (s *LedgerService) DeleteEntry(ctx context.Context, sess *secure.Session, id string) error {
	if err := requireUnlocked(sess); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.ErrNotFound
	}
	if err := s.store.DeleteEntry(ctx, sess.UserID(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return storageErr("delete entry", err)
	}
	s.changed(ctx, sess.UserID(), amqp.OpDelete, amqp.RecordEntry, id)
	return nil
}

// ListEntries returns the entries newest first, restricted to month when
// it is not nil.
func (s *LedgerService) ListEntries(ctx context.Context, sess *secure.Session, month *core.MonthKey) ([]core.Entry, error) {
	if err := requireUnlocked(sess); err != nil {
		return nil, err
	}
	entries, err := s.loadEntries(ctx, sess)
	if err != nil {
		return nil, err
	}
	if month == nil {
		return entries, nil
	}
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Date.Key() == *month {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *LedgerService) loadEntries(ctx context.Context, sess *secure.Session) ([]core.Entry, error) {
	docs, err := s.store.ListEntries(ctx, sess.UserID())
	if err != nil {
		s.readFailed(ctx, sess.UserID(), "list entries", err)
		return []core.Entry{}, nil
	}

	entries := make([]core.Entry, 0, len(docs))
	for _, doc := range docs {
		e, err := decodeEntry(sess, doc)
		if err != nil {
			if core.IsValidation(err) {
				s.logger.WarnContext(ctx, "Skipping malformed entry",
					log.FieldUserID, sess.UserID(),
					log.FieldRecordID, doc.ID,
					log.FieldError, err)
				continue
			}
			return nil, err
		}
		entries = append(entries, e)
	}
	sortNewestFirst(entries)
	return entries, nil
}

func decodeEntry(sess *secure.Session, doc storage.Document) (core.Entry, error) {
	rec, err := secure.ParseDocument(doc.Body)
	if err != nil {
		return core.Entry{}, &RecordError{Record: amqp.RecordEntry, ID: doc.ID, Err: fmt.Errorf("%w: %v", secure.ErrWrongKeyOrCorrupt, err)}
	}
	var p entryPayload
	if err := sess.Open(rec, &p); err != nil {
		if _, legacy := rec.(secure.Plaintext); legacy {
			return core.Entry{}, core.Invalid("entry", err)
		}
		return core.Entry{}, &RecordError{Record: amqp.RecordEntry, ID: doc.ID, Err: err}
	}
	return p.toEntry(doc.ID, doc.CreatedAt)
}

func sortNewestFirst(entries []core.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
}

// GetMonthRecord returns the stored record for key and whether one exists.
func (s *LedgerService) GetMonthRecord(ctx context.Context, sess *secure.Session, key core.MonthKey) (core.MonthRecord, bool, error) {
	if err := requireUnlocked(sess); err != nil {
		return core.MonthRecord{}, false, err
	}
	if err := key.Validate(); err != nil {
		return core.MonthRecord{}, false, core.Invalid("month", err)
	}
	body, err := s.store.GetMonth(ctx, sess.UserID(), key)
	if err != nil {
		s.readFailed(ctx, sess.UserID(), "get month", err)
		return core.MonthRecord{}, false, nil
	}
	if body == nil {
		return core.MonthRecord{}, false, nil
	}
	rec, err := decodeMonth(sess, key, body)
	if err != nil {
		return core.MonthRecord{}, false, err
	}
	return rec, true, nil
}

// EffectiveMonthRecord is GetMonthRecord with rate inheritance applied.
// Reconciliation never sees the borrowed rate.
func (s *LedgerService) EffectiveMonthRecord(ctx context.Context, sess *secure.Session, key core.MonthKey) (EffectiveRecord, error) {
	if err := requireUnlocked(sess); err != nil {
		return EffectiveRecord{}, err
	}
	if err := key.Validate(); err != nil {
		return EffectiveRecord{}, core.Invalid("month", err)
	}
	months, err := s.loadMonths(ctx, sess)
	if err != nil {
		return EffectiveRecord{}, err
	}
	return effectiveRecord(months, key), nil
}

func effectiveRecord(months map[core.MonthKey]core.MonthRecord, key core.MonthKey) EffectiveRecord {
	rec, stored := months[key]
	out := EffectiveRecord{Record: rec, Stored: stored}
	if !rec.Rate.IsZero() {
		return out
	}
	k := key
	for i := 0; i < inheritLookback; i++ {
		k = k.Prev()
		if prev, ok := months[k]; ok && prev.Rate.IsPositive() {
			out.Record.Rate = prev.Rate
			from := k
			out.InheritedFrom = &from
			break
		}
	}
	return out
}

// SaveMonthRecord merges patch over the stored record for key and stores
// the result. Members absent from the patch keep their stored values.
func (s *LedgerService) SaveMonthRecord(ctx context.Context, sess *secure.Session, key core.MonthKey, patch core.MonthPatch) (core.MonthRecord, error) {
	if err := requireUnlocked(sess); err != nil {
		return core.MonthRecord{}, err
	}
	if err := key.Validate(); err != nil {
		return core.MonthRecord{}, core.Invalid("month", err)
	}

	body, err := s.store.GetMonth(ctx, sess.UserID(), key)
	if err != nil {
		return core.MonthRecord{}, storageErr("read month", err)
	}
	var current core.MonthRecord
	if body != nil {
		if current, err = decodeMonth(sess, key, body); err != nil {
			return core.MonthRecord{}, err
		}
	}
	if patch.IsEmpty() {
		return current, nil
	}

	merged := patch.Apply(current)
	if err := merged.Validate(); err != nil {
		return core.MonthRecord{}, err
	}
	content, err := sess.Seal(newMonthPayload(merged))
	if err != nil {
		return core.MonthRecord{}, fmt.Errorf("seal month: %w", err)
	}
	doc, err := json.Marshal(monthEnvelope{Content: content})
	if err != nil {
		return core.MonthRecord{}, fmt.Errorf("marshal month: %w", err)
	}
	if err := s.store.PutMonth(ctx, sess.UserID(), key, doc); err != nil {
		return core.MonthRecord{}, storageErr("save month", err)
	}

	s.changed(ctx, sess.UserID(), amqp.OpUpdate, amqp.RecordMonth, key.String())
	return merged, nil
}

func (s *LedgerService) loadMonths(ctx context.Context, sess *secure.Session) (map[core.MonthKey]core.MonthRecord, error) {
	docs, err := s.store.ListMonths(ctx, sess.UserID())
	if err != nil {
		s.readFailed(ctx, sess.UserID(), "list months", err)
		return map[core.MonthKey]core.MonthRecord{}, nil
	}
	out := make(map[core.MonthKey]core.MonthRecord, len(docs))
	for key, body := range docs {
		rec, err := decodeMonth(sess, key, body)
		if err != nil {
			return nil, err
		}
		out[key] = rec
	}
	return out, nil
}

func decodeMonth(sess *secure.Session, key core.MonthKey, body []byte) (core.MonthRecord, error) {
	rec, err := secure.ParseDocument(body)
	if err != nil {
		return core.MonthRecord{}, &RecordError{Record: amqp.RecordMonth, ID: key.String(), Err: fmt.Errorf("%w: %v", secure.ErrWrongKeyOrCorrupt, err)}
	}
	var p monthPayload
	if err := sess.Open(rec, &p); err != nil {
		return core.MonthRecord{}, &RecordError{Record: amqp.RecordMonth, ID: key.String(), Err: err}
	}
	return p.toRecord(), nil
}

// GetCorrection returns the balance correction, zero when none was saved.
func (s *LedgerService) GetCorrection(ctx context.Context, sess *secure.Session) (decimal.Decimal, error) {
	if err := requireUnlocked(sess); err != nil {
		return decimal.Zero, err
	}
	return s.loadCorrection(ctx, sess)
}

func (s *LedgerService) loadCorrection(ctx context.Context, sess *secure.Session) (decimal.Decimal, error) {
	raw, err := s.store.GetCorrection(ctx, sess.UserID())
	if err != nil {
		s.readFailed(ctx, sess.UserID(), "get correction", err)
		return decimal.Zero, nil
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	rec, err := secure.ParseScalar(raw)
	if err != nil {
		return decimal.Zero, &RecordError{Record: amqp.RecordCorrection, Err: fmt.Errorf("%w: %v", secure.ErrWrongKeyOrCorrupt, err)}
	}
	var v jsonDecimal
	if err := sess.Open(rec, &v); err != nil {
		return decimal.Zero, &RecordError{Record: amqp.RecordCorrection, Err: err}
	}
	return v.Round(2), nil
}

// SaveCorrection overwrites the balance correction.
func (s *LedgerService) SaveCorrection(ctx context.Context, sess *secure.Session, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requireUnlocked(sess); err != nil {
		return decimal.Zero, err
	}
	amount = amount.Round(2)
	content, err := sess.Seal(jsonDecimal{amount})
	if err != nil {
		return decimal.Zero, fmt.Errorf("seal correction: %w", err)
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return decimal.Zero, fmt.Errorf("marshal correction: %w", err)
	}
	if err := s.store.PutCorrection(ctx, sess.UserID(), raw); err != nil {
		return decimal.Zero, storageErr("save correction", err)
	}
	s.changed(ctx, sess.UserID(), amqp.OpUpdate, amqp.RecordCorrection, "")
	return amount, nil
}

// Snapshot loads entries, month records and the correction concurrently
// and returns them once all three are decrypted.
func (s *LedgerService) Snapshot(ctx context.Context, sess *secure.Session) (balance.Snapshot, error) {
	if err := requireUnlocked(sess); err != nil {
		return balance.Snapshot{}, err
	}

	var snap balance.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := s.loadEntries(gctx, sess)
		snap.Entries = entries
		return err
	})
	g.Go(func() error {
		records, err := s.loadMonths(gctx, sess)
		snap.Records = records
		return err
	})
	g.Go(func() error {
		correction, err := s.loadCorrection(gctx, sess)
		snap.Correction = correction
		return err
	})
	if err := g.Wait(); err != nil {
		return balance.Snapshot{}, err
	}
	return snap, nil
}

// Dashboard reconciles the selected month against the full history.
func (s *LedgerService) Dashboard(ctx context.Context, sess *secure.Session, selected core.MonthKey) (balance.Dashboard, error) {
	if err := selected.Validate(); err != nil {
		return balance.Dashboard{}, core.Invalid("month", err)
	}
	snap, err := s.Snapshot(ctx, sess)
	if err != nil {
		return balance.Dashboard{}, err
	}
	return snap.Dashboard(selected), nil
}

// Year returns the twelve monthly summaries of year.
func (s *LedgerService) Year(ctx context.Context, sess *secure.Session, year int) (balance.YearSummary, error) {
	if year < 1 {
		return balance.YearSummary{}, core.Invalid("year", core.ErrInvalidMonthKey)
	}
	snap, err := s.Snapshot(ctx, sess)
	if err != nil {
		return balance.YearSummary{}, err
	}
	return snap.Year(year, s.now()), nil
}

// changed logs a successful write and announces it. Publishing is best
// effort and never fails the write.
func (s *LedgerService) changed(ctx context.Context, userID, op, record, recordID string) {
	s.events.LogLedgerChange(ctx, op, userID, record, recordID)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(userID, op, record, recordID)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldUserID, userID,
			log.FieldRecord, record,
			log.FieldError, err)
	}
}

func (s *LedgerService) readFailed(ctx context.Context, userID, op string, err error) {
	fields := log.NewFields().WithErrorType(log.ErrorTypeDatabase)
	fields[log.FieldUserID] = userID
	s.events.LogError(ctx, "Read degraded to empty result", storageErr(op, err), log.ComponentLedger, log.OpRead, fields)
}
