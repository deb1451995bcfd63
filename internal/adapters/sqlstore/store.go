// Package sqlstore persists verdicts, debug replies, classified records and
// user profiles in SQLite, MySQL or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
)

// timeLayout is fixed width so stored timestamps compare as strings
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store implements the verdict cache, debug store, record store and
// profile store on one database handle.
type Store struct {
	db      *sqlx.DB
	dialect string
	logger  *zap.Logger
	now     func() time.Time
}

// Open connects to the database and creates the tables if needed
func Open(ctx context.Context, dialect, dsn string, logger *zap.Logger) (*Store, error) {
	switch dialect {
	case DialectSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
			}
		}
	case DialectMySQL, DialectPostgres:
	default:
		return nil, fmt.Errorf("unsupported SQL dialect: %s", dialect)
	}

	db, err := sqlx.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}

	store := New(db, dialect, logger)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing handle without touching the schema
func New(db *sqlx.DB, dialect string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
	}
}

// Migrate creates the tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaFor(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	s.logger.Debug("SQL schema ready", zap.String("dialect", s.dialect))
	return nil
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) pick(std, mysql string) string {
	if s.dialect == DialectMySQL {
		return s.db.Rebind(mysql)
	}
	return s.db.Rebind(std)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

// Get returns the cached verdict for a message id
func (s *Store) Get(ctx context.Context, messageID string) (*core.LLMVerdict, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, s.db.Rebind(`SELECT verdict FROM llm_cache WHERE message_id = ?`), messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query verdict: %w", err)
	}

	var verdict core.LLMVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		s.logger.Warn("Discarding unreadable cached verdict",
			zap.String("message_id", messageID),
			zap.Error(err))
		return nil, core.ErrCacheMiss
	}
	return &verdict, nil
}

// Set stores the verdict for a message id, replacing any previous one
func (s *Store) Set(ctx context.Context, messageID string, verdict *core.LLMVerdict) error {
	data, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.pick(upsertVerdictStd, upsertVerdictMySQL), messageID, string(data), s.timestamp()); err != nil {
		return fmt.Errorf("failed to store verdict: %w", err)
	}
	return nil
}

// SaveRaw appends a raw model reply to the debug log
func (s *Store) SaveRaw(ctx context.Context, entry *core.DebugEntry) error {
	created := entry.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO llm_debug (message_id, attempt, raw, error, created_at) VALUES (?, ?, ?, ?, ?)`),
		entry.MessageID, string(entry.Attempt), entry.Raw, entry.Error, created.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to store debug entry: %w", err)
	}
	return nil
}

// DebugEntries returns the raw replies recorded for a message, oldest first
func (s *Store) DebugEntries(ctx context.Context, messageID string) ([]*core.DebugEntry, error) {
	var rows []struct {
		MessageID string `db:"message_id"`
		Attempt   string `db:"attempt"`
		Raw       string `db:"raw"`
		Error     string `db:"error"`
		CreatedAt string `db:"created_at"`
	}
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT message_id, attempt, raw, error, created_at FROM llm_debug WHERE message_id = ? ORDER BY id`),
		messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query debug entries: %w", err)
	}

	entries := make([]*core.DebugEntry, 0, len(rows))
	for _, row := range rows {
		created, _ := time.Parse(timeLayout, row.CreatedAt)
		entries = append(entries, &core.DebugEntry{
			MessageID: row.MessageID,
			Attempt:   core.DebugAttempt(row.Attempt),
			Raw:       row.Raw,
			Error:     row.Error,
			CreatedAt: created,
		})
	}
	return entries, nil
}

// emailRow is the emails table layout
type emailRow struct {
	UserID            string         `db:"user_id"`
	GmailID           string         `db:"gmail_id"`
	ThreadID          string         `db:"thread_id"`
	Subject           string         `db:"subject"`
	Sender            string         `db:"sender"`
	Snippet           string         `db:"snippet"`
	Recipient         string         `db:"recipient"`
	SenderEmail       string         `db:"sender_email"`
	IsPlacementSender bool           `db:"is_placement_sender"`
	Label             string         `db:"label"`
	Score             float64        `db:"score"`
	Reasons           string         `db:"reasons"`
	LLMAnnotation     string         `db:"llm_annotation"`
	LLM               sql.NullString `db:"llm"`
	ReceivedAt        string         `db:"received_at"`
}

func toRow(userID string, record *core.ClassifiedRecord) (*emailRow, error) {
	reasons := record.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reasons: %w", err)
	}

	row := &emailRow{
		UserID:            userID,
		GmailID:           record.ID,
		ThreadID:          record.ThreadID,
		Subject:           record.Subject,
		Sender:            record.From,
		Snippet:           record.Snippet,
		Recipient:         record.To,
		SenderEmail:       record.SenderEmail,
		IsPlacementSender: record.IsPlacementSender,
		Label:             string(record.Label),
		Score:             record.Score,
		Reasons:           string(reasonsJSON),
		LLMAnnotation:     record.LLMAnnotation,
		ReceivedAt:        record.ReceivedAt.UTC().Format(timeLayout),
	}
	if record.LLM != nil {
		llmJSON, err := json.Marshal(record.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal llm verdict: %w", err)
		}
		row.LLM = sql.NullString{String: string(llmJSON), Valid: true}
	}
	return row, nil
}

func (r *emailRow) record() (*core.ClassifiedRecord, error) {
	record := &core.ClassifiedRecord{
		ID:                r.GmailID,
		ThreadID:          r.ThreadID,
		Subject:           r.Subject,
		From:              r.Sender,
		Snippet:           r.Snippet,
		To:                r.Recipient,
		SenderEmail:       r.SenderEmail,
		IsPlacementSender: r.IsPlacementSender,
		Label:             core.Label(r.Label),
		Score:             r.Score,
		LLMAnnotation:     r.LLMAnnotation,
	}
	if err := json.Unmarshal([]byte(r.Reasons), &record.Reasons); err != nil {
		return nil, fmt.Errorf("failed to decode reasons of %s: %w", r.GmailID, err)
	}
	if r.LLM.Valid && r.LLM.String != "" {
		record.LLM = &core.LLMVerdict{}
		if err := json.Unmarshal([]byte(r.LLM.String), record.LLM); err != nil {
			return nil, fmt.Errorf("failed to decode llm verdict of %s: %w", r.GmailID, err)
		}
	}
	received, err := time.Parse(timeLayout, r.ReceivedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse received_at of %s: %w", r.GmailID, err)
	}
	record.ReceivedAt = received
	return record, nil
}

// ProcessedIDs returns the message ids already stored for the user
func (s *Store) ProcessedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, s.db.Rebind(`SELECT gmail_id FROM emails WHERE user_id = ?`), userID); err != nil {
		return nil, fmt.Errorf("failed to query processed ids: %w", err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// SaveRecord stores a classified record, which also marks it processed
func (s *Store) SaveRecord(ctx context.Context, userID string, record *core.ClassifiedRecord) error {
	row, err := toRow(userID, record)
	if err != nil {
		return err
	}
	query := upsertEmailStd
	if s.dialect == DialectMySQL {
		query = upsertEmailMySQL
	}
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to store record %s: %w", record.ID, err)
	}
	return nil
}

// Records returns the user's records, newest first. limit <= 0 means all.
func (s *Store) Records(ctx context.Context, userID string, limit int) ([]*core.ClassifiedRecord, error) {
	query := `SELECT * FROM emails WHERE user_id = ? ORDER BY received_at DESC, gmail_id`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []emailRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	records := make([]*core.ClassifiedRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].record()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// DeleteOlderThan removes the user's records received more than days ago
func (s *Store) DeleteOlderThan(ctx context.Context, userID string, days int) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -days).Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM emails WHERE user_id = ? AND received_at < ?`), userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted records: %w", err)
	}
	s.logger.Info("Deleted old records",
		zap.String("user_id", userID),
		zap.Int("days", days),
		zap.Int64("deleted", n))
	return n, nil
}

// Companies returns the companies the user applied to
func (s *Store) Companies(ctx context.Context, userID string) ([]string, error) {
	var names []string
	if err := s.db.SelectContext(ctx, &names,
		s.db.Rebind(`SELECT name FROM companies WHERE user_id = ? ORDER BY name`), userID); err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	return names, nil
}

// Keywords returns the user's custom keywords
func (s *Store) Keywords(ctx context.Context, userID string) ([]core.ProfileKeyword, error) {
	var keywords []core.ProfileKeyword
	if err := s.db.SelectContext(ctx, &keywords,
		s.db.Rebind(`SELECT keyword, weight, type FROM keywords WHERE user_id = ? ORDER BY type, keyword`), userID); err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}
	return keywords, nil
}

// AddCompany records a company the user applied to
func (s *Store) AddCompany(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("company name is empty")
	}
	if _, err := s.db.ExecContext(ctx, s.pick(insertCompanyStd, insertCompanyMySQL), userID, name); err != nil {
		return fmt.Errorf("failed to store company: %w", err)
	}
	return nil
}

// AddKeyword records a custom keyword in one of the tiers
func (s *Store) AddKeyword(ctx context.Context, userID string, kw core.ProfileKeyword) error {
	kw.Keyword = strings.TrimSpace(kw.Keyword)
	kw.Type = strings.ToLower(strings.TrimSpace(kw.Type))
	if kw.Keyword == "" {
		return fmt.Errorf("keyword is empty")
	}
	switch kw.Type {
	case "super", "urgent", "mid", "trash":
	default:
		return fmt.Errorf("unknown keyword type: %q", kw.Type)
	}
	if _, err := s.db.ExecContext(ctx, s.pick(upsertKeywordStd, upsertKeywordMySQL), userID, kw.Keyword, kw.Weight, kw.Type); err != nil {
		return fmt.Errorf("failed to store keyword: %w", err)
	}
	return nil
}
