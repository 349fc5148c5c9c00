package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Schema for the two queue tables. AUTO_INCREMENT ids double as the
// deterministic insertion order required by the list operations.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pending_reports (
		id BIGINT NOT NULL AUTO_INCREMENT,
		payload MEDIUMBLOB NOT NULL,
		attachment_ids TEXT,
		status VARCHAR(32) NOT NULL DEFAULT 'pending_upload',
		captured_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		INDEX status_idx (status)
	)`,
	`CREATE TABLE IF NOT EXISTS pending_attachments (
		id BIGINT NOT NULL AUTO_INCREMENT,
		user_id VARCHAR(128) NOT NULL,
		file_name VARCHAR(255) NOT NULL,
		payload LONGBLOB NOT NULL,
		captured_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id)
	)`,
}

// MySQLStore implements Store on a local MySQL instance.
type MySQLStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the queue database and ensures the schema exists.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping queue database: %w", err)
	}
	s := NewMySQLStore(db, logger)
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQLStore wraps an existing connection pool without touching the schema.
func NewMySQLStore(db *sql.DB, logger *slog.Logger) *MySQLStore {
	return &MySQLStore{db: db, logger: logger}
}

func (s *MySQLStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create queue schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the queue database.
func (s *MySQLStore) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr("ping queue database", err)
	}
	return nil
}

func (s *MySQLStore) EnqueueReport(ctx context.Context, payload []byte, attachmentIDs []int64) (int64, error) {
	ids, err := json.Marshal(attachmentIDs)
	if err != nil {
		return 0, storageErr("encode attachment ids", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_reports (payload, attachment_ids, status, captured_at) VALUES (?, ?, ?, ?)`,
		payload, string(ids), StatusPendingUpload, time.Now().UTC())
	if err != nil {
		return 0, storageErr("enqueue report", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("enqueue report id", err)
	}
	s.logger.Debug("report queued", "local_id", id, "attachments", len(attachmentIDs))
	return id, nil
}

func (s *MySQLStore) EnqueueAttachment(ctx context.Context, payload []byte, fileName, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_attachments (user_id, file_name, payload, captured_at) VALUES (?, ?, ?, ?)`,
		userID, fileName, payload, time.Now().UTC())
	if err != nil {
		return 0, storageErr("enqueue attachment", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("enqueue attachment id", err)
	}
	s.logger.Debug("attachment queued", "local_id", id, "file_name", fileName, "bytes", len(payload))
	return id, nil
}

func (s *MySQLStore) ListPendingReports(ctx context.Context) ([]PendingReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload, attachment_ids, status, captured_at
		 FROM pending_reports WHERE status = ? ORDER BY id`, StatusPendingUpload)
	if err != nil {
		return nil, storageErr("list pending reports", err)
	}
	defer rows.Close()

	var reports []PendingReport
	for rows.Next() {
		var (
			r      PendingReport
			idsRaw sql.NullString
		)
		if err := rows.Scan(&r.LocalID, &r.Payload, &idsRaw, &r.Status, &r.CapturedAt); err != nil {
			return nil, storageErr("scan pending report", err)
		}
		if idsRaw.Valid && idsRaw.String != "" {
			if err := json.Unmarshal([]byte(idsRaw.String), &r.AttachmentIDs); err != nil {
				return nil, storageErr("decode attachment ids", err)
			}
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate pending reports", err)
	}
	return reports, nil
}

func (s *MySQLStore) ListPendingAttachments(ctx context.Context) ([]PendingAttachment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, file_name, payload, captured_at FROM pending_attachments ORDER BY id`)
	if err != nil {
		return nil, storageErr("list pending attachments", err)
	}
	defer rows.Close()

	var attachments []PendingAttachment
	for rows.Next() {
		var a PendingAttachment
		if err := rows.Scan(&a.LocalID, &a.UserID, &a.FileName, &a.Payload, &a.CapturedAt); err != nil {
			return nil, storageErr("scan pending attachment", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate pending attachments", err)
	}
	return attachments, nil
}

func (s *MySQLStore) MarkReportUploaded(ctx context.Context, id int64) error {
	// Zero affected rows means the report is unknown or already uploaded;
	// both are fine under the idempotence contract.
	_, err := s.db.ExecContext(ctx,
		`UPDATE pending_reports SET status = ? WHERE id = ?`, StatusUploaded, id)
	if err != nil {
		return storageErr("mark report uploaded", err)
	}
	return nil
}

func (s *MySQLStore) DeleteAttachment(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_attachments WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete attachment", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}
