// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package daemon

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// AuditEntry is one durable record of a dispatched command, independent of
// the session's own in-memory (and ring-bounded) action log.
type AuditEntry struct {
	Timestamp time.Time
	Session   string
	Action    string
	Success   bool
	Error     string
}

// AuditSink mirrors dispatched commands to a local SQLite file so
// GetHistory-equivalent queries can survive a daemon restart; the
// session's in-memory ring log remains authoritative for the hot path.
type AuditSink struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAuditSink opens (creating if needed) a SQLite database at path and
// runs its migration.
func NewAuditSink(path string, logger *slog.Logger) (*AuditSink, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(nil, nil))
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// SQLite serializes writes; the audit sink is write-mostly so a single
	// connection avoids SQLITE_BUSY contention entirely.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect audit db: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA journal_mode=WAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure audit db: %w", err)
		}
	}

	migration := `CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		action TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		created_at TEXT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, migration); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_log(session)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	return &AuditSink{db: db, logger: logger}, nil
}

// Record writes one audit entry. Failures are logged, not returned: an
// audit-sink outage must never fail the command it's recording.
func (a *AuditSink) Record(entry AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO audit_log (session, action, success, error, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.Session, entry.Action, boolToInt(entry.Success), nullString(entry.Error), entry.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		a.logger.Warn("audit sink write failed", "session", entry.Session, "action", entry.Action, "error", err)
	}
}

// History returns the persisted audit log for session, most recent last.
func (a *AuditSink) History(ctx context.Context, session string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT session, action, success, error, created_at FROM audit_log WHERE session = ? ORDER BY id ASC LIMIT ?`,
		session, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var success int
		var errStr sql.NullString
		var createdAt string
		if err := rows.Scan(&e.Session, &e.Action, &success, &errStr, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		e.Success = success == 1
		if errStr.Valid {
			e.Error = errStr.String
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, nil
}

// Close releases the underlying database handle.
func (a *AuditSink) Close() error {
	return a.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
