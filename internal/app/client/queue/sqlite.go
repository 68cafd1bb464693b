package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"vistoria/internal/domain/inspection"
)

// timeLayout фиксированной ширины: текстовые ORDER BY и MAX совпадают с порядком времени.
// Читаются и старые строки в RFC3339Nano.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore очередь на SQLite. Каждое изменение записи выполняется одной
// транзакцией, поэтому падение процесса не оставляет запись в смешанном состоянии.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}
	// один писатель, чтобы параллельные отметки не ловили SQLITE_BUSY
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init queue tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS inspections (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			empresa_id TEXT NOT NULL,
			vistoriador_id TEXT NOT NULL,
			imovel_id TEXT NOT NULL,
			tipo TEXT NOT NULL,
			fotos TEXT NOT NULL DEFAULT '[]',
			checklist TEXT NOT NULL DEFAULT '{}',
			observacoes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending', 'synced', 'error')),
			cloud_id TEXT,
			synced_at TEXT,
			last_error TEXT,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_inspections_status ON inspections(status);
	`)

	return err
}

const selectColumns = `id, empresa_id, vistoriador_id, imovel_id, tipo, fotos, checklist,
	observacoes, created_at, status, cloud_id, synced_at, last_error`

func (s *SQLiteStore) Enqueue(ctx context.Context, rec *inspection.Inspection) error {
	if rec == nil || rec.ID == "" {
		return storageErr("enqueue", "", inspection.ErrInvalid)
	}

	fotos, err := json.Marshal(rec.Fotos)
	if err != nil {
		return storageErr("enqueue", rec.ID, fmt.Errorf("marshal fotos: %w", err))
	}
	checklist, err := json.Marshal(rec.Checklist)
	if err != nil {
		return storageErr("enqueue", rec.ID, fmt.Errorf("marshal checklist: %w", err))
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inspections (id, empresa_id, vistoriador_id, imovel_id, tipo, fotos, checklist,
			observacoes, created_at, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?)
	`, rec.ID, rec.EmpresaID, rec.VistoriadorID, rec.ImovelID, string(rec.Tipo), string(fotos), string(checklist),
		rec.Observacoes, createdAt.UTC().Format(timeLayout), time.Now().UTC().Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return storageErr("enqueue", rec.ID, ErrDuplicateID)
		}
		return storageErr("enqueue", rec.ID, err)
	}

	rec.Status = inspection.StatusPending
	rec.CreatedAt = createdAt
	return nil
}

func (s *SQLiteStore) GetPending(ctx context.Context) ([]*inspection.Inspection, error) {
	return s.List(ctx, inspection.StatusPending, inspection.StatusError)
}

func (s *SQLiteStore) GetFailed(ctx context.Context) ([]*inspection.Inspection, error) {
	return s.List(ctx, inspection.StatusError)
}

func (s *SQLiteStore) List(ctx context.Context, statuses ...inspection.Status) ([]*inspection.Inspection, error) {
	query := `SELECT ` + selectColumns + ` FROM inspections`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, 0, len(statuses))
		for _, st := range statuses {
			placeholders = append(placeholders, "?")
			args = append(args, string(st))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list", "", err)
	}
	defer rows.Close()

	var result []*inspection.Inspection
	for rows.Next() {
		rec, err := scanInspection(rows)
		if err != nil {
			return nil, storageErr("list", "", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", "", err)
	}

	return result, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*inspection.Inspection, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM inspections WHERE id = ?`, id)
	rec, err := scanInspection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storageErr("get", id, ErrNotFound)
		}
		return nil, storageErr("get", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) MarkSynced(ctx context.Context, id, cloudID string, syncedAt time.Time, photoURLs ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("mark_synced", id, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		status    string
		fotosJSON string
	)
	err = tx.QueryRowContext(ctx, `SELECT status, fotos FROM inspections WHERE id = ?`, id).Scan(&status, &fotosJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storageErr("mark_synced", id, ErrNotFound)
		}
		return storageErr("mark_synced", id, err)
	}

	current := inspection.Status(status)
	if current == inspection.StatusSynced {
		return nil
	}
	if !current.CanTransitionTo(inspection.StatusSynced) {
		return storageErr("mark_synced", id, inspection.ErrInvalidTransition)
	}

	var fotos []inspection.Photo
	if err := json.Unmarshal([]byte(fotosJSON), &fotos); err != nil {
		return storageErr("mark_synced", id, fmt.Errorf("unmarshal fotos: %w", err))
	}
	fotos = resolvePhotos(fotos, photoURLs)
	resolved, err := json.Marshal(fotos)
	if err != nil {
		return storageErr("mark_synced", id, fmt.Errorf("marshal fotos: %w", err))
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE inspections
		SET status = 'synced', cloud_id = ?, synced_at = ?, last_error = NULL, fotos = ?, updated_at = ?
		WHERE id = ?
	`, cloudID, syncedAt.UTC().Format(timeLayout), string(resolved), time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return storageErr("mark_synced", id, err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("mark_synced", id, err)
	}
	return nil
}

func (s *SQLiteStore) MarkError(ctx context.Context, id, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inspections SET status = 'error', last_error = ?, updated_at = ?
		WHERE id = ? AND status IN ('pending', 'error')
	`, message, time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return storageErr("mark_error", id, err)
	}
	return s.checkAffected(ctx, "mark_error", id, res, inspection.StatusError)
}

func (s *SQLiteStore) ResetToPending(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inspections SET status = 'pending', updated_at = ?
		WHERE id = ? AND status = 'error'
	`, time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return storageErr("reset", id, err)
	}
	return s.checkAffected(ctx, "reset", id, res, inspection.StatusPending)
}

// checkAffected различает "записи нет", "уже в целевом статусе" и запрещенный переход
func (s *SQLiteStore) checkAffected(ctx context.Context, op, id string, res sql.Result, target inspection.Status) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, id, err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM inspections WHERE id = ?`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storageErr(op, id, ErrNotFound)
		}
		return storageErr(op, id, err)
	}
	if inspection.Status(status) == target {
		return nil
	}
	return storageErr(op, id, fmt.Errorf("%s -> %s: %w", status, target, inspection.ErrInvalidTransition))
}

func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var (
		c        Counts
		lastSync sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'synced' THEN 1 ELSE 0 END), 0),
			MAX(synced_at)
		FROM inspections
	`).Scan(&c.Pending, &c.Error, &c.Synced, &lastSync)
	if err != nil {
		return Counts{}, storageErr("counts", "", err)
	}

	if lastSync.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastSync.String)
		if err != nil {
			return Counts{}, storageErr("counts", "", fmt.Errorf("parse synced_at: %w", err))
		}
		c.LastSyncedAt = &t
	}

	return c, nil
}

func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM inspections`); err != nil {
		return storageErr("clear", "", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInspection(row scanner) (*inspection.Inspection, error) {
	var (
		rec       inspection.Inspection
		tipo      string
		fotos     string
		checklist string
		createdAt string
		status    string
		cloudID   sql.NullString
		syncedAt  sql.NullString
		lastError sql.NullString
	)

	err := row.Scan(&rec.ID, &rec.EmpresaID, &rec.VistoriadorID, &rec.ImovelID, &tipo, &fotos, &checklist,
		&rec.Observacoes, &createdAt, &status, &cloudID, &syncedAt, &lastError)
	if err != nil {
		return nil, err
	}

	rec.Tipo = inspection.Tipo(tipo)
	rec.Status = inspection.Status(status)
	rec.CloudID = cloudID.String
	rec.LastError = lastError.String

	if err := json.Unmarshal([]byte(fotos), &rec.Fotos); err != nil {
		return nil, fmt.Errorf("unmarshal fotos: %w", err)
	}
	if err := json.Unmarshal([]byte(checklist), &rec.Checklist); err != nil {
		return nil, fmt.Errorf("unmarshal checklist: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if syncedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, syncedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse synced_at: %w", err)
		}
		rec.SyncedAt = &t
	}

	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
