package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"vistoria/internal/domain/inspection"
	"vistoria/internal/domain/sync"
)

// SyncRepository реализация репозитория синхронизации для PostgreSQL
type SyncRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewSyncRepository создает новый репозиторий синхронизации
func NewSyncRepository(pool *pgxpool.Pool, log *slog.Logger) *SyncRepository {
	return &SyncRepository{
		pool: pool,
		log:  log.With(slog.String("component", "sync_repository")),
	}
}

// Commit сохраняет осмотр и его фото в одной транзакции
func (r *SyncRepository) Commit(ctx context.Context, rec *inspection.Inspection, resolve sync.PhotoResolver) (_ *sync.Commit, err error) {
	checklist := rec.Checklist
	if checklist == nil {
		checklist = map[string]string{}
	}
	checklistJSON, err := json.Marshal(checklist)
	if err != nil {
		return nil, fmt.Errorf("encode checklist: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	var undo func()
	defer func() {
		if err == nil {
			return
		}
		// объекты удаляются до отката, пока строка осмотра никому не видна
		if undo != nil {
			undo()
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.log.Error("failed to rollback", slog.String("client_id", rec.ID), slog.String("error", rbErr.Error()))
		}
	}()

	const insert = `
		INSERT INTO inspections
			(id, client_id, empresa_id, vistoriador_id, imovel_id, tipo, checklist, observacoes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (client_id) DO NOTHING
		RETURNING synced_at`

	cloudID := uuid.New()
	var syncedAt time.Time
	err = tx.QueryRow(ctx, insert,
		cloudID, rec.ID, rec.EmpresaID, rec.VistoriadorID, rec.ImovelID,
		string(rec.Tipo), checklistJSON, rec.Observacoes, rec.CreatedAt,
	).Scan(&syncedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := r.existing(ctx, tx, rec)
		if err != nil {
			return nil, err
		}
		if err := tx.Rollback(ctx); err != nil {
			r.log.Warn("failed to close read-only tx", slog.String("error", err.Error()))
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert inspection: %w", err)
	}

	urls, u, err := resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve photos: %w", err)
	}
	undo = u

	if len(urls) > 0 {
		batch := &pgx.Batch{}
		for i, url := range urls {
			batch.Queue(`INSERT INTO inspection_photos (inspection_id, position, url) VALUES ($1, $2, $3)`,
				cloudID, i, url)
		}
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("insert photos: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit inspection: %w", err)
	}

	return &sync.Commit{
		CloudID:   cloudID.String(),
		SyncedAt:  syncedAt,
		PhotoURLs: urls,
	}, nil
}

func (r *SyncRepository) existing(ctx context.Context, tx pgx.Tx, rec *inspection.Inspection) (*sync.Commit, error) {
	var (
		cloudID       uuid.UUID
		syncedAt      time.Time
		empresaID     string
		vistoriadorID string
	)
	err := tx.QueryRow(ctx,
		`SELECT id, synced_at, empresa_id, vistoriador_id FROM inspections WHERE client_id = $1`, rec.ID,
	).Scan(&cloudID, &syncedAt, &empresaID, &vistoriadorID)
	if err != nil {
		return nil, fmt.Errorf("get existing inspection: %w", err)
	}
	if empresaID != rec.EmpresaID || vistoriadorID != rec.VistoriadorID {
		r.log.Warn("client id reused by another owner",
			slog.String("client_id", rec.ID),
			slog.String("empresa_id", rec.EmpresaID),
			slog.String("vistoriador_id", rec.VistoriadorID),
		)
		return nil, sync.ClientIDTaken(rec.ID)
	}

	rows, err := tx.Query(ctx,
		`SELECT url FROM inspection_photos WHERE inspection_id = $1 ORDER BY position`, cloudID)
	if err != nil {
		return nil, fmt.Errorf("get existing photos: %w", err)
	}
	urls, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan existing photos: %w", err)
	}

	return &sync.Commit{
		CloudID:   cloudID.String(),
		SyncedAt:  syncedAt,
		PhotoURLs: urls,
		Duplicate: true,
	}, nil
}

// RecordRun пишет строку журнала пакетов
func (r *SyncRepository) RecordRun(ctx context.Context, run *sync.SyncRun) error {
	var (
		deviceID   string
		deviceInfo []byte
	)
	if run.Device != nil {
		deviceID = run.Device.DeviceID
		data, err := json.Marshal(run.Device)
		if err != nil {
			return fmt.Errorf("encode device info: %w", err)
		}
		deviceInfo = data
	}

	const query = `
		INSERT INTO sync_runs
			(id, empresa_id, vistoriador_id, device_id, device_info, processed, failed, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.EmpresaID, run.VistoriadorID, deviceID, deviceInfo,
		run.Processed, run.Failed, run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

// GetStatus агрегирует статус по осмотрам и журналу пакетов
func (r *SyncRepository) GetStatus(ctx context.Context, vistoriadorID, empresaID, deviceID string) (*sync.StatusAggregate, error) {
	var agg sync.StatusAggregate

	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM inspections WHERE empresa_id = $1 AND vistoriador_id = $2`,
		empresaID, vistoriadorID,
	).Scan(&agg.SyncedCount)
	if err != nil {
		return nil, fmt.Errorf("count inspections: %w", err)
	}

	const runs = `
		SELECT COALESCE(SUM(processed), 0),
		       COALESCE(SUM(failed), 0),
		       COALESCE(AVG(duration_ms), 0)::float8,
		       MAX(created_at)
		FROM sync_runs
		WHERE empresa_id = $1 AND vistoriador_id = $2`

	err = r.pool.QueryRow(ctx, runs, empresaID, vistoriadorID).
		Scan(&agg.Processed, &agg.Failed, &agg.AvgDurationMs, &agg.LastSyncAt)
	if err != nil {
		return nil, fmt.Errorf("aggregate sync runs: %w", err)
	}

	const device = `
		SELECT device_info
		FROM sync_runs
		WHERE empresa_id = $1 AND vistoriador_id = $2
		  AND device_info IS NOT NULL
		  AND ($3 = '' OR device_id = $3)
		ORDER BY created_at DESC
		LIMIT 1`

	var raw []byte
	err = r.pool.QueryRow(ctx, device, empresaID, vistoriadorID, deviceID).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("get device info: %w", err)
	default:
		var info sync.DeviceInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			r.log.Warn("corrupt device info", slog.String("error", err.Error()))
			break
		}
		agg.Device = &info
	}

	return &agg, nil
}
