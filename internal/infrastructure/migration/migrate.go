package migration

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	// Blank import required for PostgreSQL driver registration for migrations
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"vistoria/internal/app/server/config"
)

// Migrator подмножество migrate.Migrate, нужное для накатки схемы
type Migrator interface {
	Up() error
	Close() (error, error)
}

// MigrationEngine открывает мигратор по источнику и строке подключения
type MigrationEngine func(sourceURL, databaseURL string) (Migrator, error)

// Migration накатывает схему осмотров и журнала пакетов
type Migration struct {
	db     config.DBConfig
	engine MigrationEngine
}

// NewMigration создает мигратор; nil engine означает DefaultEngine
func NewMigration(db config.DBConfig, engine MigrationEngine) *Migration {
	if engine == nil {
		engine = DefaultEngine
	}
	return &Migration{
		db:     db,
		engine: engine,
	}
}

// DefaultEngine открывает migrate.Migrate над каталогом миграций
func DefaultEngine(sourceURL, databaseURL string) (Migrator, error) {
	return migrate.New(sourceURL, databaseURL)
}

// Up применяет все новые миграции; отсутствие изменений не ошибка
func (mg *Migration) Up() (err error) {
	m, err := mg.engine("file://"+mg.db.Migrations, mg.db.DatabaseURI)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			err = errors.Join(err, fmt.Errorf("migration source: %w", serr))
		}
		if dberr != nil {
			err = errors.Join(err, fmt.Errorf("migration database: %w", dberr))
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}
