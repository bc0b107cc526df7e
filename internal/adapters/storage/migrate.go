package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrationLogger передает вывод migrate в логгер приложения
type migrationLogger struct {
	logger interfaces.LoggerPort
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l migrationLogger) Verbose() bool {
	return l.logger.GetLevel() == interfaces.DebugLevel
}

// Migrate применяет миграции из dir к базе databaseURL (схема pgx5://)
func Migrate(dir, databaseURL string, logger interfaces.LoggerPort) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve migrations dir: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("migrations dir %s does not exist: %w", abs, err)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(abs), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()
	m.Log = migrationLogger{logger: logger}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Новых миграций нет")
			return nil
		}
		version, dirty, _ := m.Version()
		return fmt.Errorf("failed to apply migrations (version %d, dirty %t): %w", version, dirty, err)
	}

	version, _, _ := m.Version()
	logger.Info("Миграции применены", "version", version)
	return nil
}
