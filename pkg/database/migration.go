package database

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
)

// MigrationConfig controls how schema migrations run at startup
type MigrationConfig struct {
	// MigrationFolderPath holds the numbered *.up.sql / *.down.sql files,
	// relative paths are resolved against the working directory
	MigrationFolderPath string

	// Version pins the schema to a specific migration; 0 means latest
	Version uint

	// Force stamps the given version without running anything, used to
	// recover a dirty schema by hand
	Force int

	// AutoRollback reverts a dirty schema to the previous version after a
	// failed migration. The error is still returned so the process does not
	// start on a half-migrated database.
	AutoRollback bool
}

// MigrationService applies the migration folder to the database before the
// rest of the service starts
type MigrationService struct {
	config *MigrationConfig
	logger ectologger.Logger
}

// NewMigrationService creates a new migration service
func NewMigrationService(logger ectologger.Logger, config *MigrationConfig) *MigrationService {
	return &MigrationService{
		config: config,
		logger: logger,
	}
}

// migrateLogger adapts ectologger to golang-migrate's logging interface
type migrateLogger struct {
	ectologger.Logger
}

func (l migrateLogger) Verbose() bool { return true }

func (l migrateLogger) Printf(format string, v ...any) {
	l.Infof(format, v...)
}

func (ms *MigrationService) folder() string {
	path := ms.config.MigrationFolderPath
	if _, err := os.Stat(path); err == nil {
		return path
	}
	wd, _ := os.Getwd()
	return filepath.Join(wd, path)
}

// Migrate brings the schema to the configured version (latest by default)
func (ms *MigrationService) Migrate(databaseName string, driver database.Driver) error {
	folder := ms.folder()
	if _, err := os.Stat(folder); err != nil {
		return errors.Wrapf(err, "migration folder %s does not exist", folder)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+folder, databaseName, driver)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to create migrate instance")
		return err
	}
	m.Log = migrateLogger{Logger: ms.logger}

	if ms.config.Force != 0 {
		if err := m.Force(ms.config.Force); err != nil {
			ms.logger.WithError(err).Errorf("Failed to force schema to version %d", ms.config.Force)
			return err
		}
	}

	before, _, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		ms.logger.WithError(err).Error("Failed to read current schema version")
		before = 0
	}

	start := time.Now()
	var migErr error
	if ms.config.Version != 0 {
		migErr = m.Migrate(ms.config.Version)
	} else {
		migErr = m.Up()
	}
	ms.logger.Infof("Database migrations finished in %v", time.Since(start))

	return ms.resolve(m, migErr, before)
}

// resolve turns the raw migrate result into a startup decision
func (ms *MigrationService) resolve(m *migrate.Migrate, err error, before uint) error {
	switch {
	case err == nil:
		ms.logger.Info("Successfully applied migrations")
		return nil
	case err == migrate.ErrNoChange:
		ms.logger.Info("Schema already up to date")
		return nil
	}

	// "no migration found for version N" means the schema was stamped past
	// the files on disk, usually after a deploy rollback; re-stamp to the
	// newest file present
	if strings.Contains(err.Error(), "no migration found for version") {
		latest, latestErr := latestFileVersion(ms.folder())
		if latestErr != nil {
			ms.logger.WithError(latestErr).Error("Failed to determine latest migration file version")
			return err
		}
		ms.logger.Warnf("Schema version %d has no migration file; forcing to %d", before, latest)
		if forceErr := m.Force(latest); forceErr != nil {
			ms.logger.WithError(forceErr).Errorf("Failed to force schema to version %d", latest)
			return forceErr
		}
		return nil
	}

	ms.logger.WithError(err).Error("Migration failed")

	version, dirty, versionErr := m.Version()
	if versionErr != nil && versionErr != migrate.ErrNilVersion {
		ms.logger.WithError(versionErr).Error("Failed to read schema version after migration failure")
		return err
	}

	if ms.config.AutoRollback && dirty {
		target := before
		if target == 0 && version > 0 {
			target = version - 1
		}
		ms.logger.Warnf("Schema is dirty at version %d; reverting to version %d", version, target)
		if forceErr := m.Force(int(target)); forceErr != nil {
			ms.logger.WithError(forceErr).Errorf("Failed to revert schema to version %d", target)
			return forceErr
		}
	}

	return err
}

var migrationFilePattern = regexp.MustCompile(`^(\d+)_.*\.up\.sql$`)

func latestFileVersion(folder string) (int, error) {
	files, err := os.ReadDir(folder)
	if err != nil {
		return 0, err
	}

	latest := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(file.Name())
		if len(matches) < 2 {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, err
		}
		if version > latest {
			latest = version
		}
	}

	if latest == 0 {
		return 0, fmt.Errorf("no migration files in %s", folder)
	}
	return latest, nil
}
