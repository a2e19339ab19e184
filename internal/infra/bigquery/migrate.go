package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationPattern matches migration file names: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is one versioned schema change.
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// MigrationResult lists the migrations Migrate ran and skipped.
type MigrationResult struct {
	Applied []Migration
	Skipped []Migration
}

// Migrations returns the embedded schema migrations for project.dataset,
// sorted by version.
func Migrations(project, dataset string) ([]Migration, error) {
	return readMigrations(migrationFiles, "migrations", project, dataset)
}

func readMigrations(fsys fs.FS, dir, project, dataset string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			return nil, fmt.Errorf("invalid migration file name %q", entry.Name())
		}
		version, _ := strconv.Atoi(matches[1])
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", entry.Name(), err)
		}

		// Checksum the template so the same migration matches across datasets.
		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", project)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", dataset)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// pending splits migrations into those not yet applied and those already
// recorded. A recorded migration whose checksum changed is an error.
func pending(migrations []Migration, applied map[int]string) (todo, skip []Migration, err error) {
	for _, m := range migrations {
		checksum, ok := applied[m.Version]
		if !ok {
			todo = append(todo, m)
			continue
		}
		if checksum != "" && checksum != m.Checksum {
			return nil, nil, fmt.Errorf("migration %04d_%s changed after it was applied", m.Version, m.Name)
		}
		skip = append(skip, m)
	}
	return todo, skip, nil
}

// Migrate creates the dataset's tables by applying every pending migration
// and recording it in schema_migrations. It needs an exporter created by
// Open.
func (e *Exporter) Migrate(ctx context.Context, appliedBy string) (MigrationResult, error) {
	if e.client == nil {
		return MigrationResult{}, fmt.Errorf("Migrate: no BigQuery client")
	}

	if err := e.exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)
	`, e.project, e.dataset)); err != nil {
		return MigrationResult{}, fmt.Errorf("Migrate: ensuring schema_migrations: %w", err)
	}

	migrations, err := Migrations(e.project, e.dataset)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("Migrate: %w", err)
	}
	applied, err := e.appliedMigrations(ctx)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("Migrate: %w", err)
	}
	todo, skip, err := pending(migrations, applied)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("Migrate: %w", err)
	}

	result := MigrationResult{Skipped: skip}
	for _, m := range todo {
		if err := e.exec(ctx, m.SQL); err != nil {
			return result, fmt.Errorf("Migrate: executing %04d_%s: %w", m.Version, m.Name, err)
		}
		if err := e.record(ctx, m, appliedBy); err != nil {
			return result, fmt.Errorf("Migrate: recording %04d_%s: %w", m.Version, m.Name, err)
		}
		e.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applied migration")
		result.Applied = append(result.Applied, m)
	}
	return result, nil
}

func (e *Exporter) appliedMigrations(ctx context.Context) (map[int]string, error) {
	q := e.client.Query(fmt.Sprintf(
		"SELECT version, checksum FROM `%s.%s.schema_migrations`", e.project, e.dataset))
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	applied := make(map[int]string)
	for {
		var row struct {
			Version  int64
			Checksum bigquery.NullString
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
		}
		applied[int(row.Version)] = row.Checksum.StringVal
	}
	return applied, nil
}

func (e *Exporter) record(ctx context.Context, m Migration, appliedBy string) error {
	q := e.client.Query(fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, e.project, e.dataset))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	return runQuery(ctx, q)
}

func (e *Exporter) exec(ctx context.Context, sql string) error {
	return runQuery(ctx, e.client.Query(sql))
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	return status.Err()
}
