package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	applog "cookbook/internal/log"

	"gorm.io/gorm"
)

// ScriptReport summarises a RunScripts pass.
type ScriptReport struct {
	Files      []string
	Statements int
	Failed     int
}

// RunScripts executes every .sql file in dir in lexical order. Files are split
// into statements on ';'. A failing statement is logged and skipped so that
// re-running seed files against an existing database is harmless; an
// unreadable directory or file aborts the run.
func RunScripts(ctx context.Context, db *gorm.DB, dir string) (ScriptReport, error) {
	report := ScriptReport{}
	if db == nil {
		return report, fmt.Errorf("database handle is nil")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("read sql dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".sql") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return report, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}

		for _, stmt := range SplitStatements(string(content)) {
			report.Statements++
			if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
				report.Failed++
				applog.Warn(ctx, "sql statement failed", "file", filepath.Base(path), "error", err)
			}
		}
		report.Files = append(report.Files, filepath.Base(path))
		applog.Debug(ctx, "sql file applied", "file", filepath.Base(path))
	}

	return report, nil
}

// SplitStatements splits a script on ';' and drops blank statements and
// statements made only of "--" comment lines.
func SplitStatements(content string) []string {
	parts := strings.Split(content, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" || onlyComments(trimmed) {
			continue
		}
		statements = append(statements, trimmed)
	}
	return statements
}

func onlyComments(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
