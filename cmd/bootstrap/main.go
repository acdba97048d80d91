package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"cookbook/internal/auth"
	"cookbook/internal/config"
	"cookbook/internal/db"
	applog "cookbook/internal/log"
	"cookbook/internal/store"
	"cookbook/models"
)

var cleanWhitespace = regexp.MustCompile(`\s+`)

var (
	loadConfigFunc    = config.Load
	configureDatabase = db.Configure
)

// importUser is recorded as the creator of rows written by the importer.
var importUser = auth.UserCtx{UserID: 1}

type summary struct {
	Scripts  db.ScriptReport
	Imported int
	Skipped  int
}

func main() {
	csvPath := ""
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	if err := run(context.Background(), csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
}

// run migrates the configured database, moves the id generators to the
// configured start, applies the SQL scripts and optionally imports
// ingredient names from a CSV file.
func run(ctx context.Context, csvPath string) error {
	cfg, err := loadConfigFunc()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := applog.SetLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}

	if strings.TrimSpace(csvPath) != "" {
		if _, err := os.Stat(csvPath); err != nil {
			return fmt.Errorf("locate csv: %w", err)
		}
	}

	database, err := configureDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("configure database: %w", err)
	}

	result, err := bootstrap(ctx, database, cfg.Bootstrap.SQLDir, csvPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Applied %d statements from %d files (%d failed)\n",
		result.Scripts.Statements, len(result.Scripts.Files), result.Scripts.Failed)
	if csvPath != "" {
		fmt.Fprintf(os.Stdout, "Imported %d ingredients from %s (%d already present)\n",
			result.Imported, filepath.Base(csvPath), result.Skipped)
	}
	return nil
}

func bootstrap(ctx context.Context, database *gorm.DB, sqlDir, csvPath string) (summary, error) {
	var result summary

	report, err := db.RunScripts(ctx, database, sqlDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		applog.Warn(ctx, "sql directory not found, skipping scripts", "dir", sqlDir)
	case err != nil:
		return result, fmt.Errorf("run scripts: %w", err)
	default:
		result.Scripts = report
	}

	if strings.TrimSpace(csvPath) == "" {
		return result, nil
	}

	names, err := readIngredientNames(csvPath)
	if err != nil {
		return result, fmt.Errorf("read csv: %w", err)
	}

	ingredients := store.NewIngredientStore(database, nil)
	for idx, name := range names {
		var count int64
		if err := database.WithContext(ctx).Model(&models.Ingredient{}).
			Where("lower(name) = ?", strings.ToLower(name)).Count(&count).Error; err != nil {
			return result, fmt.Errorf("record %d (%s): find ingredient: %w", idx+1, name, err)
		}
		if count > 0 {
			result.Skipped++
			continue
		}

		if _, err := ingredients.Create(ctx, importUser, store.IngredientPatch{Name: &name}); err != nil {
			return result, fmt.Errorf("record %d (%s): %w", idx+1, name, err)
		}
		result.Imported++
	}

	return result, nil
}

// readIngredientNames returns the distinct names found in the "name" (or
// "Ingredient Name") column, in file order.
func readIngredientNames(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	column := -1
	for idx, key := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name", "ingredient name":
			column = idx
		}
		if column >= 0 {
			break
		}
	}
	if column < 0 {
		return nil, errors.New(`csv has no "name" column`)
	}

	seen := make(map[string]struct{})
	names := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if column >= len(row) {
			continue
		}
		name := normalizeText(row[column])
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}

	return names, nil
}

func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") {
		return ""
	}
	return value
}

func normalizeText(value string) string {
	value = normalizeValue(value)
	if value == "" {
		return value
	}
	value = cleanWhitespace.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}
