package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"hypogate/internal"
	"hypogate/internal/config"
	"hypogate/internal/container"
	"hypogate/internal/migration"
)

// migrate applies the schema to DATABASE_URL and, when a directory is given,
// imports every experiment record found there as a pending experiment.
//
// Usage: migrate [record_dir]
func main() {
	_ = godotenv.Load()
	logger := internal.NewDefaultLogger().Named("migrate")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}
	if cfg.Database.Driver == config.DriverMemory {
		logger.Error("DATABASE_DRIVER must be postgres or sqlite3 to migrate")
		os.Exit(1)
	}

	ctx := context.Background()
	c, err := container.New(cfg, logger)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	// opening the store applies pending schema steps
	if err := c.Init(ctx); err != nil {
		logger.Error("failed to initialise: %v", err)
		os.Exit(1)
	}
	defer c.Close(0)
	logger.Info("schema at version %s", migration.NewRunner().Version())

	if len(os.Args) < 2 {
		return
	}
	files, err := findRecordFiles(os.Args[1])
	if err != nil {
		logger.Error("failed to list records: %v", err)
		os.Exit(1)
	}
	logger.Info("found %d experiment records to import", len(files))

	imported, skipped := 0, 0
	for _, file := range files {
		rec, err := config.LoadRecordFile(file)
		if err != nil {
			logger.Warn("skipping %s: %v", file, err)
			skipped++
			continue
		}
		exp, err := c.Orchestrator.Submit(ctx, rec)
		if err != nil {
			logger.Warn("skipping %s: %v", file, err)
			skipped++
			continue
		}
		logger.Debug("imported %s as %s", file, exp.ID)
		imported++
	}
	logger.Info("import complete: %d imported, %d skipped", imported, skipped)
}

func findRecordFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
