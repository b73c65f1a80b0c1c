package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin"
	"github.com/joho/godotenv"

	"hadaf/internal/backend"
	"hadaf/internal/backup"
	"hadaf/internal/config"
	"hadaf/internal/log"
)

// hadaf-backup exports the data set to a JSON snapshot or restores one,
// working directly against the configured store so it runs with the API
// server stopped.
func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     log.LevelFromEnv(),
		Component: log.ComponentBackup,
	})
	log.SetDefault(logger)

	cmdExport := kingpin.Command("export", "Write the full data set as a JSON snapshot")
	exportOut := cmdExport.Flag("out", "Output file (default stdout)").String()

	cmdImport := kingpin.Command("import", "Replace the full data set with a JSON snapshot")
	importIn := cmdImport.Flag("in", "Input file (default stdin)").String()

	cmd := kingpin.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		kingpin.Fatalf("configuration: %v", err)
	}

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		kingpin.Fatalf("backend configuration: %v", err)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		kingpin.Fatalf("initialize backend: %v", err)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	}()

	switch cmd {
	case cmdExport.FullCommand():
		err = runExport(ctx, result.Backend, *exportOut)
	case cmdImport.FullCommand():
		err = runImport(ctx, result.Backend, *importIn)
	}
	if err != nil {
		kingpin.Fatalf("%v", err)
	}
}

func runExport(ctx context.Context, store backend.Backend, out string) error {
	doc, err := backup.ExportJSON(ctx, store)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if out == "" {
		_, err = os.Stdout.Write(append(doc, '\n'))
		return err
	}
	if err := os.WriteFile(out, doc, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Fprintf(os.Stderr, "snapshot written to %s\n", out)
	return nil
}

func runImport(ctx context.Context, store backend.Backend, in string) error {
	var (
		data []byte
		err  error
	)
	if in == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(in)
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	if err := backup.Import(ctx, store, data); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Fprintln(os.Stderr, "snapshot imported")
	return nil
}
