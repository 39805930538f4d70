package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dcdoc/dcform-cli/internal/docx"
	"github.com/dcdoc/dcform-cli/internal/model"
	"github.com/dcdoc/dcform-cli/internal/registry"
	"github.com/dcdoc/dcform-cli/internal/store"
	"github.com/dcdoc/dcform-cli/internal/tagger"
	"github.com/dcdoc/dcform-cli/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func initClassifier() (tagger.Classifier, error) {
	if err := cfg.Validate("tag"); err != nil {
		return nil, err
	}
	client := anthropic.NewClient(cfg.Anthropic.Key)
	return tagger.NewAnthropicClassifier(client, cfg.Anthropic, cfg.Tagging), nil
}

func loadCatalog() (*model.Catalog, error) {
	return registry.ResolveCatalog(cfg.Tagging.CatalogPath)
}

func openDocument(path string) (*docx.Document, error) {
	doc, err := docx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	return doc, nil
}

// outputPath returns out, or the input path with suffix added before the
// extension when out is empty.
func outputPath(in, out, suffix string) string {
	if out != "" {
		return out
	}
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + "_" + suffix + ext
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so readers never see a partial document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "create temp file for %s", path)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpPath) //nolint:errcheck
		return eris.Wrapf(err, "write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpPath) //nolint:errcheck
		return eris.Wrapf(err, "sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return eris.Wrapf(err, "close %s", path)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return eris.Wrapf(err, "chmod %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return eris.Wrapf(err, "rename into %s", path)
	}
	return nil
}
