// Package registry loads the field key catalog used for tagging and
// filling forms.
package registry

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dcdoc/dcform-cli/internal/form"
	"github.com/dcdoc/dcform-cli/internal/model"
)

// catalogFile is the on-disk catalog format. YAML is the primary format;
// JSON files parse as well since YAML is a superset.
type catalogFile struct {
	// Extend appends the file's fields to the default catalog instead of
	// replacing it. A key present in both keeps the file's definition.
	Extend bool          `yaml:"extend"`
	Fields []model.Field `yaml:"fields"`
}

// LoadCatalogFromFile reads a catalog file and returns the indexed catalog.
func LoadCatalogFromFile(path string) (*model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read catalog file")
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal catalog file")
	}
	if len(f.Fields) == 0 {
		return nil, eris.Errorf("registry: catalog file %s has no fields", path)
	}

	for i := range f.Fields {
		f.Fields[i].Key = strings.TrimSpace(f.Fields[i].Key)
		key := f.Fields[i].Key
		if !form.IsValidKey(key) {
			return nil, eris.Errorf("registry: invalid field key %q at position %d", key, i)
		}
		if key == model.UnknownKey {
			return nil, eris.Errorf("registry: field key %q is reserved", key)
		}
	}

	fields := f.Fields
	if f.Extend {
		// NewCatalog keeps the first occurrence, so file fields go first.
		fields = append(fields, model.DefaultCatalog().Fields()...)
	}

	catalog := model.NewCatalog(fields)
	zap.L().Info("registry: loaded catalog",
		zap.String("path", path),
		zap.Bool("extend", f.Extend),
		zap.Int("fields", catalog.Len()),
	)
	return catalog, nil
}

// ResolveCatalog returns the catalog at path, or the default catalog when
// path is empty.
func ResolveCatalog(path string) (*model.Catalog, error) {
	if path == "" {
		return model.DefaultCatalog(), nil
	}
	return LoadCatalogFromFile(path)
}
