package sheet

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"
)

// Answers workbook columns.
const (
	ColKey   = "key"
	ColValue = "value"
)

// LoadAnswers reads placeholder answers (key → replacement text) from a
// .yaml, .yml, .json or .xlsx file.
func LoadAnswers(path string) (map[string]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		f, err := xlsx.OpenFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "sheet: open answers workbook")
		}
		return answersFromWorkbook(f)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: read answers file")
	}
	return DecodeAnswers(data, ext)
}

// DecodeAnswers parses answers held in memory. ext selects the format the
// same way a file extension does; JSON and YAML share one decoder.
func DecodeAnswers(data []byte, ext string) (map[string]string, error) {
	switch strings.ToLower(ext) {
	case ".xlsx":
		f, err := xlsx.OpenBinary(data)
		if err != nil {
			return nil, eris.Wrap(err, "sheet: open answers workbook")
		}
		return answersFromWorkbook(f)
	case ".yaml", ".yml", ".json", "":
		var out map[string]string
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, eris.Wrap(err, "sheet: unmarshal answers")
		}
		if out == nil {
			out = map[string]string{}
		}
		return out, nil
	default:
		return nil, eris.Errorf("sheet: unsupported answers format %q", ext)
	}
}

// answersFromWorkbook reads the key and value columns of the first sheet.
// Later rows override earlier rows with the same key.
func answersFromWorkbook(f *xlsx.File) (map[string]string, error) {
	if len(f.Sheets) == 0 {
		return nil, eris.New("sheet: answers workbook has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("sheet: answers sheet is empty")
	}

	cols, err := headerIndex(rowToStrings(sheet.Rows[0]), ColKey, ColValue)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		key := strings.TrimSpace(cellAt(cells, cols, ColKey))
		if key == "" {
			continue
		}
		out[key] = cellAt(cells, cols, ColValue)
	}
	return out, nil
}
