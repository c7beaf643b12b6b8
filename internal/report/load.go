package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/tidwall/gjson"

	"github.com/dbsmedya/custrecon/internal/reconcile"
)

// Keys under which a missing report lists its identifiers. The second is the
// name used by older reports.
var missingKeys = []string{"missingIdentifiers", "missingCustomerNumbers"}

// LoadMissing reads identifiers from a missing report so that it can serve
// as the target list of a match analysis. JSON reports may be an object with
// one of the known keys or a bare array; YAML reports are objects.
func LoadMissing(path string) (*reconcile.IdentifierSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read target list %s: %w", path, err)
	}

	var ids []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		ids, err = parseMissingYAML(data)
	default:
		ids, err = parseMissingJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse target list %s: %w", path, err)
	}
	return reconcile.NewIdentifierSet(ids...), nil
}

func parseMissingJSON(data []byte) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)

	list := root
	if !root.IsArray() {
		list = gjson.Result{}
		for _, key := range missingKeys {
			if v := root.Get(key); v.IsArray() {
				list = v
				break
			}
		}
		if !list.IsArray() {
			return nil, fmt.Errorf("no %s array found", strings.Join(missingKeys, " or "))
		}
	}

	var ids []string
	for _, v := range list.Array() {
		// Identifiers may have been written as numbers.
		if id := strings.TrimSpace(v.String()); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type missingDoc struct {
	MissingIdentifiers     []string `yaml:"missingIdentifiers"`
	MissingCustomerNumbers []string `yaml:"missingCustomerNumbers"`
}

func parseMissingYAML(data []byte) ([]string, error) {
	var doc missingDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	switch {
	case doc.MissingIdentifiers != nil:
		return doc.MissingIdentifiers, nil
	case doc.MissingCustomerNumbers != nil:
		return doc.MissingCustomerNumbers, nil
	default:
		return nil, fmt.Errorf("no %s list found", strings.Join(missingKeys, " or "))
	}
}
