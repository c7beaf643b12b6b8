// Package report writes run artifacts (missing identifiers, partner graph,
// match analysis, eligibility funnel) as JSON or YAML, reads a missing
// report back as a target list, and prints terminal summaries.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/dbsmedya/custrecon/internal/analysis"
	"github.com/dbsmedya/custrecon/internal/eligibility"
	"github.com/dbsmedya/custrecon/internal/graph"
	"github.com/dbsmedya/custrecon/internal/reconcile"
)

// Artifact formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Artifact base names.
const (
	MissingArtifact  = "missing"
	PartnersArtifact = "partners"
	MatchesArtifact  = "matches"
	FunnelArtifact   = "funnel"
)

// FunnelReport is the artifact of a filter run.
type FunnelReport struct {
	Funnel      eligibility.Snapshot            `json:"funnel" yaml:"funnel"`
	Sources     map[string]eligibility.Snapshot `json:"sources" yaml:"sources"`
	Diagnostics *eligibility.DiagnosticsReport  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// MatchesReport is the artifact of a match analysis run.
type MatchesReport struct {
	analysis.Report `yaml:",inline"`
	Sources         map[string]analysis.Report `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Encode writes v to w in format.
func Encode(w io.Writer, format string, v interface{}) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML, "yml":
		out, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// Extension returns the file extension for format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		return ".yaml"
	default:
		return ".json"
	}
}

// WriteArtifact encodes v to dir/name.<ext>. The file is written under a
// temporary name and renamed so readers never see a partial artifact.
func WriteArtifact(dir, name, format string, v interface{}) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, name+Extension(format))
	tmp, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, format, v); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteMissing writes a reconciliation result.
func WriteMissing(dir, format string, res *reconcile.Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("no reconciliation result to write")
	}
	return WriteArtifact(dir, MissingArtifact, format, res)
}

// WriteGraph writes the relationship graph as soldTo -> related identifiers.
func WriteGraph(dir, format string, g *graph.Graph) (string, error) {
	if g == nil {
		return "", fmt.Errorf("no partner graph to write")
	}
	return WriteArtifact(dir, PartnersArtifact, format, g.Snapshot())
}

// WriteMatches writes a match analysis.
func WriteMatches(dir, format string, rep MatchesReport) (string, error) {
	return WriteArtifact(dir, MatchesArtifact, format, rep)
}

// WriteFunnel writes an eligibility funnel with optional diagnostics.
func WriteFunnel(dir, format string, rep FunnelReport) (string, error) {
	return WriteArtifact(dir, FunnelArtifact, format, rep)
}
