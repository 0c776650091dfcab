// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes the accepted papers of a run to disk and keeps an
// optional SQLite history of runs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-scout/pkg/types"
)

// Default file names.
const (
	DefaultTextFile = "arxiv_paper_report.txt"
	DefaultJSONFile = "arxiv_paper_data.json"
)

// WriteText writes the human-readable report: a count line followed by one
// numbered block per paper.
func WriteText(w io.Writer, records []types.PaperRecord) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Number of relevant papers captured: %d\n\n", len(records))
	for i, r := range records {
		fmt.Fprintf(&b, "\n--- Paper %d ---\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", r.Title)
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(r.Authors, ", "))
		fmt.Fprintf(&b, "Abstract: %s\n", r.Abstract)
		fmt.Fprintf(&b, "PDF Link: %s\n", r.PDFLink)
		if r.EvaluationNote != "" {
			fmt.Fprintf(&b, "Evaluation: %s\n", r.EvaluationNote)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON writes records as an indented JSON array. An empty run is
// written as [] and missing authors as [].
func WriteJSON(w io.Writer, records []types.PaperRecord) error {
	data, err := json.MarshalIndent(normalize(records), "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteYAML writes records as a YAML sequence.
func WriteYAML(w io.Writer, records []types.PaperRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(normalize(records)); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// WriteFiles writes every report format configured in cfg under
// cfg.OutputDir and returns the paths written. Each file is written to a
// temporary sibling and renamed into place, so a reader never sees a
// partial report.
func WriteFiles(cfg types.ReportConfig, records []types.PaperRecord) ([]string, error) {
	dir := cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	textFile := cfg.TextFile
	if textFile == "" {
		textFile = DefaultTextFile
	}
	jsonFile := cfg.JSONFile
	if jsonFile == "" {
		jsonFile = DefaultJSONFile
	}

	outputs := []struct {
		name  string
		write func(io.Writer, []types.PaperRecord) error
	}{
		{textFile, WriteText},
		{jsonFile, WriteJSON},
	}
	if cfg.YAMLFile != "" {
		outputs = append(outputs, struct {
			name  string
			write func(io.Writer, []types.PaperRecord) error
		}{cfg.YAMLFile, WriteYAML})
	}

	var written []string
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		if err := writeAtomic(path, records, o.write); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeAtomic(path string, records []types.PaperRecord, write func(io.Writer, []types.PaperRecord) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}

func normalize(records []types.PaperRecord) []types.PaperRecord {
	out := make([]types.PaperRecord, len(records))
	for i, r := range records {
		if r.Authors == nil {
			r.Authors = []string{}
		}
		out[i] = r
	}
	return out
}
