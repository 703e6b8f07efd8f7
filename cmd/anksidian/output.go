package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/itchyny/gojq"
	"github.com/julien-sobczak/anksidian/internal/core"
	"gopkg.in/yaml.v3"
)

// InspectedFile is the printable version of the notes of a file.
type InspectedFile struct {
	Path   string          `json:"path" yaml:"path"`
	Deck   string          `json:"deck,omitempty" yaml:"deck,omitempty"`
	Tags   []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
	Notes  []InspectedNote `json:"notes" yaml:"notes"`
	Errors []string        `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type InspectedNote struct {
	Contents string   `json:"contents" yaml:"contents"`
	ID       uint64   `json:"id,omitempty" yaml:"id,omitempty"`
	Offset   int      `json:"offset" yaml:"offset"`
	Pictures []string `json:"pictures,omitempty" yaml:"pictures,omitempty"`
}

func NewInspectedFile(collected *core.CollectedFile, deck string) InspectedFile {
	result := InspectedFile{
		Path:  collected.RelativePath,
		Deck:  deck,
		Tags:  collected.Tags,
		Notes: []InspectedNote{},
	}
	for _, note := range collected.Notes {
		inspected := InspectedNote{
			Contents: note.Contents,
			Offset:   note.SourceOffset,
		}
		if note.PriorID != nil {
			inspected.ID = uint64(*note.PriorID)
		}
		for _, picture := range note.Pictures {
			inspected.Pictures = append(inspected.Pictures, picture.Filename)
		}
		result.Notes = append(result.Notes, inspected)
	}
	for _, err := range collected.Errors {
		result.Errors = append(result.Errors, err.Error())
	}
	return result
}

// printInspected writes files as JSON or YAML, optionally filtered by a jq query.
func printInspected(w io.Writer, files []InspectedFile, format string, query string) error {
	var data any = files
	if query != "" {
		results, err := runQuery(files, query)
		if err != nil {
			return err
		}
		data = results
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("invalid --output format %q (expected yaml|json)", format)
}

// runQuery evaluates a jq query. gojq only supports JSON-like values.
func runQuery(value any, query string) ([]any, error) {
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid --jq: %w", err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("invalid --jq: %w", err)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}

	results := []any{}
	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("query error: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

func printDiff(w io.Writer, diff string) {
	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
			color.New(color.FgRed).Fprintln(w, line)
		} else if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			color.New(color.FgGreen).Fprintln(w, line)
		} else {
			fmt.Fprintln(w, line)
		}
	}
}

func printReport(w io.Writer, report *core.SyncReport) {
	for _, file := range report.Files {
		switch {
		case file.Err != nil:
			color.New(color.FgRed).Fprintf(w, "%s: %v\n", file.RelativePath, file.Err)
		case file.Failed > 0:
			color.New(color.FgYellow).Fprintf(w, "%s: %d note(s) not synchronized\n", file.RelativePath, file.Failed)
		}
	}

	created, updated, unchanged, failed := report.Totals()
	fmt.Fprintf(w, "%d files: %s created, %s updated, %d unchanged, %s failed\n",
		len(report.Files),
		color.GreenString("%d", created),
		color.YellowString("%d", updated),
		unchanged,
		color.RedString("%d", failed))
	if len(report.Unseen) > 0 {
		fmt.Fprintf(w, "%d note(s) in Anki no longer present in files (run 'anksidian prune' to delete them)\n", len(report.Unseen))
	}
}
