// Package cli holds the output helpers of the rolloutctl command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// Resolution is the printable outcome of a flag evaluation
type Resolution struct {
	Flag         string `json:"flag" yaml:"flag"`
	Kind         string `json:"kind" yaml:"kind"`
	Value        any    `json:"value" yaml:"value"`
	Reason       string `json:"reason" yaml:"reason"`
	Variant      string `json:"variant,omitempty" yaml:"variant,omitempty"`
	ErrorCode    string `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// Health is the printable outcome of a store health check
type Health struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Status   string `json:"status" yaml:"status"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ParseFormat validates an output format name
func ParseFormat(name string) (OutputFormat, error) {
	switch f := OutputFormat(name); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", name)
	}
}

// PrintResolution outputs an evaluation result in the specified format
func PrintResolution(w io.Writer, r Resolution, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, r)
	case FormatYAML:
		return printYAML(w, r)
	case FormatTable:
		return printTable(w,
			[]string{"Flag", "Kind", "Value", "Reason", "Error"},
			[]string{r.Flag, r.Kind, fmt.Sprintf("%v", r.Value), r.Reason, errorColumn(r.ErrorCode, r.ErrorMessage)},
		)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintHealth outputs a health check result in the specified format
func PrintHealth(w io.Writer, h Health, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, h)
	case FormatYAML:
		return printYAML(w, h)
	case FormatTable:
		return printTable(w,
			[]string{"Endpoint", "Status", "Error"},
			[]string{h.Endpoint, h.Status, h.Error},
		)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func errorColumn(code, message string) string {
	if code == "" {
		return ""
	}
	if message == "" {
		return code
	}
	return code + ": " + message
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printTable(w io.Writer, header, row []string) error {
	table := tablewriter.NewWriter(w)
	table.Header(header)
	if err := table.Append(row); err != nil {
		return err
	}
	return table.Render()
}
