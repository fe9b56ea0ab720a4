// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-josekit.
//
// go-josekit is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-josekit/pkg/result"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintResult prints an engine output and releases it. In text mode JSON
// strings, such as compact serializations, are printed unquoted and
// objects are indented.
func (p *Printer) PrintResult(out *result.JSONString) error {
	data, err := out.Bytes()
	if err != nil {
		return err
	}
	defer out.Release()

	switch p.format {
	case OutputFormatJSON:
		_, err = fmt.Fprintln(p.writer, string(data))
		return err
	case OutputFormatText:
		var s string
		if json.Unmarshal(data, &s) == nil {
			_, err = fmt.Fprintln(p.writer, s)
			return err
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		return p.printJSON(v)
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintValue prints text in text mode and v in JSON mode.
func (p *Printer) PrintValue(text string, v any) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(v)
	case OutputFormatText:
		_, err := fmt.Fprintln(p.writer, text)
		return err
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintRaw writes b unchanged, whatever the format.
func (p *Printer) PrintRaw(b []byte) error {
	_, err := p.writer.Write(b)
	return err
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"code":   result.CodeOf(err).String(),
			"error":  err.Error(),
		})
	default:
		_, perr := fmt.Fprintf(p.writer, "Error: %v\n", err)
		return perr
	}
}

// printJSON prints data as indented JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
