package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/oliveagle/jsonpath"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkOutputFormat(format string) error {
	switch format {
	case formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

// render decodes a JSON body, applies the optional JSONPath query and
// writes the result in the requested format. Bare strings, such as the
// server's status messages, are printed as plain lines.
func render(w io.Writer, body []byte, format, query string) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}

	if query != "" {
		res, err := jsonpath.JsonPathLookup(v, query)
		if err != nil {
			return fmt.Errorf("query %q: %w", query, err)
		}
		v = res
	}

	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}

	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
}

// renderValue marshals v to JSON and renders it like a response body.
func renderValue(w io.Writer, v any, format, query string) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return render(w, body, format, query)
}
