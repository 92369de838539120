package facts

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is an output format accepted from executable external facts.
type Format string

const (
	// FormatText prints one name=value pair per line.
	FormatText Format = "text"
	// FormatJSON prints a single JSON object.
	FormatJSON Format = "json"
	// FormatYAML prints a YAML mapping in registration order.
	FormatYAML Format = "yaml"
)

// ErrLineBreak is returned when a fact would not print as a single text line.
var ErrLineBreak = errors.New("fact name or value contains a line break")

// SingleLine separates facts that print as one name=value line from those
// whose name or value contains a CR or LF. Written as text, the latter would
// be read back as extra, unprefixed facts.
func SingleLine(resolved []Resolved) (lines, broken []Resolved) {
	for _, r := range resolved {
		if strings.ContainsAny(r.Name, "\r\n") || strings.ContainsAny(r.Value, "\r\n") {
			broken = append(broken, r)
			continue
		}
		lines = append(lines, r)
	}
	return lines, broken
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", errors.Errorf("unknown output format %q, expected one of text, json, yaml", s)
	}
}

// Write renders resolved facts to w in format.
func Write(w io.Writer, format Format, resolved []Resolved) error {
	switch format {
	case FormatText:
		if _, broken := SingleLine(resolved); len(broken) > 0 {
			return errors.Wrapf(ErrLineBreak, "fact %q", broken[0].Name)
		}
		for _, r := range resolved {
			if _, err := fmt.Fprintf(w, "%s=%s\n", r.Name, r.Value); err != nil {
				return errors.Wrap(err, "write facts")
			}
		}
		return nil
	case FormatJSON:
		values := make(map[string]string, len(resolved))
		for _, r := range resolved {
			values[r.Name] = r.Value
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(values), "encode facts as json")
	case FormatYAML:
		doc := &yaml.Node{Kind: yaml.MappingNode}
		for _, r := range resolved {
			doc.Content = append(doc.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.Name},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.Value},
			)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, "encode facts as yaml")
		}
		return errors.Wrap(enc.Close(), "encode facts as yaml")
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}
