package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Structured document keys, in emission order.
const (
	KeyMode          = "mode"
	KeyOptions       = "options"
	KeyInput         = "input"
	KeyCSL           = "csl"
	KeyCitations     = "citations"
	KeyCitationItems = "citation-items"
	KeyBibEntries    = "bib-entries"
	KeyBibSection    = "bib-section"
	KeyResult        = "result"
)

// document is the decoding target for structured fixtures. Pointer and
// slice fields stay nil when their key is missing or null. Input is decoded
// as plain maps: yaml.v3 gives every nested mapping the named type of its
// target, which would turn nested item fields into Items.
type document struct {
	Mode          string           `yaml:"mode"`
	Options       map[string]any   `yaml:"options"`
	Input         []map[string]any `yaml:"input"`
	CSL           *string          `yaml:"csl"`
	Citations     []any            `yaml:"citations"`
	CitationItems []any            `yaml:"citation-items"`
	BibEntries    []any            `yaml:"bib-entries"`
	BibSection    map[string]any   `yaml:"bib-section"`
	Result        *string          `yaml:"result"`
}

// Encode projects f into a YAML mapping node. Absent optional fields are
// omitted; result is always present and is null when no expected result
// was recorded.
func Encode(f *Fixture) (*yaml.Node, error) {
	if f.Mode == "" {
		return nil, ErrMissingMode
	}

	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key string, v any) error {
		var val yaml.Node
		if err := val.Encode(v); err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		quoteMergeKeys(&val)
		doc.Content = append(doc.Content, keyNode(key), &val)
		return nil
	}

	if err := add(KeyMode, string(f.Mode)); err != nil {
		return nil, err
	}
	if len(f.Options) > 0 {
		if err := add(KeyOptions, f.Options); err != nil {
			return nil, err
		}
	}
	if f.Input != nil {
		if err := add(KeyInput, f.Input); err != nil {
			return nil, err
		}
	}
	if f.CSL != nil {
		if err := add(KeyCSL, *f.CSL); err != nil {
			return nil, err
		}
	}
	if f.Citations != nil {
		if err := add(KeyCitations, f.Citations); err != nil {
			return nil, err
		}
	}
	if f.CitationItems != nil {
		if err := add(KeyCitationItems, f.CitationItems); err != nil {
			return nil, err
		}
	}
	if f.BibEntries != nil {
		if err := add(KeyBibEntries, f.BibEntries); err != nil {
			return nil, err
		}
	}
	if f.BibSection != nil {
		if err := add(KeyBibSection, f.BibSection); err != nil {
			return nil, err
		}
	}

	if f.Result == nil {
		doc.Content = append(doc.Content, keyNode(KeyResult), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"})
	} else if err := add(KeyResult, *f.Result); err != nil {
		return nil, err
	}
	return doc, nil
}

// quoteMergeKeys double-quotes every "<<" mapping key below n. A plain "<<"
// key reads back as a YAML merge, not as the string key it was.
func quoteMergeKeys(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i < len(n.Content); i += 2 {
			if k := n.Content[i]; k.Kind == yaml.ScalarNode && k.Value == "<<" {
				k.Tag = "!!str"
				k.Style = yaml.DoubleQuotedStyle
			}
		}
	}
	for _, c := range n.Content {
		quoteMergeKeys(c)
	}
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

// Marshal renders f as a structured YAML document.
func Marshal(f *Fixture) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders f as a structured YAML document to w.
func Write(w io.Writer, f *Fixture) error {
	node, err := Encode(f)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return fmt.Errorf("write %s: %w", f.Name, err)
	}
	return enc.Close()
}

// Decode reads a structured fixture. A missing result key and result: null
// both mean no expected result; result: "" is an expected empty rendering.
func Decode(name string, r io.Reader, opts ParseOptions) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(opts.Strict)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Name: name, Err: ErrMissingMode}
		}
		return nil, &ParseError{Name: name, Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}

	mode, err := ParseMode(doc.Mode)
	if err != nil {
		return nil, &ParseError{Name: name, Section: KeyMode, Err: err}
	}

	f := &Fixture{
		Name:          name,
		Mode:          mode,
		Options:       doc.Options,
		Input:         toItems(doc.Input),
		CSL:           doc.CSL,
		Citations:     doc.Citations,
		CitationItems: doc.CitationItems,
		BibEntries:    doc.BibEntries,
		BibSection:    doc.BibSection,
		Result:        doc.Result,
	}
	if len(f.Options) == 0 {
		f.Options = nil
	}
	if opts.Strict {
		if err := Validate(f); err != nil {
			return nil, &ParseError{Name: name, Section: KeyInput, Err: err}
		}
	}
	return f, nil
}

// toItems converts the top level of decoded input maps to Items, keeping a
// present but empty list distinct from a missing one.
func toItems(maps []map[string]any) []Item {
	if maps == nil {
		return nil
	}
	items := make([]Item, len(maps))
	for i, m := range maps {
		items[i] = Item(m)
	}
	return items
}

// DecodeFile reads the structured fixture at path.
func DecodeFile(path string, opts ParseOptions) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Name: path, Err: err}
	}
	defer file.Close()
	return Decode(path, file, opts)
}
