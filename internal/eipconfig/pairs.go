package eipconfig

//
// Ordered key/value sections.
//
// The source document writes keyed sections as sequences of single-key
// mappings so that their order is kept:
//
//	openvpn:
//	  - cipher: AES-256-GCM
//	  - auth: SHA512
//
// A section is read as the ordered [Pairs] and then folded left to right
// into a map, so a key that appears twice keeps its last value.
//

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Pair is a key with its value, in source order.
type Pair struct {
	Key string

	// Value is the decoded YAML value.
	Value any

	// Text is the value as written in the source for scalars, and the
	// YAML rendering of the value otherwise.
	Text string
}

// Pairs is an ordered sequence of [Pair].
type Pairs []Pair

var _ yaml.Unmarshaler = &Pairs{}

// UnmarshalYAML implements yaml.Unmarshaler. It accepts a sequence of
// mappings and keeps every key of every mapping in order.
func (p *Pairs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: line %d: expected a list of mappings", ErrBadSource, node.Line)
	}
	out := make(Pairs, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return fmt.Errorf("%w: line %d: expected a mapping", ErrBadSource, item.Line)
		}
		for i := 0; i+1 < len(item.Content); i += 2 {
			pair, err := newPair(item.Content[i], item.Content[i+1])
			if err != nil {
				return err
			}
			out = append(out, pair)
		}
	}
	*p = out
	return nil
}

func newPair(key, value *yaml.Node) (Pair, error) {
	if key.Kind != yaml.ScalarNode {
		return Pair{}, fmt.Errorf("%w: line %d: keys must be scalars", ErrBadSource, key.Line)
	}
	pair := Pair{Key: key.Value}
	if err := value.Decode(&pair.Value); err != nil {
		return Pair{}, fmt.Errorf("%w: line %d: %s", ErrBadSource, value.Line, err)
	}
	if value.Kind == yaml.ScalarNode {
		pair.Text = value.Value
		return pair, nil
	}
	text, err := yaml.Marshal(value)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: line %d: %s", ErrBadSource, value.Line, err)
	}
	pair.Text = string(text)
	return pair, nil
}

// Fold merges the pairs into a map. Later keys overwrite earlier ones.
func (p Pairs) Fold() map[string]any {
	out := make(map[string]any, len(p))
	for _, pair := range p {
		out[pair.Key] = pair.Value
	}
	return out
}

// FoldText is like [Pairs.Fold] but keeps the textual form of each value.
func (p Pairs) FoldText() map[string]string {
	out := make(map[string]string, len(p))
	for _, pair := range p {
		out[pair.Key] = pair.Text
	}
	return out
}

// Entry is an identifier with its attributes.
type Entry struct {
	ID    string
	Attrs Pairs
}

// Entries is an ordered sequence of [Entry], the shape used by the
// locations and gateways sections:
//
//	gateways:
//	  - gw1:
//	      - host: gw1.example.org
//	      - transports: [["obfs4", "tcp", "23042"]]
type Entries []Entry

var _ yaml.Unmarshaler = &Entries{}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Entries) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: line %d: expected a list of mappings", ErrBadSource, node.Line)
	}
	out := make(Entries, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return fmt.Errorf("%w: line %d: expected a mapping", ErrBadSource, item.Line)
		}
		for i := 0; i+1 < len(item.Content); i += 2 {
			key, value := item.Content[i], item.Content[i+1]
			if key.Kind != yaml.ScalarNode {
				return fmt.Errorf("%w: line %d: identifiers must be scalars", ErrBadSource, key.Line)
			}
			var attrs Pairs
			if err := attrs.UnmarshalYAML(value); err != nil {
				return fmt.Errorf("%s: %w", key.Value, err)
			}
			out = append(out, Entry{ID: key.Value, Attrs: attrs})
		}
	}
	*e = out
	return nil
}
