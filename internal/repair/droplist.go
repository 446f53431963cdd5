package repair

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reforge/internal/legacy"
)

// DropListError is fatal: migration must not proceed on a drop list that
// was only partially understood.
type DropListError struct {
	Path string
	Err  error
}

func (e *DropListError) Error() string {
	return fmt.Sprintf("drop list %s: %v", e.Path, e.Err)
}

func (e *DropListError) Unwrap() error { return e.Err }

// LoadDropList reads a list of bare addresses. The file may be a JSON
// array or a YAML sequence; JSON is decoded by the YAML decoder too.
func LoadDropList(path string) ([]legacy.Address, error) {
	if err := fileExists(path); err != nil {
		return nil, &DropListError{Path: path, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DropListError{Path: path, Err: err}
	}
	addrs, err := ParseDropList(data)
	if err != nil {
		return nil, &DropListError{Path: path, Err: err}
	}
	return addrs, nil
}

// ParseDropList decodes drop list bytes. The document must be a single
// sequence of address strings. Empty input and a null document are errors;
// an explicit empty list is not.
func ParseDropList(data []byte) ([]legacy.Address, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("no document")
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("want a single document")
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: want a list of addresses, got %s", root.Line, nodeKind(root))
	}

	addrs := make([]legacy.Address, 0, len(root.Content))
	for i, item := range root.Content {
		if item.Kind != yaml.ScalarNode || item.Tag == "!!null" {
			return nil, fmt.Errorf("entry %d (line %d): want an address string, got %s", i, item.Line, nodeKind(item))
		}
		a, err := legacy.ParseAddress(item.Value)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "null"
		}
		return "scalar " + n.Tag
	}
	return "empty document"
}
