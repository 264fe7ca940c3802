// Package manifest parses the sources section of a dbt manifest.json into an
// ordered source catalog.
//
// Order matters: the catalog order drives the extraction plan order, and
// encoding/json map decoding would scramble it, so the sources object is
// walked token by token in document order.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Table is one source table to mirror. Identifier is the physical object name
// when it differs from the declared name.
type Table struct {
	Name        string
	Identifier  string
	Description string
}

// Source groups the tables a dbt source declares against one remote
// database/schema pair. Descriptions are carried for reporting only.
type Source struct {
	Name        string
	Database    string
	Schema      string
	Description string
	Tables      []Table
}

// node mirrors one manifest source node.
type node struct {
	SourceName        string `json:"source_name"`
	Database          string `json:"database"`
	Schema            string `json:"schema"`
	Name              string `json:"name"`
	Identifier        string `json:"identifier"`
	Description       string `json:"description"`
	SourceDescription string `json:"source_description"`
}

// Load reads and parses a manifest file.
func Load(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open: %w", err)
	}
	defer f.Close()

	sources, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	return sources, nil
}

// Parse decodes the manifest's sources section. Sources appear in document
// order; tables within a source appear in the order their nodes appear.
// Nodes without a source name or table name are skipped, matching dbt's own
// tolerance for partial manifests.
func Parse(r io.Reader) ([]Source, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected top-level object, got %v", tok)
	}

	var (
		sources []Source
		index   = map[string]int{}
	)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)

		if key != "sources" {
			// Skip the value of every other top-level key.
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("skip %q: %w", key, err)
			}
			continue
		}

		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, fmt.Errorf("sources must be an object, got %v", tok)
		}
		for dec.More() {
			if _, err := dec.Token(); err != nil { // node id, unused
				return nil, err
			}
			var n node
			if err := dec.Decode(&n); err != nil {
				return nil, fmt.Errorf("decode source node: %w", err)
			}
			if n.SourceName == "" || n.Name == "" {
				continue
			}
			i, ok := index[n.SourceName]
			if !ok {
				i = len(sources)
				index[n.SourceName] = i
				sources = append(sources, Source{
					Name:        n.SourceName,
					Database:    n.Database,
					Schema:      n.Schema,
					Description: n.SourceDescription,
				})
			}
			ident := n.Identifier
			if ident == "" {
				ident = n.Name
			}
			sources[i].Tables = append(sources[i].Tables, Table{
				Name:        n.Name,
				Identifier:  ident,
				Description: n.Description,
			})
		}
		if _, err := dec.Token(); err != nil { // closing '}'
			return nil, err
		}
	}

	return sources, nil
}
