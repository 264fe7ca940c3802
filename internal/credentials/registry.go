package credentials

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry is the parsed profiles file. Profiles, outputs, and session
// parameters keep their document order; yaml.Node is used instead of map
// decoding because Go maps would lose it.
type Registry struct {
	profiles []namedProfile
}

type namedProfile struct {
	name          string
	defaultTarget string
	outputs       []namedOutput
}

type namedOutput struct {
	name   string
	raw    rawOutput
	params []Param
}

// LoadRegistry reads and parses a profiles.yml file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credentials: read profiles: %w", err)
	}
	reg, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("credentials: parse %s: %w", path, err)
	}
	return reg, nil
}

// ParseRegistry parses profiles.yml content. The top level maps profile names
// to {target, outputs: {name: output}}; a "config" key is dbt bookkeeping and
// is skipped.
func ParseRegistry(data []byte) (*Registry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return &Registry{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must be a mapping of profile names")
	}

	reg := &Registry{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		if name == "config" {
			continue
		}
		body := root.Content[i+1]
		if body.Kind != yaml.MappingNode {
			continue
		}
		p := namedProfile{name: name}
		for j := 0; j+1 < len(body.Content); j += 2 {
			key, val := body.Content[j].Value, body.Content[j+1]
			switch key {
			case "target":
				p.defaultTarget = val.Value
			case "outputs":
				if val.Kind != yaml.MappingNode {
					return nil, fmt.Errorf("profile %q: outputs must be a mapping", name)
				}
				for k := 0; k+1 < len(val.Content); k += 2 {
					out, err := parseOutput(val.Content[k].Value, val.Content[k+1])
					if err != nil {
						return nil, fmt.Errorf("profile %q: %w", name, err)
					}
					p.outputs = append(p.outputs, out)
				}
			}
		}
		reg.profiles = append(reg.profiles, p)
	}
	return reg, nil
}

func parseOutput(name string, node *yaml.Node) (namedOutput, error) {
	out := namedOutput{name: name}
	if err := node.Decode(&out.raw); err != nil {
		return out, fmt.Errorf("output %q: %w", name, err)
	}

	// session_parameters is decoded by hand to keep file order.
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value != "session_parameters" {
				continue
			}
			params := node.Content[i+1]
			if params.Kind != yaml.MappingNode {
				return out, fmt.Errorf("output %q: session_parameters must be a mapping", name)
			}
			for j := 0; j+1 < len(params.Content); j += 2 {
				var v any
				if err := params.Content[j+1].Decode(&v); err != nil {
					return out, fmt.Errorf("output %q: session parameter %q: %w", name, params.Content[j].Value, err)
				}
				out.params = append(out.params, Param{
					Key:   params.Content[j].Value,
					Value: fmt.Sprint(v),
				})
			}
		}
	}
	return out, nil
}

// Resolve returns the single resolved profile for this run.
//
// When name is empty the registry resolves only if exactly one profile has a
// supported warehouse output; anything else is an error. This replaces the
// old "first profile found" fallback, which depended on mapping order that
// YAML does not guarantee and hid the choice from the user.
//
// When target is empty the profile's declared default target is used,
// falling back to "dev".
func (r *Registry) Resolve(name, target string) (Profile, error) {
	if name == "" {
		var candidates []string
		for _, p := range r.profiles {
			if p.hasSupportedOutput() {
				candidates = append(candidates, p.name)
			}
		}
		switch len(candidates) {
		case 0:
			return Profile{}, &Error{
				Kind:   KindUnknownProfile,
				Detail: "no profile with a supported warehouse output found; pass -profile",
			}
		case 1:
			name = candidates[0]
		default:
			return Profile{}, &Error{
				Kind:   KindAmbiguousProfile,
				Detail: fmt.Sprintf("multiple candidate profiles (%s); pass -profile", strings.Join(candidates, ", ")),
			}
		}
	}

	for _, p := range r.profiles {
		if p.name != name {
			continue
		}
		t := target
		if t == "" {
			t = p.defaultTarget
		}
		if t == "" {
			t = "dev"
		}
		for _, out := range p.outputs {
			if out.name == t {
				return resolveOutput(name, t, out.raw, out.params)
			}
		}
		return Profile{}, &Error{
			Kind:    KindUnknownTarget,
			Profile: name,
			Detail:  fmt.Sprintf("target %q not found", t),
		}
	}
	return Profile{}, &Error{
		Kind:   KindUnknownProfile,
		Detail: fmt.Sprintf("profile %q not found", name),
	}
}

func (p namedProfile) hasSupportedOutput() bool {
	for _, out := range p.outputs {
		switch strings.ToLower(strings.TrimSpace(out.raw.Type)) {
		case TypeSnowflake, TypePostgres:
			return true
		}
	}
	return false
}
