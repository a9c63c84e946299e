package source

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-stanload/param"
)

// UnmarshalYAML accepts a bare dataset/branch name or a mapping. The keys
// nm, stan_alias, data_format and ndim are read as name, alias, kind and dim.
func (f *Field) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*f = Field{Name: node.Value}
		return nil
	}

	var raw struct {
		Name       string `yaml:"name"`
		Nm         string `yaml:"nm"`
		Alias      string `yaml:"alias"`
		StanAlias  string `yaml:"stan_alias"`
		Kind       string `yaml:"kind"`
		DataFormat string `yaml:"data_format"`
		Dim        int    `yaml:"dim"`
		NDim       int    `yaml:"ndim"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	kind, err := param.ParseKind(first(raw.Kind, raw.DataFormat))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*f = Field{
		Name:  first(raw.Name, raw.Nm),
		Alias: first(raw.Alias, raw.StanAlias),
		Kind:  kind,
		Dim:   max(raw.Dim, raw.NDim),
	}
	if f.Name == "" {
		return fmt.Errorf("line %d: field has no name", node.Line)
	}
	return nil
}

// MarshalYAML writes the canonical keys.
func (f Field) MarshalYAML() (any, error) {
	out := map[string]any{"name": f.Name, "kind": f.Kind.String()}
	if f.Alias != "" {
		out["alias"] = f.Alias
	}
	if f.Dim > 1 {
		out["dim"] = f.Dim
	}
	return out, nil
}

// UnmarshalYAML reads a file entry. Fields may be listed under fields,
// datasets or branches.
func (f *File) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Format   string  `yaml:"format"`
		Name     string  `yaml:"name"`
		Tree     string  `yaml:"tree"`
		Group    string  `yaml:"group"`
		Cut      string  `yaml:"cut"`
		Fields   []Field `yaml:"fields"`
		Datasets []Field `yaml:"datasets"`
		Branches []Field `yaml:"branches"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*f = File{
		Format: raw.Format,
		Name:   raw.Name,
		Tree:   raw.Tree,
		Group:  raw.Group,
		Cut:    raw.Cut,
	}
	f.Fields = append(f.Fields, raw.Fields...)
	f.Fields = append(f.Fields, raw.Datasets...)
	f.Fields = append(f.Fields, raw.Branches...)
	return nil
}

// MarshalYAML writes the canonical keys, omitting empty ones.
func (f File) MarshalYAML() (any, error) {
	type plain struct {
		Format string  `yaml:"format"`
		Name   string  `yaml:"name"`
		Tree   string  `yaml:"tree,omitempty"`
		Group  string  `yaml:"group,omitempty"`
		Cut    string  `yaml:"cut,omitempty"`
		Fields []Field `yaml:"fields,omitempty"`
	}
	return plain(f), nil
}

// Groups is the ordered data declaration. In YAML it is either a mapping
// whose keys are group kinds, decoded in document order, or a sequence of
// such mappings, which allows a kind to appear more than once.
//
//	groups:
//	  - files:
//	      - {format: R, name: data.R}
//	  - parameters:
//	      - {sigma: 1.5}
type Groups []Group

// UnmarshalYAML implements yaml.Unmarshaler.
func (g *Groups) UnmarshalYAML(node *yaml.Node) error {
	var out Groups
	switch node.Kind {
	case yaml.MappingNode:
		gs, err := decodeGroupMapping(node)
		if err != nil {
			return err
		}
		out = gs
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: group entry must be a mapping", item.Line)
			}
			gs, err := decodeGroupMapping(item)
			if err != nil {
				return err
			}
			out = append(out, gs...)
		}
	default:
		return fmt.Errorf("line %d: groups must be a mapping or a sequence", node.Line)
	}
	*g = out
	return nil
}

// MarshalYAML writes the sequence form.
func (g Groups) MarshalYAML() (any, error) {
	out := make([]map[string]any, 0, len(g))
	for _, group := range g {
		switch group.Kind {
		case GroupFiles:
			out = append(out, map[string]any{string(GroupFiles): group.Files})
		case GroupParameters:
			out = append(out, map[string]any{string(GroupParameters): group.Parameters})
		}
	}
	return out, nil
}

func decodeGroupMapping(node *yaml.Node) (Groups, error) {
	var out Groups
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		group := Group{Kind: GroupKind(key.Value)}

		switch group.Kind {
		case GroupFiles:
			if err := value.Decode(&group.Files); err != nil {
				return nil, fmt.Errorf("decoding files: %w", err)
			}
		case GroupParameters:
			params, err := decodeParameters(value)
			if err != nil {
				return nil, err
			}
			group.Parameters = params
		default:
			return nil, fmt.Errorf("line %d: unknown group %q", key.Line, key.Value)
		}
		out = append(out, group)
	}
	return out, nil
}

// decodeParameters reads a list of literal mappings, or a single mapping.
func decodeParameters(node *yaml.Node) ([]param.Map, error) {
	var raw []map[string]any
	switch node.Kind {
	case yaml.MappingNode:
		var m map[string]any
		if err := node.Decode(&m); err != nil {
			return nil, fmt.Errorf("decoding parameters: %w", err)
		}
		raw = append(raw, m)
	default:
		if err := node.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding parameters: %w", err)
		}
	}

	out := make([]param.Map, 0, len(raw))
	for _, m := range raw {
		p := make(param.Map, len(m))
		for k, v := range m {
			n, err := param.Normalize(v)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", k, err)
			}
			p[k] = n
		}
		out = append(out, p)
	}
	return out, nil
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
