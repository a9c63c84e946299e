package columnar

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-stanload/param"
	"github.com/robert-malhotra/go-stanload/sample"
)

// Variable declares one output column of the results table.
type Variable struct {
	// Variable is the sampler parameter name.
	Variable string
	// Alias is the column name; Variable is used when empty.
	Alias string
	Kind  param.Kind
	// NDim is the vector length. Element i is read from Variable[i].
	NDim int
}

// Column returns the output column name.
func (v Variable) Column() string {
	if v.Alias != "" {
		return v.Alias
	}
	return v.Variable
}

// sources returns the table columns feeding each slot element.
func (v Variable) sources() []string {
	if v.NDim <= 1 {
		return []string{v.Variable}
	}
	out := make([]string, v.NDim)
	for i := range out {
		out[i] = fmt.Sprintf("%s[%d]", v.Variable, i)
	}
	return out
}

// UnmarshalYAML reads a variable, accepting root_alias or output_name for
// alias, type for kind and dim for ndim.
func (v *Variable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*v = Variable{Variable: node.Value, NDim: 1}
		return nil
	}
	var raw struct {
		Variable   string `yaml:"variable"`
		Alias      string `yaml:"alias"`
		RootAlias  string `yaml:"root_alias"`
		OutputName string `yaml:"output_name"`
		Kind       string `yaml:"kind"`
		Type       string `yaml:"type"`
		NDim       int    `yaml:"ndim"`
		Dim        int    `yaml:"dim"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Variable == "" {
		return fmt.Errorf("line %d: output variable has no name", node.Line)
	}

	kindName := raw.Kind
	if kindName == "" {
		kindName = raw.Type
	}
	kind, err := param.ParseKind(kindName)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	if kind == param.String {
		return fmt.Errorf("line %d: output variable %s must be numeric", node.Line, raw.Variable)
	}

	*v = Variable{
		Variable: raw.Variable,
		Kind:     kind,
		NDim:     max(raw.NDim, raw.Dim, 1),
	}
	for _, a := range []string{raw.Alias, raw.RootAlias, raw.OutputName} {
		if a != "" {
			v.Alias = a
			break
		}
	}
	return nil
}

// WriteResults writes one row per table row with a column for each
// variable, then lp_prob and is_sample. A variable whose source column is
// absent from t fails with ErrMissingColumn before anything is written.
func WriteResults(b Backend, name string, vars []Variable, t *sample.Table) error {
	cols := make([]Column, 0, len(vars)+2)
	feeds := make([][][]float64, 0, len(vars)+2)

	for _, v := range vars {
		var feed [][]float64
		for _, src := range v.sources() {
			c, ok := t.Column(src)
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingColumn, src)
			}
			feed = append(feed, c)
		}
		cols = append(cols, Column{Name: v.Column(), Kind: v.Kind, Size: max(v.NDim, 1)})
		feeds = append(feeds, feed)
	}

	for _, syn := range []Column{
		{Name: sample.LPColumn, Kind: param.Float, Size: 1},
		{Name: sample.IsSampleColumn, Kind: param.Int, Size: 1},
	} {
		c, ok := t.Column(syn.Name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, syn.Name)
		}
		cols = append(cols, syn)
		feeds = append(feeds, [][]float64{c})
	}

	row, err := NewRow(cols)
	if err != nil {
		return err
	}
	rows := t.Len()
	tw, err := b.Table(name, name, row, rows)
	if err != nil {
		return err
	}

	for r := 0; r < rows; r++ {
		for col, feed := range feeds {
			for i, c := range feed {
				if r >= len(c) {
					tw.Close()
					return fmt.Errorf("column %s has %d rows, want %d", cols[col].Name, len(c), rows)
				}
				if err := row.SetFloat(col, i, c[r]); err != nil {
					tw.Close()
					return err
				}
			}
		}
		if err := tw.Fill(); err != nil {
			tw.Close()
			return fmt.Errorf("filling %s row %d: %w", name, r, err)
		}
	}
	return tw.Close()
}
