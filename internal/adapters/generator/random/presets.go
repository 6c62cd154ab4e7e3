package random

import (
	"embed"
	"fmt"
	"sort"

	"github.com/bnema/datagen/internal/domain"
)

//go:embed presets/*.avro
var presetFS embed.FS

// Preset is a bundled schema with the field used as message key.
type Preset struct {
	Name     string
	KeyField string
	File     string
}

var presets = map[string]Preset{
	"clickstream": {Name: "clickstream", KeyField: "ip", File: "presets/clickstream.avro"},
	"pageviews":   {Name: "pageviews", KeyField: "viewtime", File: "presets/pageviews.avro"},
	"users":       {Name: "users", KeyField: "userid", File: "presets/users.avro"},
	"orders":      {Name: "orders", KeyField: "orderid", File: "presets/orders.avro"},
}

// Presets lists the bundled quickstart schemas sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

func (p Preset) Source() ([]byte, error) {
	data, err := presetFS.ReadFile(p.File)
	if err != nil {
		return nil, fmt.Errorf("read preset %s: %w", p.Name, err)
	}
	return data, nil
}

func (p Preset) Schema() (*domain.Schema, error) {
	data, err := p.Source()
	if err != nil {
		return nil, err
	}
	return ParseSchema(data)
}
