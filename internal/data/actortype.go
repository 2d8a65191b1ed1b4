package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/msg"
)

// PropertyEntry declares one property of an actor type.
type PropertyEntry struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Default   any    `yaml:"default"`
	ReadOnly  bool   `yaml:"read_only"`
	Partial   bool   `yaml:"partial"`
	NoPublish bool   `yaml:"no_publish"`
}

// ActorTypeEntry is one actor type as written in actor_types.yaml.
type ActorTypeEntry struct {
	Category    string          `yaml:"category"`
	Name        string          `yaml:"name"`
	Game        bool            `yaml:"game"`
	Description string          `yaml:"description"`
	Properties  []PropertyEntry `yaml:"properties"`
}

type actorTypeFile struct {
	Types []ActorTypeEntry `yaml:"types"`
}

// LoadActorTypes loads actor_types.yaml. Property defaults are checked
// against the declared kind here, so a bad file fails at startup.
func LoadActorTypes(path string) ([]*actor.Type, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read actor types: %w", err)
	}
	var f actorTypeFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse actor types: %w", err)
	}
	seen := make(map[string]bool, len(f.Types))
	types := make([]*actor.Type, 0, len(f.Types))
	for _, e := range f.Types {
		if e.Category == "" || e.Name == "" {
			return nil, fmt.Errorf("actor type needs category and name (got %q.%q)", e.Category, e.Name)
		}
		full := e.Category + "." + e.Name
		if seen[full] {
			return nil, fmt.Errorf("actor type %s: %w", full, actor.ErrDuplicateType)
		}
		seen[full] = true

		specs := make([]actor.PropertySpec, 0, len(e.Properties))
		for _, p := range e.Properties {
			kind, err := msg.ParseDataType(p.Type)
			if err != nil {
				return nil, fmt.Errorf("actor type %s property %s: %w", full, p.Name, err)
			}
			if p.Default != nil {
				if err := msg.NewParam(p.Name, kind).Set(p.Default); err != nil {
					return nil, fmt.Errorf("actor type %s property %s default: %w", full, p.Name, err)
				}
			}
			specs = append(specs, actor.PropertySpec{
				Name:      p.Name,
				Kind:      kind,
				Default:   p.Default,
				ReadOnly:  p.ReadOnly,
				Partial:   p.Partial,
				NoPublish: p.NoPublish,
			})
		}
		t := actor.NewType(e.Category, e.Name, e.Game, specs...)
		t.SetDescription(e.Description)
		types = append(types, t)
	}
	return types, nil
}

// RegisterActorTypes adds every type to lib with the same constructor. A
// nil ctor uses the library default.
func RegisterActorTypes(lib *actor.Library, types []*actor.Type, ctor actor.Constructor) error {
	for _, t := range types {
		if err := lib.Register(t, ctor); err != nil {
			return err
		}
	}
	return nil
}
