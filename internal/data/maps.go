package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

// ActorEntry is one actor placed on a map.
type ActorEntry struct {
	ID           string         `yaml:"id"`
	Type         string         `yaml:"type"` // category.name
	Name         string         `yaml:"name"`
	Ownership    string         `yaml:"ownership"`
	UpdatePolicy string         `yaml:"update_policy"`
	Accept       []string       `yaml:"accept"`
	Parent       string         `yaml:"parent"`
	Properties   map[string]any `yaml:"properties"`
}

type mapFile struct {
	Actors []ActorEntry `yaml:"actors"`
}

// MapLoader reads <dir>/<name>.yaml and builds its actors from lib.
type MapLoader struct {
	dir string
	lib *actor.Library
	log *zap.Logger
}

func NewMapLoader(dir string, lib *actor.Library, log *zap.Logger) *MapLoader {
	return &MapLoader{dir: dir, lib: lib, log: log}
}

// Path returns the file a map name resolves to.
func (l *MapLoader) Path(name string) string {
	return filepath.Join(l.dir, name+".yaml")
}

// LoadMap builds every actor of the map. Parents are resolved after all
// actors exist, so a child may appear before its parent in the file.
func (l *MapLoader) LoadMap(name string) ([]*actor.Proxy, error) {
	raw, err := os.ReadFile(l.Path(name))
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", name, err)
	}
	var f mapFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse map %s: %w", name, err)
	}

	out := make([]*actor.Proxy, 0, len(f.Actors))
	byID := make(map[uid.ID]*actor.Proxy, len(f.Actors))
	parents := make(map[*actor.Proxy]uid.ID)
	for i, e := range f.Actors {
		p, err := l.build(e)
		if err != nil {
			return nil, fmt.Errorf("map %s actor %d: %w", name, i, err)
		}
		if e.Parent != "" {
			pid, err := uid.Parse(e.Parent)
			if err != nil {
				return nil, fmt.Errorf("map %s actor %d parent: %w", name, i, err)
			}
			parents[p] = pid
		}
		byID[p.ID()] = p
		out = append(out, p)
	}
	for child, pid := range parents {
		parent, ok := byID[pid]
		if !ok {
			return nil, fmt.Errorf("map %s actor %s: %w: %s not on map", name, child.ID(), actor.ErrInvalidParent, pid)
		}
		if err := child.SetParent(parent); err != nil {
			return nil, fmt.Errorf("map %s: %w", name, err)
		}
	}
	l.log.Debug("map file read", zap.String("map", name), zap.Int("actors", len(out)))
	return out, nil
}

func (l *MapLoader) build(e ActorEntry) (*actor.Proxy, error) {
	t, ok := l.lib.FindTypeByFullName(e.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", actor.ErrUnknownType, e.Type)
	}
	var (
		p   *actor.Proxy
		err error
	)
	if e.ID == "" {
		p, err = l.lib.Create(t)
	} else {
		var id uid.ID
		if id, err = uid.Parse(e.ID); err != nil {
			return nil, err
		}
		p, err = l.lib.CreateWithID(t, id)
	}
	if err != nil {
		return nil, err
	}
	if e.Name != "" {
		p.SetName(e.Name)
	}
	for name, v := range e.Properties {
		prop := p.Property(name)
		if prop == nil {
			return nil, fmt.Errorf("%w: %s", actor.ErrUnknownProperty, name)
		}
		if err := prop.Param.Set(v); err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
	}

	g, gerr := p.Game()
	if errors.Is(gerr, actor.ErrNotGameActor) {
		if e.Ownership != "" || e.UpdatePolicy != "" || len(e.Accept) > 0 {
			return nil, fmt.Errorf("%s: %w", e.Type, actor.ErrNotGameActor)
		}
		return p, nil
	}
	if e.Ownership != "" {
		o, err := actor.ParseOwnership(e.Ownership)
		if err != nil {
			return nil, err
		}
		g.SetOwnership(o)
	}
	if e.UpdatePolicy != "" {
		u, err := actor.ParseUpdatePolicy(e.UpdatePolicy)
		if err != nil {
			return nil, err
		}
		g.SetUpdatePolicy(u)
	}
	for _, name := range e.Accept {
		g.AddAcceptedProperty(name)
	}
	return p, nil
}
