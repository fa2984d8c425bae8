package indicator

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/trezcool/engagement/core"
)

type (
	registryFile struct {
		Indicators []indicatorEntry `toml:"indicator"`
	}

	indicatorEntry struct {
		Name    string   `toml:"name"`
		Enabled *bool    `toml:"enabled"`
		Version int      `toml:"version"`
		Fields  []string `toml:"fields"`
	}
)

// LoadRegistry builds a Registry from a TOML file of [[indicator]] tables.
// Indicators are enabled unless `enabled = false`; indicators listing `fields` get a FieldsCodec.
func LoadRegistry(path string) (*Registry, error) {
	var file registryFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, errors.Wrapf(err, "decoding indicators file %s", path)
	}
	return newRegistryFromEntries(file.Indicators)
}

// ParseRegistry is LoadRegistry for in-memory TOML.
func ParseRegistry(data string) (*Registry, error) {
	var file registryFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, errors.Wrap(err, "decoding indicators")
	}
	return newRegistryFromEntries(file.Indicators)
}

func newRegistryFromEntries(entries []indicatorEntry) (*Registry, error) {
	reg := NewRegistry()
	for _, e := range entries {
		name := core.CleanString(e.Name)
		var codec Codec
		if len(e.Fields) > 0 {
			codec = NewFieldsCodec(name, e.Version, e.Fields...)
		}
		if err := reg.Register(name, codec); err != nil {
			return nil, err
		}
		if e.Enabled != nil && !*e.Enabled {
			if err := reg.SetEnabled(name, false); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}
