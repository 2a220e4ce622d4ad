package config

import (
	"os"
	"reflect"

	"github.com/naoina/toml"
	"github.com/pkg/errors"
)

// tomlSettings mirrors the relaxed field-matching rules geth-family
// nodes configure naoina/toml with, so struct field names pass through
// to config-file keys unchanged instead of being case-folded.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
}

// LoadFile reads a BlockchainConfig from a TOML file on disk, falling
// back to Default() for any field the file omits.
func LoadFile(path string) (BlockchainConfig, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: open %s", path)
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// SaveFile writes cfg to path in TOML form, for a participant that
// wants to pin down the parameters it launched with.
func SaveFile(path string, cfg BlockchainConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "config: create %s", path)
	}
	defer f.Close()

	return tomlSettings.NewEncoder(f).Encode(cfg)
}
