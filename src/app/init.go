package app

import (
	"github.com/go-faster/errors"
	"github.com/spf13/afero"

	"github.com/Blackdeer1524/HeapDB/src/cfg"
	"github.com/Blackdeer1524/HeapDB/src/pkg/utils"
)

// InitConfig writes the default configuration to path unless a file is
// already there, then creates the data directory it names.
func InitConfig(fs afero.Fs, path string) (cfg.Config, error) {
	exists, err := utils.IsFileExists(fs, path)
	if err != nil {
		return cfg.Config{}, err
	}
	if !exists {
		if err := cfg.WriteDefault(fs, path); err != nil {
			return cfg.Config{}, err
		}
	}

	c, err := cfg.LoadConfigFs(fs, path)
	if err != nil {
		return cfg.Config{}, err
	}
	if err := fs.MkdirAll(c.DataDir, 0o750); err != nil {
		return cfg.Config{}, errors.Wrapf(err, "create data dir %s", c.DataDir)
	}
	return c, nil
}
