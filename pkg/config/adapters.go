package config

import (
	"fmt"

	"github.com/marmos91/cityfs/pkg/adapter"
	"github.com/marmos91/cityfs/pkg/adapter/fuse"
	"github.com/marmos91/cityfs/pkg/adapter/webdav"
)

// CreateAdapters creates all enabled presentation adapters from the configuration.
//
// Adapters are returned in start order: FUSE first, then WebDAV. The server
// stops them in reverse.
//
// Returns:
//   - []adapter.Adapter: List of enabled adapters ready to be added to the server
//   - error: No adapter is enabled
func CreateAdapters(cfg *Config) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.FUSE.Enabled {
		adapters = append(adapters, fuse.New(cfg.Adapters.FUSE))
	}

	if cfg.Adapters.WebDAV.Enabled {
		adapters = append(adapters, webdav.New(cfg.Adapters.WebDAV))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
