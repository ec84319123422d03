package dataset

import (
	"context"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/vo/logging"
	"go.viam.com/vo/utils"
)

// SourceConfig selects a registered source type and holds its attributes.
type SourceConfig struct {
	Type       string             `json:"type"`
	Attributes utils.AttributeMap `json:"attributes"`
}

// A SourceConstructor opens a source from its attributes.
type SourceConstructor func(ctx context.Context, attributes utils.AttributeMap, logger logging.Logger) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]SourceConstructor{}
)

// RegisterSourceType registers a source type. It panics if typ is already registered.
func RegisterSourceType(typ string, constructor SourceConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[typ]; ok {
		panic(errors.Errorf("trying to register two sources with same type %q", typ))
	}
	if constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for source type %q", typ))
	}
	registry[typ] = constructor
}

// RegisteredSourceTypes returns the registered source types, sorted.
func RegisteredSourceTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for typ := range registry {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// NewSource opens the source described by cfg.
func NewSource(ctx context.Context, cfg SourceConfig, logger logging.Logger) (Source, error) {
	registryMu.RLock()
	constructor, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown dataset type %q, expected one of %v", cfg.Type, RegisteredSourceTypes())
	}
	src, err := constructor(ctx, cfg.Attributes, logger.Sublogger(cfg.Type))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s dataset", cfg.Type)
	}
	return src, nil
}

// DecodeAttributes decodes attributes into the struct pointed to by target, using its json tags.
func DecodeAttributes(attributes utils.AttributeMap, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(attributes)
}
