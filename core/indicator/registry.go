// Package indicator holds the capability registry of engagement indicators.
//
// Indicators compute their raw scores elsewhere; this package only knows how to
// translate each indicator's stored configuration to and from edit form values.
package indicator

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/engagement/core"
)

var ErrNotFound = core.NewNotFoundError("indicator")

// Codec translates an indicator's configuration between its stored payload and edit form values.
type Codec interface {
	DecodeConfigForEdit(p Payload) (FormValues, error)
	EncodeConfigFromForm(form FormValues) (Payload, error)
}

// Registry lists the available indicators in enumeration order.
type Registry struct {
	mu       sync.RWMutex
	names    []string
	codecs   map[string]Codec
	disabled map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		codecs:   make(map[string]Codec),
		disabled: make(map[string]bool),
	}
}

// Register adds an enabled indicator. codec may be nil for indicators without configuration.
func (r *Registry) Register(name string, codec Codec) error {
	name = core.CleanString(name)
	if name == "" {
		return errors.New("registering indicator: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.codecs[name]; ok {
		return errors.Errorf("registering indicator: %q already registered", name)
	}
	r.names = append(r.names, name)
	r.codecs[name] = codec
	return nil
}

// Names returns all registered indicators, in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Enabled returns the enabled indicators, in registration order.
func (r *Registry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.names))
	for _, name := range r.names {
		if !r.disabled[name] {
			names = append(names, name)
		}
	}
	return names
}

func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.codecs[name]; !ok {
		return ErrNotFound
	}
	if enabled {
		delete(r.disabled, name)
	} else {
		r.disabled[name] = true
	}
	return nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.codecs[name]
	return ok
}

// Codec returns the codec of name. ok is false when the indicator is unknown or has no configuration.
func (r *Registry) Codec(name string) (codec Codec, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codec = r.codecs[name]
	return codec, codec != nil
}
