package indicator

import (
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	ErrEmptyPayload       = errors.New("empty config payload")
	ErrUnsupportedVersion = errors.New("unsupported config payload version")
)

// FormValues holds flat edit form values, keyed by form field name.
type FormValues map[string]string

// Payload is the stored configuration of one indicator.
// It is tagged with the indicator it belongs to and versioned by that indicator's codec.
type Payload struct {
	Indicator string          `json:"indicator"`
	Version   int             `json:"version"`
	Data      json.RawMessage `json:"data"`
}

func (p Payload) Marshal() ([]byte, error) {
	if p.Indicator == "" {
		return nil, errors.New("config payload: missing indicator tag")
	}
	if p.Version < 1 {
		return nil, errors.Errorf("config payload %s: invalid version %d", p.Indicator, p.Version)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrapf(err, "marshaling %s config payload", p.Indicator)
	}
	return b, nil
}

// UnmarshalPayload decodes a stored blob and checks it belongs to indicator.
func UnmarshalPayload(indicator string, blob []byte) (Payload, error) {
	if len(blob) == 0 {
		return Payload{}, ErrEmptyPayload
	}
	var p Payload
	if err := json.Unmarshal(blob, &p); err != nil {
		return Payload{}, errors.Wrapf(err, "unmarshaling %s config payload", indicator)
	}
	if p.Indicator != indicator {
		return Payload{}, errors.Errorf("config payload tagged %q, want %q", p.Indicator, indicator)
	}
	return p, nil
}
