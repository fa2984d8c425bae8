package indicator

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// FieldsCodec stores a fixed set of form fields as the indicator's configuration.
type FieldsCodec struct {
	Indicator string
	Version   int
	Fields    []string
}

var _ Codec = (*FieldsCodec)(nil) // interface compliance check

func NewFieldsCodec(indicator string, version int, fields ...string) *FieldsCodec {
	if version < 1 {
		version = 1
	}
	return &FieldsCodec{Indicator: indicator, Version: version, Fields: fields}
}

func (c *FieldsCodec) DecodeConfigForEdit(p Payload) (FormValues, error) {
	if p.Version > c.Version {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "%s config v%d (max v%d)", c.Indicator, p.Version, c.Version)
	}
	var stored map[string]string
	if err := json.Unmarshal(p.Data, &stored); err != nil {
		return nil, errors.Wrapf(err, "decoding %s config", c.Indicator)
	}

	// only the fields this codec knows about reach the form
	values := make(FormValues, len(c.Fields))
	for _, fld := range c.Fields {
		if val, ok := stored[fld]; ok {
			values[fld] = val
		}
	}
	return values, nil
}

func (c *FieldsCodec) EncodeConfigFromForm(form FormValues) (Payload, error) {
	stored := make(map[string]string, len(c.Fields))
	for _, fld := range c.Fields {
		if val, ok := form[fld]; ok {
			stored[fld] = val
		}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return Payload{}, errors.Wrapf(err, "encoding %s config", c.Indicator)
	}
	return Payload{Indicator: c.Indicator, Version: c.Version, Data: data}, nil
}
