package wire

import (
	"github.com/kallahq/kalla/internal/udf"
)

// TagUDFRef tags a scalar UDF reference: §4.2's "UDF codec" ships a UDF by
// name only, never by closure — the remote side resolves the name against
// its own process-wide udf registry.
const TagUDFRef byte = 0x03

// udfRef is the value RegisterUDFCodec's encoder recognizes and its decoder
// reconstructs: a named reference into the udf package's registry rather
// than the function value itself.
type udfRef struct {
	Name string
}

// NewUDFRef wraps name as a shippable UDF reference.
func NewUDFRef(name string) udfRef { return udfRef{Name: name} }

type udfRefDTO struct {
	Name string `json:"name"`
}

// RegisterUDFCodec wires the name-only UDF reference into codec. Encoding a
// udfRef never fails. Decoding resolves the name against the local udf
// registry at decode time; an unknown name delegates to the inner codec
// rather than failing outright, per §4.2's UDF-dispatch rule.
func RegisterUDFCodec(codec *Codec) {
	codec.Register(TagUDFRef,
		func(v any) ([]byte, bool) {
			ref, ok := v.(udfRef)
			if !ok {
				return nil, false
			}
			payload, err := jsonEncode(udfRefDTO{Name: ref.Name})
			if err != nil {
				return nil, false
			}
			return payload, true
		},
		func(payload []byte) (any, error) {
			var dto udfRefDTO
			if err := jsonDecode(payload, &dto); err != nil {
				return nil, err
			}
			fn, ok := udf.Lookup(dto.Name)
			if ok {
				return fn, nil
			}
			full := make([]byte, 0, 1+len(payload))
			full = append(full, TagUDFRef)
			full = append(full, payload...)
			return codec.inner.Decode(full)
		},
	)
}
