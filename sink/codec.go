package sink

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec defines the serialization contract for records.
type Codec interface {
	// Encode serializes one record.
	Encode(rec Record) ([]byte, error)

	// EncodeBatch serializes records as one array.
	EncodeBatch(recs []Record) ([]byte, error)

	// Decode deserializes one record.
	Decode(data []byte) (Record, error)

	// DecodeBatch deserializes an array of records.
	DecodeBatch(data []byte) ([]Record, error)

	// Name returns the codec identifier ("cbor", "msgpack", "json").
	Name() string
}

// Codec names, also used as the HTTP content subtype.
const (
	CodecNameCBOR    = "cbor"
	CodecNameMsgpack = "msgpack"
	CodecNameJSON    = "json"
)

// GetCodec returns a codec by name. Defaults to CBOR.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return MsgpackCodec{}
	case CodecNameJSON:
		return JSONCodec{}
	default:
		return CBORCodec{}
	}
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		panic(fmt.Sprintf("sink: cbor enc mode: %v", err))
	}
	cborEnc = em

	do := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	dm, err := do.DecMode()
	if err != nil {
		panic(fmt.Sprintf("sink: cbor dec mode: %v", err))
	}
	cborDec = dm
}

// CBORCodec encodes records as deterministic CBOR. Maps inside Payload
// and State decode to map[string]any.
type CBORCodec struct{}

func (CBORCodec) Encode(rec Record) ([]byte, error) {
	b, err := cborEnc.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("sink: encode %q: %w", rec.Label, err)
	}
	return b, nil
}

func (CBORCodec) EncodeBatch(recs []Record) ([]byte, error) {
	b, err := cborEnc.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("sink: encode batch: %w", err)
	}
	return b, nil
}

func (CBORCodec) Decode(data []byte) (Record, error) {
	var rec Record
	if err := cborDec.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("sink: decode: %w", err)
	}
	return rec, nil
}

func (CBORCodec) DecodeBatch(data []byte) ([]Record, error) {
	var recs []Record
	if err := cborDec.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("sink: decode batch: %w", err)
	}
	return recs, nil
}

func (CBORCodec) Name() string { return CodecNameCBOR }

// Encode marshals rec with the default CBOR codec.
func Encode(rec Record) ([]byte, error) { return CBORCodec{}.Encode(rec) }

// Decode unmarshals one record with the default CBOR codec.
func Decode(data []byte) (Record, error) { return CBORCodec{}.Decode(data) }

// EncodeBatch marshals recs with the default CBOR codec.
func EncodeBatch(recs []Record) ([]byte, error) { return CBORCodec{}.EncodeBatch(recs) }

// DecodeBatch unmarshals records with the default CBOR codec.
func DecodeBatch(data []byte) ([]Record, error) { return CBORCodec{}.DecodeBatch(data) }
