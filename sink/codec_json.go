package sink

import (
	"encoding/json"
	"fmt"
)

// JSONCodec encodes records as JSON.
type JSONCodec struct{}

func (JSONCodec) Encode(rec Record) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("sink: encode %q: %w", rec.Label, err)
	}
	return b, nil
}

func (JSONCodec) EncodeBatch(recs []Record) ([]byte, error) {
	b, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("sink: encode batch: %w", err)
	}
	return b, nil
}

func (JSONCodec) Decode(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("sink: decode: %w", err)
	}
	return rec, nil
}

func (JSONCodec) DecodeBatch(data []byte) ([]Record, error) {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("sink: decode batch: %w", err)
	}
	return recs, nil
}

func (JSONCodec) Name() string { return CodecNameJSON }
