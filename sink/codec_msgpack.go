package sink

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec encodes records as MessagePack.
type MsgpackCodec struct{}

func (MsgpackCodec) Encode(rec Record) ([]byte, error) {
	b, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("sink: encode %q: %w", rec.Label, err)
	}
	return b, nil
}

func (MsgpackCodec) EncodeBatch(recs []Record) ([]byte, error) {
	b, err := msgpack.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("sink: encode batch: %w", err)
	}
	return b, nil
}

func (MsgpackCodec) Decode(data []byte) (Record, error) {
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("sink: decode: %w", err)
	}
	return rec, nil
}

func (MsgpackCodec) DecodeBatch(data []byte) ([]Record, error) {
	var recs []Record
	if err := msgpack.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("sink: decode batch: %w", err)
	}
	return recs, nil
}

func (MsgpackCodec) Name() string { return CodecNameMsgpack }
