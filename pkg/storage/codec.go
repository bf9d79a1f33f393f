package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
)

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 0, 10)
	k = append(k, 't', ':')
	var s [8]byte
	binary.BigEndian.PutUint64(s[:], seq)
	return append(k, s[:]...)
}

func seqOfKey(k []byte) (uint64, bool) {
	if len(k) != 10 || k[0] != 't' || k[1] != ':' {
		return 0, false
	}
	return binary.BigEndian.Uint64(k[2:]), true
}
