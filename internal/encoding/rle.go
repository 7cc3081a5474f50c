package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32
}

// EncodeRLE encodes vals as (value, run) varint pairs. Values are zigzag
// encoded so negative region ids stay short.
func EncodeRLE[T Integer](vals []T) []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(vals); {
		v := vals[i]
		run := 1
		for j := i + 1; j < len(vals) && vals[j] == v; j++ {
			run++
		}

		n := binary.PutVarint(tmp[:], int64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}
	return buf.Bytes()
}

// DecodeRLE reverses EncodeRLE. want is the expected element count; a stream
// that decodes to any other length is rejected.
func DecodeRLE[T Integer](raw []byte, want int) ([]T, error) {
	out := make([]T, 0, want)
	for i := 0; i < len(raw); {
		v, n := binary.Varint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		t := T(v)
		if int64(t) != v {
			return nil, fmt.Errorf("value %d out of range", v)
		}
		if run == 0 || run > uint64(want-len(out)) {
			return nil, fmt.Errorf("run of %d at %d overflows %d values", run, i, want)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, t)
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("decoded %d values, want %d", len(out), want)
	}
	return out, nil
}
