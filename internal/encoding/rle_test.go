package encoding

import "testing"

func TestRLERoundTrip(t *testing.T) {
	in := make([]int32, 0, 200)
	in = append(in, -1, -1, 0, 0, 0, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 100000, 100000)

	enc := EncodeRLE(in)
	out, err := DecodeRLE[int32](enc, len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
	if len(enc) >= len(in) {
		t.Fatalf("runs should compress: %d bytes for %d values", len(enc), len(in))
	}
}

func TestRLEUnsigned(t *testing.T) {
	in := []uint32{0xffffffff, 0xffffffff, 1}
	out, err := DecodeRLE[uint32](EncodeRLE(in), 3)
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if out[0] != 0xffffffff || out[2] != 1 {
		t.Fatalf("out=%v", out)
	}
}

func TestRLERejectsBadInput(t *testing.T) {
	enc := EncodeRLE([]uint8{1, 1, 1, 2})
	if _, err := DecodeRLE[uint8](enc, 3); err == nil {
		t.Fatalf("expected length error")
	}
	if _, err := DecodeRLE[uint8](enc, 5); err == nil {
		t.Fatalf("expected short stream error")
	}
	if _, err := DecodeRLE[uint8](EncodeRLE([]int32{300}), 1); err == nil {
		t.Fatalf("expected range error")
	}
	if _, err := DecodeRLE[uint8]([]byte{0x80}, 1); err == nil {
		t.Fatalf("expected varint error")
	}
	if out, err := DecodeRLE[uint8](nil, 0); err != nil || len(out) != 0 {
		t.Fatalf("empty stream out=%v err=%v", out, err)
	}
}
