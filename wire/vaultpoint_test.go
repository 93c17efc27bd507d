package wire

import "testing"

func TestVaultStreamRoundTrip(t *testing.T) {
	points := []VaultPoint{
		{Address: 1, Time: 10, Payload: 99},
		{Address: 2, Time: 11, Payload: 3, Extra: []byte("xyz")},
	}
	var stream []byte
	for _, p := range points {
		stream = append(stream, EncodeVaultPoint(p)...)
	}
	decoded, err := DecodeVaultStream(stream)
	if err != nil {
		t.Fatalf("DecodeVaultStream: %v", err)
	}
	if len(decoded) != len(points) {
		t.Fatalf("got %d points, want %d", len(decoded), len(points))
	}
	for i, p := range points {
		if decoded[i].Address != p.Address || decoded[i].Time != p.Time || decoded[i].Payload != p.Payload {
			t.Errorf("point %d = %+v, want %+v", i, decoded[i], p)
		}
	}
}

func TestVaultStreamFirstWriteWins(t *testing.T) {
	first := EncodeVaultPoint(VaultPoint{Address: 1, Time: 5, Payload: 111})
	second := EncodeVaultPoint(VaultPoint{Address: 1, Time: 5, Payload: 222})
	stream := append(append([]byte{}, first...), second...)

	decoded, err := DecodeVaultStream(stream)
	if err != nil {
		t.Fatalf("DecodeVaultStream: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("got %d points, want 1 (duplicate timestamp discarded)", len(decoded))
	}
	if decoded[0].Payload != 111 {
		t.Fatalf("Payload = %d, want 111 (first write wins)", decoded[0].Payload)
	}
}

func TestVaultStreamTruncated(t *testing.T) {
	if _, err := DecodeVaultStream([]byte{1, 2, 3}); err != ErrTruncatedBurst {
		t.Fatalf("got %v, want ErrTruncatedBurst", err)
	}
}
