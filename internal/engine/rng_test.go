package engine

import (
	"testing"
)

func TestFloats(t *testing.T) {
	tests := []struct {
		name    string
		seeds   Seeds
		cursor  uint64
		count   int
		wantLen int
	}{
		{
			name:    "basic float generation",
			seeds:   Seeds{Server: "test_server_seed", Client: "test_client_seed", Nonce: 1},
			count:   1,
			wantLen: 1,
		},
		{
			name:    "multiple floats",
			seeds:   Seeds{Server: "test_server_seed", Client: "test_client_seed", Nonce: 1},
			count:   8,
			wantLen: 8,
		},
		{
			name:    "cursor boundary test",
			seeds:   Seeds{Server: "test_server_seed", Client: "test_client_seed", Nonce: 1},
			cursor:  31,
			count:   2,
			wantLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			floats := Floats(tt.seeds, tt.cursor, tt.count)
			if len(floats) != tt.wantLen {
				t.Errorf("Floats() returned %d floats, want %d", len(floats), tt.wantLen)
			}
			for i, f := range floats {
				if f < 0 || f >= 1 {
					t.Errorf("Float %d is out of range [0, 1): %f", i, f)
				}
			}
		})
	}
}

func TestDeterministicFloats(t *testing.T) {
	seeds := Seeds{Server: "deterministic_test", Client: "client_test", Nonce: 42}

	floats1 := Floats(seeds, 0, 5)
	floats2 := Floats(seeds, 0, 5)

	for i := range floats1 {
		if floats1[i] != floats2[i] {
			t.Errorf("Float %d differs: %f != %f", i, floats1[i], floats2[i])
		}
	}
}

func TestBytesToFloat(t *testing.T) {
	tests := []struct {
		name     string
		bytes    [4]byte
		expected float64
	}{
		{"all zeros", [4]byte{0, 0, 0, 0}, 0.0},
		{"specific pattern", [4]byte{128, 64, 32, 16}, 128.0/256.0 + 64.0/(256.0*256.0) + 32.0/(256.0*256.0*256.0) + 16.0/(256.0*256.0*256.0*256.0)},
		{"first byte only", [4]byte{1, 0, 0, 0}, 1.0 / 256.0},
		{"last byte only", [4]byte{0, 0, 0, 1}, 1.0 / (256.0 * 256.0 * 256.0 * 256.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bytesToFloat(tt.bytes); got != tt.expected {
				t.Errorf("bytesToFloat() = %.15f, want %.15f", got, tt.expected)
			}
		})
	}

	if got := bytesToFloat([4]byte{255, 255, 255, 255}); got >= 1 {
		t.Errorf("bytesToFloat(max) = %f, want < 1", got)
	}
}

func TestRoundsDiffer(t *testing.T) {
	bg1 := NewByteGenerator("test_server", "test_client", 123, 0)
	bg2 := NewByteGenerator("test_server", "test_client", 123, 32)

	same := true
	for i := 0; i < 32; i++ {
		if bg1.Next() != bg2.Next() {
			same = false
			break
		}
	}
	if same {
		t.Error("Expected different bytes from different rounds, but got same")
	}
}

func TestStreamMatchesFloats(t *testing.T) {
	seeds := Seeds{Server: "stream_server", Client: "stream_client", Nonce: 7}
	want := Floats(seeds, 0, 20)

	s := NewStream(seeds)
	for i, w := range want {
		if got := s.Float64(); got != w {
			t.Fatalf("Float64() #%d = %f, want %f", i, got, w)
		}
	}
	if s.Draws() != 20 {
		t.Errorf("Draws() = %d, want 20", s.Draws())
	}
}

func TestStreamIntNRange(t *testing.T) {
	s := NewStream(Seeds{Server: "range", Client: "range", Nonce: 1})
	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		v := s.IntN(6)
		if v < 0 || v >= 6 {
			t.Fatalf("IntN(6) = %d, out of range", v)
		}
		seen[v] = true
	}
	if len(seen) != 6 {
		t.Errorf("IntN(6) covered %d values in 2000 draws, want 6", len(seen))
	}
}

func TestStreamIntNPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("IntN(0) did not panic")
		}
	}()
	NewStream(Seeds{Server: "a", Client: "b"}).IntN(0)
}

func TestNewSeeds(t *testing.T) {
	a, err := NewSeeds()
	if err != nil {
		t.Fatalf("NewSeeds: %v", err)
	}
	b, err := NewSeeds()
	if err != nil {
		t.Fatalf("NewSeeds: %v", err)
	}
	if len(a.Server) != 2*serverSeedBytes {
		t.Errorf("server seed length = %d, want %d", len(a.Server), 2*serverSeedBytes)
	}
	if a.Server == b.Server {
		t.Error("two NewSeeds calls returned the same server seed")
	}
}

func TestHashSeed(t *testing.T) {
	if HashSeed("") != "" {
		t.Error("HashSeed(\"\") should be empty")
	}
	h := HashSeed("abc")
	if h != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("HashSeed(abc) = %s", h)
	}
}
