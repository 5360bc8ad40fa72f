package status

import "testing"

func TestNewServerReturnsNilWhenDisabled(t *testing.T) {
	s := NewServer(Config{Enabled: false}, nil, nil)
	if s != nil {
		t.Fatal("expected nil server when disabled")
	}
	if err := s.Run(nil); err != nil {
		t.Fatalf("Run on nil server should be a no-op, got %v", err)
	}
}

func TestNormalizeAddressDefaultsPort(t *testing.T) {
	cases := map[string]string{
		"":          "0.0.0.0:8090",
		":9090":     "0.0.0.0:9090",
		"localhost": "localhost:8090",
	}
	for in, want := range cases {
		if got := normalizeAddress(in); got != want {
			t.Errorf("normalizeAddress(%q) = %q, want %q", in, got, want)
		}
	}
}
