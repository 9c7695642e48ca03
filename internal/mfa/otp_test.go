package mfa

import "testing"

func TestGenerateCode_Range(t *testing.T) {
	for i := 0; i < 2000; i++ {
		c, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if c < MinCode || c > MaxCode {
			t.Fatalf("code %d out of [%d, %d]", c, MinCode, MaxCode)
		}
	}
}

func TestGenerateCode_Varies(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 50; i++ {
		c, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		seen[c] = true
	}
	if len(seen) < 2 {
		t.Error("50 codes were all identical")
	}
}

func TestHashCode(t *testing.T) {
	h := HashCode(123456)
	if len(h) != 64 {
		t.Errorf("hash length = %d, want 64", len(h))
	}
	if h != HashCode(123456) {
		t.Error("HashCode is not deterministic")
	}
	if h == HashCode(123457) {
		t.Error("different codes hash the same")
	}
}

func TestCodeEqual(t *testing.T) {
	stored := HashCode(482913)
	cases := []struct {
		code int
		want bool
	}{
		{482913, true},
		{482914, false},
		{100000, false},
		{999999, false},
		{0, false},
	}
	for _, tc := range cases {
		if got := CodeEqual(tc.code, stored); got != tc.want {
			t.Errorf("CodeEqual(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
	if CodeEqual(482913, "") {
		t.Error("empty stored hash must not match")
	}
}
