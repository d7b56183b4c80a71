package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{0: "0.00", 5: "0.05", 1230: "12.30", -250: "-2.50"}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("%d: got %s, want %s", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var m Money
	for in, want := range map[string]int64{`12.5`: 1250, `"7,25"`: 725, `-3`: -300, `null`: 0} {
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if m.Cents != want {
			t.Fatalf("%s: got %d, want %d", in, m.Cents, want)
		}
	}
	if err := json.Unmarshal([]byte(`"ten"`), &m); err == nil {
		t.Fatal("expected error")
	}
	b, _ := json.Marshal(struct {
		A Money `json:"a"`
	}{Money{Cents: 1999}})
	if string(b) != `{"a":19.99}` {
		t.Fatalf("got %s", b)
	}
}

func TestPercentAndRatio(t *testing.T) {
	if got := Percent(Money{Cents: 1}, Money{Cents: 3}); got != 33.3 {
		t.Fatalf("got %v", got)
	}
	if got := Percent(Money{Cents: 10}, Money{}); got != 0 {
		t.Fatalf("zero whole should give 0, got %v", got)
	}
	if got := Ratio(Money{Cents: 150}, Money{Cents: 100}); got != 1.5 {
		t.Fatalf("got %v", got)
	}
}
