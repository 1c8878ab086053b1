package service

import (
	"testing"
)

func TestParseToken(t *testing.T) {
	cases := []struct {
		in       string
		name     string
		value    string
		hasValue bool
	}{
		{"on", "on", "", false},
		{"OFF", "off", "", false},
		{"v=1.5", "v", "1.5", true},
		{"trace=-1", "trace", "-1", true},
		{"echo=hello", "echo", "hello", true},
		{"echo=", "echo", "", true},
		{"cmd=V0150", "cmd", "V0150", true},
		{" stat ", "stat", "", false},
	}
	for _, tc := range cases {
		d, err := ParseToken(tc.in)
		if err != nil {
			t.Fatalf("ParseToken(%q): %v", tc.in, err)
		}
		if d.Name != tc.name || d.Value != tc.value || d.HasValue != tc.hasValue {
			t.Fatalf("ParseToken(%q) = %+v, want {%s %s %v}", tc.in, d, tc.name, tc.value, tc.hasValue)
		}
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "=5", "v!=2", "a b=1"} {
		if _, err := ParseToken(in); err == nil {
			t.Fatalf("ParseToken(%q) accepted garbage", in)
		}
	}
}

func TestDirectiveNumbers(t *testing.T) {
	d, err := ParseToken("v=1.5")
	if err != nil {
		t.Fatal(err)
	}
	if v, err := d.Float(); err != nil || v != 1.5 {
		t.Fatalf("Float() = %v, %v", v, err)
	}

	d, err = ParseToken("trace=-1")
	if err != nil {
		t.Fatal(err)
	}
	if n, err := d.Int(); err != nil || n != -1 {
		t.Fatalf("Int() = %v, %v", n, err)
	}

	d, err = ParseToken("v")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Float(); err == nil {
		t.Fatal("Float() on a bare token must fail")
	}

	d, err = ParseToken("trace=abc")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Int(); err == nil {
		t.Fatal("Int() on a non-integer value must fail")
	}
}
