package scpi

import "testing"

func TestParseNumberPlain(t *testing.T) {
	v := parseNumber("3.25")
	if v.Type != TypeNumber {
		t.Fatalf("Type = %v, want TypeNumber", v.Type)
	}
	if v.Number != 3.25 {
		t.Fatalf("Number = %v, want 3.25", v.Number)
	}
}

func TestParseNumberSign(t *testing.T) {
	v := parseNumber("-12")
	if v.Type != TypeNumber || v.Number != -12 {
		t.Fatalf("parseNumber(-12) = %+v", v)
	}
}

func TestParseNumberScientific(t *testing.T) {
	v := parseNumber("1.5e3")
	if v.Type != TypeNumber {
		t.Fatalf("Type = %v, want TypeNumber", v.Type)
	}
	if v.Number != 1500 {
		t.Fatalf("Number = %v, want 1500", v.Number)
	}
}

func TestParseNumberSISuffixMegaVsMilli(t *testing.T) {
	mega := parseNumber("1M")
	if mega.Type != TypeNumber || mega.Number != 1e6 {
		t.Fatalf("1M = %+v, want 1e6", mega)
	}
	milli := parseNumber("1m")
	if milli.Type != TypeNumber || milli.Number != 1e-3 {
		t.Fatalf("1m = %+v, want 1e-3", milli)
	}
}

func TestParseNumberSISuffixCaseInsensitiveOtherwise(t *testing.T) {
	lower := parseNumber("2k")
	upper := parseNumber("2K")
	if lower.Number != 2000 || upper.Number != 2000 {
		t.Fatalf("2k = %v, 2K = %v, want both 2000", lower.Number, upper.Number)
	}
}

func TestParseNumberRejectsGarbage(t *testing.T) {
	cases := []string{"", "abc", "1.2.3", "1e", "--1", "1Q"}
	for _, c := range cases {
		if v := parseNumber(c); v.Type != TypeInvalid {
			t.Fatalf("parseNumber(%q) = %+v, want TypeInvalid", c, v)
		}
	}
}

func TestParseStringEscaping(t *testing.T) {
	v := parseString(`"abc\"def"`)
	if v.Type != TypeString {
		t.Fatalf("Type = %v, want TypeString", v.Type)
	}
	if v.Text != `abc"def` {
		t.Fatalf("Text = %q, want %q", v.Text, `abc"def`)
	}
}

func TestParseStringRequiresQuotes(t *testing.T) {
	if v := parseString("abc"); v.Type != TypeInvalid {
		t.Fatalf("parseString without quotes = %+v, want TypeInvalid", v)
	}
}

func TestParseStringUnterminatedEscape(t *testing.T) {
	if v := parseString(`"abc\`); v.Type != TypeInvalid {
		t.Fatalf("parseString with dangling escape = %+v, want TypeInvalid", v)
	}
}

func TestParseBoolean(t *testing.T) {
	cases := map[string]bool{"1": true, "TRUE": true, "true": true, "0": false, "FALSE": false}
	for raw, want := range cases {
		v := parseBoolean(raw)
		if v.Type != TypeBoolean || v.Boolean != want {
			t.Fatalf("parseBoolean(%q) = %+v, want %v", raw, v, want)
		}
	}
	if v := parseBoolean("maybe"); v.Type != TypeInvalid {
		t.Fatalf("parseBoolean(maybe) = %+v, want TypeInvalid", v)
	}
}

func TestParseEnumCaseInsensitive(t *testing.T) {
	descriptor := ParameterDescriptor{Type: TypeEnum, Choices: []string{"AC", "DC"}}
	v := parseEnum(descriptor, "dc")
	if v.Type != TypeEnum || v.Text != "DC" {
		t.Fatalf("parseEnum(dc) = %+v, want DC", v)
	}
	if v := parseEnum(descriptor, "XY"); v.Type != TypeInvalid {
		t.Fatalf("parseEnum(XY) = %+v, want TypeInvalid", v)
	}
}

func TestParseParameterArbitraryData(t *testing.T) {
	descriptor := ParameterDescriptor{Type: TypeArbitraryData}
	v := ParseParameter(descriptor, "\x01\x02\x03")
	if v.Type != TypeArbitraryData {
		t.Fatalf("Type = %v, want TypeArbitraryData", v.Type)
	}
	if string(v.Data) != "\x01\x02\x03" {
		t.Fatalf("Data = %v", v.Data)
	}
}
