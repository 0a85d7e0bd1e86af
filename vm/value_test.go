package vm

import (
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Number formatting
// ---------------------------------------------------------------------------

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-42, "-42"},
		{0.5, "0.5"},
		{0.1 + 0.2, "0.3"},
		{1.0 / 3, "0.333333333333333"},
		{0.00001, "0.00001"},
		{1.5e-7, "1.5e-7"},
		{123456789012345, "123456789012345"},
		{1e15, "1e+15"},
		{-2.5e20, "-2.5e+20"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

func TestToNumber(t *testing.T) {
	tests := []struct {
		name    string
		v       Value
		version int
		want    float64
		nan     bool
	}{
		{"undefined swf6", Undefined(), 6, 0, false},
		{"undefined swf7", Undefined(), 7, 0, true},
		{"null swf6", Null(), 6, 0, false},
		{"true", Bool(true), 6, 1, false},
		{"numeric string", String("3.5"), 6, 3.5, false},
		{"padded string", String(" 7 "), 6, 7, false},
		{"empty string swf6", String(""), 6, 0, true},
		{"garbage swf4", String("abc"), 4, 0, false},
		{"garbage swf5", String("abc"), 5, 0, true},
		{"hex swf6", String("0x1F"), 6, 31, false},
		{"infinity", String("-Infinity"), 6, math.Inf(-1), false},
		{"object", ObjectValue(NewObject()), 6, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.v.ToNumber(tt.version)
			if tt.nan {
				if !math.IsNaN(got) {
					t.Errorf("got %v, want NaN", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToStringByVersion(t *testing.T) {
	tests := []struct {
		v       Value
		version int
		want    string
	}{
		{Undefined(), 6, ""},
		{Undefined(), 7, "undefined"},
		{Null(), 6, "null"},
		{Bool(false), 6, "false"},
		{Number(-0.25), 6, "-0.25"},
		{ObjectValue(NewObject()), 6, "[object Object]"},
	}
	for _, tt := range tests {
		if got := tt.v.ToString(tt.version); got != tt.want {
			t.Errorf("%s.ToString(%d) = %q, want %q", tt.v, tt.version, got, tt.want)
		}
	}
}

func TestToBool(t *testing.T) {
	tests := []struct {
		v       Value
		version int
		want    bool
	}{
		{Undefined(), 7, false},
		{Number(math.NaN()), 6, false},
		{Number(-1), 6, true},
		{String("0"), 6, false},
		{String("0"), 7, true},
		{String("abc"), 6, false},
		{String("abc"), 7, true},
		{ObjectValue(NewObject()), 5, true},
	}
	for _, tt := range tests {
		if got := tt.v.ToBool(tt.version); got != tt.want {
			t.Errorf("%s.ToBool(%d) = %v, want %v", tt.v, tt.version, got, tt.want)
		}
	}
}

func TestToInt32Wraps(t *testing.T) {
	tests := []struct {
		in   float64
		want int32
	}{
		{3.9, 3},
		{-3.9, -3},
		{4294967295, -1},
		{2147483648, -2147483648},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}
	for _, tt := range tests {
		if got := toInt32(tt.in); got != tt.want {
			t.Errorf("toInt32(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestExceptionFlag(t *testing.T) {
	v := String("boom").Flagged()
	if !v.IsException() {
		t.Fatal("Flagged value not marked")
	}
	if u := v.Unflagged(); u.IsException() || u.RawString() != "boom" {
		t.Errorf("Unflagged = %s", u)
	}

	o := NewObject()
	o.SetMember("x", v)
	if got, _ := o.GetMember("x"); got.IsException() {
		t.Error("stored member kept the exception flag")
	}
}

func TestTypeOf(t *testing.T) {
	clip := newTestClip("c", nil)
	fn := NewNativeFunction("f", nil)
	tests := []struct {
		v    Value
		want string
	}{
		{Undefined(), "undefined"},
		{Null(), "null"},
		{Bool(true), "boolean"},
		{Number(1), "number"},
		{String(""), "string"},
		{ObjectValue(NewObject()), "object"},
		{ObjectValue(clip), "movieclip"},
		{ObjectValue(fn), "function"},
	}
	for _, tt := range tests {
		if got := tt.v.TypeOf(); got != tt.want {
			t.Errorf("typeof %s = %q, want %q", tt.v, got, tt.want)
		}
	}
}
