package types

import (
	"strconv"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/matthewbaird/ioncon/internal/mi"
)

func TestFilterByKPID(t *testing.T) {
	items := []mi.Record{
		{"KPID": "IONCON", "PK01": "A"},
		{"KPID": "OTHER", "PK01": "B"},
	}
	got := FilterByKPID(items, KPID)
	assert.Equal(t, []mi.Record{{"KPID": "IONCON", "PK01": "A"}}, got)
}

func TestProperty_FilterByKPID(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kpids := rapid.SliceOf(rapid.SampledFrom([]string{"IONCON", "OTHER", "ioncon", "IONCON2", ""})).Draw(t, "kpids")
		items := make([]mi.Record, len(kpids))
		for i, k := range kpids {
			items[i] = mi.Record{"KPID": k, "PK01": string(rune('a' + i%26))}
		}

		got := FilterByKPID(items, KPID)

		var want []mi.Record
		for _, it := range items {
			if it["KPID"] == KPID {
				want = append(want, it)
			}
		}
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i := range got {
			if got[i]["KPID"] != KPID {
				t.Fatalf("row %d has KPID %q", i, got[i]["KPID"])
			}
			if got[i]["PK01"] != want[i]["PK01"] {
				t.Fatalf("order not preserved at %d", i)
			}
		}
	})
}

func TestDecodeFlag(t *testing.T) {
	cases := map[string]bool{
		"1":        true,
		" 1 ":      true,
		"1.000000": true,
		"+1":       true,
		"0":        false,
		"2":        false,
		"":         false,
		"yes":      false,
		"-1":       false,
		"10":       false,
	}
	for in, want := range cases {
		assert.Equal(t, want, DecodeFlag(in), "DecodeFlag(%q)", in)
	}
}

func TestProperty_DecodeFlagMatchesInteger(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Int64Range(-1000, 1000).Draw(t, "n")
		frac := rapid.SampledFrom([]string{"", ".0", ".5", ".000000"}).Draw(t, "frac")
		s := strconv.FormatInt(n, 10) + frac
		if got := DecodeFlag(s); got != (n == 1) {
			t.Fatalf("DecodeFlag(%q) = %v", s, got)
		}
	})
}

func TestDecodeNumeric(t *testing.T) {
	got := DecodeNumeric(mi.Record{
		"N096": "1", "N196": "0", "N296": "42", "N396": "1.000000",
		"N496": "7.9", "N596": "", "N696": "x", "N796": "-3", "N896": "0", "N996": "12",
	})
	assert.Equal(t, Numeric{
		N096: true, N196: false, N296: 42, N396: true,
		N496: 7, N596: 0, N696: 0, N796: -3, N896: 0, N996: 12,
	}, got)
}

func TestProperty_Truncation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := Alpha{
			AL30: rapid.String().Draw(t, "al30"),
			AL31: rapid.String().Draw(t, "al31"),
			AL33: rapid.String().Draw(t, "al33"),
		}
		out := a.Outgoing()

		check := func(name, in, got string, n int) {
			r := []rune(in)
			if len(r) > n {
				if got != string(r[:n]) {
					t.Fatalf("%s = %q, want first %d characters of %q", name, got, n, in)
				}
			} else if got != in {
				t.Fatalf("%s changed: %q -> %q", name, in, got)
			}
			if utf8.RuneCountInString(got) > n {
				t.Fatalf("%s too long: %q", name, got)
			}
		}
		check("AL30", a.AL30, out.AL30, AL30MaxLen)
		check("AL31", a.AL31, out.AL31, AL31MaxLen)
		if out.AL33 != AL33Separator {
			t.Fatalf("AL33 = %q", out.AL33)
		}
	})
}

func TestDeriveAddKey(t *testing.T) {
	r := NewRecord()
	r.PK02 = "DIV1"
	r.AL35 = "ABC"
	r.PK03 = "10"
	k := DeriveAddKey(r)
	assert.Equal(t, "DIV1_ABC", k.PK01)
	assert.Equal(t, "DIV1", k.PK02)
	assert.Equal(t, "10", k.PK03)
}

func TestNumericFields(t *testing.T) {
	n := Numeric{N096: true, N196: false, N296: 5, N396: true, N996: -2}
	f := n.Fields()
	assert.Equal(t, "1", f["N096"])
	assert.Equal(t, "0", f["N196"])
	assert.Equal(t, "5", f["N296"])
	assert.Equal(t, "1", f["N396"])
	assert.Equal(t, "-2", f["N996"])
	assert.Len(t, f, 10)
}

func TestFromAlpha(t *testing.T) {
	r := FromAlpha(mi.Record{"KPID": "IONCON", "PK01": "A", "PK02": "B", "PK03": "C", "AL30": "desc"})
	assert.Equal(t, Key{PK01: "A", PK02: "B", PK03: "C"}, r.Key)
	assert.Equal(t, "desc", r.AL30)
	assert.True(t, r.Key.Complete())
	assert.False(t, Key{PK01: "A"}.Complete())
}

func TestRecordValue(t *testing.T) {
	r := NewRecord()
	r.PK01 = "A"
	r.AL30 = "desc"
	r.N096 = true
	r.N296 = 7

	cases := map[string]string{"KPID": "IONCON", "PK01": "A", "AL30": "desc", "N096": "1", "N296": "7", "PK04": ""}
	for field, want := range cases {
		got, ok := r.Value(field)
		assert.True(t, ok, field)
		assert.Equal(t, want, got, field)
	}
	_, ok := r.Value("XX99")
	assert.False(t, ok)
}
