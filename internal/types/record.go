// Package types holds the IONCON record shape and its mapping to and from the
// flat MI field maps of the alpha and numeric KPI tables.
package types

import (
	"strconv"
	"strings"

	"github.com/duke-git/lancet/v2/slice"

	"github.com/matthewbaird/ioncon/internal/mi"
)

// KPID is the discriminator of the IONCON extension table.
const KPID = "IONCON"

// Transmitted lengths of the description fields.
const (
	AL30MaxLen = 29
	AL31MaxLen = 14
)

// AL33Separator is always sent as AL33 on save and add.
const AL33Separator = ":"

// Key is the composite identity of a record.
type Key struct {
	PK01 string `json:"PK01"`
	PK02 string `json:"PK02"`
	PK03 string `json:"PK03"`
}

func (k Key) String() string { return k.PK01 + "/" + k.PK02 + "/" + k.PK03 }

// Complete reports whether all three key parts are set.
func (k Key) Complete() bool {
	return k.PK01 != "" && k.PK02 != "" && k.PK03 != ""
}

// Alpha holds the text payload fields.
type Alpha struct {
	AL30 string `json:"AL30"`
	AL31 string `json:"AL31"`
	AL32 string `json:"AL32"`
	AL33 string `json:"AL33"`
	AL34 string `json:"AL34"`
	AL35 string `json:"AL35"`
	AL36 string `json:"AL36"`
}

// Numeric holds the numeric payload fields. N096, N196 and N396 are flags
// stored as 1/0.
type Numeric struct {
	N096 bool  `json:"N096"`
	N196 bool  `json:"N196"`
	N296 int64 `json:"N296"`
	N396 bool  `json:"N396"`
	N496 int64 `json:"N496"`
	N596 int64 `json:"N596"`
	N696 int64 `json:"N696"`
	N796 int64 `json:"N796"`
	N896 int64 `json:"N896"`
	N996 int64 `json:"N996"`
}

// Record is one IONCON row: key, secondary key, alpha and numeric payload.
type Record struct {
	KPID string `json:"KPID"`
	Key
	PK04 string `json:"PK04"`
	Alpha
	Numeric
}

// NewRecord returns an empty IONCON record as used by the add form.
func NewRecord() Record {
	return Record{KPID: KPID}
}

// FilterByKPID keeps the rows whose KPID equals kpid, preserving order.
func FilterByKPID(items []mi.Record, kpid string) []mi.Record {
	return slice.Filter(items, func(_ int, item mi.Record) bool {
		return item["KPID"] == kpid
	})
}

// FromAlpha maps an alpha-table row.
func FromAlpha(row mi.Record) Record {
	return Record{
		KPID: row["KPID"],
		Key:  Key{PK01: row["PK01"], PK02: row["PK02"], PK03: row["PK03"]},
		PK04: row["PK04"],
		Alpha: Alpha{
			AL30: row["AL30"],
			AL31: row["AL31"],
			AL32: row["AL32"],
			AL33: row["AL33"],
			AL34: row["AL34"],
			AL35: row["AL35"],
			AL36: row["AL36"],
		},
	}
}

// FromAlphaRows maps alpha-table rows.
func FromAlphaRows(rows []mi.Record) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromAlpha(row))
	}
	return out
}

// DecodeNumeric maps a numeric-table row. Flags are true iff the value
// parses to the integer 1; other fields parse as integers, 0 when unparsable.
func DecodeNumeric(row mi.Record) Numeric {
	return Numeric{
		N096: DecodeFlag(row["N096"]),
		N196: DecodeFlag(row["N196"]),
		N296: ParseInt(row["N296"]),
		N396: DecodeFlag(row["N396"]),
		N496: ParseInt(row["N496"]),
		N596: ParseInt(row["N596"]),
		N696: ParseInt(row["N696"]),
		N796: ParseInt(row["N796"]),
		N896: ParseInt(row["N896"]),
		N996: ParseInt(row["N996"]),
	}
}

// DecodeFlag reports whether s parses to the integer 1.
func DecodeFlag(s string) bool {
	n, ok := parseLeadingInt(s)
	return ok && n == 1
}

// EncodeFlag is the wire form of a flag.
func EncodeFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseInt parses the leading integer of s ("12.50" is 12), or 0.
func ParseInt(s string) int64 {
	n, _ := parseLeadingInt(s)
	return n
}

func parseLeadingInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Outgoing returns the alpha payload as transmitted on save and add: AL30 and
// AL31 cut to their field lengths, AL33 fixed to the separator.
func (a Alpha) Outgoing() Alpha {
	a.AL30 = Truncate(a.AL30, AL30MaxLen)
	a.AL31 = Truncate(a.AL31, AL31MaxLen)
	a.AL33 = AL33Separator
	return a
}

// Fields renders the alpha payload as MI input fields.
func (a Alpha) Fields() mi.Request {
	return mi.Request{
		"AL30": a.AL30,
		"AL31": a.AL31,
		"AL32": a.AL32,
		"AL33": a.AL33,
		"AL34": a.AL34,
		"AL35": a.AL35,
		"AL36": a.AL36,
	}
}

// Fields renders the numeric payload as MI input fields.
func (n Numeric) Fields() mi.Request {
	f := func(v int64) string { return strconv.FormatInt(v, 10) }
	return mi.Request{
		"N096": EncodeFlag(n.N096),
		"N196": EncodeFlag(n.N196),
		"N296": f(n.N296),
		"N396": EncodeFlag(n.N396),
		"N496": f(n.N496),
		"N596": f(n.N596),
		"N696": f(n.N696),
		"N796": f(n.N796),
		"N896": f(n.N896),
		"N996": f(n.N996),
	}
}

// Fields renders the key as MI input fields, including the discriminator.
func (k Key) Fields() mi.Request {
	return mi.Request{
		"KPID": KPID,
		"PK01": k.PK01,
		"PK02": k.PK02,
		"PK03": k.PK03,
	}
}

// DeriveAddKey builds the key of a new record: PK01 is PK02 + "_" + AL35.
func DeriveAddKey(r Record) Key {
	return Key{PK01: r.PK02 + "_" + r.AL35, PK02: r.PK02, PK03: r.PK03}
}

// Value returns the wire form of the named field.
func (r Record) Value(field string) (string, bool) {
	switch field {
	case "KPID":
		return r.KPID, true
	case "PK04":
		return r.PK04, true
	}
	for _, m := range []mi.Request{r.Key.Fields(), r.Alpha.Fields(), r.Numeric.Fields()} {
		if v, ok := m[field]; ok && field != "KPID" {
			return v, true
		}
	}
	return "", false
}
