package collection

import "encoding/json"

// Encode produces the canonical JSON encoding of c: the exact bytes
// persisted as the primary table's value blob. Struct field order (Go
// declaration order, preserved by encoding/json) plus the fixed Time
// layout make this stable across repeated encodes of an unchanged value,
// which replace semantics and cache consistency depend on.
func Encode(c Collection) ([]byte, error) {
	return json.Marshal(c)
}

// Decode reverses Encode. A decode failure is reported to callers as
// index.ErrCorrupt by the caller (this package stays free of
// the index package's error taxonomy so it has no dependency on it).
func Decode(raw []byte) (Collection, error) {
	var c Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		return Collection{}, err
	}
	return c, nil
}
