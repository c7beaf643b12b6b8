package rowstream

import (
	"strconv"

	"github.com/elliotchance/orderedmap/v2"
)

// Header maps field names to column positions in the order they appear in
// the source. It is shared by every Record read from the same stream.
type Header struct {
	index *orderedmap.OrderedMap[string, int]
}

// newHeader builds a Header from raw column names. Duplicate names get a
// numeric suffix (Customer, Customer_1, Customer_2) and empty names are
// replaced with Column_<position>.
func newHeader(names []string) *Header {
	h := &Header{index: orderedmap.NewOrderedMap[string, int]()}
	seen := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			name = "Column_" + strconv.Itoa(i+1)
		}
		base := name
		for {
			if _, exists := h.index.Get(name); !exists {
				break
			}
			seen[base]++
			name = base + "_" + strconv.Itoa(seen[base])
		}
		h.index.Set(name, i)
	}
	return h
}

// Fields returns the field names in column order.
func (h *Header) Fields() []string {
	fields := make([]string, 0, h.index.Len())
	for el := h.index.Front(); el != nil; el = el.Next() {
		fields = append(fields, el.Key)
	}
	return fields
}

// Len returns the number of fields.
func (h *Header) Len() int {
	return h.index.Len()
}

// Record is one row: an ordered mapping from field name to string value.
type Record struct {
	header *Header
	values []string
}

// NewRecord builds a Record from parallel field names and values.
// Missing values read as empty strings.
func NewRecord(fields []string, values []string) Record {
	return Record{header: newHeader(fields), values: values}
}

// Get returns the value of field and whether the field exists in the header.
func (r Record) Get(field string) (string, bool) {
	if r.header == nil {
		return "", false
	}
	i, ok := r.header.index.Get(field)
	if !ok {
		return "", false
	}
	if i >= len(r.values) {
		return "", true
	}
	return r.values[i], true
}

// Value returns the value of field, or "" when absent.
func (r Record) Value(field string) string {
	v, _ := r.Get(field)
	return v
}

// Fields returns the field names in column order.
func (r Record) Fields() []string {
	if r.header == nil {
		return nil
	}
	return r.header.Fields()
}

// Len returns the number of fields.
func (r Record) Len() int {
	if r.header == nil {
		return 0
	}
	return r.header.Len()
}
