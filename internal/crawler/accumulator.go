package crawler

// Accumulator collects page records in the order pages were processed.
type Accumulator struct {
	records   []PageRecord
	textBytes int64
}

// Append adds a record at the end.
func (a *Accumulator) Append(record PageRecord) {
	a.records = append(a.records, record)
	a.textBytes += int64(len(record.Text))
}

// All returns a copy of the records in order.
func (a *Accumulator) All() []PageRecord {
	out := make([]PageRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Len returns the number of records.
func (a *Accumulator) Len() int {
	return len(a.records)
}

// TextBytes returns the total size of all record texts.
func (a *Accumulator) TextBytes() int64 {
	return a.textBytes
}
