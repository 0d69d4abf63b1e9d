package persist

import "sync"

// MemorySink is an in-process, mutex-protected row recorder used by
// tests and by the demo CLI when no NATS URL is configured.
type MemorySink struct {
	mu   sync.Mutex
	rows map[string][]map[string]interface{}
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{rows: make(map[string][]map[string]interface{})}
}

// NewDatum implements Sink.
func (s *MemorySink) NewDatum(table string) RowBuilder {
	return &memoryRow{sink: s, table: table, fields: make(map[string]interface{})}
}

// Rows returns a copy of the rows recorded so far for table, in
// recording order.
func (s *MemorySink) Rows(table string) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]interface{}, len(s.rows[table]))
	copy(out, s.rows[table])
	return out
}

type memoryRow struct {
	sink   *MemorySink
	table  string
	fields map[string]interface{}
}

func (r *memoryRow) AddVal(field string, value interface{}) RowBuilder {
	r.fields[field] = value
	return r
}

func (r *memoryRow) Record() {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	r.sink.rows[r.table] = append(r.sink.rows[r.table], r.fields)
}
