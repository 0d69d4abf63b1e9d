// Package persist defines the kernel's persistence boundary: a
// Datum/row-builder recorder the scheduler writes simulation rows
// through, kept deliberately ignorant of any concrete resource
// taxonomy or storage schema.
package persist

// RowBuilder accumulates named fields for one row before Record()
// commits it to the sink that created it. AddVal returns the receiver
// so calls can be chained.
type RowBuilder interface {
	AddVal(field string, value interface{}) RowBuilder
	Record()
}

// Sink is the persistence boundary the kernel writes rows through.
// NewDatum starts a new row destined for table.
type Sink interface {
	NewDatum(table string) RowBuilder
}
