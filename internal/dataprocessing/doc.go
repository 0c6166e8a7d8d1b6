// Package dataprocessing turns raw attendance uploads into typed records.
//
// The pipeline has three layers: a lenient RFC4180-style line tokenizer, a
// document parser that validates headers and applies the security guard, and
// a row normalizer that coerces cells into AttendanceRecord values with
// derived ISO week fields. Excel workbooks are accepted by flattening the
// first sheet into the same header/row shape.
//
// Parsing is fail-closed: the first invalid row aborts the whole document so
// a partially broken upload never produces a partially committed dataset.
package dataprocessing
