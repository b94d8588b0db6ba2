// Package inspection defines the fire-safety inspection record and the error
// taxonomy shared by the store, query and state layers.
//
// A Record is immutable once persisted. Its ID is assigned by the store on
// insert and is zero for a record that has not been written yet. Equipment
// and notes are opaque caller-formatted text; the only field validated is
// the location, which must not be blank.
package inspection
