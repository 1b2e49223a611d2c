// Package vector defines the owning (Vector) and borrowed (View)
// representations of a dense element sequence, along with their three
// external codecs: raw little-endian blob, JSON array, and in-memory
// contiguous buffer.
package vector
