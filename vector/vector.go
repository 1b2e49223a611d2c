package vector

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/viant/sqlite-hnsw/kernel"
	"github.com/viant/sqlite-hnsw/vecerr"
)

// ElementType is the storage type of a vector's elements.
type ElementType int

const (
	F32 ElementType = iota
	BF16
	F16
)

// Size returns sizeof(T) in bytes, the unit the blob codec is defined in
// terms of.
func (t ElementType) Size() int {
	switch t {
	case F32:
		return 4
	case BF16, F16:
		return 2
	default:
		return 0
	}
}

func (t ElementType) String() string {
	switch t {
	case F32:
		return "float32"
	case BF16:
		return "bfloat16"
	case F16:
		return "float16"
	default:
		return "unknown"
	}
}

// ParseElementType parses the textual element type used in a vector-space
// declaration.
func ParseElementType(s string) (ElementType, error) {
	switch s {
	case "float32":
		return F32, nil
	case "bfloat16":
		return BF16, nil
	case "float16":
		return F16, nil
	default:
		return 0, vecerr.New(vecerr.InvalidArgument, "element_type", fmt.Sprintf("unknown element type %q", s))
	}
}

// Vector is the owning representation of a dense element sequence. Elements
// are always held widened to float32 in memory regardless of the declared
// storage type; narrowing happens only when producing a blob.
type Vector struct {
	Type ElementType
	Data []float32
}

// View is a borrowed, non-owning representation sharing the same codec
// surface as Vector. It is valid only for the lifetime of the backing
// buffer; callers must not retain a View past that lifetime.
type View struct {
	Type ElementType
	Data []float32
}

// Dim returns the number of elements.
func (v Vector) Dim() int { return len(v.Data) }
func (v View) Dim() int   { return len(v.Data) }

// FromJSON parses a bare JSON array of numeric values into a Vector of the
// given element type. An empty array is legal and yields dim 0.
func FromJSON(t ElementType, text []byte) (Vector, error) {
	var raw []json.Number
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Vector{}, vecerr.Wrap(vecerr.InvalidArgument, "from_json", "not a JSON array of numbers", err)
	}
	data := make([]float32, len(raw))
	for i, n := range raw {
		f, err := n.Float64()
		if err != nil {
			return Vector{}, vecerr.Wrap(vecerr.InvalidArgument, "from_json", fmt.Sprintf("element %d is not numeric", i), err)
		}
		data[i] = float32(f)
	}
	return Vector{Type: t, Data: data}, nil
}

// FromBlob interprets bytes as little-endian contiguous elements of T.
func FromBlob(t ElementType, data []byte) (Vector, error) {
	size := t.Size()
	if size == 0 {
		return Vector{}, vecerr.New(vecerr.InvalidArgument, "from_blob", "unknown element type")
	}
	if len(data)%size != 0 {
		return Vector{}, vecerr.New(vecerr.InvalidArgument, "from_blob", fmt.Sprintf("blob length %d is not a multiple of sizeof(T)=%d", len(data), size))
	}
	n := len(data) / size
	out := make([]float32, n)
	switch t {
	case F32:
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(data[i*4:])
			out[i] = math.Float32frombits(bits)
		}
	case BF16:
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint16(data[i*2:])
			out[i] = kernel.BF16(bits).Float32()
		}
	case F16:
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint16(data[i*2:])
			out[i] = kernel.F16(bits).Float32()
		}
	}
	return Vector{Type: t, Data: out}, nil
}

// ToBlob encodes the vector as dim*sizeof(T) contiguous little-endian bytes,
// demoting to the declared storage type if it is not float32.
func (v Vector) ToBlob() []byte { return encodeBlob(v.Type, v.Data) }

// ToBlob encodes a View the same way Vector does, into a newly allocated
// byte slice; the result does not share memory with the View's data.
func (v View) ToBlob() []byte { return encodeBlob(v.Type, v.Data) }

func encodeBlob(t ElementType, data []float32) []byte {
	size := t.Size()
	out := make([]byte, len(data)*size)
	switch t {
	case F32:
		for i, f := range data {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
		}
	case BF16:
		for i, f := range data {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(kernel.Float32ToBF16(f)))
		}
	case F16:
		for i, f := range data {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(kernel.Float32ToF16(f)))
		}
	}
	return out
}

// ToJSON emits a JSON array; half-precision elements are promoted to f32
// decimal form for serialization (they already are, in memory).
func (v Vector) ToJSON() ([]byte, error) { return json.Marshal(v.Data) }

// ToJSON mirrors Vector.ToJSON for a borrowed View.
func (v View) ToJSON() ([]byte, error) { return json.Marshal(v.Data) }

// Normalize returns a new, unit-L2-norm vector; v is left untouched.
func (v Vector) Normalize() Vector {
	return Vector{Type: v.Type, Data: kernel.Normalized(v.Data)}
}

// NormalizeInPlace rescales v to unit L2 norm in place.
func (v *Vector) NormalizeInPlace() { kernel.Normalize(v.Data) }
