package value

import (
	"fmt"

	"github.com/lunahost/luna/internal/core/handle"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindNumber
	KindString
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindRef:
		return "ref"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// RefKind names the arena a Ref points into.
type RefKind uint8

const (
	RefInvalid RefKind = iota
	RefHook
	RefEdict
	RefEntity
	RefHookEntity
	RefHookToken
	RefInfoBuffer
	RefVector
	RefTrace
	RefTimer
	RefDriver
	RefConnection
	RefStatement
	RefResultSet
)

var refNames = [...]string{
	RefInvalid:    "invalid",
	RefHook:       "hook",
	RefEdict:      "edict",
	RefEntity:     "entity",
	RefHookEntity: "hook_entity",
	RefHookToken:  "hook_token",
	RefInfoBuffer: "info_buffer",
	RefVector:     "vector",
	RefTrace:      "trace",
	RefTimer:      "timer",
	RefDriver:     "driver",
	RefConnection: "connection",
	RefStatement:  "statement",
	RefResultSet:  "result_set",
}

func (k RefKind) String() string {
	if int(k) < len(refNames) {
		return refNames[k]
	}
	return fmt.Sprintf("RefKind(%d)", uint8(k))
}

// Ref is an opaque handle handed to scripts. It never carries a pointer;
// the owning registry resolves ID and rejects stale generations.
type Ref struct {
	Kind RefKind
	ID   handle.ID
}

func (r Ref) Valid() bool { return r.Kind != RefInvalid && !r.ID.IsZero() }

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d/%d", r.Kind, r.ID.Index(), r.ID.Generation())
}

// Value is the tagged union crossing the native boundary.
type Value struct {
	kind Kind
	b    bool
	i    int64
	n    float64
	s    string
	ref  Ref
}

func Nil() Value                 { return Value{} }
func FromBool(b bool) Value      { return Value{kind: KindBool, b: b} }
func FromInt(i int64) Value      { return Value{kind: KindInt, i: i} }
func FromNumber(n float64) Value { return Value{kind: KindNumber, n: n} }
func FromString(s string) Value  { return Value{kind: KindString, s: s} }
func FromRef(r Ref) Value {
	if !r.Valid() {
		return Value{}
	}
	return Value{kind: KindRef, ref: r}
}

func (v Value) Kind() Kind  { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNone }
func (v Value) Bool() bool  { return v.kind == KindBool && v.b }
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindNumber:
		return fmt.Sprintf("%g", v.n)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindRef:
		return v.ref.String()
	}
	return ""
}

// Int returns the value as an integer. Numbers are truncated.
func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindNumber:
		return int64(v.n)
	}
	return 0
}

func (v Value) Number() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindNumber:
		return v.n
	}
	return 0
}

// Ref returns the handle and whether v holds one of kind k.
func (v Value) Ref(k RefKind) (Ref, bool) {
	if v.kind != KindRef || v.ref.Kind != k {
		return Ref{}, false
	}
	return v.ref, true
}

// AnyRef returns the handle regardless of its kind.
func (v Value) AnyRef() (Ref, bool) {
	if v.kind != KindRef {
		return Ref{}, false
	}
	return v.ref, true
}

// Scalar reports whether v is none, bool, number or string: the only
// variants that may be stored as timer payloads or forwarded across scripts.
func (v Value) Scalar() bool {
	switch v.kind {
	case KindNone, KindBool, KindInt, KindNumber, KindString:
		return true
	}
	return false
}
