package sizeof

import (
	"reflect"
	"sync"
	"unsafe"
)

// Sizer is implemented by values that know their own heap footprint.
//
// Contract:
//   - HeapSize reports the bytes the value owns exclusively on the heap,
//     excluding the value's own inline size.
//   - HeapSize must be cheap, must not panic, and must not call Of on its
//     receiver.
type Sizer interface {
	HeapSize() uint64
}

// Shared is implemented by values whose storage is owned collectively
// (interned or reference-counted payloads). Accounting charges only the
// marginal cost reported here, so the same payload held by many cache
// entries is not counted once per entry.
type Shared interface {
	SharedHeapSize() uint64
}

const (
	stringHeader = uint64(unsafe.Sizeof(""))
	sliceHeader  = uint64(unsafe.Sizeof([]byte(nil)))
	wordSize     = uint64(unsafe.Sizeof(uintptr(0)))

	// mapHeader approximates the runtime's hmap/table header.
	mapHeader = 48
)

var (
	sizerType  = reflect.TypeFor[Sizer]()
	sharedType = reflect.TypeFor[Shared]()

	flatTypes sync.Map // reflect.Type -> bool
)

// Of returns the approximate footprint of v in bytes: its inline size plus
// the heap storage it owns. Of never fails; values it cannot inspect
// (channels, funcs, unsafe pointers) are charged their inline size only.
func Of(v any) uint64 {
	switch x := v.(type) {
	case nil:
		return 0
	case Sizer:
		if isNilPointer(v) {
			return wordSize
		}
		t := reflect.TypeOf(v)
		return uint64(t.Size()) + pointeeSize(t) + x.HeapSize()
	case Shared:
		if isNilPointer(v) {
			return wordSize
		}
		return uint64(reflect.TypeOf(v).Size()) + x.SharedHeapSize()
	case string:
		return stringHeader + uint64(len(x))
	case []byte:
		return sliceHeader + uint64(cap(x))
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		uintptr, float32, float64, complex64, complex128:
		return uint64(reflect.TypeOf(v).Size())
	case []string:
		n := sliceHeader + uint64(cap(x))*stringHeader
		for _, s := range x {
			n += uint64(len(s))
		}
		return n
	case map[string]string:
		if x == nil {
			return wordSize
		}
		n := wordSize + mapHeader + uint64(len(x))*(2*stringHeader+1)
		for k, s := range x {
			n += uint64(len(k) + len(s))
		}
		return n
	}

	rv := reflect.ValueOf(v)
	w := walker{}
	return uint64(rv.Type().Size()) + w.heap(rv)
}

// OfFunc returns Of specialised to V, suitable as a cache sizer.
func OfFunc[V any]() func(V) uint64 {
	return func(v V) uint64 {
		return Of(v)
	}
}

// Sum aggregates the footprint of vs using size.
func Sum[V any](vs []V, size func(V) uint64) uint64 {
	var total uint64
	for _, v := range vs {
		total += size(v)
	}
	return total
}

// pointeeSize returns the inline size of the value t points to, or 0 when t
// is not a pointer type.
func pointeeSize(t reflect.Type) uint64 {
	if t.Kind() != reflect.Pointer {
		return 0
	}
	return uint64(t.Elem().Size())
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// walker tracks visited heap objects so shared pointers inside one value are
// charged once and accidental cycles terminate.
type walker struct {
	seen map[uintptr]struct{}
}

func (w *walker) visit(p uintptr) bool {
	if p == 0 {
		return false
	}
	if w.seen == nil {
		w.seen = make(map[uintptr]struct{})
	}
	if _, ok := w.seen[p]; ok {
		return false
	}
	w.seen[p] = struct{}{}
	return true
}

// heap returns the bytes rv owns outside its inline storage.
func (w *walker) heap(rv reflect.Value) uint64 {
	if n, ok := declared(rv); ok {
		return n
	}

	switch rv.Kind() {
	case reflect.String:
		return uint64(rv.Len())

	case reflect.Pointer:
		if rv.IsNil() || !w.visit(rv.Pointer()) {
			return 0
		}
		elem := rv.Elem()
		return uint64(elem.Type().Size()) + w.heap(elem)

	case reflect.Slice:
		if rv.IsNil() || !w.visit(rv.Pointer()) {
			return 0
		}
		et := rv.Type().Elem()
		n := uint64(rv.Cap()) * uint64(et.Size())
		if !isFlat(et) {
			for i := 0; i < rv.Len(); i++ {
				n += w.heap(rv.Index(i))
			}
		}
		return n

	case reflect.Array:
		if isFlat(rv.Type().Elem()) {
			return 0
		}
		var n uint64
		for i := 0; i < rv.Len(); i++ {
			n += w.heap(rv.Index(i))
		}
		return n

	case reflect.Map:
		if rv.IsNil() || !w.visit(rv.Pointer()) {
			return 0
		}
		t := rv.Type()
		// One tophash byte per slot on top of key and value storage.
		n := mapHeader + uint64(rv.Len())*(uint64(t.Key().Size())+uint64(t.Elem().Size())+1)
		if isFlat(t.Key()) && isFlat(t.Elem()) {
			return n
		}
		iter := rv.MapRange()
		for iter.Next() {
			n += w.heap(iter.Key()) + w.heap(iter.Value())
		}
		return n

	case reflect.Struct:
		if isFlat(rv.Type()) {
			return 0
		}
		var n uint64
		for i := 0; i < rv.NumField(); i++ {
			n += w.heap(rv.Field(i))
		}
		return n

	case reflect.Interface:
		if rv.IsNil() {
			return 0
		}
		elem := rv.Elem()
		if elem.Kind() == reflect.Pointer {
			return w.heap(elem)
		}
		// Non-pointer dynamic values are boxed.
		return uint64(elem.Type().Size()) + w.heap(elem)
	}

	return 0
}

// declared reports the size a value declares through Sizer or Shared.
func declared(rv reflect.Value) (uint64, bool) {
	t := rv.Type()
	if !t.Implements(sizerType) && !t.Implements(sharedType) {
		return 0, false
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return 0, true
		}
	}
	if !rv.CanInterface() {
		// Unexported fields: only pointers can be re-derived without copying.
		if rv.Kind() != reflect.Pointer {
			return 0, false
		}
		rv = reflect.NewAt(t.Elem(), rv.UnsafePointer())
	}
	switch x := rv.Interface().(type) {
	case Sizer:
		// A pointer Sizer owns its pointee; HeapSize excludes inline storage.
		return pointeeSize(reflect.TypeOf(x)) + x.HeapSize(), true
	case Shared:
		return x.SharedHeapSize(), true
	}
	return 0, false
}

// isFlat reports whether values of t own no heap storage.
func isFlat(t reflect.Type) bool {
	if v, ok := flatTypes.Load(t); ok {
		return v.(bool)
	}
	flat := computeFlat(t)
	flatTypes.Store(t, flat)
	return flat
}

func computeFlat(t reflect.Type) bool {
	if t.Implements(sizerType) || t.Implements(sharedType) {
		return false
	}
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	case reflect.Array:
		return t.Len() == 0 || isFlat(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !isFlat(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}
