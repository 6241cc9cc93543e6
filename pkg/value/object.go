package value

// Kind tags a heap object's concrete type, used by the GC to dispatch
// blackening and by the VM to dispatch calls and property access.
type Kind int

const (
	KindString Kind = iota
	KindFunction
	KindNative
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	case KindNative:
		return "native"
	case KindClosure:
		return "closure"
	case KindUpvalue:
		return "upvalue"
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	case KindBoundMethod:
		return "bound method"
	default:
		return "unknown"
	}
}

// Header is embedded in every heap object. It carries the GC mark bit and
// the intrusive singly-linked allocation-list pointer the sweeper walks.
// The VM is the sole owner of this list; Obj values never escape it except
// through a Value.
type Header struct {
	Marked bool
	Next   Obj
}

// Obj is implemented by every heap object kind.
type Obj interface {
	Kind() Kind
	GCHeader() *Header
}

// ObjString is an immutable, interned, length-prefixed byte string with a
// precomputed FNV-1a hash.
type ObjString struct {
	Header
	Chars string
	Hash  uint32
}

func (s *ObjString) Kind() Kind        { return KindString }
func (s *ObjString) GCHeader() *Header { return &s.Header }

// HashString computes the 32-bit FNV-1a hash of s, used both to place a
// string in the hash table and to compare candidate strings during
// interning before falling back to a byte-for-byte compare.
func HashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// Chunk is a function's compiled bytecode: the flat instruction stream, a
// parallel per-byte source-line table, and the constant pool. All three
// grow together; Lines[i] is the source line that produced Code[i].
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// Write appends one raw byte to the chunk, recording the line that
// produced it.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConstant appends v to the constant pool and returns its index.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// ObjFunction is a compile-time unit: not directly callable (a Closure
// wraps it at runtime to supply upvalues), but it owns the Chunk that
// implements it.
type ObjFunction struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *ObjString // nil for the top-level script
}

func (f *ObjFunction) Kind() Kind        { return KindFunction }
func (f *ObjFunction) GCHeader() *Header { return &f.Header }

// NativeFn is the host ABI signature for a native function: it receives
// its arguments and returns a Value or an error describing why the call
// failed.
type NativeFn func(args []Value) (Value, error)

// ObjNative wraps a host callback exposed to smog programs as a callable
// value (e.g. clock()).
type ObjNative struct {
	Header
	Arity int
	Fn    NativeFn
	Name  string
}

func (n *ObjNative) Kind() Kind        { return KindNative }
func (n *ObjNative) GCHeader() *Header { return &n.Header }

// ObjUpvalue is either open (Location points at a live stack slot) or
// closed (Location points at Closed, which owns the value inline). The VM
// keeps all open upvalues in a singly-linked list sorted by strictly
// decreasing stack address.
type ObjUpvalue struct {
	Header
	Location *Value
	Closed   Value
	Next     *ObjUpvalue // open-upvalue list link, distinct from Header.Next
}

func (u *ObjUpvalue) Kind() Kind        { return KindUpvalue }
func (u *ObjUpvalue) GCHeader() *Header { return &u.Header }

// IsOpen reports whether the upvalue still refers to a live stack slot.
func (u *ObjUpvalue) IsOpen() bool { return u.Location != &u.Closed }

// Close promotes an open upvalue to own its value inline. Called when the
// stack frame that declared the captured local is about to go away.
func (u *ObjUpvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// ObjClosure pairs a compiled function with the upvalues it captured at
// creation time. len(Upvalues) always equals Function.UpvalueCount.
type ObjClosure struct {
	Header
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Kind() Kind        { return KindClosure }
func (c *ObjClosure) GCHeader() *Header { return &c.Header }

// MethodTable and FieldTable are satisfied by *table.Table. Importing
// pkg/table here would create an import cycle, since pkg/table's keys are
// *ObjString, so classes and instances hold their tables through these
// interfaces, declared below: see ObjClass.Methods / ObjInstance.Fields.

// ObjClass is a class value: a name and a method table (name -> closure).
// Inheritance is reserved (single-parent only) but not wired in this
// build; Superclass is always nil.
type ObjClass struct {
	Header
	Name       *ObjString
	Methods    MethodTable
	Superclass *ObjClass
}

func (c *ObjClass) Kind() Kind        { return KindClass }
func (c *ObjClass) GCHeader() *Header { return &c.Header }

// MethodTable is the name->closure mapping owned by a class. It is defined
// as an interface here so pkg/value does not need to import pkg/table;
// pkg/table's *Table satisfies it.
type MethodTable interface {
	Get(name *ObjString) (Value, bool)
	Set(name *ObjString, v Value) bool
	Each(func(name *ObjString, v Value))
}

// FieldTable is the name->value mapping owned by an instance. Same
// decoupling rationale as MethodTable.
type FieldTable interface {
	Get(name *ObjString) (Value, bool)
	Set(name *ObjString, v Value) bool
	Each(func(name *ObjString, v Value))
}

// ObjInstance is an instance of a class: a class reference and a field
// table (name -> value), populated lazily as fields are assigned.
type ObjInstance struct {
	Header
	Class  *ObjClass
	Fields FieldTable
}

func (i *ObjInstance) Kind() Kind        { return KindInstance }
func (i *ObjInstance) GCHeader() *Header { return &i.Header }

// ObjBoundMethod pairs a receiver (always an instance) with the closure to
// invoke when the bound method is called; produced by property access that
// resolves to a method rather than a field.
type ObjBoundMethod struct {
	Header
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) Kind() Kind        { return KindBoundMethod }
func (b *ObjBoundMethod) GCHeader() *Header { return &b.Header }
