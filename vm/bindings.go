package vm

import (
	"io"

	"github.com/DavidWilson4242/spyre/hash"
	"github.com/DavidWilson4242/spyre/internal/spyreerr"
)

// Callback is a native binding invoked by CCALL: it receives the live VM
// (so it can pop its arguments and optionally push a single return value
// per spec.md 4.I) and the instruction's nargs operand.
type Callback func(vm *VM, nargs int) error

// Registry is the name -> callback table spec.md 4.I describes, built on
// the same chained hash table as the compiler's type/function registries
// (hash.Table) rather than a bare Go map, keeping it on the same
// implementation as the parser's registries.
type Registry struct {
	table *hash.Table
}

// NewRegistry returns an empty registry. The VM ships with zero built-in
// bindings; registering native calls (e.g. a `print` cfunc) is the driver's
// job, per spec.md 4.I's "opaque callback registry".
func NewRegistry() *Registry {
	return &Registry{table: hash.New()}
}

// Register binds name to fn, overwriting any previous binding of the same
// name (hash.Table's newest-insert-shadows-older semantics).
func (r *Registry) Register(name string, fn Callback) {
	r.table.Insert(name, fn)
}

// call dispatches CCALL: a missing name is fatal, per spec.md 4.I.
func (r *Registry) call(vm *VM, name string, nargs int) error {
	v, ok := r.table.Get(name)
	if !ok {
		return spyreerr.New(spyreerr.Runtime, vm.file, 0, "unknown native binding %q", name)
	}
	fn, ok := v.(Callback)
	if !ok {
		return spyreerr.New(spyreerr.Runtime, vm.file, 0, "binding %q is not callable", name)
	}
	return fn(vm, nargs)
}

// PopInt and PushInt are the argument-popping/return-pushing helpers a
// Callback uses, exported so driver-registered bindings (outside this
// package) can participate in the calling convention without reaching into
// VM internals.
func (vm *VM) PopInt() (int64, error) { return vm.popInt() }
func (vm *VM) PushInt(v int64) error  { return vm.pushInt(v) }
func (vm *VM) Stdout() io.Writer      { return vm.stdout }
