// Package vm implements the Spyre VM core: a byte-addressable stack
// machine, its calling convention, the segment heap, and the mark-and-sweep
// garbage collector, grounded on vm.go/exec.go's dispatch-loop idiom and
// adapted from a register machine to the stack machine spec.md 4.G/4.H
// describes.
package vm

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/DavidWilson4242/spyre/internal/spyreerr"
)

// Stack discipline (spec.md 4.G): all pushes/pops are 8-byte words. sp
// addresses the next free byte; locals live above bp, arguments below it.
const (
	defaultStackSize = 1 << 16 // 64KiB, matching the teacher's stack budget
	wordSize         = 8
)

// VM is one execution context: code, stack, registers, heap, and the
// runtime-binding registry it was constructed with.
type VM struct {
	code []byte
	ip   int

	stack []byte
	sp    int
	bp    int

	// Condition flags, set by ITEST/ICMP and read by FEQ/FLE/FGE/FLT/FGT
	// and the conditional jumps.
	fz, feq, fgt, fge bool

	heap     *Heap
	bindings *Registry
	roots    []int // stack byte-offsets tagged as GC roots, most-recent last

	stdout io.Writer
	logger *zap.Logger

	file string
	err  error
}

// New returns a VM ready to run code, with an empty heap and the given
// native-binding registry (nil means no bindings; any CCALL then fails).
func New(file string, code []byte, bindings *Registry, logger *zap.Logger) *VM {
	if bindings == nil {
		bindings = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VM{
		code:     code,
		stack:    make([]byte, defaultStackSize),
		heap:     NewHeap(),
		bindings: bindings,
		stdout:   os.Stdout,
		logger:   logger,
		file:     file,
	}
}

// SetStdout redirects IPRINT/FLAGS output, used by tests to capture output
// without touching the process's real stdout.
func (vm *VM) SetStdout(w io.Writer) { vm.stdout = w }

func (vm *VM) fail(format string, args ...interface{}) error {
	return spyreerr.New(spyreerr.Runtime, vm.file, 0, format, args...)
}

// pushWord/popWord move one 8-byte word at the stack pointer, the unit
// every documented stack opcode operates in (spec.md 4.G).
func (vm *VM) pushWord(v uint64) error {
	if vm.sp+wordSize > len(vm.stack) {
		return vm.fail("stack overflow")
	}
	putLE64(vm.stack[vm.sp:vm.sp+wordSize], v)
	vm.sp += wordSize
	return nil
}

func (vm *VM) popWord() (uint64, error) {
	if vm.sp < wordSize {
		return 0, vm.fail("stack underflow")
	}
	vm.sp -= wordSize
	return getLE64(vm.stack[vm.sp : vm.sp+wordSize]), nil
}

func (vm *VM) pushInt(v int64) error { return vm.pushWord(uint64(v)) }
func (vm *VM) popInt() (int64, error) {
	w, err := vm.popWord()
	return int64(w), err
}

// wordAt/setWordAt address an absolute stack byte offset directly, used by
// LDL/SVL/SVLS/ARG and the GC's root walk.
func (vm *VM) wordAt(off int) (uint64, error) {
	if off < 0 || off+wordSize > len(vm.stack) {
		return 0, vm.fail("stack address %d out of range", off)
	}
	return getLE64(vm.stack[off : off+wordSize]), nil
}

func (vm *VM) setWordAt(off int, v uint64) error {
	if off < 0 || off+wordSize > len(vm.stack) {
		return vm.fail("stack address %d out of range", off)
	}
	putLE64(vm.stack[off:off+wordSize], v)
	return nil
}
