package vm

import (
	"fmt"

	"github.com/DavidWilson4242/spyre/asmgen"
)

// step decodes and executes exactly one instruction, mirroring the
// teacher's execNextInstruction big-switch dispatch loop but over Spyre's
// stack-machine opcode set instead of a register machine's.
func (vm *VM) step() (halted bool, err error) {
	opByte, err := vm.fetchByte()
	if err != nil {
		return false, err
	}
	op := asmgen.Opcode(opByte)

	switch op {
	case asmgen.HALT:
		return true, nil

	case asmgen.IPUSH:
		v, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		return false, vm.pushWord(v)

	case asmgen.IPOP:
		_, err := vm.popWord()
		return false, err

	case asmgen.IADD, asmgen.ISUB, asmgen.IMUL, asmgen.IDIV:
		return false, vm.execArith(op)

	case asmgen.DUP:
		v, err := vm.popWord()
		if err != nil {
			return false, err
		}
		if err := vm.pushWord(v); err != nil {
			return false, err
		}
		return false, vm.pushWord(v)

	case asmgen.FEQ, asmgen.FLE, asmgen.FGE, asmgen.FLT, asmgen.FGT:
		return false, vm.pushFlag(op)

	case asmgen.LDL:
		i, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		v, err := vm.wordAt(vm.bp + int(i)*wordSize)
		if err != nil {
			return false, err
		}
		return false, vm.pushWord(v)

	case asmgen.SVL:
		i, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		v, err := vm.popWord()
		if err != nil {
			return false, err
		}
		return false, vm.setWordAt(vm.bp+int(i)*wordSize, v)

	case asmgen.SVLS:
		v, err := vm.popWord()
		if err != nil {
			return false, err
		}
		idx, err := vm.popInt()
		if err != nil {
			return false, err
		}
		return false, vm.setWordAt(vm.bp+int(idx)*wordSize, v)

	case asmgen.RESL:
		n, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		vm.sp += int(n) * wordSize
		if vm.sp > len(vm.stack) {
			return false, vm.fail("stack overflow reserving %d locals", n)
		}
		return false, nil

	case asmgen.LDMBR:
		i, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		return false, vm.execLoadMember(int(i))

	case asmgen.SVMBR:
		i, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		return false, vm.execStoreMember(int(i))

	case asmgen.ARG:
		i, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		return false, vm.execLoadArg(int(i))

	case asmgen.IPRINT:
		v, err := vm.popInt()
		if err != nil {
			return false, err
		}
		fmt.Fprintln(vm.stdout, v)
		return false, nil

	case asmgen.FLAGS:
		fmt.Fprintf(vm.stdout, "fz=%v feq=%v fgt=%v fge=%v\n", vm.fz, vm.feq, vm.fgt, vm.fge)
		return false, nil

	case asmgen.ALLOC:
		nameOff, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		ndims, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		return false, vm.execAlloc(nameOff, int(ndims))

	case asmgen.FREE:
		id, err := vm.popInt()
		if err != nil {
			return false, err
		}
		return false, vm.heap.Free(int(id))

	case asmgen.TAGL:
		i, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		vm.roots = append(vm.roots, vm.bp+int(i)*wordSize)
		return false, nil

	case asmgen.UNTAGL:
		i, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		return false, vm.untagl(vm.bp + int(i)*wordSize)

	case asmgen.UNTAGLS:
		n, err := vm.fetchOperand()
		if err != nil {
			return false, err
		}
		return false, vm.untagls(int(n))

	case asmgen.ITEST:
		v, err := vm.popWord()
		if err != nil {
			return false, err
		}
		vm.fz = v == 0
		return false, nil

	case asmgen.ICMP:
		return false, vm.execCmp()

	case asmgen.JMP, asmgen.JZ, asmgen.JNZ, asmgen.JGT, asmgen.JGE, asmgen.JLT, asmgen.JLE, asmgen.JEQ, asmgen.JNEQ:
		return false, vm.execBranch(op)

	case asmgen.CALL:
		return false, vm.execCall()

	case asmgen.CCALL:
		return false, vm.execCCall()

	case asmgen.IRET:
		return false, vm.execIRet()

	case asmgen.RET:
		return false, vm.execRet()
	}

	return false, vm.fail("unknown opcode 0x%02x at %d", opByte, vm.ip-1)
}

func (vm *VM) execArith(op asmgen.Opcode) error {
	rhs, err := vm.popInt()
	if err != nil {
		return err
	}
	lhs, err := vm.popInt()
	if err != nil {
		return err
	}
	var result int64
	switch op {
	case asmgen.IADD:
		result = lhs + rhs
	case asmgen.ISUB:
		result = lhs - rhs
	case asmgen.IMUL:
		result = lhs * rhs
	case asmgen.IDIV:
		if rhs == 0 {
			return vm.fail("integer division by zero")
		}
		result = lhs / rhs
	}
	return vm.pushInt(result)
}

func (vm *VM) pushFlag(op asmgen.Opcode) error {
	var v int64
	switch op {
	case asmgen.FEQ:
		v = boolWord(vm.feq)
	case asmgen.FLE:
		v = boolWord(!vm.fgt)
	case asmgen.FGE:
		v = boolWord(vm.fge)
	case asmgen.FLT:
		v = boolWord(!vm.fge)
	case asmgen.FGT:
		v = boolWord(vm.fgt)
	}
	return vm.pushInt(v)
}

func boolWord(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (vm *VM) execCmp() error {
	rhs, err := vm.popInt()
	if err != nil {
		return err
	}
	lhs, err := vm.popInt()
	if err != nil {
		return err
	}
	vm.feq = lhs == rhs
	vm.fgt = lhs > rhs
	vm.fge = lhs >= rhs
	return nil
}

// execBranch reads the absolute jump target, decides whether to take it per
// op (JLT/JLE use negated flags, spec.md 9's open question), and sets ip.
func (vm *VM) execBranch(op asmgen.Opcode) error {
	target, err := vm.fetchOperand()
	if err != nil {
		return err
	}
	take := false
	switch op {
	case asmgen.JMP:
		take = true
	case asmgen.JZ:
		take = vm.fz
	case asmgen.JNZ:
		take = !vm.fz
	case asmgen.JGT:
		take = vm.fgt
	case asmgen.JGE:
		take = vm.fge
	case asmgen.JLT:
		take = !vm.fge
	case asmgen.JLE:
		take = !vm.fgt
	case asmgen.JEQ:
		take = vm.feq
	case asmgen.JNEQ:
		take = !vm.feq
	}
	if take {
		vm.ip = int(target)
	}
	return nil
}

// execLoadMember pops a segment id, pushes the word at member offset i.
func (vm *VM) execLoadMember(i int) error {
	id, err := vm.popInt()
	if err != nil {
		return err
	}
	seg, err := vm.heap.get(int(id))
	if err != nil {
		return err
	}
	if i < 0 || i >= len(seg.members) {
		return vm.fail("member index %d out of range for %q", i, seg.typeName)
	}
	return vm.pushWord(seg.members[i])
}

// execStoreMember pops value then segment id, stores value at member i.
func (vm *VM) execStoreMember(i int) error {
	val, err := vm.popWord()
	if err != nil {
		return err
	}
	id, err := vm.popInt()
	if err != nil {
		return err
	}
	seg, err := vm.heap.get(int(id))
	if err != nil {
		return err
	}
	if i < 0 || i >= len(seg.members) {
		return vm.fail("member index %d out of range for %q", i, seg.typeName)
	}
	seg.members[i] = val
	return nil
}

// execLoadArg pushes argument i from the caller's arg area: bp - 24 -
// (nargs-i)*8, per spec.md 4.G's calling convention.
func (vm *VM) execLoadArg(i int) error {
	nargsWord, err := vm.wordAt(vm.bp - 3*wordSize)
	if err != nil {
		return err
	}
	nargs := int(nargsWord)
	off := vm.bp - 3*wordSize - (nargs-i)*wordSize
	v, err := vm.wordAt(off)
	if err != nil {
		return err
	}
	return vm.pushWord(v)
}

func (vm *VM) execAlloc(nameOff uint64, ndims int) error {
	name, nmembers, err := vm.resolveName(nameOff)
	if err != nil {
		return err
	}
	elemCount := 1
	for d := 0; d < ndims; d++ {
		dim, err := vm.popInt()
		if err != nil {
			return err
		}
		elemCount *= int(dim)
	}
	id, err := vm.heap.Alloc(name, int(nmembers), elemCount)
	if err != nil {
		return err
	}
	return vm.pushInt(int64(id))
}

func (vm *VM) untagl(addr int) error {
	for i := len(vm.roots) - 1; i >= 0; i-- {
		if vm.roots[i] == addr {
			vm.roots = append(vm.roots[:i], vm.roots[i+1:]...)
			return nil
		}
	}
	return vm.fail("UNTAGL: no root at address %d", addr)
}

func (vm *VM) untagls(n int) error {
	if n > len(vm.roots) {
		return vm.fail("UNTAGLS %d: only %d roots tagged", n, len(vm.roots))
	}
	vm.roots = vm.roots[:len(vm.roots)-n]
	return nil
}

// GC runs a stop-the-world collection using the VM's current root set,
// resolving each tagged stack address to the segment id stored there.
// Returns the number of segments freed.
func (vm *VM) GC() (int, error) {
	ids := make([]uint64, 0, len(vm.roots))
	for _, addr := range vm.roots {
		v, err := vm.wordAt(addr)
		if err != nil {
			return 0, err
		}
		ids = append(ids, v)
	}
	return vm.heap.GC(ids), nil
}

// execCall implements CALL addr nargs: push the frame descriptor (nargs,
// old bp, return ip) and transfer control, per spec.md 4.G.
func (vm *VM) execCall() error {
	addr, err := vm.fetchOperand()
	if err != nil {
		return err
	}
	nargs, err := vm.fetchOperand()
	if err != nil {
		return err
	}
	if err := vm.pushWord(nargs); err != nil {
		return err
	}
	if err := vm.pushWord(uint64(vm.bp)); err != nil {
		return err
	}
	if err := vm.pushWord(uint64(vm.ip)); err != nil {
		return err
	}
	vm.bp = vm.sp
	vm.ip = int(addr)
	return nil
}

// execCCall implements CCALL name nargs: dispatch straight into the
// registered native callback, no frame descriptor pushed (spec.md 4.I).
func (vm *VM) execCCall() error {
	nameOff, err := vm.fetchOperand()
	if err != nil {
		return err
	}
	nargs, err := vm.fetchOperand()
	if err != nil {
		return err
	}
	name, _, err := vm.resolveName(nameOff)
	if err != nil {
		return err
	}
	return vm.bindings.call(vm, name, int(nargs))
}

// teardown restores sp/bp/ip from the current frame descriptor and drops
// the arguments, shared by IRET and RET.
func (vm *VM) teardown() error {
	returnIP, err := vm.popWord()
	if err != nil {
		return err
	}
	oldBP, err := vm.popWord()
	if err != nil {
		return err
	}
	nargs, err := vm.popWord()
	if err != nil {
		return err
	}
	vm.sp = vm.bp - 3*wordSize - int(nargs)*wordSize
	vm.bp = int(oldBP)
	vm.ip = int(returnIP)
	return nil
}

func (vm *VM) execIRet() error {
	retVal, err := vm.popWord()
	if err != nil {
		return err
	}
	vm.sp = vm.bp
	if err := vm.teardown(); err != nil {
		return err
	}
	return vm.pushWord(retVal)
}

func (vm *VM) execRet() error {
	vm.sp = vm.bp
	return vm.teardown()
}
