package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/DavidWilson4242/spyre/asmgen"
)

// disassembleFrom decodes code starting at offset, for the debug REPL's
// "program" command.
func (vm *VM) disassembleFrom(offset int) ([]string, error) {
	if offset < 0 || offset > len(vm.code) {
		return nil, vm.fail("disassemble offset %d out of range", offset)
	}
	return asmgen.Disassemble(vm.code[offset:])
}

// Run executes to completion (HALT or end of bytecode) and returns the
// final top-of-stack word, reinterpreted as an int64 per the end-to-end
// scenarios' "top-of-stack on HALT is observable" convention (spec.md 8).
func (vm *VM) Run() (int64, error) {
	for {
		halted, err := vm.step()
		if err != nil {
			vm.err = err
			vm.logger.Error("fatal VM error", zap.Error(err), zap.Int("ip", vm.ip))
			return 0, err
		}
		if halted {
			break
		}
		if vm.ip >= len(vm.code) {
			break
		}
	}
	if vm.sp < wordSize {
		return 0, nil
	}
	v, err := vm.wordAt(vm.sp - wordSize)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// RunDebugMode is an interactive single-stepper over readline, echoing the
// teacher's RunProgramDebugMode command set (n/next, r/run, b/break <addr>,
// program) but stepping Spyre's stack machine instead of a register one.
func (vm *VM) RunDebugMode() error {
	rl, err := readline.New("-> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("Commands:\n\tn or next: execute next instruction\n\tr or run: run program\n\tb or break <addr>: break on instruction offset (toggles)\n\tprogram: disassemble remaining code")

	vm.printState()

	breakpoints := make(map[int]struct{})
	running := false

	for {
		if running {
			if _, hit := breakpoints[vm.ip]; hit {
				fmt.Println("breakpoint")
				vm.printState()
				running = false
			}
		}

		var line string
		if !running {
			raw, err := rl.Readline()
			if err != nil {
				return nil
			}
			line = strings.ToLower(strings.TrimSpace(raw))
		}

		switch {
		case running, line == "n", line == "next":
			halted, err := vm.step()
			if !running {
				vm.printState()
			}
			if err != nil {
				fmt.Println(err)
				return err
			}
			if halted || vm.ip >= len(vm.code) {
				fmt.Println("program finished")
				return nil
			}

		case line == "program":
			lines, err := vm.disassembleFrom(vm.ip)
			if err != nil {
				fmt.Println(err)
				break
			}
			for _, l := range lines {
				fmt.Println(" ", l)
			}

		case line == "r" || line == "run":
			running = true

		case strings.HasPrefix(line, "b "), strings.HasPrefix(line, "break "):
			fields := strings.Fields(line)
			if len(fields) < 2 {
				fmt.Println("usage: break <offset>")
				break
			}
			addr, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("unknown instruction offset:", fields[1])
				break
			}
			if _, ok := breakpoints[addr]; ok {
				delete(breakpoints, addr)
			} else {
				breakpoints[addr] = struct{}{}
			}
		}
	}
}

func (vm *VM) printState() {
	fmt.Printf("  ip=%d bp=%d sp=%d flags(z=%v eq=%v gt=%v ge=%v)\n",
		vm.ip, vm.bp, vm.sp, vm.fz, vm.feq, vm.fgt, vm.fge)
}
