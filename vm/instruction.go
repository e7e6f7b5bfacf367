package vm

import (
	"fmt"
	"strings"
)

// Program is the complete output of compilation: a linear instruction
// vector ready for the VM to execute.
type Program struct {
	Instructions []Instruction
}

// Disassemble renders a program's instructions as a human-readable
// listing, one per line, index-prefixed.
func Disassemble(program *Program) string {
	var out strings.Builder
	for i, ins := range program.Instructions {
		fmt.Fprintf(&out, "%04d  %s\n", i, ins.String())
	}
	return out.String()
}
