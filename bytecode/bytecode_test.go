package bytecode

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestOpStringAndLookupRoundTrip(t *testing.T) {
	for op, name := range opNames {
		assert(t, op.String() == name, "String() mismatch for 0x%02X: got %q want %q", byte(op), op.String(), name)
		got, ok := Lookup(name)
		assert(t, ok, "Lookup(%q) should succeed", name)
		assert(t, got == op, "Lookup(%q) = 0x%02X, want 0x%02X", name, byte(got), byte(op))
	}
}

func TestUnknownOpStringsDoNotPanic(t *testing.T) {
	var bogus Op = 0xFF
	assert(t, !bogus.Known(), "0xFF should not be a known opcode")
	assert(t, bogus.String() != "", "String() of an unknown opcode should still render something")
}

func TestInstrLenAccountsForLoadi16(t *testing.T) {
	assert(t, ADD.InstrLen() == 3, "ADD should encode in 3 bytes")
	assert(t, LOADI16.InstrLen() == 5, "LOADI16 should encode in 5 bytes")
}

func TestDecodeSimpleInstruction(t *testing.T) {
	code := []byte{byte(LOADI), 1, 42}
	instr, next, err := Decode(code, 0)
	assert(t, err == nil, "unexpected decode error: %v", err)
	assert(t, instr.Op == LOADI, "expected LOADI, got %s", instr.Op)
	assert(t, instr.A1 == 1 && instr.A2 == 42, "unexpected operands: %d, %d", instr.A1, instr.A2)
	assert(t, next == 3, "expected next offset 3, got %d", next)
}

func TestDecodeLoadi16ConsumesFiveBytes(t *testing.T) {
	code := []byte{byte(LOADI16), 2, 0, 0x34, 0x12}
	instr, next, err := Decode(code, 0)
	assert(t, err == nil, "unexpected decode error: %v", err)
	assert(t, instr.Imm == 0x1234, "expected immediate 0x1234, got 0x%04X", instr.Imm)
	assert(t, next == 5, "expected next offset 5, got %d", next)
}

func TestDecodeTruncatedInstructionFails(t *testing.T) {
	code := []byte{byte(ADD), 1}
	_, _, err := Decode(code, 0)
	assert(t, err != nil, "expected an error decoding a truncated instruction")
}

func TestEmitJumpTargetAndPatchRoundTrip(t *testing.T) {
	buf, offset := Emit3(nil, JMP, 0, 0)
	PatchJumpTarget(buf, offset, 0x01FF)
	instr, _, err := Decode(buf, offset)
	assert(t, err == nil, "unexpected decode error: %v", err)
	target := uint16(instr.A1) | uint16(instr.A2)<<8
	assert(t, target == 0x01FF, "expected patched target 0x01FF, got 0x%04X", target)
}

func TestDisassembleRendersKnownAndStopsOnTruncation(t *testing.T) {
	code := []byte{byte(LOADI), 1, 10, byte(HALT), 0, 0}
	lines := Disassemble(code)
	assert(t, len(lines) == 2, "expected 2 disassembled lines, got %d: %v", len(lines), lines)

	truncated := []byte{byte(ADD), 1}
	lines = Disassemble(truncated)
	assert(t, len(lines) == 1, "expected disassembly to stop at the truncated tail, got %v", lines)
}
