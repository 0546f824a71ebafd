package vm

import (
	"fmt"
	"strings"
	"time"
)

// Peripherals is the actuator/sensor surface a TRAP instruction
// dispatches to. Its methods mirror the built-in functions seeded
// into the global scope by symtab, in the same order as their
// BuiltinID, so executeTrap can switch on the raw trap byte without
// a lookup table.
type Peripherals interface {
	PinMode(pin, mode int32)
	DigitalWrite(pin, value int32)
	DigitalRead(pin int32) int32
	AnalogRead(pin int32) int32
	PWMWrite(pin, value int32)
	Print(value int32)
	Delay(ms int32)
	Forward(ms int32)
	Back(ms int32)
	TurnLeft(ms int32)
	TurnRight(ms int32)
	ReadLeftSensor() int32
	ReadRightSensor() int32
	SetSpeed(value int32)
	StopMotors()
}

// executeTrap dispatches a TRAP instruction's builtin ID to the
// attached Peripherals, placing any return value in R0 exactly as a
// CALL would leave its return value there.
func (vm *VM) executeTrap(id byte) {
	p := vm.peripherals
	switch id {
	case 0:
		p.PinMode(vm.registers[1], vm.registers[2])
	case 1:
		p.DigitalWrite(vm.registers[1], vm.registers[2])
	case 2:
		vm.registers[0] = p.DigitalRead(vm.registers[1])
	case 3:
		vm.registers[0] = p.AnalogRead(vm.registers[1])
	case 4:
		p.PWMWrite(vm.registers[1], vm.registers[2])
	case 5:
		p.Print(vm.registers[1])
	case 6:
		p.Delay(vm.registers[1])
	case 7:
		p.Forward(vm.registers[1])
	case 8:
		p.Back(vm.registers[1])
	case 9:
		p.TurnLeft(vm.registers[1])
	case 10:
		p.TurnRight(vm.registers[1])
	case 11:
		vm.registers[0] = p.ReadLeftSensor()
	case 12:
		vm.registers[0] = p.ReadRightSensor()
	case 13:
		p.SetSpeed(vm.registers[1])
	case 14:
		p.StopMotors()
	default:
		vm.fail(fmt.Errorf("%w: trap %d", errUnknownOpcode, id))
	}
}

// NopPeripherals discards every actuator call and returns zero from
// every sensor read. It is the default attached by New and is useful
// for exercising programs whose behavior doesn't depend on hardware
// feedback.
type NopPeripherals struct{}

func (NopPeripherals) PinMode(pin, mode int32)       {}
func (NopPeripherals) DigitalWrite(pin, value int32) {}
func (NopPeripherals) DigitalRead(pin int32) int32   { return 0 }
func (NopPeripherals) AnalogRead(pin int32) int32    { return 0 }
func (NopPeripherals) PWMWrite(pin, value int32)     {}
func (NopPeripherals) Print(value int32)             {}
func (NopPeripherals) Delay(ms int32)                {}
func (NopPeripherals) Forward(ms int32)              {}
func (NopPeripherals) Back(ms int32)                 {}
func (NopPeripherals) TurnLeft(ms int32)             {}
func (NopPeripherals) TurnRight(ms int32)            {}
func (NopPeripherals) ReadLeftSensor() int32         { return 0 }
func (NopPeripherals) ReadRightSensor() int32        { return 0 }
func (NopPeripherals) SetSpeed(value int32)          {}
func (NopPeripherals) StopMotors()                   {}

// ConsolePeripherals is a standalone-host stand-in for real hardware:
// pin/motor actuators print what they would have done, Print writes
// the value to stdout, and Delay actually sleeps so timing-dependent
// programs behave plausibly when run without a board attached.
type ConsolePeripherals struct{}

func (ConsolePeripherals) PinMode(pin, mode int32) {
	fmt.Printf("pinMode(%d, %d)\n", pin, mode)
}
func (ConsolePeripherals) DigitalWrite(pin, value int32) {
	fmt.Printf("digitalWrite(%d, %d)\n", pin, value)
}
func (ConsolePeripherals) DigitalRead(pin int32) int32 {
	fmt.Printf("digitalRead(%d) -> 0\n", pin)
	return 0
}
func (ConsolePeripherals) AnalogRead(pin int32) int32 {
	fmt.Printf("analogRead(%d) -> 0\n", pin)
	return 0
}
func (ConsolePeripherals) PWMWrite(pin, value int32) {
	fmt.Printf("pwmWrite(%d, %d)\n", pin, value)
}
func (ConsolePeripherals) Print(value int32) {
	fmt.Println(value)
}
func (ConsolePeripherals) Delay(ms int32) {
	if ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}
}
func (ConsolePeripherals) Forward(ms int32)   { fmt.Printf("forward(%d)\n", ms) }
func (ConsolePeripherals) Back(ms int32)      { fmt.Printf("back(%d)\n", ms) }
func (ConsolePeripherals) TurnLeft(ms int32)  { fmt.Printf("turnLeft(%d)\n", ms) }
func (ConsolePeripherals) TurnRight(ms int32) { fmt.Printf("turnRight(%d)\n", ms) }
func (ConsolePeripherals) ReadLeftSensor() int32 {
	fmt.Println("readLeftSensor() -> 0")
	return 0
}
func (ConsolePeripherals) ReadRightSensor() int32 {
	fmt.Println("readRightSensor() -> 0")
	return 0
}
func (ConsolePeripherals) SetSpeed(value int32) { fmt.Printf("setSpeed(%d)\n", value) }
func (ConsolePeripherals) StopMotors()          { fmt.Println("stopMotors()") }

// call is one recorded invocation against a RecordingPeripherals.
type call struct {
	name string
	args []int32
}

func (c call) String() string {
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = fmt.Sprintf("%d", a)
	}
	return c.name + "(" + strings.Join(parts, ", ") + ")"
}

// RecordingPeripherals captures every call it receives, in order, for
// assertions in translator/VM tests. Sensor reads are driven by the
// queued Pending* slices, consumed front-to-back, defaulting to 0 once
// exhausted.
type RecordingPeripherals struct {
	Calls []string

	PendingDigitalRead   []int32
	PendingAnalogRead    []int32
	PendingLeftSensor    []int32
	PendingRightSensor   []int32
}

func (r *RecordingPeripherals) record(c call) {
	r.Calls = append(r.Calls, c.String())
}

func popOr(q *[]int32, fallback int32) int32 {
	if len(*q) == 0 {
		return fallback
	}
	v := (*q)[0]
	*q = (*q)[1:]
	return v
}

func (r *RecordingPeripherals) PinMode(pin, mode int32) {
	r.record(call{"pinMode", []int32{pin, mode}})
}
func (r *RecordingPeripherals) DigitalWrite(pin, value int32) {
	r.record(call{"digitalWrite", []int32{pin, value}})
}
func (r *RecordingPeripherals) DigitalRead(pin int32) int32 {
	r.record(call{"digitalRead", []int32{pin}})
	return popOr(&r.PendingDigitalRead, 0)
}
func (r *RecordingPeripherals) AnalogRead(pin int32) int32 {
	r.record(call{"analogRead", []int32{pin}})
	return popOr(&r.PendingAnalogRead, 0)
}
func (r *RecordingPeripherals) PWMWrite(pin, value int32) {
	r.record(call{"pwmWrite", []int32{pin, value}})
}
func (r *RecordingPeripherals) Print(value int32) {
	r.record(call{"print", []int32{value}})
}
func (r *RecordingPeripherals) Delay(ms int32) {
	r.record(call{"delay", []int32{ms}})
}
func (r *RecordingPeripherals) Forward(ms int32) {
	r.record(call{"forward_ms", []int32{ms}})
}
func (r *RecordingPeripherals) Back(ms int32) {
	r.record(call{"back_ms", []int32{ms}})
}
func (r *RecordingPeripherals) TurnLeft(ms int32) {
	r.record(call{"turnLeft_ms", []int32{ms}})
}
func (r *RecordingPeripherals) TurnRight(ms int32) {
	r.record(call{"turnRight_ms", []int32{ms}})
}
func (r *RecordingPeripherals) ReadLeftSensor() int32 {
	r.record(call{"readLeftSensor", nil})
	return popOr(&r.PendingLeftSensor, 0)
}
func (r *RecordingPeripherals) ReadRightSensor() int32 {
	r.record(call{"readRightSensor", nil})
	return popOr(&r.PendingRightSensor, 0)
}
func (r *RecordingPeripherals) SetSpeed(value int32) {
	r.record(call{"setSpeed", []int32{value}})
}
func (r *RecordingPeripherals) StopMotors() {
	r.record(call{"stopMotors", nil})
}
