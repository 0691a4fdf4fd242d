// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

// Instruction bytes of the HD44780 instruction set. The values are bit-exact,
// the controller decodes them directly.
const (
	ClearDisplay byte = 0x01
	ReturnHome   byte = 0x02

	EntryModeDecShiftOff byte = 0x04
	EntryModeDecShiftOn  byte = 0x05
	EntryModeIncShiftOff byte = 0x06
	EntryModeIncShiftOn  byte = 0x07

	CursorMoveLeft    byte = 0x10
	CursorMoveRight   byte = 0x14
	DisplayShiftLeft  byte = 0x18
	DisplayShiftRight byte = 0x1C

	DisplayOffCursorOff            byte = 0x08
	DisplayOnUnderlineOffCursorOff byte = 0x0C
	DisplayOnUnderlineOffCursorOn  byte = 0x0D
	DisplayOnUnderlineOnCursorOff  byte = 0x0E
	DisplayOnUnderlineOnCursorOn   byte = 0x0F

	FunctionSet8Bit2Line byte = 0x38
	FunctionSet4Bit2Line byte = 0x28

	CGRAMStart byte = 0x40
)

// Row is the DDRAM base address of a display row, as sent in a set DDRAM
// address instruction.
type Row byte

const (
	FirstRow  Row = 0x80
	SecondRow Row = 0xC0
	ThirdRow  Row = 0x94
	FourthRow Row = 0xD4
)

// Rows lists the row base addresses, top to bottom.
var Rows = [...]Row{FirstRow, SecondRow, ThirdRow, FourthRow}

// Direction selects which way ShiftDisplay moves the visible window.
type Direction uint8

const (
	ShiftRight Direction = 0
	ShiftLeft  Direction = 1
)

func (d Direction) String() string {
	switch d {
	case ShiftRight:
		return "right"
	case ShiftLeft:
		return "left"
	default:
		return "invalid"
	}
}
