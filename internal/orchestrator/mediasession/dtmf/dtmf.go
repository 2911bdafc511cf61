// Package dtmf implements the per-session DTMF command aggregator (§4.4
// "DTMF aggregator"): a FIFO of received digits drained by a restartable
// timer into a floor/layout command. This orchestrator never transports
// RTP itself (§1 Non-goals), so unlike the teacher's rtpmanager/media
// package -- which encodes/decodes RFC 4733 telephone-event payloads on
// the wire -- only the digit<->event-code mapping survives here; the
// adapter layer is the one that ever sees an RTP payload.
package dtmf

// Code is a DTMF event code, matching the RFC 4733 numbering the teacher
// used (0-9, 10=*, 11=#, 12-15=A-D) since the aggregator's command table
// (§4.4) is defined in terms of these same codes.
type Code uint8

const (
	Digit0 Code = 0
	Digit1 Code = 1
	Digit2 Code = 2
	Digit3 Code = 3
	Digit4 Code = 4
	Digit5 Code = 5
	Digit6 Code = 6
	Digit7 Code = 7
	Digit8 Code = 8
	Digit9 Code = 9
	Star   Code = 10
	Pound  Code = 11
	DigitA Code = 12
	DigitB Code = 13
	DigitC Code = 14
	DigitD Code = 15
)

// RuneToCode converts a DTMF character to its event code.
func RuneToCode(r rune) (Code, bool) {
	switch r {
	case '0':
		return Digit0, true
	case '1':
		return Digit1, true
	case '2':
		return Digit2, true
	case '3':
		return Digit3, true
	case '4':
		return Digit4, true
	case '5':
		return Digit5, true
	case '6':
		return Digit6, true
	case '7':
		return Digit7, true
	case '8':
		return Digit8, true
	case '9':
		return Digit9, true
	case '*':
		return Star, true
	case '#':
		return Pound, true
	case 'A', 'a':
		return DigitA, true
	case 'B', 'b':
		return DigitB, true
	case 'C', 'c':
		return DigitC, true
	case 'D', 'd':
		return DigitD, true
	}
	return 0, false
}

// CodeToRune converts an event code back to its character.
func CodeToRune(c Code) (rune, bool) {
	switch c {
	case Digit0:
		return '0', true
	case Digit1:
		return '1', true
	case Digit2:
		return '2', true
	case Digit3:
		return '3', true
	case Digit4:
		return '4', true
	case Digit5:
		return '5', true
	case Digit6:
		return '6', true
	case Digit7:
		return '7', true
	case Digit8:
		return '8', true
	case Digit9:
		return '9', true
	case Star:
		return '*', true
	case Pound:
		return '#', true
	case DigitA:
		return 'A', true
	case DigitB:
		return 'B', true
	case DigitC:
		return 'C', true
	case DigitD:
		return 'D', true
	}
	return 0, false
}
