package scpi

import (
	"io"
	"strconv"
	"strings"
)

// addError formats number,"text" and appends it to the error queue, the
// error queue format of §6.
func (p *Interpreter) addError(number int, text string) {
	p.errors = append(p.errors, strconv.Itoa(number)+","+FormatString(text))
}

// Errors drains and returns every queued error message, in FIFO order,
// clearing the queue — the interpreter half of a SYSTem:ERRor? handler.
func (p *Interpreter) Errors() []string {
	out := p.errors
	p.errors = nil
	return out
}

// FormatString quotes s for SCPI output, escaping embedded double quotes,
// per §6.
func FormatString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			b.WriteString(`\"`)
		} else {
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}

// ABDPreamble formats the "#<ndigits><size>" prefix for an Arbitrary Block
// Data response of the given size, per §6.
func ABDPreamble(size int) string {
	sizeStr := strconv.Itoa(size)
	return "#" + strconv.Itoa(len(sizeStr)) + sizeStr
}

// WriteArbitraryBlockData writes data to w framed as Arbitrary Block Data:
// "#", the digit count of the size, the size itself, then the raw bytes,
// with no trailing terminator, per §6.
func WriteArbitraryBlockData(w io.Writer, data []byte) error {
	if _, err := io.WriteString(w, ABDPreamble(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// DrainErrors is the reusable SYSTem:ERRor?-shaped helper: nearly every
// consumer needs the identical "collect every queued error, or report no
// error" pattern, so it ships here instead of being hand-rolled per
// application. Reports SCPI's conventional "0,\"No error\"" when the queue
// is empty.
func DrainErrors(p *Interpreter) []string {
	errs := p.Errors()
	if len(errs) == 0 {
		return []string{"0," + FormatString("No error")}
	}
	return errs
}
