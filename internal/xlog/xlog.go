/*
Package xlog supports debug output that can be switched off by using a
nil logger.

The standard library log package always writes. For package-level debug
output we want a logger variable that is nil by default and only set
while debugging a problem. Formatting arguments must not be evaluated
into output if the logger is nil.

The Logger interface is satisfied by *log.Logger.
*/
package xlog

import "fmt"

// Logger is the interface the print functions require. The type
// *log.Logger of the standard library implements it.
type Logger interface {
	Output(calldepth int, s string) error
}

// Print outputs the operands using the logger. A nil logger produces no
// output.
func Print(l Logger, v ...any) {
	if l != nil {
		l.Output(2, fmt.Sprint(v...))
	}
}

// Printf outputs the message described by the format string. A nil
// logger produces no output.
func Printf(l Logger, format string, v ...any) {
	if l != nil {
		l.Output(2, fmt.Sprintf(format, v...))
	}
}

// Println outputs the operands followed by a newline. A nil logger
// produces no output.
func Println(l Logger, v ...any) {
	if l != nil {
		l.Output(2, fmt.Sprintln(v...))
	}
}
