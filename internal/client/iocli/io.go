// Package iocli abstracts the terminal the command-line client talks to.
package iocli

//go:generate moq -out io_mock.go . IO

// IO терминал: вывод и ввод пользователя
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	// ReadPassword reads a line without echo when input is a terminal.
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
