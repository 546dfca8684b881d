package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// promptExact asks for an exact confirmation phrase. Anything else, including
// EOF, is a decline.
func promptExact(in *bufio.Reader, out io.Writer, message, expected string) (bool, error) {
	_, _ = fmt.Fprint(out, message)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	return strings.TrimSpace(line) == expected, nil
}
