package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// console asks yes/no questions on a terminal.
type console struct {
	lock sync.Mutex
	in   *bufio.Reader
	out  io.Writer
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: bufio.NewReader(in), out: out}
}

// Confirm asks question and reports whether the answer was yes. An empty
// answer or end of input is a no.
func (c *console) Confirm(ctx context.Context, question string) (bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	fmt.Fprintf(c.out, "%s [y/N]: ", question)

	type answer struct {
		line string
		err  error
	}
	read := make(chan answer, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		read <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-read:
		if a.err != nil && a.err != io.EOF {
			return false, a.err
		}
		return isYes(a.line), nil
	}
}

// ConfirmRepoCreation is the provisioning prompt.
func (c *console) ConfirmRepoCreation(ctx context.Context, login, repo string) (bool, error) {
	return c.Confirm(ctx, fmt.Sprintf("Repository %s/%s does not exist. Create it on your account?", login, repo))
}

func isYes(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
