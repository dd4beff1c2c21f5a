package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"geminichat-backend/internal/transcript"
)

const prompt = "> "

type chat struct {
	manager   *transcript.Manager
	completer transcript.Completer
	render    *renderer
	out       io.Writer
}

// run prints the welcome turn and then handles one line of input at a time
// until /quit or EOF.
func (c *chat) run(ctx context.Context, in io.Reader) error {
	c.manager.Initialize()
	for _, t := range c.manager.Turns() {
		fmt.Fprint(c.out, c.render.Turn(t))
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			fmt.Fprint(c.out, c.render.History(c.manager.ProjectHistory()))
			continue
		}

		turn, err := c.manager.Submit(ctx, c.completer, line)
		if err != nil {
			return err
		}
		fmt.Fprint(c.out, c.render.Turn(turn))
	}
}
