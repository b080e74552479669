// Package console runs a bot as a plain line-oriented conversation.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"qabot/internal/domain"
)

// Greeting is printed once before the first prompt.
const Greeting = "Chatbot: Hi! Ask me a question, or type 'quit' to exit."

// Run reads one question per line from in and writes "Chatbot: <answer>"
// to out. It returns on "quit" (any case), end of input or ctx cancellation.
func Run(ctx context.Context, in io.Reader, out io.Writer, bot domain.Bot) error {
	if _, err := fmt.Fprintln(out, Greeting); err != nil {
		return err
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if _, err := fmt.Fprint(out, "You: "); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "quit") {
			return nil
		}
		if _, err := fmt.Fprintf(out, "Chatbot: %s\n", bot.GetResponse(ctx, line)); err != nil {
			return err
		}
	}
}
