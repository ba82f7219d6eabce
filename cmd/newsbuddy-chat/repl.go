package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/avvvet/newsbuddy/internal/memory"
	"github.com/avvvet/newsbuddy/internal/newsapi"
)

type repl struct {
	session *memory.Session
	status  memory.Connectivity
	in      *bufio.Scanner
	out     io.Writer
	baseURL string
	stream  bool

	// suggestions offered by the last assistant turn, selectable by number
	suggestions []string
}

func newREPL(session *memory.Session, status memory.Connectivity, in io.Reader, out io.Writer, baseURL string, stream bool) *repl {
	return &repl{
		session: session,
		status:  status,
		in:      bufio.NewScanner(in),
		out:     out,
		baseURL: baseURL,
		stream:  stream,
	}
}

func (r *repl) run(ctx context.Context) error {
	if turns := r.session.Turns(); len(turns) > 0 {
		r.printAssistant(turns[0].Content, nil, turns[0].Suggestions)
	}
	r.printStatus()

	for {
		fmt.Fprint(r.out, "\n> ")
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(r.in.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			fmt.Fprintln(r.out, "Bye!")
			return nil
		case "/history":
			r.printHistory(ctx)
			continue
		case "/status":
			r.printStatus()
			continue
		}

		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(r.suggestions) {
			line = r.suggestions[n-1]
			fmt.Fprintf(r.out, "> %s\n", line)
		}

		if err := r.send(ctx, line); err != nil {
			return err
		}
	}
}

func (r *repl) send(ctx context.Context, text string) error {
	if !r.stream {
		turn, err := r.session.Submit(ctx, text)
		if err != nil {
			return r.reportRejection(err)
		}
		r.printAssistant(turn.Content, turn.Articles, turn.Suggestions)
		return nil
	}

	chunks, err := r.session.SubmitStream(ctx, text)
	if err != nil {
		return r.reportRejection(err)
	}

	fmt.Fprint(r.out, "\n")
	for chunk := range chunks {
		if !chunk.Done {
			fmt.Fprint(r.out, chunk.Delta)
			continue
		}
		if chunk.Fallback {
			fmt.Fprintf(r.out, "\n%s\n", chunk.Content)
		} else {
			fmt.Fprintln(r.out)
		}
		r.printArticles(chunk.Articles)
		r.printSuggestions(chunk.Suggestions)
	}
	return nil
}

// reportRejection prints expected refusals and returns anything else.
func (r *repl) reportRejection(err error) error {
	switch {
	case errors.Is(err, memory.ErrBusy):
		fmt.Fprintln(r.out, "Still working on your previous question, please wait.")
	case errors.Is(err, memory.ErrDisconnected):
		fmt.Fprintln(r.out, "The news service is unreachable. Waiting for the connection to come back...")
	case errors.Is(err, memory.ErrEmptyMessage):
	default:
		return err
	}
	return nil
}

func (r *repl) printAssistant(content string, articles []newsapi.Article, suggestions []string) {
	fmt.Fprintf(r.out, "\n%s\n", content)
	r.printArticles(articles)
	r.printSuggestions(suggestions)
}

func (r *repl) printArticles(articles []newsapi.Article) {
	for i, a := range articles {
		fmt.Fprintf(r.out, "\n  %d. %s", i+1, a.Title)
		if a.Source != "" {
			fmt.Fprintf(r.out, " (%s)", a.Source)
		}
		fmt.Fprintln(r.out)
		if a.Summary != "" {
			fmt.Fprintf(r.out, "     %s\n", a.Summary)
		}
		if a.URL != "" {
			fmt.Fprintf(r.out, "     %s\n", a.URL)
		}
	}
}

func (r *repl) printSuggestions(suggestions []string) {
	r.suggestions = suggestions
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(r.out, "\nYou could ask:")
	for i, s := range suggestions {
		fmt.Fprintf(r.out, "  [%d] %s\n", i+1, s)
	}
}

func (r *repl) printHistory(ctx context.Context) {
	transcript, err := r.session.Transcript(ctx)
	if err != nil {
		fmt.Fprintf(r.out, "Could not load history: %v\n", err)
		return
	}
	fmt.Fprint(r.out, "\n", transcript)
}

func (r *repl) printStatus() {
	state := "connected"
	if !r.status.Connected() {
		state = "disconnected"
	}
	fmt.Fprintf(r.out, "\n● %s (%s)\n", state, r.baseURL)
}
