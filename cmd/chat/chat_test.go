package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"geminichat-backend/internal/transcript"
)

type scriptedCompleter struct {
	replies []string
	errs    []error
	calls   [][]transcript.HistoryEntry
}

func (s *scriptedCompleter) Complete(_ context.Context, history []transcript.HistoryEntry, _ string) (string, error) {
	i := len(s.calls)
	s.calls = append(s.calls, history)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	return s.replies[i], nil
}

func runScript(t *testing.T, c *scriptedCompleter, input string) (string, *transcript.Manager) {
	t.Helper()
	r, err := newRenderer(false)
	if err != nil {
		t.Fatalf("newRenderer: %v", err)
	}

	var out bytes.Buffer
	m := transcript.NewManager("Hi there")
	ch := &chat{manager: m, completer: c, render: r, out: &out}
	if err := ch.run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String(), m
}

func TestChat_Conversation(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"Paris", "About 2 million"}}
	out, m := runScript(t, c, "Capital of France?\n\nPopulation?\n/quit\nignored\n")

	if !strings.Contains(out, "Hi there") {
		t.Errorf("expected welcome in output, got %q", out)
	}
	if !strings.Contains(out, "Paris") || !strings.Contains(out, "About 2 million") {
		t.Errorf("expected replies in output, got %q", out)
	}
	if m.Len() != 5 {
		t.Fatalf("expected 5 turns, got %d", m.Len())
	}
	if len(c.calls) != 2 {
		t.Fatalf("expected 2 completions, got %d", len(c.calls))
	}
	if len(c.calls[0]) != 0 {
		t.Errorf("expected empty history on first call, got %+v", c.calls[0])
	}
	if len(c.calls[1]) != 2 || c.calls[1][1].APIRole != transcript.APIRoleModel {
		t.Errorf("unexpected second history: %+v", c.calls[1])
	}
}

func TestChat_ErrorBecomesNotice(t *testing.T) {
	c := &scriptedCompleter{
		replies: []string{"", "ok"},
		errs:    []error{errors.New("boom"), nil},
	}
	out, m := runScript(t, c, "first\nsecond\n")

	if !strings.Contains(out, "An unexpected error occurred: boom") {
		t.Errorf("expected notice in output, got %q", out)
	}
	turns := m.Turns()
	if turns[2].Kind != transcript.KindNotice {
		t.Errorf("expected notice turn, got %+v", turns[2])
	}
	if turns[len(turns)-1].Content != "ok" {
		t.Errorf("expected chat to continue after error, got %+v", turns[len(turns)-1])
	}
}

func TestChat_History(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"pong"}}
	out, _ := runScript(t, c, "/history\nping\n/history\n")

	if !strings.Contains(out, "(history is empty)") {
		t.Errorf("expected empty history line, got %q", out)
	}
	if !strings.Contains(out, "user: ping") || !strings.Contains(out, "model: pong") {
		t.Errorf("expected projected history, got %q", out)
	}
}

func TestRootCommand_Help(t *testing.T) {
	rootCmd.SetArgs([]string{"--help"})
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "--no-markdown") {
		t.Errorf("expected flags in help, got %q", stdout.String())
	}
}
