package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kballard/go-shellquote"

	"disclosure-api/internal/disclosure"
)

type runner struct {
	engine    *disclosure.Engine
	out       io.Writer
	keepGoing bool
}

// result is the JSON line printed for every command.
type result struct {
	Line    int                       `json:"line"`
	Command string                    `json:"command"`
	Outcome *disclosure.Outcome       `json:"outcome,omitempty"`
	Stats   *disclosure.Snapshot      `json:"stats,omitempty"`
	Excerpt *disclosure.CachedExcerpt `json:"excerpt,omitempty"`
	Found   *bool                     `json:"found,omitempty"`
	Dropped *bool                     `json:"dropped,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

func (r *runner) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	enc := json.NewEncoder(r.out)

	n := 0
	failed := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words, err := shellquote.Split(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		res := r.exec(words)
		res.Line = n
		if err := enc.Encode(res); err != nil {
			return err
		}
		if res.Error != "" {
			failed++
			if !r.keepGoing {
				return fmt.Errorf("line %d: %s", n, res.Error)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d command(s) failed", failed)
	}
	return nil
}

func (r *runner) exec(words []string) result {
	cmd, args := words[0], words[1:]
	res := result{Command: cmd}
	fail := func(err error) result {
		res.Error = err.Error()
		return res
	}
	want := map[string]int{"submit": 3, "submit-file": 3, "lookup": 2, "stats": 1, "drop": 1}
	n, ok := want[cmd]
	if !ok {
		return fail(fmt.Errorf("unknown command %q", cmd))
	}
	if len(args) != n {
		return fail(fmt.Errorf("%s takes %d argument(s), got %d", cmd, n, len(args)))
	}

	switch cmd {
	case "submit", "submit-file":
		content := args[2]
		if cmd == "submit-file" {
			data, err := os.ReadFile(args[2])
			if err != nil {
				return fail(err)
			}
			content = string(data)
		}
		out, snap, err := r.engine.Disclose(context.Background(), args[0], disclosure.Excerpt{DocRef: args[1], Content: content})
		if err != nil {
			return fail(err)
		}
		res.Outcome, res.Stats = &out, &snap
	case "lookup":
		cached, found, err := r.engine.Lookup(args[0], args[1])
		if err != nil {
			return fail(err)
		}
		res.Found = &found
		if found {
			res.Excerpt = &cached
		}
	case "stats":
		snap, err := r.engine.Snapshot(args[0])
		if err != nil {
			return fail(err)
		}
		res.Stats = &snap
	case "drop":
		dropped := r.engine.DropContext(args[0])
		res.Dropped = &dropped
	}
	return res
}
