package capture

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// HistoryCommand is one parsed line from a shell history file.
type HistoryCommand struct {
	Content   string
	Timestamp int64 // unix seconds; 0 if the format carries none
}

// ParseZshHistory parses zsh extended-history lines of the form
// ": <timestamp>:<duration>;<command>". Lines not matching the extended
// format are skipped (plain zsh history without EXTENDED_HISTORY is not
// a supported sweep target, matching spec.md §4.4's documented format).
func ParseZshHistory(data []byte) []HistoryCommand {
	var out []HistoryCommand
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, ": ") {
			continue
		}
		rest := strings.TrimPrefix(line, ": ")
		semi := strings.IndexByte(rest, ';')
		if semi < 0 {
			continue
		}
		meta, cmd := rest[:semi], rest[semi+1:]
		colon := strings.IndexByte(meta, ':')
		if colon < 0 {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(meta[:colon]), 10, 64)
		if err != nil {
			continue
		}
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		out = append(out, HistoryCommand{Content: cmd, Timestamp: ts})
	}
	return out
}

// ParseBashHistory parses plain bash history: one command per line, no
// timestamp metadata (HISTTIMEFORMAT comment lines, when present, are
// skipped rather than parsed — bash's timestamp format is a detached
// "#<epoch>" comment line preceding the command, which this treats as
// boilerplate rather than structured metadata).
func ParseBashHistory(data []byte) []HistoryCommand {
	var out []HistoryCommand
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, HistoryCommand{Content: line})
	}
	return out
}

// ParseFishHistory parses fish's YAML-ish history blocks:
//
//	- cmd: ls -la
//	  when: 1625760000
//
// Each block starts with a "- cmd: " line and is optionally followed by
// "  when: <epoch>" and other fields this parser ignores.
func ParseFishHistory(data []byte) []HistoryCommand {
	var out []HistoryCommand
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cur *HistoryCommand
	flush := func() {
		if cur != nil && cur.Content != "" {
			out = append(out, *cur)
		}
		cur = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "- cmd: "):
			flush()
			cur = &HistoryCommand{Content: strings.TrimPrefix(line, "- cmd: ")}
		case strings.HasPrefix(line, "  when: "):
			if cur != nil {
				if ts, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "  when: ")), 10, 64); err == nil {
					cur.Timestamp = ts
				}
			}
		}
	}
	flush()
	return out
}
