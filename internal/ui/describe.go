package ui

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatToolCall renders a short, human-readable form of a tool call.
func FormatToolCall(name, rawArgs string) string {
	var args map[string]any
	_ = json.Unmarshal([]byte(rawArgs), &args)
	str := func(key string) string {
		s, _ := args[key].(string)
		return s
	}

	switch name {
	case "read_file", "write_file", "delete_file":
		if p := str("path"); p != "" {
			return fmt.Sprintf("%s %s", name, p)
		}
	case "list_files":
		p := str("path")
		if p == "" {
			p = "."
		}
		return fmt.Sprintf("list_files %s", p)
	case "run_command":
		if c := str("command"); c != "" {
			return fmt.Sprintf("run_command '%s'", firstLine(c))
		}
	case "git_status", "git_log":
		if p := str("path"); p != "" {
			return fmt.Sprintf("%s %s", name, p)
		}
	case "system_info":
		if secs, ok := args["sections"].([]any); ok && len(secs) > 0 {
			parts := make([]string, 0, len(secs))
			for _, s := range secs {
				parts = append(parts, fmt.Sprint(s))
			}
			return fmt.Sprintf("system_info %s", strings.Join(parts, ","))
		}
	}
	return name
}

func firstLine(s string) string {
	line, _, cut := strings.Cut(s, "\n")
	if cut {
		return line + " ..."
	}
	return line
}

// summarize shortens tool output to its first line plus a line count.
func summarize(payload string) string {
	payload = strings.TrimRight(payload, "\n")
	if payload == "" {
		return "(empty)"
	}
	lines := strings.Count(payload, "\n") + 1
	first := firstLine(payload)
	if len(first) > 80 {
		first = first[:77] + "..."
	}
	if lines == 1 {
		return first
	}
	return fmt.Sprintf("%s (+%d lines)", strings.TrimSuffix(first, " ..."), lines-1)
}
