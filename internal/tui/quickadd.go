package tui

import (
	"strings"

	"tasklist-cli/internal/model"
)

type quickAdd struct {
	Title    string
	Due      *string
	Priority model.Priority
}

// parseQuickAdd pulls "due:YYYY-MM-DD" and "!high|!normal|!low" tokens out of a new-task
// line. The last token of each kind wins; the rest of the words form the title. The due
// value is not validated here.
func parseQuickAdd(line string) quickAdd {
	var q quickAdd
	words := strings.Fields(line)
	rest := words[:0:0]
	for _, w := range words {
		lw := strings.ToLower(w)
		if strings.HasPrefix(lw, "due:") && len(w) > len("due:") {
			d := w[len("due:"):]
			q.Due = &d
			continue
		}
		if strings.HasPrefix(w, "!") {
			if p, err := model.ParsePriority(w[1:]); err == nil && len(w) > 1 {
				q.Priority = p
				continue
			}
		}
		rest = append(rest, w)
	}
	q.Title = strings.Join(rest, " ")
	return q
}
