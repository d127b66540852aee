package storage

import (
	"fmt"
	"strings"
)

// Upsert describes an INSERT ... ON CONFLICT (Key) statement.
// Update lists the columns replaced on conflict; an empty list means DO NOTHING.
type Upsert struct {
	Table   string
	Key     string
	Columns []string
	Values  []any
	Update  []string
}

// Statement renders the upsert with $N placeholders.
func (u Upsert) Statement() (string, error) {
	if u.Table == "" {
		return "", fmt.Errorf("upsert table required")
	}
	if u.Key == "" {
		return "", fmt.Errorf("upsert key required")
	}
	if len(u.Columns) == 0 || len(u.Columns) != len(u.Values) {
		return "", fmt.Errorf("upsert %s: %d columns, %d values", u.Table, len(u.Columns), len(u.Values))
	}

	placeholders := make([]string, len(u.Columns))
	for i := range u.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		u.Table, strings.Join(u.Columns, ", "), strings.Join(placeholders, ", "), u.Key)

	if len(u.Update) == 0 {
		b.WriteString("DO NOTHING")
		return b.String(), nil
	}

	sets := make([]string, len(u.Update))
	for i, col := range u.Update {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	b.WriteString("DO UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))
	return b.String(), nil
}
