package sqlstore

import "testing"

func TestRebind(t *testing.T) {
	query := `UPDATE reminders SET active = ?, sent_at = ? WHERE id = ?`

	if got := SQLite.rebind(query); got != query {
		t.Errorf("SQLite.rebind changed the query: %q", got)
	}

	want := `UPDATE reminders SET active = $1, sent_at = $2 WHERE id = $3`
	if got := Postgres.rebind(query); got != want {
		t.Errorf("Postgres.rebind() = %q, want %q", got, want)
	}
}
