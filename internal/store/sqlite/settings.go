package sqlite

import (
	"context"
	"strconv"

	"jotx/internal/domain"
)

var settingsKeys = []string{
	"capture_shell", "capture_clipboard",
	"shell_case_sensitive", "clipboard_case_sensitive",
	"clipboard_limit", "shell_limit",
}

// GetSettings reads the settings table, falling back to defaults for any
// key that has never been written.
func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	out := domain.DefaultSettings()

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return out, domain.WrapOp("store.get_settings", domain.KindStorage, err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			continue
		}
		values[k] = v
	}

	if v, ok := values["capture_shell"]; ok {
		out.CaptureShell = v == "1"
	}
	if v, ok := values["capture_clipboard"]; ok {
		out.CaptureClipboard = v == "1"
	}
	if v, ok := values["shell_case_sensitive"]; ok {
		out.ShellCaseSensitive = v == "1"
	}
	if v, ok := values["clipboard_case_sensitive"]; ok {
		out.ClipboardCaseSensitive = v == "1"
	}
	if v, ok := values["clipboard_limit"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.ClipboardLimit = n
		}
	}
	if v, ok := values["shell_limit"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.ShellLimit = n
		}
	}
	return out, rows.Err()
}

// PutSettings persists the full settings record.
func (s *Store) PutSettings(ctx context.Context, st domain.Settings) error {
	values := map[string]string{
		"capture_shell":            boolStr(st.CaptureShell),
		"capture_clipboard":        boolStr(st.CaptureClipboard),
		"shell_case_sensitive":     boolStr(st.ShellCaseSensitive),
		"clipboard_case_sensitive": boolStr(st.ClipboardCaseSensitive),
		"clipboard_limit":          strconv.Itoa(st.ClipboardLimit),
		"shell_limit":              strconv.Itoa(st.ShellLimit),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapOp("store.put_settings", domain.KindStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, k := range settingsKeys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			k, values[k]); err != nil {
			return domain.WrapOp("store.put_settings", domain.KindStorage, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.WrapOp("store.put_settings", domain.KindStorage, err)
	}
	return nil
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
