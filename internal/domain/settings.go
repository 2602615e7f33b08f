package domain

// Settings is the capture/retention configuration held in the store's
// settings table, mutable at runtime (distinct from the static TOML
// config loaded at startup).
type Settings struct {
	CaptureShell        bool
	CaptureClipboard    bool
	ShellCaseSensitive  bool
	ClipboardCaseSensitive bool
	ClipboardLimit      int // retention cap, rows
	ShellLimit          int // retention cap, rows
}

// DefaultSettings mirrors the original implementation's defaults: both
// streams captured, case-sensitive, no retention cap until configured.
func DefaultSettings() Settings {
	return Settings{
		CaptureShell:           true,
		CaptureClipboard:       true,
		ShellCaseSensitive:     true,
		ClipboardCaseSensitive: true,
		ClipboardLimit:         5000,
		ShellLimit:             20000,
	}
}

// PrivacyPolicy gates what shell content is allowed to reach the store.
// Four string-list matchers over command content, plus excluded
// working-directory prefixes.
type PrivacyPolicy struct {
	Contains        []string
	StartsWith      []string
	EndsWith        []string
	Regex           []string
	ExcludedDirs    []string
}
