package domain

// EntryKind distinguishes the two capture streams.
type EntryKind string

const (
	EntryShell     EntryKind = "shell"
	EntryClipboard EntryKind = "clipboard"
)

// Entry is the primary captured record: a shell command or a clipboard
// value, together with the context it was captured under.
type Entry struct {
	ID         int64
	Kind       EntryKind
	Content    string
	Timestamp  int64 // unix seconds, event time
	TimesRun   int
	WorkingDir string
	User       string
	Host       string
	AppName    string
	WindowTitle string
	GitRepo    string
	GitBranch  string
	Embedding  []float32 // len == D when present
	CreatedAt  int64
	UpdatedAt  int64
}

// HasEmbedding reports whether this entry carries a dense vector.
func (e *Entry) HasEmbedding() bool {
	return len(e.Embedding) > 0
}

// EntryFilter parameterizes Store.Query.
type EntryFilter struct {
	Kind        EntryKind // empty = any
	ContentLike string
	WorkingDir  string
	AppName     string
	User        string
	Host        string
	Limit       int
}
