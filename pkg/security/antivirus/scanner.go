package antivirus

import "context"

// Verdict is the outcome of scanning one upload. Scan errors are reported
// as infected so callers reject the file.
type Verdict struct {
	Infected bool
	Threat   string
	Scanner  string
	Err      error
}

// Scanner inspects upload bytes before they are stored.
type Scanner interface {
	Scan(ctx context.Context, name string, data []byte) Verdict
	Name() string
}

// Nop accepts everything. Used when no scanner daemon is configured.
type Nop struct{}

var _ Scanner = Nop{}

func (Nop) Scan(ctx context.Context, name string, data []byte) Verdict {
	return Verdict{Scanner: "noop"}
}

func (Nop) Name() string { return "noop" }
