package ngram

import "fmt"

// Fixed shape of the CMS full-text table the routines operate on.
const (
	FulltextTable    = "fulltext_search"
	SentinelColumn   = "owner_id"
	ReferencedTable  = "user"
	ReferencedColumn = "id"
	DeleteRule       = "SET NULL"
	NgramParser      = "ngram"
)

// FulltextColumns is the ordered column pair covered by the full-text index.
var FulltextColumns = []string{"title", "text"}

// Process labels the routine in error messages and logs.
type Process string

const (
	ProcessInstall   Process = "Installation"
	ProcessUninstall Process = "Uninstallation"
	ProcessStatus    Process = "Status check"
)

// IndexMode is the tokenizer attached to the full-text index.
type IndexMode int

const (
	ModePlain IndexMode = iota
	ModeNgram
)

// String returns "plain" or "ngram"
func (m IndexMode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeNgram:
		return "ngram"
	default:
		return fmt.Sprintf("IndexMode(%d)", int(m))
	}
}

// Parser returns the full-text parser name for the mode, empty for plain.
func (m IndexMode) Parser() string {
	if m == ModeNgram {
		return NgramParser
	}
	return ""
}

func columnsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
