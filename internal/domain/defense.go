package domain

// Language selects the generation language. The set is fixed; anything
// else is rejected before a burn is attempted.
type Language string

// Supported generation languages.
const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
)

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageChinese
}

// DefenseStrategy is the parsed output of the generation collaborator.
type DefenseStrategy struct {
	Strategy    string // strategy text, label prefix stripped
	GarlicUsage string // usage instructions, label prefix stripped
	Raw         string // full completion text, the scoring input
}
