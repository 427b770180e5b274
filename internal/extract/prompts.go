package extract

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/extract_fields.md
var extractFieldsPromptRaw string

// ExtractFieldsTemplate is the parsed instruction sent with every posting.
// Parsed once at package init; reused on every Extract call.
var ExtractFieldsTemplate = template.Must(template.New("extract_fields").Parse(extractFieldsPromptRaw))
