package gma

// Placeholders written by the packing tool when the addon author left a
// field unfilled. The author stub differs between the two layouts.
const (
	stubAuthorPlain     = "author"
	stubAuthorJSON      = "Author Name"
	stubDescriptionJSON = "Description"
)

// Normalize clears known placeholder values. A cleared field stays present
// with an empty value, so "the addon has no author" remains distinguishable
// from "the author field was never read".
func Normalize(e HeaderExtract, v FormatVariant) HeaderExtract {
	authorStub := stubAuthorPlain
	if v.UsesJSONChunk {
		authorStub = stubAuthorJSON
	}
	if e.Author.Present && e.Author.Value == authorStub {
		e.Author = Some("")
	}
	// Plain-text descriptions are never treated as stubs.
	if v.UsesJSONChunk && e.Description.Present && e.Description.Value == stubDescriptionJSON {
		e.Description = Some("")
	}
	return e
}
