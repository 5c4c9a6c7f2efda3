package corpus

import "unicode"

// DefaultIdentifierPlaceholder replaces identifiers when normalization is on.
const DefaultIdentifierPlaceholder = "insert_identifier"

var javaReserved = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"var": true, "record": true, "yield": true,
	"true": true, "false": true, "null": true,
}

// IsIdentifier reports whether tok has the lexical shape of a Java identifier and is not
// a reserved word or literal.
func IsIdentifier(tok string) bool {
	if tok == "" || javaReserved[tok] {
		return false
	}
	for i, r := range tok {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// NormalizeIdentifiers returns a copy of c with every identifier token replaced by
// placeholder. An empty placeholder selects DefaultIdentifierPlaceholder.
func NormalizeIdentifiers(c Corpus, placeholder string) Corpus {
	if placeholder == "" {
		placeholder = DefaultIdentifierPlaceholder
	}
	out := make(Corpus, len(c))
	for i, m := range c {
		nm := make(Method, len(m))
		for j, tok := range m {
			if IsIdentifier(tok) {
				nm[j] = placeholder
			} else {
				nm[j] = tok
			}
		}
		out[i] = nm
	}
	return out
}
