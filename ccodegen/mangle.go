package ccodegen

import (
	"strconv"
	"strings"
)

// cReservedWords is the set of C keywords plus common standard-library
// macro names that a hemlock identifier might otherwise collide with.
var cReservedWords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extern": true, "float": true, "for": true, "goto": true,
	"if": true, "inline": true, "int": true, "long": true, "register": true,
	"restrict": true, "return": true, "short": true, "signed": true,
	"sizeof": true, "static": true, "struct": true, "switch": true,
	"typedef": true, "union": true, "unsigned": true, "void": true,
	"volatile": true, "while": true, "_Bool": true, "_Complex": true,
	"_Imaginary": true, "NULL": true, "errno": true, "bool": true, "true": true,
	"false": true,
}

// reservedPrefixes are namespaces the runtime and the codegen-internal
// machinery both own; a user identifier that happens to start with one
// of these gets escaped so it can never shadow a runtime symbol or a
// generated temporary/label/module/env/var name.
var reservedPrefixes = []string{"hml_", "HML_", "Hml", "__hml", "_t", "_L", "_mod", "_env", "_v", "hu_"}

// Mangle deterministically rewrites a hemlock identifier into a C
// identifier per §4.6: reserved identifiers gain a fixed `hu_` prefix
// ("hemlock user"); everything else passes through verbatim. The
// transform is total and injective on identifiers that were already
// valid C identifiers, since the prefix itself is one of the reserved
// namespaces above and can therefore never arise from an unprefixed
// source name.
func Mangle(name string) string {
	if cReservedWords[name] || hasReservedPrefix(name) {
		return "hu_" + name
	}
	return name
}

func hasReservedPrefix(name string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// ModulePrefix derives the mangling prefix applied to every identifier
// imported from modulePath, keyed deterministically on the path so two
// imports of the same module always mangle to the same prefix within a
// compilation unit.
func ModulePrefix(modulePath string) string {
	var sb strings.Builder
	sb.WriteString("m_")
	for _, r := range modulePath {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// tempName returns a fresh codegen-internal temporary name; the "_t"
// prefix is itself reserved (see reservedPrefixes) so it can never
// collide with a mangled user identifier.
func (g *Codegen) tempName() string {
	g.tmpCounter++
	return "_t" + strconv.Itoa(g.tmpCounter)
}

// labelName returns a fresh codegen-internal label.
func (g *Codegen) labelName(tag string) string {
	g.labelCounter++
	return "_L" + tag + strconv.Itoa(g.labelCounter)
}
