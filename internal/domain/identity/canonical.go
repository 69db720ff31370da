package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var fragmentStripper = strings.NewReplacer(".", "", "-", "", " ", "")

var ownerStripper = strings.NewReplacer(" ", "", "-", "")

// LoginFragment is the canonical login used for matching: the part before
// '@', lower-cased, with dots, hyphens and spaces removed.
func LoginFragment(login string) string {
	return fragmentStripper.Replace(BareLogin(login))
}

// BareLogin strips the e-mail domain and lower-cases the login.
func BareLogin(login string) string {
	login = strings.TrimSpace(login)
	if i := strings.Index(login, "@"); i >= 0 {
		login = login[:i]
	}
	return strings.ToLower(login)
}

// OwnerKey canonicalizes an owner cell or full name: lower-cased with
// spaces and hyphens removed.
func OwnerKey(name string) string {
	return ownerStripper.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// DisplayName returns the display name for login from names, falling back
// to the capitalized login.
func DisplayName(names Map, login string) string {
	if name, ok := names[BareLogin(login)]; ok && name != "" {
		return name
	}
	return Capitalize(BareLogin(login))
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// foldName is OwnerKey with diacritics removed, used only for display-name
// matching so that "José" resolves for login "jose".
func foldName(name string) string {
	decomposed := norm.NFD.String(OwnerKey(name))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
