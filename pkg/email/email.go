package email

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize trims surrounding whitespace and lower-cases an email address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// LooksValid is a shallow shape check: one '@' with something on both sides
// and a dot in the domain. The backend remains the real validator.
func LooksValid(address string) bool {
	at := strings.IndexByte(address, '@')
	if at <= 0 || at != strings.LastIndexByte(address, '@') {
		return false
	}
	domain := address[at+1:]
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1 && !strings.ContainsAny(address, " \t\n")
}

// DeriveNameFromEmail turns the local part of address into a first and last
// name: "ada.lovelace" gives "Ada", "Lovelace". Missing names default to "User".
func DeriveNameFromEmail(address string) (first, last string) {
	local, _, _ := strings.Cut(address, "@")
	words := strings.FieldsFunc(local, func(r rune) bool {
		return strings.ContainsRune("._-+", r)
	})

	first, last = "User", "User"
	switch len(words) {
	case 0:
	case 1:
		first = title(words[0])
	default:
		first, last = title(words[0]), title(words[len(words)-1])
	}
	return first, last
}

func title(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + word[size:]
}
