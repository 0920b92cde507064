package service

import (
	"regexp"
	"strings"
)

// всё, что не буква/диакритика/цифра/пробел, превращаем в пробел
// (\p{M} нужен для тайских и прочих комбинируемых знаков)
var punct = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s]+`)

// Normalize приводит свободный текст (имя клиента) к виду для сравнения:
// нижний регистр, без пунктуации, пробелы схлопнуты.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out := strings.ToLower(s)
	out = punct.ReplaceAllString(out, " ")
	return collapseSpaces(out)
}

// Схлопывание пробелов
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
