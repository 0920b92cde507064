package fileio

import (
	"regexp"
	"strings"
)

var rxHeaderJunk = regexp.MustCompile(`[^\p{L}\p{M}\p{N}]+`)

const minPartialKey = 4

// нормализуем имя колонки: нижний регистр, без служ.символов и лишних пробелов, ё→е
func normHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("ё", "е", "_", " ").Replace(s)
	s = rxHeaderJunk.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// resolveKey ищет реальный ключ в записи по желаемому имени.
// Поддерживает варианты через "|" (например: "Customer|Клиент|Покупатель").
func resolveKey(rec map[string]string, want string) string {
	want = strings.TrimSpace(want)
	if want == "" {
		return ""
	}
	alts := strings.Split(want, "|")
	for i := range alts {
		alts[i] = strings.TrimSpace(alts[i])
	}

	// 1) точное совпадение (как есть)
	for _, a := range alts {
		if _, ok := rec[a]; ok {
			return a
		}
	}

	nWantAll := make([]string, 0, len(alts))
	for _, a := range alts {
		if n := normHeaderKey(a); n != "" {
			nWantAll = append(nWantAll, n)
		}
	}

	// 2) точное по нормализованному, в порядке вариантов
	norm := make(map[string]string, len(rec))
	for k := range rec {
		if nk := normHeaderKey(k); nk != "" {
			norm[k] = nk
		}
	}
	for _, n := range nWantAll {
		for k, nk := range norm {
			if nk == n {
				return k
			}
		}
	}

	// 3) частичное (составные заголовки: "total amount thb" содержит "total amount")
	bestKey, bestScore := "", 0
	for k, nk := range norm {
		score := 0
		for _, n := range nWantAll {
			// короткие ("id", "no") только точно, иначе ловят "paid amount"
			if len([]rune(n)) < minPartialKey || len([]rune(nk)) < minPartialKey {
				continue
			}
			if strings.Contains(nk, n) || strings.Contains(n, nk) {
				score = max(score, len(n))
			}
		}
		// при равном счёте берём меньший ключ, чтобы не зависеть от порядка map
		if score > bestScore || (score == bestScore && score > 0 && k < bestKey) {
			bestScore, bestKey = score, k
		}
	}
	return bestKey
}

// looksLikeHeaderMap: повторная шапка внутри данных (склейка выгрузок).
func looksLikeHeaderMap(m map[string]string) bool {
	cnt := 0
	for k, v := range m {
		if v != "" && normHeaderKey(v) == normHeaderKey(k) {
			cnt++
		}
	}
	return cnt >= 2
}
