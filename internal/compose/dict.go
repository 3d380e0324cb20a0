package compose

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var refPattern = regexp.MustCompile(`^\s*(\d+)\s+(\d+)\s+R\s*$`)
var refFindPattern = regexp.MustCompile(`(\d+)\s+(\d+)\s+R`)
var kidsRefPattern = regexp.MustCompile(`(\d+)\s+\d+\s+R`)

// parseObjectRef parses "N G R" (generation ignored) into N.
func parseObjectRef(s string) (int, error) {
	m := refPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("not an object reference: %q", s)
	}
	return strconv.Atoi(m[1])
}

// parseObjectRefArray extracts every "N G R" reference inside a "[...]"
// array value, in order.
func parseObjectRefArray(s string) []int {
	matches := kidsRefPattern.FindAllStringSubmatch(s, -1)
	nums := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			nums = append(nums, n)
		}
	}
	return nums
}

// findKeyValueSpan locates the first occurrence of "/key" in raw (a
// dictionary's raw bytes, including its enclosing << >>) and returns the
// byte range of its value (not including the key itself), handling nested
// dictionaries, arrays, indirect references and names as value shapes. The
// search does not track nesting depth, so a matching key inside a nested
// dictionary that comes first is the one found.
func findKeyValueSpan(raw []byte, key string) (valueStart, valueEnd int, found bool) {
	needle := []byte("/" + key)
	for i := 0; i+len(needle) <= len(raw); i++ {
		if !bytesHasPrefixAt(raw, i, needle) {
			continue
		}
		after := i + len(needle)
		if after < len(raw) && !isDelimiter(raw[after]) {
			continue // e.g. "/Resources" matching inside "/ResourcesX"
		}
		valueStart = skipSpace(raw, after)
		valueEnd = spanOfValue(raw, valueStart)
		return valueStart, valueEnd, true
	}
	return 0, 0, false
}

func bytesHasPrefixAt(raw []byte, i int, needle []byte) bool {
	if i+len(needle) > len(raw) {
		return false
	}
	for j, c := range needle {
		if raw[i+j] != c {
			return false
		}
	}
	return true
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '/', '<', '>', '[', ']', '(', ')':
		return true
	default:
		return false
	}
}

func skipSpace(raw []byte, i int) int {
	for i < len(raw) && (raw[i] == ' ' || raw[i] == '\t' || raw[i] == '\r' || raw[i] == '\n') {
		i++
	}
	return i
}

// spanOfValue returns the end offset of the value starting at start,
// supporting the shapes a dictionary value can take in these objects:
// nested dictionary, array, indirect reference, name, or number.
func spanOfValue(raw []byte, start int) int {
	if start >= len(raw) {
		return start
	}
	switch {
	case start+1 < len(raw) && raw[start] == '<' && raw[start+1] == '<':
		return balancedSpan(raw, start, []byte("<<"), []byte(">>"))
	case raw[start] == '[':
		return balancedSpan(raw, start, []byte("["), []byte("]"))
	case raw[start] == '/':
		end := start + 1
		for end < len(raw) && !isDelimiter(raw[end]) {
			end++
		}
		return end
	default:
		// Indirect reference "N G R" or a bare number/other scalar: consume
		// up to the next delimiter, then (for references) one more token.
		end := start
		for end < len(raw) && !isDelimiter(raw[end]) {
			end++
		}
		rest := skipSpace(raw, end)
		restEnd := rest
		for restEnd < len(raw) && !isDelimiter(raw[restEnd]) {
			restEnd++
		}
		if restEnd > rest && isAllDigits(raw[rest:restEnd]) {
			afterGen := skipSpace(raw, restEnd)
			if afterGen < len(raw) && raw[afterGen] == 'R' {
				return afterGen + 1
			}
		}
		return end
	}
}

func isAllDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// balancedSpan returns the offset just past the close token matching the
// open token at raw[start:], counting nesting depth.
func balancedSpan(raw []byte, start int, open, close []byte) int {
	depth := 0
	i := start
	for i < len(raw) {
		if bytesHasPrefixAt(raw, i, open) {
			depth++
			i += len(open)
			continue
		}
		if bytesHasPrefixAt(raw, i, close) {
			depth--
			i += len(close)
			if depth == 0 {
				return i
			}
			continue
		}
		i++
	}
	return i
}

// extractDictValue returns the raw text of key's value within raw, or ""
// if absent.
func extractDictValue(raw []byte, key string) string {
	start, end, ok := findKeyValueSpan(raw, key)
	if !ok {
		return ""
	}
	return string(raw[start:end])
}

// removeKey deletes "/key <value>" from raw, including the key name, if
// present. Used for the flatten pass (/AcroForm, /Annots).
func removeKey(raw []byte, key string) []byte {
	needle := []byte("/" + key)
	idx := -1
	for i := 0; i+len(needle) <= len(raw); i++ {
		if bytesHasPrefixAt(raw, i, needle) {
			after := i + len(needle)
			if after >= len(raw) || isDelimiter(raw[after]) {
				idx = i
				break
			}
		}
	}
	if idx == -1 {
		return raw
	}
	valueStart := skipSpace(raw, idx+len(needle))
	valueEnd := spanOfValue(raw, valueStart)
	out := make([]byte, 0, len(raw)-(valueEnd-idx))
	out = append(out, raw[:idx]...)
	out = append(out, raw[valueEnd:]...)
	return out
}

// replaceOrInsertKey sets "/key value" within raw's top-level dictionary,
// replacing an existing entry or inserting one just before the dict's
// closing ">>". raw must be the full "<<...>>" dictionary text.
func replaceOrInsertKey(raw []byte, key, value string) []byte {
	start, end, ok := findKeyValueSpan(raw, key)
	if ok {
		out := make([]byte, 0, len(raw)+len(value))
		out = append(out, raw[:start]...)
		out = append(out, []byte(value)...)
		out = append(out, raw[end:]...)
		return out
	}

	closeIdx := strings.LastIndex(string(raw), ">>")
	if closeIdx == -1 {
		return raw
	}
	insertion := []byte("/" + key + " " + value + " ")
	out := make([]byte, 0, len(raw)+len(insertion))
	out = append(out, raw[:closeIdx]...)
	out = append(out, insertion...)
	out = append(out, raw[closeIdx:]...)
	return out
}
