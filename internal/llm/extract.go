package llm

// ExtractFirstJSON returns the first balanced {...} block in s, tolerating
// prose or code fences around it. If no balanced block exists the input is
// returned unchanged so the caller's unmarshal surfaces the real error.
func ExtractFirstJSON(s string) string {
	start := -1
	depth := 0
	for i, ch := range s {
		if ch == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == '}' {
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return s
}
