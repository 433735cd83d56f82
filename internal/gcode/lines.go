package gcode

// LineBreaks counts line terminators in s. "\r\n", "\n" and a lone "\r"
// each end one line.
func LineBreaks(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			n++
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				continue
			}
			n++
		}
	}
	return n
}

// CountLines returns the number of lines in s; the empty string has one.
func CountLines(s string) int {
	return LineBreaks(s) + 1
}

// SplitLines splits s into CountLines(s) lines without their terminators.
func SplitLines(s string) []string {
	lines := make([]string, 0, CountLines(s))
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	return append(lines, s[start:])
}
