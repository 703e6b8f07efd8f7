package text

import "strings"

// UnescapeTestContent supports content using a special character instead of backticks.
//
// Raw string literals cannot contain backticks but Markdown code spans need them.
// The character ” is replaced by a backtick. Example: ”fmt.Println()” becomes `fmt.Println()`.
func UnescapeTestContent(content string) string {
	result := strings.ReplaceAll(content, "”", "`")
	// ‛ is accepted too
	result = strings.ReplaceAll(result, "‛", "`")
	return result
}
