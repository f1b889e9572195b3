package normalization

import (
  "strings"
)

func ParseInputString(input string) string {
  normalized := strings.ToLower(strings.TrimSpace(input))
  return normalized
}

func ParseInputStringPtr(input *string) *string {
  normalized := strings.ToLower(strings.TrimSpace(*input))
  return &normalized
}

func TrimInputString(input string) string {
  return strings.TrimSpace(input)
}

// CollapseWhitespace squeezes runs of whitespace down to single spaces.
// Prompts arrive copy-pasted from anywhere, so this runs before analysis.
func CollapseWhitespace(input string) string {
  return strings.Join(strings.Fields(input), " ")
}
