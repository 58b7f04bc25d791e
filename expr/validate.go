package expr

// ValidateSyntax checks whether an expression string is syntactically valid.
// Returns nil if valid, or a parse error describing the problem.
func ValidateSyntax(expression string) error {
	return ValidateSyntaxWithLimit(expression, DefaultMaxDepth)
}

// ValidateSyntaxWithLimit is ValidateSyntax with an explicit nesting limit.
func ValidateSyntaxWithLimit(expression string, maxDepth int) error {
	_, err := ParseWithLimit(expression, maxDepth)
	return err
}
