package handler

// validSlug reports whether s is a non-empty lowercase slug
// (lowercase letters, digits and dashes only).
func validSlug(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}
