package strcoll

func Nth(nth int, slice []string) string {
	if slice != nil && len(slice) > nth {
		return slice[nth]
	}
	return ""
}

func Rest(nth int, slice []string) []string {
	if slice != nil && len(slice) > nth {
		return slice[nth:]
	}
	return make([]string, 0)
}

// returns true if s is contained in xs
func Contains(s string, xs []string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
