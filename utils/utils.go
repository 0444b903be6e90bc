package utils

// CopyBytes returns an exact copy of the provided bytes.
func CopyBytes(b []byte) (copiedBytes []byte) {
	if b == nil {
		return nil
	}
	copiedBytes = make([]byte, len(b))
	copy(copiedBytes, b)

	return
}

// BytesToString converts a key into the string form used by map and redis keys.
func BytesToString(b []byte) string {
	return string(b)
}

// StringToBytes converts a redis reply back into bytes.
func StringToBytes(s string) []byte {
	return []byte(s)
}

// HasPrefix reports whether key starts with prefix.
func HasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

// IncrementBytes returns the smallest byte string greater than every key
// carrying b as a prefix, or nil when no such bound exists.
func IncrementBytes(b []byte) []byte {
	limit := CopyBytes(b)
	for i := len(limit) - 1; i >= 0; i-- {
		if limit[i] < 0xff {
			limit[i]++
			return limit[:i+1]
		}
	}
	return nil
}
