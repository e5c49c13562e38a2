package utils

// StringPtr returns a pointer to the string value
func StringPtr(s string) *string {
	return &s
}

// UintPtr returns a pointer to the uint value, or nil for zero
func UintPtr(v uint) *uint {
	if v == 0 {
		return nil
	}
	return &v
}
