package recipient

// ibanChecksumValid validates an IBAN via the ISO 7064 mod-97 algorithm:
// move the first four characters to the end, map letters A-Z to 10-35,
// and compute the remainder mod 97 incrementally (the full number can
// exceed any integer width). Valid iff the remainder is 1.
//
// The input must already be uppercase and match the IBAN shape.
func ibanChecksumValid(iban string) bool {
	rearranged := iban[4:] + iban[:4]

	rem := 0
	for _, ch := range rearranged {
		switch {
		case ch >= '0' && ch <= '9':
			rem = (rem*10 + int(ch-'0')) % 97
		case ch >= 'A' && ch <= 'Z':
			v := int(ch-'A') + 10
			// Letters map to two digits, so shift by 100.
			rem = (rem*100 + v) % 97
		default:
			return false
		}
	}
	return rem == 1
}
