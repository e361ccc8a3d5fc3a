package fields

// PDFName resolves a logical field name to the template's actual field name.
func PDFName(logical string) string {
	if name, ok := Aliases[logical]; ok {
		return name
	}
	return logical
}
