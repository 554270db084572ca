package matching

import (
	"strings"
	"unicode"

	"payables-consolidation-backend/internal/models"
	"payables-consolidation-backend/internal/textnorm"
)

// Document ids extracted from email vary in punctuation and casing
// ("inv-100", "INV 100", "BOL/2024/INV-100"), so references are compared on an
// alphanumeric-only folded form.

func normalizeReference(s string) string {
	folded := textnorm.Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// invoiceRefKeys returns the normalized identifiers a document reference may
// carry for this invoice: the full invoice id and, when the id is a composite
// vendor:number key, the invoice number alone.
func invoiceRefKeys(inv models.InvoiceRecord) []string {
	keys := []string{normalizeReference(inv.InvoiceID)}
	if sep := strings.LastIndex(inv.InvoiceID, ":"); sep >= 0 {
		if number := normalizeReference(inv.InvoiceID[sep+1:]); number != "" && number != keys[0] {
			keys = append(keys, number)
		}
	}
	return keys
}

// referenceMatches reports whether the document id equals one of the invoice
// keys or embeds one. Embedded matches require at least four characters so a
// short numeric fragment cannot claim a document.
func referenceMatches(documentID string, keys []string) bool {
	doc := normalizeReference(documentID)
	if doc == "" {
		return false
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if doc == key {
			return true
		}
		if len(key) >= 4 && strings.Contains(doc, key) {
			return true
		}
	}
	return false
}
