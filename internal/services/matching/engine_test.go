package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payables-consolidation-backend/internal/diagnostics"
	"payables-consolidation-backend/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func inv(id, vendor string, amount int64, issue time.Time, due *time.Time) models.InvoiceRecord {
	return models.InvoiceRecord{
		InvoiceID:   id,
		VendorID:    "V",
		VendorName:  vendor,
		AmountMinor: amount,
		IssueDate:   issue,
		DueDate:     due,
		Status:      models.StatusOpen,
		SourceRunID: "run-1",
	}
}

func doc(id, vendor string, amount int64, ref time.Time, msgID string) models.DocumentRecord {
	return models.DocumentRecord{
		DocumentID:      id,
		VendorNameRaw:   vendor,
		AmountMinor:     amount,
		ReferenceDate:   ref,
		DocumentType:    models.DocTypeBoleto,
		SourceMessageID: msgID,
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestMatch_ExactReference(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	diag := diagnostics.NewCollector()

	invoices := []models.InvoiceRecord{
		inv("ACME-LTDA:INV-100", "Acme Ltda", 150000, day(2024, 1, 2), ptr(day(2024, 1, 10))),
	}
	documents := []models.DocumentRecord{
		doc("INV-100", "ACME LTDA", 150000, day(2024, 1, 9), "msg-001"),
	}

	pairs := engine.Match(invoices, documents, diag)
	require.Len(t, pairs, 1)
	require.NotNil(t, pairs[0].Document)
	assert.Equal(t, models.BasisExactID, pairs[0].MatchBasis)
	assert.Equal(t, 1.0, pairs[0].MatchScore)
	assert.Equal(t, "INV-100", pairs[0].Document.DocumentID)
	assert.Empty(t, diag.Warnings())
}

func TestMatch_ExactReferenceEmbedded(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	invoices := []models.InvoiceRecord{
		inv("ACME-LTDA:INV-100", "Acme Ltda", 150000, day(2024, 1, 2), nil),
	}
	documents := []models.DocumentRecord{
		doc("BOL/2024/inv-100", "Totally Different Name", 1, day(2024, 6, 1), "msg-001"),
	}

	pairs := engine.Match(invoices, documents, diagnostics.NewCollector())
	require.NotNil(t, pairs[0].Document)
	assert.Equal(t, models.BasisExactID, pairs[0].MatchBasis, "reference identity ignores vendor and amount")
}

func TestMatch_ShortFragmentDoesNotClaim(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	invoices := []models.InvoiceRecord{
		inv("12", "Acme Ltda", 100, day(2024, 1, 2), nil),
	}
	documents := []models.DocumentRecord{
		doc("DOC-3312-X", "Someone Else", 999, day(2024, 6, 1), "msg-001"),
	}

	pairs := engine.Match(invoices, documents, diagnostics.NewCollector())
	assert.Equal(t, models.BasisUnmatched, pairs[0].MatchBasis)
}

func TestMatch_DuplicateReferenceEarliestMessageWins(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	invoices := []models.InvoiceRecord{
		inv("ACME-LTDA:INV-100", "Acme Ltda", 150000, day(2024, 1, 2), nil),
	}
	documents := []models.DocumentRecord{
		doc("INV-100", "Acme", 150000, day(2024, 1, 9), "msg-002"),
		doc("INV-100", "Acme", 150000, day(2024, 1, 9), "msg-001"),
	}

	pairs := engine.Match(invoices, documents, diagnostics.NewCollector())
	require.NotNil(t, pairs[0].Document)
	assert.Equal(t, "msg-001", pairs[0].Document.SourceMessageID)
}

func TestMatch_FuzzyScore(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	diag := diagnostics.NewCollector()

	invoices := []models.InvoiceRecord{
		inv("ACME-LTDA:INV-200", "Acme Ltda", 150000, day(2024, 1, 1), ptr(day(2024, 1, 10))),
	}
	documents := []models.DocumentRecord{
		doc("BOLETO-88", "ACME", 150000, day(2024, 1, 7), "msg-001"),
	}

	pairs := engine.Match(invoices, documents, diag)
	require.NotNil(t, pairs[0].Document)
	assert.Equal(t, models.BasisAmountVendorDate, pairs[0].MatchBasis)
	// identical vendor after suffix stripping, due date 3 of 5 window days away:
	// 0.7*1.0 + 0.3*(2/5)
	assert.InDelta(t, 0.82, pairs[0].MatchScore, 1e-9)
}

func TestMatch_FuzzyGates(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	base := inv("ACME-LTDA:INV-200", "Acme Ltda", 150000, day(2024, 1, 1), ptr(day(2024, 1, 10)))

	// Amount differs and tolerance is zero.
	pairs := engine.Match(
		[]models.InvoiceRecord{base},
		[]models.DocumentRecord{doc("B-1", "Acme", 150001, day(2024, 1, 10), "msg-001")},
		diagnostics.NewCollector(),
	)
	assert.Equal(t, models.BasisUnmatched, pairs[0].MatchBasis)

	// Same document passes once tolerance covers the difference.
	cfg := DefaultConfig()
	cfg.AmountToleranceMinor = 100
	pairs = NewEngine(cfg).Match(
		[]models.InvoiceRecord{base},
		[]models.DocumentRecord{doc("B-1", "Acme", 150001, day(2024, 1, 10), "msg-001")},
		diagnostics.NewCollector(),
	)
	assert.Equal(t, models.BasisAmountVendorDate, pairs[0].MatchBasis)

	// Vendor similarity below threshold.
	pairs = engine.Match(
		[]models.InvoiceRecord{base},
		[]models.DocumentRecord{doc("B-2", "Umbrella Corp", 150000, day(2024, 1, 10), "msg-001")},
		diagnostics.NewCollector(),
	)
	assert.Equal(t, models.BasisUnmatched, pairs[0].MatchBasis)
}

func TestMatch_DateOutsideWindowStillEligible(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	invoices := []models.InvoiceRecord{
		inv("ACME-LTDA:INV-200", "Acme Ltda", 150000, day(2024, 1, 1), ptr(day(2024, 1, 10))),
	}
	documents := []models.DocumentRecord{
		doc("B-1", "Acme", 150000, day(2024, 3, 1), "msg-001"),
	}

	pairs := engine.Match(invoices, documents, diagnostics.NewCollector())
	require.NotNil(t, pairs[0].Document)
	assert.InDelta(t, 0.7, pairs[0].MatchScore, 1e-9, "proximity term is zero beyond the window")
}

func TestMatch_GlobalGreedyAssignment(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	// Invoice A is listed first but its due date is further from the document;
	// invoice B must still win the single document.
	invoices := []models.InvoiceRecord{
		inv("A:1", "Acme Ltda", 150000, day(2024, 1, 1), ptr(day(2024, 1, 15))),
		inv("B:2", "Acme Ltda", 150000, day(2024, 1, 1), ptr(day(2024, 1, 10))),
	}
	documents := []models.DocumentRecord{
		doc("BOLETO-1", "Acme", 150000, day(2024, 1, 10), "msg-001"),
	}

	pairs := engine.Match(invoices, documents, diagnostics.NewCollector())
	require.Len(t, pairs, 2)
	assert.Equal(t, models.BasisUnmatched, pairs[0].MatchBasis)
	require.NotNil(t, pairs[1].Document)
	assert.InDelta(t, 1.0, pairs[1].MatchScore, 1e-9)
}

func TestMatch_DocumentClaimedOnce(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	invoices := []models.InvoiceRecord{
		inv("A:1", "Acme Ltda", 150000, day(2024, 1, 1), ptr(day(2024, 1, 10))),
		inv("A:2", "Acme Ltda", 150000, day(2024, 1, 1), ptr(day(2024, 1, 10))),
	}
	documents := []models.DocumentRecord{
		doc("BOLETO-1", "Acme", 150000, day(2024, 1, 10), "msg-001"),
	}

	pairs := engine.Match(invoices, documents, diagnostics.NewCollector())
	matched := 0
	for _, p := range pairs {
		if p.Document != nil {
			matched++
		}
	}
	assert.Equal(t, 1, matched)
	assert.Len(t, pairs, len(invoices), "every invoice yields a pair")
}

func TestMatch_AmbiguousTieWarns(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	diag := diagnostics.NewCollector()

	invoices := []models.InvoiceRecord{
		inv("A:1", "Acme Ltda", 150000, day(2024, 1, 1), ptr(day(2024, 1, 10))),
	}
	documents := []models.DocumentRecord{
		doc("BOLETO-2", "Acme", 150000, day(2024, 1, 10), "msg-002"),
		doc("BOLETO-1", "Acme", 150000, day(2024, 1, 10), "msg-001"),
	}

	pairs := engine.Match(invoices, documents, diag)
	require.NotNil(t, pairs[0].Document)
	assert.Equal(t, "msg-001", pairs[0].Document.SourceMessageID, "earliest message id breaks the tie")

	warnings := diag.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, diagnostics.WarnAmbiguousMatch, warnings[0].Code)
	assert.Equal(t, "A:1", warnings[0].InvoiceID)
}

func TestMatch_DeterministicAcrossRuns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 8
	engine := NewEngine(cfg)

	var invoices []models.InvoiceRecord
	var documents []models.DocumentRecord
	for i := 0; i < 20; i++ {
		due := day(2024, 1, 1+i%10)
		invoices = append(invoices, inv(
			"V:"+string(rune('A'+i)), "Vendor Alpha Ltda", int64(1000*(i%5)),
			day(2024, 1, 1), &due,
		))
		documents = append(documents, doc(
			"D-"+string(rune('A'+i)), "Vendor Alpha", int64(1000*(i%5)),
			day(2024, 1, 1+(i*3)%10), "msg-"+string(rune('a'+i)),
		))
	}

	first := engine.Match(invoices, documents, diagnostics.NewCollector())
	for run := 0; run < 5; run++ {
		again := engine.Match(invoices, documents, diagnostics.NewCollector())
		assert.Equal(t, first, again)
	}
}

func TestVendorSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, VendorSimilarity("Acme Ltda", "ACME"))
	assert.Equal(t, 1.0, VendorSimilarity("São João Ltda", "SAO JOAO"))
	assert.Equal(t, 0.0, VendorSimilarity("", "Acme"))
	assert.Less(t, VendorSimilarity("Acme Ltda", "Umbrella Corp"), 0.5)
	assert.Greater(t, VendorSimilarity("Acme Comercio Ltda", "ACME COMERCIO"), 0.99)
}

func TestReferenceMatching(t *testing.T) {
	keys := invoiceRefKeys(inv("ACME-LTDA:INV-100", "Acme Ltda", 0, day(2024, 1, 1), nil))
	assert.True(t, referenceMatches("inv-100", keys))
	assert.True(t, referenceMatches("INV 100", keys))
	assert.True(t, referenceMatches("BOL/2024/INV-100", keys))
	assert.False(t, referenceMatches("INV-200", keys))
	assert.False(t, referenceMatches("", keys))
}
