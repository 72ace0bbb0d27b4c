package memory

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// baseConfidence is the confidence a freshly-learned (or freshly-reset)
// L2 rule starts at.
const baseConfidence = 0.5

// maxConfidence bounds the monotonic growth; confirmations never push a
// rule to absolute certainty.
const maxConfidence = 0.99

// GetSemanticRule returns the learned account preference for (client,
// supplier, document kind), if one has been learned yet.
func (s *Store) GetSemanticRule(clientID, supplierTaxID string, kind types.DocumentKind) (*types.SemanticRule, error) {
	s.mu.Lock()
	var body string
	err := s.db.QueryRow(
		`SELECT body FROM semantic WHERE client_id = ? AND supplier_tax_id = ? AND document_kind = ?`,
		clientID, supplierTaxID, string(kind),
	).Scan(&body)
	s.mu.Unlock()
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "query semantic rule")
	}
	var rule types.SemanticRule
	if err := json.Unmarshal([]byte(body), &rule); err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "decode semantic rule")
	}
	return &rule, nil
}

// Observe records one accepted account choice for (client, supplier,
// document kind) — spec.md §4.4: "when the user corrects a booking, the
// pair ... -> chosen account is stored; a later proposal for the same pair
// reuses the learned account ... Repeated confirmations increase
// confidence monotonically; one correction to a different account resets
// it." The same method handles both cases: account equal to the stored
// one is a confirmation, account different is a correction.
func (s *Store) Observe(clientID, supplierTaxID string, kind types.DocumentKind, account string) (*types.SemanticRule, error) {
	existing, err := s.GetSemanticRule(clientID, supplierTaxID, kind)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var rule types.SemanticRule
	switch {
	case existing == nil:
		rule = types.SemanticRule{
			ClientID: clientID, SupplierTaxID: supplierTaxID, DocumentKind: kind,
			Account: account, Confidence: baseConfidence, Confirmations: 1, UpdatedAt: now,
		}
	case existing.Account == account:
		// Confirmation: grow confidence monotonically toward maxConfidence,
		// never resetting confirmations already accrued.
		grown := existing.Confidence + (maxConfidence-existing.Confidence)*0.3
		if grown > maxConfidence {
			grown = maxConfidence
		}
		rule = *existing
		rule.Confidence = grown
		rule.Confirmations++
		rule.UpdatedAt = now
	default:
		// Correction to a different account resets confidence entirely.
		rule = types.SemanticRule{
			ClientID: clientID, SupplierTaxID: supplierTaxID, DocumentKind: kind,
			Account: account, Confidence: baseConfidence, Confirmations: 1, UpdatedAt: now,
		}
	}

	body, err := encode(rule)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "encode semantic rule")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO semantic (client_id, supplier_tax_id, document_kind, body) VALUES (?, ?, ?, ?)
		 ON CONFLICT(client_id, supplier_tax_id, document_kind) DO UPDATE SET body = excluded.body`,
		rule.ClientID, rule.SupplierTaxID, string(rule.DocumentKind), body,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "upsert semantic rule")
	}
	return &rule, nil
}
