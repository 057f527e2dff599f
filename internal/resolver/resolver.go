// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package resolver decides how a record whose local and remote versions
// diverged converges back to one payload.
//
// Resolution is a pure function over three payload snapshots: the base
// (the payload as of the last successful reconciliation), the local
// payload, and the remote payload. Given the same inputs it always
// produces the same output, which is what makes sync convergence
// testable.
package resolver

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/MKhiriev/go-offsync/models"
)

// FieldClass categorises a payload field for conflict resolution.
type FieldClass string

const (
	// ClassUserEditable marks free-form fields (names, notes, text): on a
	// contested change the local value wins, preserving the most recent
	// user intent.
	ClassUserEditable FieldClass = "user_editable"

	// ClassCriticalNumeric marks business-critical numeric fields (fees,
	// quantities, status enums): on a contested change the remote value
	// wins to avoid diverging financial state, unless the local edit was
	// flagged as a manual override.
	ClassCriticalNumeric FieldClass = "critical_numeric"

	// ClassUnknown is the implicit class of any field the policy does not
	// list. Contested changes to unknown fields are never auto-resolved.
	ClassUnknown FieldClass = "unknown"
)

// Policy maps payload field names to their [FieldClass]. Fields absent
// from the policy are [ClassUnknown].
type Policy map[string]FieldClass

// Class returns the class of the named field.
func (p Policy) Class(field string) FieldClass {
	if c, ok := p[field]; ok {
		return c
	}
	return ClassUnknown
}

// Resolution is the outcome of resolving one divergent record pair.
type Resolution struct {
	// Strategy names which rule produced the outcome. When it is
	// [models.ResolutionManualReview], MergedPayload is nil and the caller
	// must persist the conflict for an operator.
	Strategy models.ResolutionStrategy

	// MergedPayload is the converged payload, valid for every strategy
	// except manual review.
	MergedPayload json.RawMessage

	// ContestedFields lists the fields both sides changed to different
	// values, in sorted order.
	ContestedFields []string
}

// Resolve merges a divergent local/remote payload pair against their
// common base. The rules are applied in exactly this order:
//
//  1. Changes touching disjoint field sets merge field-by-field: the
//     remote wins fields only it changed, the local wins fields only it
//     changed.
//  2. A field changed by both sides to different values keeps the local
//     value when it is user-editable.
//  3. A field changed by both sides to different values takes the remote
//     value when it is business-critical numeric, unless the local edit
//     carries a manual-override flag, in which case the local value wins.
//  4. Any contested field neither rule covers makes the whole record a
//     manual-review conflict: no merge is produced.
//
// overrides carries the per-field manual-override flags attached at local
// edit time.
func Resolve(base, local, remote json.RawMessage, policy Policy, overrides models.Overrides) (Resolution, error) {
	baseFields, err := decodeFields(base)
	if err != nil {
		return Resolution{}, fmt.Errorf("decode base payload: %w", err)
	}
	localFields, err := decodeFields(local)
	if err != nil {
		return Resolution{}, fmt.Errorf("decode local payload: %w", err)
	}
	remoteFields, err := decodeFields(remote)
	if err != nil {
		return Resolution{}, fmt.Errorf("decode remote payload: %w", err)
	}

	localChanged := changedFields(baseFields, localFields)
	remoteChanged := changedFields(baseFields, remoteFields)

	contested := make([]string, 0)
	for field := range localChanged {
		if !remoteChanged[field] {
			continue
		}
		if fieldsEqual(localFields, remoteFields, field) {
			// both sides made the same change, nothing to arbitrate
			continue
		}
		contested = append(contested, field)
	}
	sort.Strings(contested)

	// rule 4 screens first: one unresolvable field blocks the whole merge
	for _, field := range contested {
		if policy.Class(field) == ClassUnknown {
			return Resolution{
				Strategy:        models.ResolutionManualReview,
				ContestedFields: contested,
			}, nil
		}
	}

	merged := make(map[string]any, len(baseFields))
	for field, value := range baseFields {
		merged[field] = value
	}

	applyChanges(merged, remoteFields, remoteChanged)
	applyChanges(merged, localFields, localChanged)

	localWins := 0
	for _, field := range contested {
		winner := localFields
		switch policy.Class(field) {
		case ClassUserEditable:
			localWins++
		case ClassCriticalNumeric:
			if overrides[field] {
				localWins++
			} else {
				winner = remoteFields
			}
		}
		if value, ok := winner[field]; ok {
			merged[field] = value
		} else {
			delete(merged, field)
		}
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return Resolution{}, fmt.Errorf("encode merged payload: %w", err)
	}

	return Resolution{
		Strategy:        pickStrategy(contested, localWins),
		MergedPayload:   payload,
		ContestedFields: contested,
	}, nil
}

func pickStrategy(contested []string, localWins int) models.ResolutionStrategy {
	switch {
	case len(contested) == 0:
		return models.ResolutionFieldMerge
	case localWins == len(contested):
		return models.ResolutionLocalWins
	case localWins == 0:
		return models.ResolutionRemoteWins
	default:
		return models.ResolutionFieldMerge
	}
}

func decodeFields(payload json.RawMessage) (map[string]any, error) {
	if len(payload) == 0 {
		return map[string]any{}, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// changedFields reports every field whose value differs from the base,
// including fields added or removed.
func changedFields(base, side map[string]any) map[string]bool {
	changed := make(map[string]bool)
	for field, value := range side {
		baseValue, ok := base[field]
		if !ok || !reflect.DeepEqual(baseValue, value) {
			changed[field] = true
		}
	}
	for field := range base {
		if _, ok := side[field]; !ok {
			changed[field] = true
		}
	}
	return changed
}

func fieldsEqual(a, b map[string]any, field string) bool {
	av, aok := a[field]
	bv, bok := b[field]
	if aok != bok {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

func applyChanges(merged, side map[string]any, changed map[string]bool) {
	for field := range changed {
		if value, ok := side[field]; ok {
			merged[field] = value
		} else {
			delete(merged, field)
		}
	}
}
