package resolver

import "github.com/MKhiriev/go-offsync/internal/config"

// NewPolicy builds a resolution [Policy] from configuration. A field
// named in both lists is treated as critical numeric, the stricter of
// the two classes.
func NewPolicy(cfg config.Resolver) Policy {
	policy := make(Policy, len(cfg.UserEditableFields)+len(cfg.CriticalNumericFields))
	for _, field := range cfg.UserEditableFields {
		policy[field] = ClassUserEditable
	}
	for _, field := range cfg.CriticalNumericFields {
		policy[field] = ClassCriticalNumeric
	}
	return policy
}
