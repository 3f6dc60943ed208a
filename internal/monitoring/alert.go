package monitoring

import (
	"github.com/rs/zerolog/log"
)

// AlertInvariant raises an alert for a consistency-verifier violation. A
// violation means a write workflow produced an inconsistent result, so this
// logs at error level where the alerting pipeline picks it up.
func AlertInvariant(check string, labels map[string]string) {
	log.Error().
		Str("check", check).
		Fields(labels).
		Msg("ALERT: tenancy invariant violation detected")
}
