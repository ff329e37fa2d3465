package observability

import (
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

// InstrumentDB registers the GORM tracing plugin so ledger queries show up as
// child spans of the conversation turn or admin request that issued them.
// Bound query variables are left out of span attributes; they carry emails
// and phone numbers.
func InstrumentDB(db *gorm.DB, enabled bool) error {
	if !enabled {
		return nil
	}
	return db.Use(tracing.NewPlugin(tracing.WithoutQueryVariables()))
}
