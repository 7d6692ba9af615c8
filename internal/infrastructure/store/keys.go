package store

import (
	"fmt"
	"strings"
)

// Key layout:
//
//	PROJECT#<id>        METADATA                           project
//	PROJECT#<id>        HANDOFF#<handoffId>                handoff
//	PROJECT#<id>        RUBRO#<baselineId>#<type>#<lineId> rubro
//	PROJECT#<id>        BASELINE#<baselineId>              project→baseline link
//	PROJECT#<id>        AUDIT#<auditId>                    audit entry
//	BASELINE#<id>       METADATA                           baseline
//	BASELINE#<id>       PROJECT                            baseline index
//	BASELINE#<id>       AUDIT#<auditId>                    audit entry
//	IDEMPOTENCY#<scope> IDEMPOTENCY#<key>                  idempotency record
const (
	projectPrefix     = "PROJECT#"
	baselinePrefix    = "BASELINE#"
	idempotencyPrefix = "IDEMPOTENCY#"

	SKMetadata      = "METADATA"
	SKBaselineIndex = "PROJECT"
	HandoffPrefix   = "HANDOFF#"
	RubroPrefix     = "RUBRO#"
	AuditPrefix     = "AUDIT#"
	LinkPrefix      = baselinePrefix
)

func ProjectPK(projectID string) string { return projectPrefix + projectID }

func BaselinePK(baselineID string) string { return baselinePrefix + baselineID }

func HandoffSK(handoffID string) string { return HandoffPrefix + handoffID }

func LinkSK(baselineID string) string { return LinkPrefix + baselineID }

// RubroSK addresses one materialized line of a baseline
func RubroSK(baselineID, lineType, lineItemID string) string {
	return fmt.Sprintf("%s%s#%s#%s", RubroPrefix, baselineID, strings.ToUpper(lineType), lineItemID)
}

func IdempotencyPK(scope string) string { return idempotencyPrefix + scope }

func IdempotencySK(key string) string { return idempotencyPrefix + key }

// EntityPK returns the partition of an audited entity
func EntityPK(entityType, entityID string) string {
	return strings.ToUpper(entityType) + "#" + entityID
}

// AuditSK addresses one audit entry. Entries carry their own timestamp;
// readers order by it.
func AuditSK(auditID string) string {
	return AuditPrefix + auditID
}

// ProjectIDFromPK strips the PROJECT# prefix, returning "" for other keys
func ProjectIDFromPK(pk string) string {
	if !strings.HasPrefix(pk, projectPrefix) {
		return ""
	}
	return strings.TrimPrefix(pk, projectPrefix)
}

// BaselineIDFromPK strips the BASELINE# prefix, returning "" for other keys
func BaselineIDFromPK(pk string) string {
	if !strings.HasPrefix(pk, baselinePrefix) {
		return ""
	}
	return strings.TrimPrefix(pk, baselinePrefix)
}
