package domain

import "time"

// AuditAction names a state-changing operation.
type AuditAction string

const (
	ActionAccountRegistered      AuditAction = "ACCOUNT_REGISTERED"
	ActionAccountUpdated         AuditAction = "ACCOUNT_UPDATED"
	ActionAccountReparented      AuditAction = "ACCOUNT_REPARENTED"
	ActionAccountRestricted      AuditAction = "ACCOUNT_RESTRICTION_CHANGED"
	ActionPeriodOpened           AuditAction = "PERIOD_OPENED"
	ActionPeriodClosed           AuditAction = "PERIOD_CLOSED"
	ActionEntryDrafted           AuditAction = "ENTRY_DRAFTED"
	ActionEntryUpdated           AuditAction = "ENTRY_UPDATED"
	ActionEntryCancelled         AuditAction = "ENTRY_CANCELLED"
	ActionEntryPosted            AuditAction = "ENTRY_POSTED"
	ActionEntryReversed          AuditAction = "ENTRY_REVERSED"
	ActionBatchSubmitted         AuditAction = "BATCH_SUBMITTED"
	ActionBatchFinished          AuditAction = "BATCH_FINISHED"
	ActionBatchDiscarded         AuditAction = "BATCH_DISCARDED"
	ActionReconStarted           AuditAction = "RECONCILIATION_STARTED"
	ActionReconStatementImported AuditAction = "RECONCILIATION_STATEMENT_IMPORTED"
	ActionReconAdjustmentAdded   AuditAction = "RECONCILIATION_ADJUSTMENT_ADDED"
	ActionReconAutoMatched       AuditAction = "RECONCILIATION_AUTO_MATCHED"
	ActionReconManualMatched     AuditAction = "RECONCILIATION_MANUAL_MATCHED"
	ActionReconUnmatched         AuditAction = "RECONCILIATION_UNMATCHED"
	ActionReconCompleted         AuditAction = "RECONCILIATION_COMPLETED"
	ActionReconApproved          AuditAction = "RECONCILIATION_APPROVED"
	ActionReconRejected          AuditAction = "RECONCILIATION_REJECTED"
	ActionReconCancelled         AuditAction = "RECONCILIATION_CANCELLED"
)

// Entity types referenced by audit records.
const (
	EntityAccount        = "ACCOUNT"
	EntityPeriod         = "PERIOD"
	EntityJournalEntry   = "JOURNAL_ENTRY"
	EntityBatch          = "BATCH"
	EntityReconciliation = "RECONCILIATION"
)

// AuditRecord is an append-only fact about who changed what.
type AuditRecord struct {
	AuditID    string         `json:"auditID"`
	CompanyID  string         `json:"companyID"`
	UserID     string         `json:"userID"`
	Action     AuditAction    `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityID"`
	Details    map[string]any `json:"details"`
	Timestamp  time.Time      `json:"timestamp"`
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	EntityType string
	EntityID   string
	Action     AuditAction
}

// AuditCursor is the decoded position of an audit page.
type AuditCursor struct {
	Timestamp time.Time
	AuditID   string
}
