package models

import (
	"encoding/json"
	"time"
)

// Audit actions recorded for writes.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionSignUp         = "SIGN_UP"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionCreate         = "CREATE"
	AuditActionUpdate         = "UPDATE"
	AuditActionStatusChange   = "STATUS_CHANGE"
	AuditActionDelete         = "DELETE"
	AuditActionRoleAssign     = "ROLE_ASSIGN"
	AuditActionRoleRevoke     = "ROLE_REVOKE"
	AuditActionDownload       = "DOWNLOAD"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// NewAuditLog builds an entry attributed to actor. values is stored as JSON
// when it can be encoded.
func NewAuditLog(actor Actor, action, resource, resourceID string, values interface{}) *AuditLog {
	entry := &AuditLog{
		Action:    action,
		Resource:  resource,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if actor.ID != "" {
		userID := actor.ID
		entry.UserID = &userID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if values != nil {
		if body, err := json.Marshal(values); err == nil {
			entry.NewValues = body
		}
	}
	return entry
}
