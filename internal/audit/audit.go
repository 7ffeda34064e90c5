package audit

import (
	"context"

	"github.com/weiawesome/wes-io-dm/pkg/log"
)

// Audit actions for dm-service.
const (
	ActionSendMessage   = "dm.send_message"
	ActionDeleteMessage = "dm.delete_message"
	ActionUpdateProfile = "dm.update_profile"
	ActionUpload        = "dm.upload_attachment"
	ActionConnect       = "dm.connect"
	ActionDisconnect    = "dm.disconnect"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithTarget emits an audit log naming the affected entity.
func LogWithTarget(ctx context.Context, action string, userID string, targetID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}
