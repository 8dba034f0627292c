package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/validation"
)

// ClientInfo identifies the remote caller for the audit trail.
type ClientInfo struct {
	IP        string
	UserAgent string
	RequestID string
}

type clientInfoKey struct{}

// WithClientInfo stores request metadata on the context.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFrom reads request metadata stored by WithClientInfo.
func ClientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}

func invalidPayload(err error, prefix string) *appErrors.Error {
	return appErrors.Validation(err, prefix+": "+validation.Message(err))
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// validID filters ids that cannot exist so they never reach a UUID column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
