package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai_app_server/internal/auth"
	"ai_app_server/internal/store"
	"ai_app_server/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Collection is the document collection generated apps are written to.
const Collection = "generatedapps"

// AnonymousUserID is recorded when the session carries no email.
const AnonymousUserID = "anonymous"

// ErrUnauthorized is returned when no session is supplied.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError names the first required field that was empty.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// StorageError wraps a failed document write.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return "failed to store generated app: " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// Input is what the caller supplies; identity and timestamps are filled in by Record.
type Input struct {
	Prompt    string
	AppType   string
	Framework string
	Result    string
}

// Recorder writes one GeneratedAppRecord per call. It never reads, updates or deletes.
type Recorder struct {
	store  store.DocumentStore
	logger *zap.Logger
	now    func() time.Time
}

func New(s store.DocumentStore, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: s, logger: logger.Named("Recorder"), now: time.Now}
}

// Record validates in and writes it for session's user. Result is stored verbatim.
func (r *Recorder) Record(ctx context.Context, session *auth.Session, in Input) (*types.GeneratedAppRecord, error) {
	if session == nil {
		return nil, ErrUnauthorized
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	userID := session.Email
	if userID == "" {
		userID = AnonymousUserID
	}

	now := r.now().UTC()
	rec := &types.GeneratedAppRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Prompt:    in.Prompt,
		AppType:   in.AppType,
		Framework: in.Framework,
		Result:    in.Result,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.store.Insert(ctx, Collection, rec.ID, rec); err != nil {
		r.logger.Error("Failed to store generated app", zap.String("userId", userID), zap.Error(err))
		return nil, &StorageError{Err: err}
	}

	r.logger.Info("Generated app stored", zap.String("id", rec.ID), zap.String("userId", userID))
	return rec, nil
}

func validate(in Input) error {
	switch {
	case in.Prompt == "":
		return &ValidationError{Field: "prompt"}
	case in.AppType == "":
		return &ValidationError{Field: "appType"}
	case in.Framework == "":
		return &ValidationError{Field: "framework"}
	case in.Result == "":
		return &ValidationError{Field: "result"}
	}
	return nil
}
