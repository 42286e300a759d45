package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
)

func TestSessionCreateAndGetByToken(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "ana@example.com")
	sessions := db.Sessions()

	sess := &model.Session{UserID: user.ID, Token: "token-abc"}
	if err := sessions.Create(context.Background(), sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.ID == "" {
		t.Error("Create() did not set session.ID")
	}
	if sess.CreatedAt.IsZero() {
		t.Error("Create() did not set session.CreatedAt")
	}

	found, err := sessions.GetByToken(context.Background(), "token-abc")
	if err != nil {
		t.Fatalf("GetByToken() error = %v", err)
	}
	if found.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", found.UserID, user.ID)
	}
}

func TestSessionGetByToken_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Sessions().GetByToken(context.Background(), "no-such-token")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSessionCreate_RequiresExistingUser(t *testing.T) {
	db := newTestDB(t)

	// Foreign keys are ON: a session cannot reference a missing user.
	sess := &model.Session{UserID: "ghost", Token: "orphan-token"}
	if err := db.Sessions().Create(context.Background(), sess); err == nil {
		t.Error("Create() should fail for a non-existent user")
	}
}

func TestSessionDeleteByToken(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "ana@example.com")
	sessions := db.Sessions()

	sess := &model.Session{UserID: user.ID, Token: "token-abc"}
	if err := sessions.Create(context.Background(), sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := sessions.DeleteByToken(context.Background(), "token-abc"); err != nil {
		t.Fatalf("DeleteByToken() error = %v", err)
	}

	if _, err := sessions.GetByToken(context.Background(), "token-abc"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("session should be gone, got err = %v", err)
	}

	// Deleting again is not an error — logout is idempotent.
	if err := sessions.DeleteByToken(context.Background(), "token-abc"); err != nil {
		t.Errorf("DeleteByToken() on missing token error = %v, want nil", err)
	}
}
