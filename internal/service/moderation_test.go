package service

import (
	"context"
	"testing"
	"time"

	"utmcouncil/vote-api/internal/model"
	"utmcouncil/vote-api/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMail struct {
	to, subject string
}

type recordingNotifier struct {
	sent chan sentMail
}

func (r *recordingNotifier) Send(to, subject, _ string) error {
	r.sent <- sentMail{to, subject}
	return nil
}

func newModerator(db *gorm.DB) *Moderator {
	return NewModerator(db, storage.NewDatabase(db), nil)
}

func TestVerifyPending(t *testing.T) {
	db := newDB(t)
	out := register(t, db, "ana@utm.md", "12345", brokenEngine)

	n := &recordingNotifier{sent: make(chan sentMail, 1)}
	m := NewModerator(db, storage.NewDatabase(db), n)

	c, err := m.Verify(context.Background(), out.User.ID, "admin", true, "")
	require.NoError(t, err)
	assert.Equal(t, model.CarnetApproved, c.Status)
	assert.Equal(t, "admin", c.ReviewedBy)
	assert.False(t, c.AutoVerified())

	select {
	case mail := <-n.sent:
		assert.Equal(t, "ana@utm.md", mail.to)
		assert.Contains(t, mail.subject, "verified")
	case <-time.After(2 * time.Second):
		t.Fatal("no notification sent")
	}

	_, err = m.Verify(context.Background(), out.User.ID, "admin", false, "blurry")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestVerifyReject(t *testing.T) {
	db := newDB(t)
	out := register(t, db, "ana@utm.md", "12345", brokenEngine)

	c, err := newModerator(db).Verify(context.Background(), out.User.ID, "admin", false, "")
	require.NoError(t, err)
	assert.Equal(t, model.CarnetRejected, c.Status)
	assert.NotEmpty(t, c.RejectReason)

	_, err = newModerator(db).Verify(context.Background(), "missing", "admin", true, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestResubmissionRevokesVerification(t *testing.T) {
	db := newDB(t)
	u := approvedUser(t, db, "ana@utm.md", "12345")

	c, err := newModerator(db).RequestResubmission(context.Background(), u.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.CarnetPending, c.Status)
	assert.True(t, c.ResubmissionRequested)
	assert.Equal(t, DefaultResubmissionNote, c.AdminNote)

	s, err := UserStatus(context.Background(), db, u.ID)
	require.NoError(t, err)
	assert.False(t, s.Verified)

	_, err = CastVote(context.Background(), db, u.ID, fullBallot())
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestDisconnectDeletesVote(t *testing.T) {
	db := newDB(t)
	u := approvedUser(t, db, "ana@utm.md", "12345")

	_, err := CastVote(context.Background(), db, u.ID, fullBallot())
	require.NoError(t, err)

	c, err := newModerator(db).Disconnect(context.Background(), u.ID, "admin", "")
	require.NoError(t, err)
	assert.Equal(t, model.CarnetRejected, c.Status)
	assert.Zero(t, count(t, db, &model.Vote{}))

	_, err = CastVote(context.Background(), db, u.ID, fullBallot())
	assert.ErrorIs(t, err, ErrNotVerified)

	_, err = newModerator(db).Disconnect(context.Background(), u.ID, "admin", "")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestAtMostOneActiveRecordPerNumber(t *testing.T) {
	db := newDB(t)
	first := register(t, db, "first@utm.md", "12345", garbageEngine)
	approvedUser(t, db, "second@utm.md", "12345")

	// Re-opening the rejected record would give the number two active holders
	_, err := newModerator(db).RequestResubmission(context.Background(), first.User.ID, "try again")
	assert.ErrorIs(t, err, ErrCarnetApproved)

	var active int64
	require.NoError(t, db.Model(&model.Carnet{}).
		Where("carnet_number = ? AND status = ?", "12345", model.CarnetApproved).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestDeleteUser(t *testing.T) {
	db := newDB(t)
	u := approvedUser(t, db, "ana@utm.md", "12345")

	_, err := CastVote(context.Background(), db, u.ID, fullBallot())
	require.NoError(t, err)

	require.NoError(t, newModerator(db).DeleteUser(context.Background(), u.ID))

	assert.Zero(t, count(t, db, &model.User{}))
	assert.Zero(t, count(t, db, &model.Carnet{}))
	assert.Zero(t, count(t, db, &model.Vote{}))
	assert.Zero(t, count(t, db, &model.Photo{}))

	assert.ErrorIs(t, newModerator(db).DeleteUser(context.Background(), u.ID), ErrNotFound)
}

func TestResetVotes(t *testing.T) {
	db := newDB(t)

	for _, n := range []string{"10001", "10002"} {
		u := approvedUser(t, db, n+"@utm.md", n)
		_, err := CastVote(context.Background(), db, u.ID, fullBallot())
		require.NoError(t, err)
	}

	deleted, err := newModerator(db).ResetVotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Zero(t, count(t, db, &model.Vote{}))
}

func TestDecisionMail(t *testing.T) {
	_, _, ok := decisionMail(&model.Carnet{Status: model.CarnetPending})
	assert.False(t, ok)

	subject, body, ok := decisionMail(&model.Carnet{Status: model.CarnetRejected, RejectReason: "<b>blurry</b>"})
	assert.True(t, ok)
	assert.Contains(t, subject, "rejected")
	assert.Contains(t, body, "&lt;b&gt;blurry&lt;/b&gt;")

	_, body, ok = decisionMail(&model.Carnet{Status: model.CarnetPending, ResubmissionRequested: true, AdminNote: "closer"})
	assert.True(t, ok)
	assert.Contains(t, body, "closer")
}
