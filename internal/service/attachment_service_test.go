package service

import (
	"io"
	"strings"
	"testing"

	"github.com/Freeeeeet/psychologist_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentLifecycle(t *testing.T) {
	f := newFixture(t)
	student, actor := f.student("Белова")
	cons := f.consultation(nil, student.ID)
	psy := f.psychologist.Actor()

	a, err := f.attachments.Add(f.ctx, psy, cons.ID, "рисунок.png", "Рисунок семьи", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Contains(t, a.Path, "consultations/")

	list, err := f.attachments.List(f.ctx, psy, cons.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, file, err := f.attachments.Open(f.ctx, psy, a.ID)
	require.NoError(t, err)
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "png-bytes", string(content))
	assert.Equal(t, "Рисунок семьи", got.Description)

	_, err = f.attachments.List(f.ctx, actor, cons.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	require.NoError(t, f.attachments.Delete(f.ctx, psy, a.ID))
	_, _, err = f.attachments.Open(f.ctx, psy, a.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAttachmentRemovesFileWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	student, _ := f.student("Белова")
	cons := f.consultation(nil, student.ID)

	f.store.FailNext("attachments.create", assert.AnError)
	_, err := f.attachments.Add(f.ctx, f.psychologist.Actor(), cons.ID, "a.txt", "", strings.NewReader("x"))
	require.ErrorIs(t, err, assert.AnError)

	list, err := f.attachments.List(f.ctx, f.psychologist.Actor(), cons.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAttachmentOutOfScope(t *testing.T) {
	f := newFixture(t)
	student, _ := f.student("Белова")
	req := f.request(student.ID)
	cons := f.consultation(&req.ID, student.ID)

	_, err := f.attachments.Add(f.ctx, f.other.Actor(), cons.ID, "a.txt", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, model.ErrNotFound)
}
