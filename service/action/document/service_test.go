package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestService_SaveLoadList(t *testing.T) {
	srv := New(t.TempDir())
	ctx := context.Background()

	var saved SaveOutput
	err := srv.Save(ctx, &SaveInput{Name: "cover-letter.md", Text: "Dear team,"}, &saved)
	assert.Nil(t, err)
	assert.Equal(t, "cover-letter.md", saved.Document.Name)
	assert.Equal(t, "text/markdown", saved.Document.ContentType)
	assert.EqualValues(t, len("Dear team,"), saved.Document.Size)

	var loaded LoadOutput
	err = srv.Load(ctx, &LoadInput{Name: "cover-letter.md"}, &loaded)
	assert.Nil(t, err)
	assert.Equal(t, "Dear team,", loaded.Document.Text)

	err = srv.Load(ctx, &LoadInput{Name: "resume.pdf"}, &loaded)
	assert.NotNil(t, err)

	assert.Nil(t, srv.Save(ctx, &SaveInput{Name: "notes.txt", Text: "follow up"}, &SaveOutput{}))
	var listed ListOutput
	err = srv.List(ctx, &ListInput{}, &listed)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(listed.Documents))
}

func TestService_MethodDispatch(t *testing.T) {
	srv := New(t.TempDir())

	_, err := srv.Method("generate")
	assert.NotNil(t, err)

	method, err := srv.Method("save")
	assert.Nil(t, err)
	err = method(context.Background(), &SaveInput{Name: "a.txt", Text: "x"}, &SaveOutput{})
	assert.Nil(t, err)

	err = method(context.Background(), "bad", &SaveOutput{})
	assert.NotNil(t, err)
}
