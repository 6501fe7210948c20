package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_TaskInput(t *testing.T) {
	err := Struct(models.TaskInput{Title: "Ship report"})
	assert.NoError(t, err)

	err = Struct(models.TaskInput{Title: "", Status: "blocked", DueDate: "tomorrow"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "Title is required", fields["title"])
	assert.Equal(t, "Invalid status", fields["status"])
	assert.Equal(t, "Due date must be a date in YYYY-MM-DD format", fields["dueDate"])
}

func TestStruct_Messages(t *testing.T) {
	tests := []struct {
		name  string
		input any
		field string
		want  string
	}{
		{"title too long", models.TaskInput{Title: strings.Repeat("x", 101)}, "title", "Title too long"},
		{"description too long", models.TaskInput{Title: "ok", Description: strings.Repeat("x", 501)}, "description", "Description too long"},
		{"priority", models.TaskInput{Title: "ok", Priority: "urgent"}, "priority", "Invalid priority"},
		{"name required", models.Registration{Email: "a@b.co", Password: "secret1"}, "name", "Name is required"},
		{"name too short", models.Registration{Name: "A", Email: "a@b.co", Password: "secret1"}, "name", "Name must be at least 2 characters"},
		{"name too long", models.Registration{Name: strings.Repeat("n", 51), Email: "a@b.co", Password: "secret1"}, "name", "Name must be between 2 and 50 characters"},
		{"email missing", models.Registration{Name: "Ann", Password: "secret1"}, "email", "Please provide a valid email"},
		{"email malformed", models.Credentials{Email: "nope", Password: "x"}, "email", "Please provide a valid email"},
		{"password short", models.Registration{Name: "Ann", Email: "a@b.co", Password: "12345"}, "password", "Password must be at least 6 characters"},
		{"password required", models.Credentials{Email: "a@b.co"}, "password", "Password is required"},
		{"current password", models.PasswordChange{NewPassword: "secret2"}, "currentPassword", "Current password is required"},
		{"new password short", models.PasswordChange{CurrentPassword: "x", NewPassword: "123"}, "newPassword", "New password must be at least 6 characters"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var verr *Error
			require.True(t, errors.As(Struct(tc.input), &verr))
			assert.Contains(t, verr.Fields, FieldError{Field: tc.field, Message: tc.want})
		})
	}
}

func TestVar(t *testing.T) {
	assert.Nil(t, Var("title", "ok", "required,max=100"))

	verr := Var("title", "", "required,max=100")
	require.NotNil(t, verr)
	assert.Equal(t, []FieldError{{Field: "title", Message: "Title is required"}}, verr.Fields)
}

func TestMerge(t *testing.T) {
	assert.NoError(t, Merge(nil, nil))

	err := Merge(New("a", "bad a"), nil, New("b", "bad b"))
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
	assert.Contains(t, err.Error(), "bad a; bad b")
}
