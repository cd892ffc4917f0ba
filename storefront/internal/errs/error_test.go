package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
)

func TestAPIError_Is(t *testing.T) {
	t.Parallel()
	notFound := &errs.APIError{StatusCode: http.StatusNotFound, Message: "Book not found"}
	wrapped := fmt.Errorf("book.Get: %w", notFound)

	assert.True(t, errs.IsNotFound(wrapped))
	assert.False(t, errs.IsNotFound(&errs.APIError{StatusCode: http.StatusInternalServerError}))
	assert.True(t, errors.Is(&errs.APIError{StatusCode: http.StatusUnauthorized}, errs.ErrUnauthenticated))
}

func TestUserMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "server message", err: &errs.APIError{StatusCode: 404, Message: "Book not found"}, want: "Book not found"},
		{name: "no server message", err: &errs.APIError{StatusCode: 500}, want: "Failed to fetch books"},
		{name: "network", err: &errs.APIError{Err: errors.New("connection refused")}, want: "Failed to fetch books"},
		{name: "validation", err: errs.ValidationErrors{"title": "Title is required"}, want: "validation failed: title: Title is required"},
		{name: "plain", err: errors.New("boom"), want: "Failed to fetch books"},
		{name: "nil", err: nil, want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errs.UserMessage(tt.err, "Failed to fetch books"))
		})
	}
}
