package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		field          string
		message        string
		cause          error
		expectedString string
	}{
		{
			name:           "with field",
			field:          "routes.dir",
			message:        "is required",
			expectedString: "config error at routes.dir: is required",
		},
		{
			name:           "without field",
			message:        "invalid configuration",
			expectedString: "config error: invalid configuration",
		},
		{
			name:           "with cause",
			field:          "server.port",
			message:        "invalid port",
			cause:          errors.New("port out of range"),
			expectedString: "config error at server.port: invalid port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var err *ConfigError
			if tt.cause != nil {
				err = NewConfigErrorWithCause(tt.field, tt.message, tt.cause)
			} else {
				err = NewConfigError(tt.field, tt.message)
			}

			assert.Equal(t, tt.expectedString, err.Error())
			assert.Equal(t, tt.cause, err.Unwrap())
			assert.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestRouteConflictError(t *testing.T) {
	t.Parallel()

	err := NewRouteConflictError("GET", "/user/:id", "user/[id].yaml", "user/[id]/index.yaml")

	assert.Equal(t, "route conflict: GET /user/:id defined by user/[id].yaml, user/[id]/index.yaml", err.Error())
	assert.ErrorIs(t, err, ErrRouteConflict)
	assert.NotErrorIs(t, err, ErrInvalidPattern)

	var target *RouteConflictError
	wrapped := fmt.Errorf("build: %w", err)
	assert.ErrorAs(t, wrapped, &target)
	assert.Equal(t, "/user/:id", target.Pattern)
}

func TestInvalidPatternError(t *testing.T) {
	t.Parallel()

	withSource := NewInvalidPatternError("/files/*path/x", "files/[...path]/x.yaml", "wildcard must be the last segment")
	assert.Equal(t, "invalid pattern /files/*path/x (files/[...path]/x.yaml): wildcard must be the last segment", withSource.Error())
	assert.ErrorIs(t, withSource, ErrInvalidPattern)

	bare := NewInvalidPatternError("/a/*b/c", "", "wildcard must be the last segment")
	assert.Equal(t, "invalid pattern /a/*b/c: wildcard must be the last segment", bare.Error())
}

func TestModuleLoadError(t *testing.T) {
	t.Parallel()

	cause := errors.New("yaml: line 1")
	err := NewModuleLoadError("user/index.yaml", "malformed module", cause)

	assert.Equal(t, "load user/index.yaml: malformed module: yaml: line 1", err.Error())
	assert.ErrorIs(t, err, ErrModuleLoad)
	assert.ErrorIs(t, err, cause)

	notCallable := NewModuleLoadError("_middleware.yaml", "middleware", ErrNotCallable)
	assert.ErrorIs(t, notCallable, ErrNotCallable)
	assert.Equal(t, "load x: empty", NewModuleLoadError("x", "empty", nil).Error())
}

func TestTransportAndWatchErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("address already in use")
	terr := NewTransportError("chi", ":8080", cause)
	assert.Equal(t, "transport chi on :8080: address already in use", terr.Error())
	assert.ErrorIs(t, terr, ErrTransport)
	assert.ErrorIs(t, terr, cause)

	werr := NewWatchError("/srv/routes", ErrNotFound)
	assert.Equal(t, "watch /srv/routes: not found", werr.Error())
	assert.ErrorIs(t, werr, ErrWatch)
	assert.ErrorIs(t, werr, ErrNotFound)
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WrapError(nil, "context"))

	err := WrapError(ErrNotFound, "routes root")
	assert.Equal(t, "routes root: not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsStructuralBuildError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "conflict", err: NewRouteConflictError("GET", "/", "a", "b"), want: true},
		{name: "invalid pattern", err: NewInvalidPatternError("/*a/b", "", "x"), want: true},
		{
			name: "joined",
			err:  errors.Join(errors.New("other"), NewRouteConflictError("POST", "/x", "a", "b")),
			want: true,
		},
		{name: "module load", err: NewModuleLoadError("a", "b", nil), want: false},
		{name: "not found", err: ErrNotFound, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsStructuralBuildError(tt.err))
		})
	}
}
