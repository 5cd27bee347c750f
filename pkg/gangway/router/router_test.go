package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwerr "github.com/randalmurphal/gangway/pkg/gangway/errors"
	"github.com/randalmurphal/gangway/pkg/gangway/router"
	"github.com/randalmurphal/gangway/pkg/gangway/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dispatch(r *router.Router, method, path string) wire.Response {
	return r.Dispatch(context.Background(), wire.NewRequest(method, path))
}

// errorResponse decodes the standard error body.
func errorResponse(t *testing.T, resp wire.Response) (code, message string, fields []gwerr.FieldError) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string             `json:"code"`
			Message string             `json:"message"`
			Fields  []gwerr.FieldError `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	return body.Error.Code, body.Error.Message, body.Error.Fields
}

func TestDispatchMatchesRoute(t *testing.T) {
	r := router.New(nil, router.WithLogger(discardLogger()))
	r.Get("/ping", func(c *router.Ctx) (wire.Response, error) {
		return wire.Text(wire.StatusOK, "pong"), nil
	})

	resp := dispatch(r, wire.MethodGet, "/ping")
	assert.Equal(t, wire.StatusOK, resp.Status)
	assert.Equal(t, "pong", string(resp.Body))
}

func TestDispatchPathParams(t *testing.T) {
	r := router.New(nil)
	r.Get("/users/:id/posts/:postID", func(c *router.Ctx) (wire.Response, error) {
		return wire.Text(wire.StatusOK, c.Param("id")+"/"+c.Param("postID")), nil
	})

	resp := dispatch(r, wire.MethodGet, "/users/usr_1/posts/p9")
	assert.Equal(t, wire.StatusOK, resp.Status)
	assert.Equal(t, "usr_1/p9", string(resp.Body))
}

func TestDispatchStaticBeatsParam(t *testing.T) {
	r := router.New(nil)
	r.Get("/users/:id", func(c *router.Ctx) (wire.Response, error) {
		return wire.Text(wire.StatusOK, "param:"+c.Param("id")), nil
	})
	r.Get("/users/me", func(c *router.Ctx) (wire.Response, error) {
		return wire.Text(wire.StatusOK, "static"), nil
	})

	resp := dispatch(r, wire.MethodGet, "/users/me")
	assert.Equal(t, "static", string(resp.Body))

	resp = dispatch(r, wire.MethodGet, "/users/usr_1")
	assert.Equal(t, "param:usr_1", string(resp.Body))
}

func TestDispatchNotFound(t *testing.T) {
	r := router.New(nil, router.WithLogger(discardLogger()))
	r.Get("/users", func(c *router.Ctx) (wire.Response, error) {
		return wire.NoContent(wire.StatusNoContent), nil
	})

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"unknown path", wire.MethodGet, "/teams"},
		{"wrong method", wire.MethodPost, "/users"},
		{"segment count mismatch", wire.MethodGet, "/users/usr_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := dispatch(r, tt.method, tt.path)
			assert.Equal(t, wire.StatusNotFound, resp.Status)
			code, _, _ := errorResponse(t, resp)
			assert.Equal(t, "not_found", code)
		})
	}
}

func TestDispatchQueryString(t *testing.T) {
	r := router.New(nil)
	r.Get("/users", func(c *router.Ctx) (wire.Response, error) {
		return wire.Text(wire.StatusOK, c.Query("limit")+"|"+c.Query("missing")), nil
	})

	resp := dispatch(r, wire.MethodGet, "/users?limit=10&offset=5")
	assert.Equal(t, wire.StatusOK, resp.Status)
	assert.Equal(t, "10|", string(resp.Body))
}

func TestDispatchPanicContainment(t *testing.T) {
	r := router.New(nil, router.WithLogger(discardLogger()))
	r.Get("/boom", func(c *router.Ctx) (wire.Response, error) {
		panic("handler bug: nil map write")
	})

	var resp wire.Response
	require.NotPanics(t, func() {
		resp = dispatch(r, wire.MethodGet, "/boom")
	})

	assert.Equal(t, wire.StatusInternalServerError, resp.Status)
	code, message, _ := errorResponse(t, resp)
	assert.Equal(t, "internal", code)
	assert.Equal(t, "internal error", message)
	assert.NotContains(t, string(resp.Body), "nil map write",
		"internal detail must not cross the boundary")
}

func TestDispatchErrorMapping(t *testing.T) {
	r := router.New(nil, router.WithLogger(discardLogger()))
	r.Get("/conflict", func(c *router.Ctx) (wire.Response, error) {
		return wire.Response{}, &gwerr.HandlerError{Code: "duplicate", Message: "name taken"}
	})
	r.Get("/teapot", func(c *router.Ctx) (wire.Response, error) {
		return wire.Response{}, &gwerr.HandlerError{Code: "teapot", Message: "short and stout", Status: 418}
	})
	r.Get("/opaque", func(c *router.Ctx) (wire.Response, error) {
		return wire.Response{}, errors.New("sql: connection refused to 10.0.0.7")
	})

	resp := dispatch(r, wire.MethodGet, "/conflict")
	assert.Equal(t, wire.StatusUnprocessableEntity, resp.Status)
	code, message, _ := errorResponse(t, resp)
	assert.Equal(t, "duplicate", code)
	assert.Equal(t, "name taken", message)

	resp = dispatch(r, wire.MethodGet, "/teapot")
	assert.Equal(t, 418, resp.Status)

	resp = dispatch(r, wire.MethodGet, "/opaque")
	assert.Equal(t, wire.StatusInternalServerError, resp.Status)
	code, message, _ = errorResponse(t, resp)
	assert.Equal(t, "internal", code)
	assert.NotContains(t, message, "10.0.0.7")
}

func TestMount(t *testing.T) {
	users := router.New(nil)
	users.Get("/", func(c *router.Ctx) (wire.Response, error) {
		return wire.Text(wire.StatusOK, "list"), nil
	})
	users.Get("/:id", func(c *router.Ctx) (wire.Response, error) {
		return wire.Text(wire.StatusOK, "one:"+c.Param("id")), nil
	})

	root := router.New(nil)
	root.Mount("/users", users)

	resp := dispatch(root, wire.MethodGet, "/users")
	assert.Equal(t, "list", string(resp.Body))

	resp = dispatch(root, wire.MethodGet, "/users/usr_1")
	assert.Equal(t, "one:usr_1", string(resp.Body))

	resp = dispatch(root, wire.MethodGet, "/")
	assert.Equal(t, wire.StatusNotFound, resp.Status)
}

func TestMountCapabilityInheritance(t *testing.T) {
	sub := router.New(nil)
	sub.Get("/whoami", func(c *router.Ctx) (wire.Response, error) {
		name, err := router.Capability[string](c.Capabilities(), "service-name")
		if err != nil {
			return wire.Response{}, err
		}
		return wire.Text(wire.StatusOK, name), nil
	})

	caps := router.NewCapabilities(map[string]any{"service-name": "users-svc"})
	root := router.New(caps)
	root.Mount("/sub", sub)

	resp := dispatch(root, wire.MethodGet, "/sub/whoami")
	assert.Equal(t, wire.StatusOK, resp.Status)
	assert.Equal(t, "users-svc", string(resp.Body))
}

func TestConcurrentDispatch(t *testing.T) {
	r := router.New(nil)
	r.Get("/users/:id", func(c *router.Ctx) (wire.Response, error) {
		return wire.Text(wire.StatusOK, c.Param("id")), nil
	})

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(id byte) {
			defer func() { done <- struct{}{} }()
			path := "/users/usr_" + string('a'+id)
			resp := dispatch(r, wire.MethodGet, path)
			if string(resp.Body) != "usr_"+string('a'+id) {
				t.Errorf("wrong body for %s: %s", path, resp.Body)
			}
		}(byte(i))
	}
	for i := 0; i < 20; i++ {
		<-done
	}
}
