package component

import (
	"errors"
	"testing"

	"visuallm-be/internal/pkg/logger"
	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/element"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubComponent exposes two texts and lets tests choose what its callbacks do.
type stubComponent struct {
	Base
	a, b      *element.PlainText
	endpoints []Endpoint
}

func newStub(name string, endpoints func(s *stubComponent) []Endpoint) *stubComponent {
	s := &stubComponent{
		a: element.NewPlainText(name+".a", ""),
		b: element.NewPlainText(name+".b", ""),
	}
	s.Base = NewBase(name, "Stub "+name, s.a, s.b)
	if endpoints != nil {
		s.endpoints = endpoints(s)
	}
	return s
}

func (s *stubComponent) Endpoints() []Endpoint { return s.endpoints }

func newTestRegistry(t *testing.T, components ...Component) *Registry {
	t.Helper()
	r := NewRegistry(logger.NewNopLogger())
	for _, c := range components {
		require.NoError(t, r.Register(c))
	}
	return r
}

func TestRegistryInvokeCollectsChangedElements(t *testing.T) {
	first := newStub("first", func(s *stubComponent) []Endpoint {
		return []Endpoint{
			{Path: "/first/touch", Method: MethodPost, Callback: func(Request) (Fields, error) {
				s.a.SetContent("touched")
				return Fields{"extra": 1}, nil
			}},
			{Path: "/first/all", Method: MethodGet, FetchAll: true, Callback: func(Request) (Fields, error) {
				return nil, nil
			}},
		}
	})
	second := newStub("second", nil)
	r := newTestRegistry(t, first, second)

	// Initial load clears every flag.
	r.Describe()

	resp, err := r.Invoke(MethodPost, "/first/touch", Request{})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Component)
	require.Len(t, resp.ChangedElements, 1)
	assert.Equal(t, "touched", resp.ChangedElements["first.a"]["content"])

	body := resp.Body()
	assert.Equal(t, "success", body["result"])
	assert.Equal(t, 1, body["extra"])
	assert.False(t, first.a.Changed())

	t.Run("nothing changed", func(t *testing.T) {
		resp, err := r.Invoke(MethodPost, "/first/touch", Request{})
		require.NoError(t, err)
		// Same content, so there is nothing to send.
		assert.Empty(t, resp.ChangedElements)
	})

	t.Run("fetch all spans components", func(t *testing.T) {
		second.b.SetContent("elsewhere")
		first.b.SetContent("here")
		resp, err := r.Invoke(MethodGet, "/first/all", Request{})
		require.NoError(t, err)
		assert.Len(t, resp.ChangedElements, 2)
		assert.Contains(t, resp.ChangedElements, "second.b")
		assert.Contains(t, resp.ChangedElements, "first.b")
	})

	t.Run("owner only without fetch all", func(t *testing.T) {
		second.b.SetContent("elsewhere again")
		resp, err := r.Invoke(MethodPost, "/first/touch", Request{})
		require.NoError(t, err)
		assert.NotContains(t, resp.ChangedElements, "second.b")
		assert.True(t, second.b.Changed())
	})
}

func TestRegistryFailedCallbackKeepsFlags(t *testing.T) {
	c := newStub("c", func(s *stubComponent) []Endpoint {
		return []Endpoint{{Path: "/c/fail", Method: MethodPost, Callback: func(Request) (Fields, error) {
			s.a.SetContent("half done")
			return nil, apperr.InvalidSelection("token", "x")
		}}}
	})
	r := newTestRegistry(t, c)
	r.Describe()

	_, err := r.Invoke(MethodPost, "/c/fail", Request{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidSelection, apperr.KindOf(err))
	assert.True(t, c.a.Changed(), "a failed call must not clear dirty flags")
}

func TestRegistryRecoversPanics(t *testing.T) {
	c := newStub("c", func(s *stubComponent) []Endpoint {
		return []Endpoint{{Path: "/c/panic", Method: MethodPost, Callback: func(Request) (Fields, error) {
			panic("kaboom")
		}}}
	})
	r := newTestRegistry(t, c)

	_, err := r.Invoke(MethodPost, "/c/panic", Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	// The component lock was released.
	_, err = r.Invoke(MethodPost, "/c/panic", Request{})
	assert.Error(t, err)
}

func TestRegistryUnknownEndpoint(t *testing.T) {
	r := newTestRegistry(t, newStub("c", nil))
	_, err := r.Invoke(MethodGet, "/nope", Request{})
	assert.True(t, errors.Is(err, apperr.ErrUnknownEndpoint))
}

func TestRegistryRegisterValidation(t *testing.T) {
	ok := func(Request) (Fields, error) { return nil, nil }

	tests := []struct {
		name       string
		components []Component
	}{
		{"duplicate name", []Component{newStub("c", nil), newStub("c", nil)}},
		{"empty name", []Component{newStub("", nil)}},
		{"duplicate route across components", []Component{
			newStub("a", func(*stubComponent) []Endpoint {
				return []Endpoint{{Path: "/x", Method: MethodPost, Callback: ok}}
			}),
			newStub("b", func(*stubComponent) []Endpoint {
				return []Endpoint{{Path: "/x", Method: MethodPost, Callback: ok}}
			}),
		}},
		{"duplicate route in one component", []Component{
			newStub("a", func(*stubComponent) []Endpoint {
				return []Endpoint{
					{Path: "/x", Method: MethodPost, Callback: ok},
					{Path: "/x", Method: MethodPost, Callback: ok},
				}
			}),
		}},
		{"missing callback", []Component{
			newStub("a", func(*stubComponent) []Endpoint {
				return []Endpoint{{Path: "/x", Method: MethodPost}}
			}),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(logger.NewNopLogger())
			var err error
			for _, c := range tt.components {
				if err = r.Register(c); err != nil {
					break
				}
			}
			assert.Error(t, err)
		})
	}

	t.Run("same path with another method", func(t *testing.T) {
		r := NewRegistry(logger.NewNopLogger())
		err := r.Register(newStub("a", func(*stubComponent) []Endpoint {
			return []Endpoint{
				{Path: "/x", Method: MethodPost, Callback: ok},
				{Path: "/x", Method: MethodGet, Callback: ok},
			}
		}))
		assert.NoError(t, err)
		assert.Len(t, r.Routes(), 2)
	})
}

func TestRegistryDescribe(t *testing.T) {
	a := newStub("a", nil)
	b := newStub("b", nil)
	r := newTestRegistry(t, a, b)

	descs := r.Describe()
	require.Len(t, descs, 2)
	assert.Equal(t, "a", descs[0].Name)
	assert.Equal(t, "Stub a", descs[0].Title)
	require.Len(t, descs[0].Elements, 2)
	assert.Equal(t, "a.a", descs[0].Elements[0]["id"])
	assert.False(t, a.a.Changed())

	// Describe is forced, so a second load still returns everything.
	descs = r.Describe()
	assert.Len(t, descs[1].Elements, 2)
}

func TestRequestDecode(t *testing.T) {
	var dst struct {
		Token string `json:"token"`
	}

	err := Request{}.Decode(&dst)
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))

	err = Request{Body: []byte(`{`)}.Decode(&dst)
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))

	validated := false
	err = Request{Body: []byte(`{"token":"cat"}`), Validate: func(any) error {
		validated = true
		return nil
	}}.Decode(&dst)
	require.NoError(t, err)
	assert.True(t, validated)
	assert.Equal(t, "cat", dst.Token)

	err = Request{Body: []byte(`{"token":""}`), Validate: func(any) error { return errBoom }}.Decode(&dst)
	assert.ErrorIs(t, err, errBoom)
}
