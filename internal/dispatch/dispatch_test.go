package dispatch

import (
	"context"
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type createThing struct {
	Name string `json:"name"`
}

func (r createThing) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(3, 10)),
	)
}

type listThings struct{}

type result struct {
	ok bool
}

func (r result) IsSuccessful() bool { return r.ok }

type mockScope struct {
	mock.Mock
}

func (m *mockScope) Commit(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockScope) Rollback() error                  { return m.Called().Error(0) }

func scopeOf(s Scope) Option {
	return WithScope(func(ctx context.Context) (context.Context, Scope, error) {
		return ctx, s, nil
	})
}

func TestBuildRejectsMissingAndDuplicateHandlers(t *testing.T) {
	r := NewRegistry()
	Expect[createThing](r)
	Expect[listThings](r)
	Register(r, func(ctx context.Context, req listThings) ([]string, error) { return nil, nil })
	Register(r, func(ctx context.Context, req listThings) (int, error) { return 0, nil })

	_, err := r.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoHandler)
	assert.ErrorIs(t, err, ErrDuplicateHandler)
	assert.Contains(t, err.Error(), "createThing")
}

func TestSendRoutesByType(t *testing.T) {
	r := NewRegistry()
	Register(r, func(ctx context.Context, req listThings) ([]string, error) { return []string{"a"}, nil })
	Register(r, func(ctx context.Context, req createThing) (result, error) { return result{ok: true}, nil })
	d, err := r.Build()
	require.NoError(t, err)

	out, err := Send[listThings, []string](context.Background(), d, listThings{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out)

	_, err = Send[listThings, int](context.Background(), d, listThings{})
	assert.ErrorIs(t, err, ErrResponseType)

	_, err = Send[struct{}, int](context.Background(), d, struct{}{})
	assert.ErrorIs(t, err, ErrUnregistered)
}

func TestSendValidatesBeforeHandler(t *testing.T) {
	called := false
	r := NewRegistry()
	Register(r, func(ctx context.Context, req createThing) (result, error) {
		called = true
		return result{ok: true}, nil
	})
	scope := &mockScope{}
	d, err := r.Build(scopeOf(scope))
	require.NoError(t, err)

	_, err = Send[createThing, result](context.Background(), d, createThing{Name: "x"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "name")
	assert.False(t, called)
	scope.AssertNotCalled(t, "Commit", mock.Anything)
	scope.AssertNotCalled(t, "Rollback")
}

func TestSendCommitsOnSuccess(t *testing.T) {
	r := NewRegistry()
	Register(r, func(ctx context.Context, req createThing) (result, error) { return result{ok: true}, nil })
	scope := &mockScope{}
	scope.On("Commit", mock.Anything).Return(nil).Once()
	d, err := r.Build(scopeOf(scope))
	require.NoError(t, err)

	res, err := Send[createThing, result](context.Background(), d, createThing{Name: "thing"})
	require.NoError(t, err)
	assert.True(t, res.ok)
	scope.AssertExpectations(t)
	scope.AssertNotCalled(t, "Rollback")
}

func TestSendRollsBackOnFailureOutcome(t *testing.T) {
	r := NewRegistry()
	Register(r, func(ctx context.Context, req createThing) (result, error) { return result{ok: false}, nil })
	scope := &mockScope{}
	scope.On("Rollback").Return(nil).Once()
	d, err := r.Build(scopeOf(scope))
	require.NoError(t, err)

	res, err := Send[createThing, result](context.Background(), d, createThing{Name: "thing"})
	require.NoError(t, err)
	assert.False(t, res.ok)
	scope.AssertExpectations(t)
	scope.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestSendRollsBackOnError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	Register(r, func(ctx context.Context, req createThing) (result, error) { return result{}, boom })
	scope := &mockScope{}
	scope.On("Rollback").Return(nil).Once()
	d, err := r.Build(scopeOf(scope))
	require.NoError(t, err)

	_, err = Send[createThing, result](context.Background(), d, createThing{Name: "thing"})
	assert.ErrorIs(t, err, boom)
	scope.AssertExpectations(t)
}

func TestSendRollsBackWhenHandlerPanics(t *testing.T) {
	r := NewRegistry()
	Register(r, func(ctx context.Context, req createThing) (result, error) { panic("kaboom") })
	scope := &mockScope{}
	scope.On("Rollback").Return(nil).Once()
	d, err := r.Build(scopeOf(scope))
	require.NoError(t, err)

	assert.PanicsWithValue(t, "kaboom", func() {
		_, _ = Send[createThing, result](context.Background(), d, createThing{Name: "thing"})
	})
	scope.AssertExpectations(t)
	scope.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestSendRollsBackWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRegistry()
	Register(r, func(ctx context.Context, req createThing) (result, error) {
		cancel()
		return result{ok: true}, nil
	})
	scope := &mockScope{}
	scope.On("Rollback").Return(nil).Once()
	d, err := r.Build(scopeOf(scope))
	require.NoError(t, err)

	_, err = Send[createThing, result](ctx, d, createThing{Name: "thing"})
	assert.ErrorIs(t, err, context.Canceled)
	scope.AssertExpectations(t)
}

func TestValidationErrorMessage(t *testing.T) {
	err := newValidationError(validation.Errors{
		"name":     errors.New("cannot be blank"),
		"password": errors.New("the length must be between 3 and 15"),
	})
	assert.Equal(t, "validation failed: name: cannot be blank; password: the length must be between 3 and 15", err.Error())
}
