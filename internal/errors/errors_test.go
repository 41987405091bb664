package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestBaseError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *BaseError
		want string
	}{
		{
			name: "message only",
			err:  New(CategoryValidation, "invalid launch state"),
			want: "invalid launch state",
		},
		{
			name: "with cause",
			err:  New(CategoryApply, "update failed").WithCause(stderrors.New("throttled")),
			want: "update failed: throttled",
		},
		{
			name: "formatted",
			err:  Newf(CategoryLookup, "device %q not found", "/dev/sdz"),
			want: `device "/dev/sdz" not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("underlying")
	err := Wrap(cause, CategoryState, "failed to load desired state")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause with errors.Is")
	}
	if err.Category() != CategoryState {
		t.Errorf("Category() = %q, want %q", err.Category(), CategoryState)
	}
}

func TestWrapf(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrapf(cause, CategoryApply, "server %s", "s-1234")

	if err.Error() != "server s-1234: boom" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if stderrors.Unwrap(err) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"plain error", stderrors.New("x"), false},
		{"retryable", New(CategoryApply, "throttle").WithRetryable(true), true},
		{"not retryable", New(CategoryApply, "denied"), false},
		{
			"wrapped retryable",
			fmt.Errorf("outer: %w", New(CategoryApply, "throttle").WithRetryable(true)),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCategory(t *testing.T) {
	err := New(CategoryValidation, "bad token")
	cat, ok := GetCategory(fmt.Errorf("wrapped: %w", err))
	if !ok || cat != CategoryValidation {
		t.Errorf("GetCategory() = %q, %v; want %q, true", cat, ok, CategoryValidation)
	}

	if _, ok := GetCategory(stderrors.New("plain")); ok {
		t.Error("plain errors should not report a category")
	}
}

func TestHasCategory(t *testing.T) {
	err := New(CategoryLookup, "missing")
	if !HasCategory(err, CategoryLookup) {
		t.Error("expected lookup category to match")
	}
	if HasCategory(err, CategoryApply) {
		t.Error("apply category should not match a lookup error")
	}
}
