package types

import (
	"strings"
	"testing"
)

func Test_ProtectViolationError_Source_Message_Matches_Expected_Format(t *testing.T) {
	t.Parallel()

	err := &ProtectViolationError{Path: "/a/df/y", Other: "move/rename", Kind: ViolationSource}

	want := "Oops, trying to move/rename protected file '/a/df/y'."
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func Test_ProtectViolationError_Overwrite_Message_Matches_Expected_Format(t *testing.T) {
	t.Parallel()

	err := &ProtectViolationError{Path: "/a/df/z", Other: "/a/df/y", Kind: ViolationOverwrite}

	want := "Oops, trying to overwrite protected file '/a/df/z' with '/a/df/y'."
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func Test_ScanFailedError_Unwraps_To_Underlying_Error(t *testing.T) {
	t.Parallel()

	inner := &ConfigInvalidError{Reason: "boom"}
	err := &ScanFailedError{Dir: "/a", Err: inner}

	if err.Unwrap() != inner {
		t.Error("expected Unwrap to return the wrapped error")
	}
}

func Test_RootConflictError_Message_Names_Both_Args(t *testing.T) {
	t.Parallel()

	err := &RootConflictError{Canonical: "/a/ki", ProtectArg: "ki", WorkArg: "ki2"}

	if err.Error() == "" {
		t.Fatal("expected a non-empty message")
	}

	if !strings.Contains(err.Error(), `"ki"`) || !strings.Contains(err.Error(), `"ki2"`) {
		t.Errorf("expected both the protect and work args in %q", err.Error())
	}
}
