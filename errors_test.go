package bazbom

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func ExampleError() {
	fmt.Println(&Error{
		Kind:    ErrInternal,
		Message: "test",
		Op:      "ExampleError",
	})

	fmt.Println(&Error{
		Inner:   os.ErrNotExist,
		Kind:    ErrInput,
		Message: "root unreadable",
		Op:      "ScanDirectory",
	})

	fmt.Println(fmt.Errorf("orchestrator: %w", &Error{
		Inner:   os.ErrNotExist,
		Kind:    ErrInput,
		Message: "root unreadable",
		Op:      "ScanDirectory",
	}))

	// Output:
	// ExampleError [internal]: test
	// ScanDirectory [input]: root unreadable: file does not exist
	// orchestrator: ScanDirectory [input]: root unreadable: file does not exist
}

func TestErrorIsKind(t *testing.T) {
	err := &Error{Kind: ErrNetwork, Message: "advisory API exhausted retries"}
	if !errors.Is(err, ErrNetwork) {
		t.Error("expected errors.Is to match ErrNetwork")
	}
	if errors.Is(err, ErrInput) {
		t.Error("did not expect errors.Is to match ErrInput")
	}

	wrapped := fmt.Errorf("client: %w", err)
	if !errors.Is(wrapped, ErrNetwork) {
		t.Error("expected wrapped error to still match ErrNetwork")
	}
}
