package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(errors.New("boom")), "unclassified errors are recoverable")
	assert.False(t, IsRecoverable(NewError(MissingManifest, "no origami.json", false)))
	assert.True(t, IsRecoverable(NewError(DownloadFailure, "timeout", true)))

	wrapped := fmt.Errorf("materialize: %w", NewError(InvalidSource, "bad url", false))
	assert.False(t, IsRecoverable(wrapped))
	assert.Equal(t, InvalidSource, KindOf(wrapped))
	assert.Equal(t, Transient, KindOf(errors.New("boom")))
}

func TestBundleUpdateErrorRecoverability(t *testing.T) {
	allFatal := &BundleUpdateError{
		VersionId: "v1",
		Failures: []error{
			NewError(BuildServiceError, "400", false),
			NewError(BuildServiceError, "560", false),
		},
	}
	assert.False(t, IsRecoverable(allFatal))

	mixed := &BundleUpdateError{
		VersionId:        "v1",
		SucceededBundles: []string{"b1"},
		Failures: []error{
			NewError(BuildServiceError, "400", false),
			NewError(BuildServiceError, "timeout", true),
		},
	}
	assert.True(t, IsRecoverable(mixed))
	assert.Contains(t, mixed.Error(), "succeeded: [b1]")
	assert.Contains(t, mixed.Error(), "timeout")
}
