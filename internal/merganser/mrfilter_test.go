package merganser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xanzy/go-gitlab"
)

func TestMRFilterMatchesOnMergeRequestFields(t *testing.T) {
	filter, err := NewMRFilter(`.labels | contains(["fast-track"])`)
	require.NoError(t, err)

	match, err := filter.Match(context.Background(), &gitlab.MergeRequest{
		Title:  "Add frobnicator",
		Labels: gitlab.Labels{"fast-track", "backend"},
	})
	require.NoError(t, err)
	assert.True(t, match)

	match, err = filter.Match(context.Background(), &gitlab.MergeRequest{
		Title:  "Add frobnicator",
		Labels: gitlab.Labels{"backend"},
	})
	require.NoError(t, err)
	assert.False(t, match)
}

func TestNilMRFilterMatchesEverything(t *testing.T) {
	var filter *MRFilter

	match, err := filter.Match(context.Background(), &gitlab.MergeRequest{})
	require.NoError(t, err)
	assert.True(t, match)
}

func TestMRFilterRejectsNonBooleanResults(t *testing.T) {
	filter, err := NewMRFilter(`.title`)
	require.NoError(t, err)

	_, err = filter.Match(context.Background(), &gitlab.MergeRequest{Title: "Add frobnicator"})
	require.Error(t, err)
}

func TestMRFilterRejectsMultipleResults(t *testing.T) {
	filter, err := NewMRFilter(`.draft, .draft`)
	require.NoError(t, err)

	_, err = filter.Match(context.Background(), &gitlab.MergeRequest{})
	require.Error(t, err)
}

func TestMRFilterInvalidQuery(t *testing.T) {
	_, err := NewMRFilter(`.title ==`)
	require.Error(t, err)
}
