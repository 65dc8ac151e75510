package cfg

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	const doc = `
gitlab_url = "https://gitlab.example.com"
auth_token_file = "/etc/merganser/token"
project_regexp = "^infra/.*"
merge_order = "assigned_at"
add_tested = true
approval_reset_timeout = "90s"
embargo = "Friday 6pm - Monday 9am"
ci_timeout = "45m"
batch_size = 4
git_timeout = "3m"
poll_interval = "10s"
log_format = "console"
`

	config, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.example.com", config.GitlabURL)
	assert.Equal(t, "/etc/merganser/token", config.AuthTokenFile)
	assert.Equal(t, "^infra/.*", config.ProjectRegexp)
	assert.Equal(t, "assigned_at", config.MergeOrder)
	assert.True(t, config.AddTested)
	assert.Equal(t, 90*time.Second, config.ApprovalResetTimeout)
	assert.Equal(t, "Friday 6pm - Monday 9am", config.Embargo)
	assert.Equal(t, 45*time.Minute, config.CITimeout)
	assert.Equal(t, 4, config.BatchSize)
	assert.Equal(t, 3*time.Minute, config.GitTimeout)
	assert.Equal(t, 10*time.Second, config.PollInterval)
	assert.Equal(t, "console", config.LogFormat)
	assert.False(t, config.Batch)
	assert.Empty(t, config.AuthToken)
}

func TestMarshalRoundTrip(t *testing.T) {
	in := Config{
		GitlabURL:    "https://gitlab.example.com",
		BranchRegexp: "^(master|main)$",
		Batch:        true,
		CITimeout:    15 * time.Minute,
		DryRun:       true,
	}

	var buf bytes.Buffer
	require.NoError(t, in.Marshal(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, &in, loaded)
}

func TestLoadInvalidDocument(t *testing.T) {
	_, err := Load(strings.NewReader("gitlab_url = "))
	require.Error(t, err)
}
