// Package cfg loads the TOML configuration file.
package cfg

import (
	"io"
	"time"

	"github.com/pelletier/go-toml"
)

// Config mirrors the command-line options that can also be set via the
// configuration file. Zero values mean unset, the command line layer
// resolves the precedence between flags, environment and file.
type Config struct {
	GitlabURL     string `toml:"gitlab_url"`
	AuthToken     string `toml:"auth_token"`
	AuthTokenFile string `toml:"auth_token_file"`
	SSHKeyFile    string `toml:"ssh_key_file"`
	UseHTTPS      bool   `toml:"use_https"`

	ProjectRegexp      string `toml:"project_regexp"`
	BranchRegexp       string `toml:"branch_regexp"`
	SourceBranchRegexp string `toml:"source_branch_regexp"`
	MRFilterQuery      string `toml:"mr_filter_query"`
	MergeOrder         string `toml:"merge_order"`

	AddTested            bool          `toml:"add_tested"`
	AddReviewers         bool          `toml:"add_reviewers"`
	AddPartOf            bool          `toml:"add_part_of"`
	ImpersonateApprovers bool          `toml:"impersonate_approvers"`
	ApprovalResetTimeout time.Duration `toml:"approval_reset_timeout"`

	Embargo             string `toml:"embargo"`
	EmbargoBranchRegexp string `toml:"embargo_branch_regexp"`

	CITimeout              time.Duration `toml:"ci_timeout"`
	RequireSuccessfulCI    bool          `toml:"require_successful_ci"`
	GuaranteeFinalPipeline bool          `toml:"guarantee_final_pipeline"`

	UseMergeStrategy bool `toml:"use_merge_strategy"`
	RebaseRemotely   bool `toml:"rebase_remotely"`

	Batch             bool   `toml:"batch"`
	BatchSize         int    `toml:"batch_size"`
	BatchBranchPrefix string `toml:"batch_branch_prefix"`

	GitTimeout       time.Duration `toml:"git_timeout"`
	GitReferenceRepo string        `toml:"git_reference_repo"`

	PollInterval time.Duration `toml:"poll_interval"`
	IdleInterval time.Duration `toml:"idle_interval"`

	Once   bool `toml:"once"`
	DryRun bool `toml:"dry_run"`

	NotifyURL      string `toml:"notify_url"`
	HTTPListenAddr string `toml:"http_listen_addr"`

	LogFormat string `toml:"log_format"`
	Verbose   bool   `toml:"verbose"`
}

func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *Config) Marshal(writer io.Writer) error {
	return toml.NewEncoder(writer).Encode(r)
}
