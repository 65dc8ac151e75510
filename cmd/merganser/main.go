package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"github.com/thecodeteam/goodbye"
	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/simplesurance/merganser/internal/cfg"
	"github.com/simplesurance/merganser/internal/embargo"
	"github.com/simplesurance/merganser/internal/gitcmd"
	"github.com/simplesurance/merganser/internal/gitlabclt"
	"github.com/simplesurance/merganser/internal/logfields"
	"github.com/simplesurance/merganser/internal/merganser"
	"github.com/simplesurance/merganser/internal/mergejob"
	"github.com/simplesurance/merganser/internal/notify"
	"github.com/simplesurance/merganser/internal/retryer"
	"github.com/simplesurance/merganser/internal/stringutils"
)

const appName = "merganser"

// envVarPrefix is the prefix of the environment variables that mirror the
// command line flags.
const envVarPrefix = "MERGANSER_"

var logger *zap.Logger

// Version is set via a ldflag on compilation
var Version = "unknown"

const (
	defMergeOrder     = string(merganser.OrderCreatedAt)
	defLogFormat      = "logfmt"
	defHTTPListenAddr = ":8084"
)

func exitOnErr(msg string, err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "ERROR:", msg+", error:", err.Error())
	os.Exit(1)
}

func panicHandler() {
	if r := recover(); r != nil {
		logger.Info(
			"panic caught , terminating gracefully",
			zap.String("panic", fmt.Sprintf("%v", r)),
			zap.StackSkip("stacktrace", 1),
		)

		ctx, cancelFn := context.WithTimeout(context.Background(), time.Minute)
		defer cancelFn()

		goodbye.Exit(ctx, 1)

	}
}

func startHTTPServer(listenAddr string, mux *http.ServeMux) {
	httpServer := http.Server{
		Addr:    listenAddr,
		Handler: mux,
	}

	goodbye.Register(func(context.Context, os.Signal) {
		const shutdownTimeout = 30 * time.Second
		ctx, cancelFn := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelFn()

		logger.Debug(
			"terminating http server",
			logfields.Event("http_server_terminating"),
			zap.Duration("shutdown_timeout", shutdownTimeout),
		)

		err := httpServer.Shutdown(ctx)
		if err != nil {
			logger.Warn(
				"shutting down http server failed",
				logfields.Event("http_server_termination_failed"),
				zap.Error(err),
			)
		}
	})

	go func() {
		defer panicHandler()

		logger.Info(
			"http server started",
			logfields.Event("http_server_started"),
			zap.String("listenAddr", listenAddr),
		)

		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("http server terminated", logfields.Event("http_server_terminated"))
			return
		}

		logger.Fatal(
			"http server terminated unexpectedly",
			logfields.Event("http_server_terminated_unexpectedly"),
			zap.Error(err),
		)
	}()
}

type arguments struct {
	ConfigFile  *string
	ShowVersion *bool
}

var args arguments

// flagCfg receives the values of the configuration command line flags.
// After mustParseCommandlineParams() and mustLoadCfgFile() ran it holds the
// effective configuration.
var flagCfg cfg.Config

func registerCfgFlags(conf *cfg.Config) {
	pflag.StringVar(&conf.GitlabURL, "gitlab-url", "",
		"base URL of the GitLab installation")
	pflag.StringVar(&conf.AuthToken, "auth-token", "",
		"private token of the bot user for the GitLab API")
	pflag.StringVar(&conf.AuthTokenFile, "auth-token-file", "",
		"file containing the private token, preferred over auth-token")
	pflag.StringVar(&conf.SSHKeyFile, "ssh-key-file", "",
		"private SSH key that git authenticates with, required unless use-https is set")
	pflag.BoolVar(&conf.UseHTTPS, "use-https", false,
		"clone and push via HTTPS with the auth token instead of via SSH")

	pflag.StringVar(&conf.ProjectRegexp, "project-regexp", ".*",
		"only process projects whose full path matches the regular expression")
	pflag.StringVar(&conf.BranchRegexp, "branch-regexp", ".*",
		"only process merge requests whose target branch matches the regular expression")
	pflag.StringVar(&conf.SourceBranchRegexp, "source-branch-regexp", ".*",
		"only process merge requests whose source branch matches the regular expression")
	pflag.StringVar(&conf.MRFilterQuery, "mr-filter-query", "",
		"jq expression evaluated against the merge request JSON, it must return a single boolean, non-matching merge requests are skipped")
	pflag.StringVar(&conf.MergeOrder, "merge-order", defMergeOrder,
		"order in which assigned merge requests are merged, created_at or assigned_at")

	pflag.BoolVar(&conf.AddTested, "add-tested", false,
		"append a Tested-by trailer to the head commit before merging")
	pflag.BoolVar(&conf.AddReviewers, "add-reviewers", false,
		"append Reviewed-by trailers for all approvers before merging, requires an administrator token")
	pflag.BoolVar(&conf.AddPartOf, "add-part-of", false,
		"append Part-of trailers referencing the merge request to all of its commits")
	pflag.BoolVar(&conf.ImpersonateApprovers, "impersonate-approvers", false,
		"restore approvals that the platform reset after a push by approving as the original approvers, requires an administrator token")
	pflag.DurationVar(&conf.ApprovalResetTimeout, "approval-reset-timeout", 0,
		"how long to wait for the platform to reset approvals after a push before restoring them")

	pflag.StringVar(&conf.Embargo, "embargo", "",
		"comma-separated weekly intervals during which nothing is merged, e.g. 'Friday 12pm - Monday 9am'")
	pflag.StringVar(&conf.EmbargoBranchRegexp, "embargo-branch-regexp", "",
		"never merge into target branches matching the regular expression")

	pflag.DurationVar(&conf.CITimeout, "ci-timeout", mergejob.DefCITimeout,
		"maximum time to wait for the pipeline of a merge request")
	pflag.BoolVar(&conf.RequireSuccessfulCI, "require-successful-ci", false,
		"keep waiting on skipped pipelines instead of counting them as passed")
	pflag.BoolVar(&conf.GuaranteeFinalPipeline, "guarantee-final-pipeline", false,
		"trigger a fresh pipeline for the rebased head before merging, even when an earlier one already passed")

	pflag.BoolVar(&conf.UseMergeStrategy, "use-merge-strategy", false,
		"merge with a platform-side merge commit even for fast-forward projects, incompatible with the trailer options")
	pflag.BoolVar(&conf.RebaseRemotely, "rebase-remotely", false,
		"let the platform rebase the source branch instead of rebasing locally, incompatible with the trailer options and use-merge-strategy")

	pflag.BoolVar(&conf.Batch, "batch", false,
		"test and merge multiple merge requests with the same target branch together")
	pflag.IntVar(&conf.BatchSize, "batch-size", merganser.DefBatchSize,
		"maximum number of merge requests that are batched together")
	pflag.StringVar(&conf.BatchBranchPrefix, "batch-branch-prefix", mergejob.DefBatchBranchPrefix,
		"prefix of the temporary branch that batches are tested on")

	pflag.DurationVar(&conf.GitTimeout, "git-timeout", gitcmd.DefaultCommandTimeout,
		"timeout per git command")
	pflag.StringVar(&conf.GitReferenceRepo, "git-reference-repo", "",
		"local repository that git clone borrows objects from via --reference")

	pflag.DurationVar(&conf.PollInterval, "poll-interval", merganser.DefPollInterval,
		"pause between polls of a project with pending merge requests")
	pflag.DurationVar(&conf.IdleInterval, "idle-interval", merganser.DefIdleInterval,
		"pause between polls of a project without pending merge requests")

	pflag.BoolVar(&conf.Once, "once", false,
		"process the pending merge requests of all projects once and exit")
	pflag.BoolVar(&conf.DryRun, "dry-run", false,
		"log platform mutations instead of performing them")

	pflag.StringVar(&conf.NotifyURL, "notify-url", "",
		"URL that finished merge requests are reported to via an HTTP POST")
	pflag.StringVar(&conf.HTTPListenAddr, "http-listen-addr", defHTTPListenAddr,
		"listen address of the HTTP server serving /metrics, /queues and /up")

	pflag.StringVar(&conf.LogFormat, "log-format", defLogFormat,
		"log output format, logfmt, console or json")
	pflag.BoolVarP(&conf.Verbose, "verbose", "v", false,
		"enable verbose logging")
}

func mustParseCommandlineParams() {
	registerCfgFlags(&flagCfg)

	args = arguments{
		ConfigFile: pflag.StringP(
			"cfg-file",
			"c",
			"",
			"path of an optional TOML configuration file",
		),
		ShowVersion: pflag.Bool(
			"version",
			false,
			"print the version and exit",
		),
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]\nMerge the merge requests that are assigned to the bot user, one after another.\n", appName)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()
	applyEnvVars()
}

// applyEnvVars sets every flag that was not passed on the command line and
// whose corresponding environment variable is set to the value of the
// environment variable. The variable name is the flag name in upper case,
// dashes replaced by underscores, prefixed with envVarPrefix.
func applyEnvVars() {
	pflag.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "version" {
			return
		}

		name := envVarPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		val, exist := os.LookupEnv(name)
		if !exist {
			return
		}

		err := f.Value.Set(val)
		exitOnErr(fmt.Sprintf("invalid value in environment variable %s", name), err)

		f.Changed = true
	})
}

// mustLoadCfgFile merges the settings of the TOML configuration file into
// flagCfg. Settings that were passed as command line flag or environment
// variable take precedence over the file.
func mustLoadCfgFile(path string) {
	// we use exitOnErr in this function instead of logger.Fatal() because
	// the logger is not initialized yet

	file, err := os.Open(path)
	exitOnErr("could not open configuration file", err)
	defer file.Close()

	fileCfg, err := cfg.Load(file)
	if err != nil {
		exitOnErr(fmt.Sprintf("could not load configuration file: %s", path), err)
	}

	mergeString("gitlab-url", &flagCfg.GitlabURL, fileCfg.GitlabURL)
	mergeString("auth-token", &flagCfg.AuthToken, fileCfg.AuthToken)
	mergeString("auth-token-file", &flagCfg.AuthTokenFile, fileCfg.AuthTokenFile)
	mergeString("ssh-key-file", &flagCfg.SSHKeyFile, fileCfg.SSHKeyFile)
	mergeBool("use-https", &flagCfg.UseHTTPS, fileCfg.UseHTTPS)

	mergeString("project-regexp", &flagCfg.ProjectRegexp, fileCfg.ProjectRegexp)
	mergeString("branch-regexp", &flagCfg.BranchRegexp, fileCfg.BranchRegexp)
	mergeString("source-branch-regexp", &flagCfg.SourceBranchRegexp, fileCfg.SourceBranchRegexp)
	mergeString("mr-filter-query", &flagCfg.MRFilterQuery, fileCfg.MRFilterQuery)
	mergeString("merge-order", &flagCfg.MergeOrder, fileCfg.MergeOrder)

	mergeBool("add-tested", &flagCfg.AddTested, fileCfg.AddTested)
	mergeBool("add-reviewers", &flagCfg.AddReviewers, fileCfg.AddReviewers)
	mergeBool("add-part-of", &flagCfg.AddPartOf, fileCfg.AddPartOf)
	mergeBool("impersonate-approvers", &flagCfg.ImpersonateApprovers, fileCfg.ImpersonateApprovers)
	mergeDuration("approval-reset-timeout", &flagCfg.ApprovalResetTimeout, fileCfg.ApprovalResetTimeout)

	mergeString("embargo", &flagCfg.Embargo, fileCfg.Embargo)
	mergeString("embargo-branch-regexp", &flagCfg.EmbargoBranchRegexp, fileCfg.EmbargoBranchRegexp)

	mergeDuration("ci-timeout", &flagCfg.CITimeout, fileCfg.CITimeout)
	mergeBool("require-successful-ci", &flagCfg.RequireSuccessfulCI, fileCfg.RequireSuccessfulCI)
	mergeBool("guarantee-final-pipeline", &flagCfg.GuaranteeFinalPipeline, fileCfg.GuaranteeFinalPipeline)

	mergeBool("use-merge-strategy", &flagCfg.UseMergeStrategy, fileCfg.UseMergeStrategy)
	mergeBool("rebase-remotely", &flagCfg.RebaseRemotely, fileCfg.RebaseRemotely)

	mergeBool("batch", &flagCfg.Batch, fileCfg.Batch)
	mergeInt("batch-size", &flagCfg.BatchSize, fileCfg.BatchSize)
	mergeString("batch-branch-prefix", &flagCfg.BatchBranchPrefix, fileCfg.BatchBranchPrefix)

	mergeDuration("git-timeout", &flagCfg.GitTimeout, fileCfg.GitTimeout)
	mergeString("git-reference-repo", &flagCfg.GitReferenceRepo, fileCfg.GitReferenceRepo)

	mergeDuration("poll-interval", &flagCfg.PollInterval, fileCfg.PollInterval)
	mergeDuration("idle-interval", &flagCfg.IdleInterval, fileCfg.IdleInterval)

	mergeBool("once", &flagCfg.Once, fileCfg.Once)
	mergeBool("dry-run", &flagCfg.DryRun, fileCfg.DryRun)

	mergeString("notify-url", &flagCfg.NotifyURL, fileCfg.NotifyURL)
	mergeString("http-listen-addr", &flagCfg.HTTPListenAddr, fileCfg.HTTPListenAddr)

	mergeString("log-format", &flagCfg.LogFormat, fileCfg.LogFormat)
	mergeBool("verbose", &flagCfg.Verbose, fileCfg.Verbose)
}

func mergeString(flagName string, dest *string, fileVal string) {
	if fileVal == "" || pflag.CommandLine.Changed(flagName) {
		return
	}

	*dest = fileVal
}

func mergeBool(flagName string, dest *bool, fileVal bool) {
	if !fileVal || pflag.CommandLine.Changed(flagName) {
		return
	}

	*dest = true
}

func mergeInt(flagName string, dest *int, fileVal int) {
	if fileVal == 0 || pflag.CommandLine.Changed(flagName) {
		return
	}

	*dest = fileVal
}

func mergeDuration(flagName string, dest *time.Duration, fileVal time.Duration) {
	if fileVal == 0 || pflag.CommandLine.Changed(flagName) {
		return
	}

	*dest = fileVal
}

func validateCfg(config *cfg.Config) error {
	if config.GitlabURL == "" {
		return errors.New("gitlab-url must be set")
	}

	if config.AuthToken == "" && config.AuthTokenFile == "" {
		return errors.New("one of auth-token and auth-token-file must be set")
	}

	if !config.UseHTTPS && config.SSHKeyFile == "" {
		return errors.New("ssh-key-file must be set when cloning via SSH")
	}

	trailers := config.AddTested || config.AddReviewers || config.AddPartOf

	if config.UseMergeStrategy && trailers {
		return errors.New("use-merge-strategy is incompatible with the commit trailer options")
	}

	if config.RebaseRemotely && (trailers || config.UseMergeStrategy) {
		return errors.New("rebase-remotely is incompatible with the commit trailer options and with use-merge-strategy")
	}

	if config.BatchSize < 1 {
		return errors.New("batch-size must be at least 1")
	}

	return nil
}

// mustResolveAuthToken returns the API token, reading it from
// auth-token-file when the option is set.
func mustResolveAuthToken(config *cfg.Config) string {
	if config.AuthTokenFile == "" {
		return config.AuthToken
	}

	data, err := os.ReadFile(config.AuthTokenFile)
	exitOnErr(fmt.Sprintf("could not read auth token file: %s", config.AuthTokenFile), err)

	return strings.TrimSpace(string(data))
}

func initLogFmtLogger(logLevel zapcore.Level) *zap.Logger {
	cfg := zapEncoderConfig()

	logger := zap.New(zapcore.NewCore(
		zaplogfmt.NewEncoder(cfg),
		os.Stdout,
		logLevel),
	)

	return logger
}

func zapEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func mustInitZapFormatLogger(format string, logLevel zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig = zapEncoderConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.Encoding = format
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	exitOnErr("could not initialize logger", err)

	return logger
}

func mustInitLogger(config *cfg.Config) {
	logLevel := zapcore.InfoLevel
	if config.Verbose {
		logLevel = zapcore.DebugLevel
	}

	switch config.LogFormat {
	case "logfmt":
		logger = initLogFmtLogger(logLevel)
	case "console", "json":
		logger = mustInitZapFormatLogger(config.LogFormat, logLevel)
	default:
		fmt.Fprintf(os.Stderr, "unsupported log-format argument: %q\n", config.LogFormat)
		os.Exit(2)
	}

	logger = logger.Named("main")
	zap.ReplaceGlobals(logger)

	goodbye.Register(func(context.Context, os.Signal) {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "flushing logs failed: %s\n", err)
		}
	})
}

func hide(in string) string {
	if in == "" {
		return in
	}

	return "**hidden**"
}

// mustDumpCfg serializes the effective configuration for the startup log
// message, with the API token masked.
func mustDumpCfg(config *cfg.Config) string {
	masked := *config
	masked.AuthToken = hide(masked.AuthToken)

	var buf bytes.Buffer
	err := masked.Marshal(&buf)
	exitOnErr("could not serialize the configuration", err)

	return stringutils.IndentString(buf.String(), "  ")
}

func mustCompileRegexp(option, expr string) *regexp.Regexp {
	re, err := regexp.Compile(expr)
	exitOnErr(fmt.Sprintf("invalid %s regular expression", option), err)

	return re
}

func mustParseMergeOrder(value string) merganser.MergeOrder {
	switch order := merganser.MergeOrder(value); order {
	case merganser.OrderCreatedAt, merganser.OrderAssignedAt:
		return order
	default:
		fmt.Fprintf(os.Stderr, "unsupported merge-order argument: %q\n", value)
		os.Exit(2)
		return ""
	}
}

func mustParseJobOptions(config *cfg.Config) *mergejob.Options {
	opts := mergejob.Options{
		UseMergeStrategy:       config.UseMergeStrategy,
		RebaseRemotely:         config.RebaseRemotely,
		AddTested:              config.AddTested,
		AddReviewers:           config.AddReviewers,
		AddPartOf:              config.AddPartOf,
		ImpersonateApprovers:   config.ImpersonateApprovers,
		ApprovalResetTimeout:   config.ApprovalResetTimeout,
		CITimeout:              config.CITimeout,
		RequireSuccessfulCI:    config.RequireSuccessfulCI,
		GuaranteeFinalPipeline: config.GuaranteeFinalPipeline,
		BatchBranchPrefix:      config.BatchBranchPrefix,
	}

	if config.Embargo != "" {
		emb, err := embargo.Parse(config.Embargo)
		exitOnErr("invalid embargo argument", err)

		opts.Embargo = emb
	}

	if config.EmbargoBranchRegexp != "" {
		opts.EmbargoBranches = mustCompileRegexp("embargo-branch-regexp", config.EmbargoBranchRegexp)
	}

	return &opts
}

func mustParseBotConfig(config *cfg.Config) *merganser.Config {
	botCfg := merganser.Config{
		ProjectRegexp:      mustCompileRegexp("project-regexp", config.ProjectRegexp),
		BranchRegexp:       mustCompileRegexp("branch-regexp", config.BranchRegexp),
		SourceBranchRegexp: mustCompileRegexp("source-branch-regexp", config.SourceBranchRegexp),
		Order:              mustParseMergeOrder(config.MergeOrder),
		JobOptions:         mustParseJobOptions(config),
		Batch:              config.Batch,
		BatchSize:          config.BatchSize,
		PollInterval:       config.PollInterval,
		IdleInterval:       config.IdleInterval,
	}

	if config.MRFilterQuery != "" {
		filter, err := merganser.NewMRFilter(config.MRFilterQuery)
		exitOnErr("invalid mr-filter-query argument", err)

		botCfg.Filter = filter
	}

	return &botCfg
}

// dryClient simulates all mutating platform calls and forwards the
// read-only ones to the wrapped client.
type dryClient struct {
	*mergejob.DryGitlabClient
	clt *gitlabclt.Client
}

func newDryClient(clt *gitlabclt.Client) *dryClient {
	return &dryClient{
		DryGitlabClient: mergejob.NewDryGitlabClient(clt),
		clt:             clt,
	}
}

func (c *dryClient) CurrentUser(ctx context.Context) (*gitlab.User, error) {
	return c.clt.CurrentUser(ctx)
}

func (c *dryClient) Version(ctx context.Context) (*gitlabclt.Version, error) {
	return c.clt.Version(ctx)
}

func (c *dryClient) BotProjects(ctx context.Context) ([]*gitlab.Project, error) {
	return c.clt.BotProjects(ctx)
}

func (c *dryClient) OpenAssignedMergeRequests(ctx context.Context, projectID, userID int, orderBy string) ([]*gitlab.MergeRequest, error) {
	return c.clt.OpenAssignedMergeRequests(ctx, projectID, userID, orderBy)
}

func (c *dryClient) AssignedAt(ctx context.Context, projectID, iid int, username string) (time.Time, error) {
	return c.clt.AssignedAt(ctx, projectID, iid, username)
}

// worktreeProvider hands out the local clones that a gitcmd.RepoManager
// maintains. With dryRun the worktrees only simulate their remote
// mutations.
type worktreeProvider struct {
	repos  *gitcmd.RepoManager
	dryRun bool
}

func (p *worktreeProvider) Worktree(ctx context.Context, projectID int, sshURL, httpURL string) (mergejob.Worktree, error) {
	repo, err := p.repos.Repo(ctx, projectID, sshURL, httpURL)
	if err != nil {
		return nil, err
	}

	if p.dryRun {
		return mergejob.NewDryWorktree(repo), nil
	}

	return repo, nil
}

func main() {
	defer panicHandler()

	defer goodbye.Exit(context.Background(), 1)
	goodbye.Notify(context.Background())

	mustParseCommandlineParams()

	if *args.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		os.Exit(0) // nolint:gocritic // defer functions won't run
	}

	if *args.ConfigFile != "" {
		mustLoadCfgFile(*args.ConfigFile)
	}

	config := &flagCfg

	err := validateCfg(config)
	exitOnErr("invalid configuration", err)

	mustInitLogger(config)

	logger.Info(
		"configuration loaded",
		logfields.Event("cfg_loaded"),
		zap.String("cfg_file", *args.ConfigFile),
		zap.String("config", "\n"+mustDumpCfg(config)),
	)

	goodbye.Register(func(_ context.Context, sig os.Signal) {
		logger.Info(fmt.Sprintf("terminating, received signal %s", sig.String()))
	})

	authToken := mustResolveAuthToken(config)

	gitlabClt, err := gitlabclt.New(config.GitlabURL, authToken)
	exitOnErr("could not create the gitlab api client", err)

	var clt merganser.GitlabClient = gitlabClt
	if config.DryRun {
		logger.Info(
			"dry-run is enabled, platform mutations are only logged",
			logfields.Event("dry_run_enabled"),
		)

		clt = newDryClient(gitlabClt)
	}

	// the committer identity of the rewritten branches is the bot user
	botUser, err := gitlabClt.CurrentUser(context.Background())
	exitOnErr("could not resolve the bot user, is the auth token valid?", err)

	userName := botUser.Name
	if userName == "" {
		userName = botUser.Username
	}

	userEmail := botUser.Email
	if userEmail == "" {
		userEmail = botUser.Username + "@noreply.invalid"
	}

	worktreeRoot, err := os.MkdirTemp("", appName+"-")
	exitOnErr("could not create the worktree directory", err)

	goodbye.Register(func(context.Context, os.Signal) {
		if err := os.RemoveAll(worktreeRoot); err != nil {
			logger.Warn("removing the worktree directory failed", zap.Error(err))
		}
	})

	repoCfg := gitcmd.RepoManagerConfig{
		RootDir:        worktreeRoot,
		ReferenceRepo:  config.GitReferenceRepo,
		UserName:       userName,
		UserEmail:      userEmail,
		CommandTimeout: config.GitTimeout,
	}

	if config.UseHTTPS {
		repoCfg.HTTPSToken = authToken
	} else {
		repoCfg.SSHKeyFile = config.SSHKeyFile
	}

	worktrees := &worktreeProvider{
		repos:  gitcmd.NewRepoManager(&repoCfg),
		dryRun: config.DryRun,
	}

	retr := retryer.New()

	var notifier merganser.Notifier
	if config.NotifyURL != "" {
		notifier = notify.NewWebhook(config.NotifyURL, retr)
	}

	bot := merganser.New(clt, worktrees, retr, notifier, mustParseBotConfig(config))

	if config.Once {
		err := bot.RunOnce(context.Background())
		exitOnErr("processing the projects failed", err)

		goodbye.Exit(context.Background(), 0)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/queues", bot.HTTPHandlerQueues)
	mux.HandleFunc("/up", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "OK")
	})

	startHTTPServer(config.HTTPListenAddr, mux)

	err = bot.Start(context.Background())
	exitOnErr("starting the bot failed", err)

	goodbye.Register(func(context.Context, os.Signal) {
		bot.Stop()
	})

	select {}
}
