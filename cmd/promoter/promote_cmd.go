package main

import (
	"context"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/modelops/promoter/pkg/descriptor"
	"github.com/modelops/promoter/pkg/git"
	"github.com/modelops/promoter/pkg/promote"
	"github.com/modelops/promoter/pkg/review"
)

const (
	// EnvVariableToken names the environment variable consulted for
	// the state-store/review-gateway secret when --git-token is not
	// given, so the secret can stay out of process listings.
	EnvVariableToken = "PROMOTER_GIT_TOKEN"
)

type promoteOpts struct {
	root *rootOpts

	candidate string
	revision  string
	config    string

	stateStoreURL  string
	branch         string
	stagingPath    string
	productionPath string
	approver       string
	gitUser        string
	gitToken       string
	committerName  string
	committerEmail string
	githubAPIURL   string
}

func newPromote(root *rootOpts) *promoteOpts {
	return &promoteOpts{root: root}
}

func (opts *promoteOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote a built deployment descriptor through the configured environments",
		RunE:  opts.RunE,
	}
	fl := cmd.Flags()
	fl.StringVar(&opts.candidate, "candidate", "", "directory holding the built deployment descriptor (required)")
	fl.StringVar(&opts.revision, "revision", "", "source commit the descriptor was built from (required)")
	fl.StringVar(&opts.config, "config", "", "YAML file with the engine configuration; flags override its values")
	fl.StringVar(&opts.stateStoreURL, "state-store-url", "", "remote URL of the GitOps state-store repository")
	fl.StringVar(&opts.branch, "branch", "main", "default branch of the state store")
	fl.StringVar(&opts.stagingPath, "staging-path", "", "state-store subtree for the staging environment")
	fl.StringVar(&opts.productionPath, "production-path", "", "state-store subtree for the production environment")
	fl.StringVar(&opts.approver, "approver", "", "identity assigned to production change requests")
	fl.StringVar(&opts.gitUser, "git-user", "", "username for the state-store and review-gateway credentials")
	fl.StringVar(&opts.gitToken, "git-token", "", "token for the state-store and review-gateway credentials; defaults to $"+EnvVariableToken)
	fl.StringVar(&opts.committerName, "committer-name", "", "author recorded in promotion commit messages")
	fl.StringVar(&opts.committerEmail, "committer-email", "", "author email recorded in promotion commit messages")
	fl.StringVar(&opts.githubAPIURL, "github-api-url", "", "base URL of a GitHub Enterprise API, if not github.com")
	return cmd
}

func (opts *promoteOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		return errorWantedNoArgs
	}
	if opts.candidate == "" {
		return newUsageError("please supply --candidate")
	}
	if opts.revision == "" {
		return newUsageError("please supply --revision")
	}

	cfg, err := opts.engineConfig(cmd)
	if err != nil {
		return err
	}

	tree, err := descriptor.NewTree(opts.candidate)
	if err != nil {
		return err
	}

	gateway, err := opts.gateway(cfg)
	if err != nil {
		return err
	}

	promoter, err := promote.New(cfg, gateway, promote.WithLogger(opts.root.logger))
	if err != nil {
		return err
	}

	result, err := promoter.Run(context.Background(), tree, opts.revision)
	if err != nil {
		opts.root.logger.Log("outcome", promote.OutcomeFailed, "err", err)
		return err
	}

	outcome := result.Outcome()
	opts.root.logger.Log("outcome", outcome, "revision", opts.revision)
	if outcome == promote.OutcomeNoOp {
		opts.root.exitCode = exitNoOp
	}
	return nil
}

// engineConfig assembles the explicit configuration struct the engine
// takes: the config file first, if any, then flag overrides.
func (opts *promoteOpts) engineConfig(cmd *cobra.Command) (promote.Config, error) {
	var cfg promote.Config
	if opts.config != "" {
		b, err := ioutil.ReadFile(opts.config)
		if err != nil {
			return cfg, errors.Wrap(err, "reading config file")
		}
		if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
			return cfg, errors.Wrap(err, "parsing config file")
		}
	}

	flagSet := func(name string) bool { return cmd.Flags().Changed(name) }
	if flagSet("state-store-url") || cfg.StateStoreURL == "" {
		cfg.StateStoreURL = opts.stateStoreURL
	}
	if flagSet("branch") || cfg.Branch == "" {
		cfg.Branch = opts.branch
	}
	if flagSet("approver") || cfg.Approver == "" {
		cfg.Approver = opts.approver
	}
	if flagSet("committer-name") || cfg.CommitterName == "" {
		cfg.CommitterName = opts.committerName
	}
	if flagSet("committer-email") || cfg.CommitterEmail == "" {
		cfg.CommitterEmail = opts.committerEmail
	}

	// The short form: --staging-path/--production-path describe the
	// conventional two-environment layout without a config file.
	if len(cfg.Environments) == 0 {
		if opts.stagingPath != "" {
			cfg.Environments = append(cfg.Environments, promote.Environment{
				Name:     "staging",
				Path:     opts.stagingPath,
				Strategy: promote.StrategyDirect,
			})
		}
		if opts.productionPath != "" {
			cfg.Environments = append(cfg.Environments, promote.Environment{
				Name:     "production",
				Path:     opts.productionPath,
				Strategy: promote.StrategyReviewGated,
			})
		}
	}

	token := opts.gitToken
	if token == "" {
		token = os.Getenv(EnvVariableToken)
	}
	cfg.Credentials = git.Auth{User: opts.gitUser, Token: token}
	return cfg, nil
}

func (opts *promoteOpts) gateway(cfg promote.Config) (review.Gateway, error) {
	gated := false
	for _, env := range cfg.Environments {
		if env.Strategy == promote.StrategyReviewGated {
			gated = true
		}
	}
	if !gated {
		return nil, nil
	}
	if cfg.Credentials.Token == "" {
		return nil, newUsageError("review-gated environments need credentials; supply --git-token or set $" + EnvVariableToken)
	}
	if opts.githubAPIURL != "" {
		return review.NewEnterpriseGithubGateway(opts.githubAPIURL, cfg.StateStoreURL, cfg.Credentials.Token)
	}
	return review.NewGithubGateway(cfg.StateStoreURL, cfg.Credentials.Token)
}
