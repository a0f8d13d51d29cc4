package core

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/git-lab/internal/models"
)

// FeatureResult is the outcome of SwitchFeature.
type FeatureResult struct {
	Branch string
	// Created is set when the branch did not exist before.
	Created    bool
	StartPoint string
}

// DefaultStartPoint returns the upstream default branch as known locally,
// or HEAD if origin has not been fetched.
func DefaultStartPoint(ctx context.Context, repo LocalRepo) (string, error) {
	for _, name := range fallbackBranches {
		ok, err := repo.RefExists(ctx, models.RemoteBranchRef(OriginRemote, name))
		if err != nil {
			return "", err
		}
		if ok {
			return models.UpstreamName(OriginRemote, name), nil
		}
	}
	return "HEAD", nil
}

// SwitchFeature checks out the branch name, creating it from start first if
// it does not exist. An empty start means DefaultStartPoint.
func SwitchFeature(ctx context.Context, repo LocalRepo, name, start string) (*FeatureResult, error) {
	const op Op = "feature"

	exists, err := repo.BranchExists(ctx, name)
	if err != nil {
		return nil, E(op, Git, err)
	}
	res := &FeatureResult{Branch: name}
	if !exists {
		if start == "" {
			if start, err = DefaultStartPoint(ctx, repo); err != nil {
				return nil, E(op, Git, err)
			}
		}
		if err := repo.CreateBranch(ctx, name, start); err != nil {
			return nil, E(op, Git, err)
		}
		res.Created, res.StartPoint = true, start
	}
	if err := repo.Checkout(ctx, name); err != nil {
		return nil, E(op, Git, err)
	}
	return res, nil
}

// RewriteRemote switches a remote from an http(s) URL to the equivalent ssh
// URL and returns the new URL.
func RewriteRemote(ctx context.Context, repo LocalRepo, name string) (string, error) {
	const op Op = "rewrite-remote"

	urls, err := repo.RemoteURLs(ctx, name)
	if err != nil {
		return "", E(op, Git, err)
	}
	if len(urls) == 0 {
		return "", E(op, Configuration, fmt.Errorf("no such remote '%s'", name))
	}
	normalized, err := Normalize(urls[0])
	if err != nil {
		return "", E(op, Configuration, err)
	}
	ssh := SSHFromHTTP(normalized)
	if ssh != urls[0] {
		if err := repo.SetRemoteURL(ctx, name, ssh); err != nil {
			return "", E(op, Git, err)
		}
	}
	return ssh, nil
}
