package connector

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

const releasePageSize = 10

// ReleasesConnector lists the most recent releases of a GitHub repository.
type ReleasesConnector struct {
	client *github.Client
	logger *slog.Logger
}

var _ ports.Connector = (*ReleasesConnector)(nil)

// NewReleasesConnector builds the connector around a go-github client.
func NewReleasesConnector(client *github.Client, logger *slog.Logger) *ReleasesConnector {
	return &ReleasesConnector{client: client, logger: logger}
}

// NewGitHubClient creates the API client, authenticated when a token is set.
func NewGitHubClient(ctx context.Context, token string, base *http.Client) *github.Client {
	httpClient := base
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	return github.NewClient(httpClient)
}

// Method identifies the connector inside the registry.
func (r *ReleasesConnector) Method() domain.FetchMethod {
	return domain.FetchReleases
}

// Fetch emits one candidate per release: identifier, name (falling back to
// tag), body, and the published time falling back to the created time.
func (r *ReleasesConnector) Fetch(ctx context.Context, source domain.Source) ([]domain.CandidateItem, error) {
	owner, repo, ok := splitOwnerRepo(source.URL)
	if !ok {
		r.logger.Warn("cannot parse owner/repo from source url", "source", source.Name, "url", source.URL)
		return nil, nil
	}

	releases, resp, err := r.client.Repositories.ListReleases(ctx, owner, repo, &github.ListOptions{
		PerPage: releasePageSize,
	})
	if err != nil {
		r.logger.Warn("release listing failed", "source", source.Name, "repo", owner+"/"+repo, "error", err)
		return nil, nil
	}
	if resp != nil && resp.StatusCode >= http.StatusBadRequest {
		r.logger.Warn("release listing returned error status", "source", source.Name, "status", resp.Status)
		return nil, nil
	}

	items := make([]domain.CandidateItem, 0, len(releases))
	for _, rel := range releases {
		title := rel.GetName()
		if title == "" {
			title = rel.GetTagName()
		}

		link := rel.GetHTMLURL()
		if link == "" {
			link = source.URL
		}

		published := rel.GetPublishedAt().Time
		if published.IsZero() {
			published = rel.GetCreatedAt().Time
		}

		items = append(items, domain.CandidateItem{
			ExternalID:  strconv.FormatInt(rel.GetID(), 10),
			URL:         link,
			Title:       title,
			ContentText: rel.GetBody(),
			PublishedAt: published,
			Metadata: map[string]string{
				"tag_name":   rel.GetTagName(),
				"prerelease": strconv.FormatBool(rel.GetPrerelease()),
				"draft":      strconv.FormatBool(rel.GetDraft()),
			},
		})
	}

	r.logger.Info("releases fetched", "source", source.Name, "repo", owner+"/"+repo, "items", len(items))
	return items, nil
}

// splitOwnerRepo resolves owner and repository from a repo or repo/releases
// URL. An organization-only URL has no repository to poll.
func splitOwnerRepo(raw string) (owner, repo string, ok bool) {
	parsed, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return "", "", false
	}

	path := strings.TrimSuffix(parsed.Path, "/releases")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
