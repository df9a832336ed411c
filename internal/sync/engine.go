// Package sync implements the one-way pipeline that mirrors a repository's
// open issues into a Notion database, one row per issue.
package sync

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JohanCodinha/ghnotion/internal/gh"
	"github.com/JohanCodinha/ghnotion/internal/logger"
	"github.com/JohanCodinha/ghnotion/internal/notion"
)

// issueNumberProperty is the database property that joins rows to issues.
const issueNumberProperty = "Issue Number"

// Issue is the shape of an issue as the pipeline carries it: the fetched
// fields plus the derived follow-up flag. Assignee stays nullable here and is
// converted to the "None" sentinel only at the write boundary.
type Issue struct {
	Number    int
	Title     string
	State     string
	Comments  int
	URL       string
	Labels    []string
	Assignee  *string
	FollowUp  bool
	CreatedAt time.Time
}

// RowIndex maps issue numbers to the page id of their database row. Built
// once per run from current database state, read-only afterwards.
type RowIndex map[int]string

// RowUpdate pairs an issue with the page id of its existing row.
type RowUpdate struct {
	PageID string
	Issue  Issue
}

// Summary reports what a run did (or, under dry run, would have done).
type Summary struct {
	Fetched  int
	Created  int
	Updated  int
	Duration time.Duration
}

// Engine drives one sync run: index, fetch, reconcile, write.
type Engine struct {
	gh         *gh.Client
	db         *notion.Client
	repo       string // "owner/repo"
	owner      string
	repoName   string
	databaseID string
	batchSize  int
	dryRun     bool
	progress   func(format string, args ...interface{})
}

// NewEngine creates a new sync engine.
// repo should be in "owner/repo" format. batchSize <= 0 selects the default.
func NewEngine(ghClient *gh.Client, dbClient *notion.Client, repo, databaseID string, batchSize int) (*Engine, error) {
	owner, repoName, err := parseRepo(repo)
	if err != nil {
		return nil, err
	}

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Engine{
		gh:         ghClient,
		db:         dbClient,
		repo:       repo,
		owner:      owner,
		repoName:   repoName,
		databaseID: databaseID,
		batchSize:  batchSize,
	}, nil
}

// parseRepo splits "owner/repo" into owner and repo name.
func parseRepo(repo string) (string, string, error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format %q: must be owner/repo", repo)
	}
	return parts[0], parts[1], nil
}

// SetDryRun makes Run stop after reconciliation, performing no writes.
func (e *Engine) SetDryRun(dryRun bool) {
	e.dryRun = dryRun
}

// SetProgress installs a printf-style callback for console progress lines.
func (e *Engine) SetProgress(fn func(format string, args ...interface{})) {
	e.progress = fn
}

func (e *Engine) progressf(format string, args ...interface{}) {
	if e.progress != nil {
		e.progress(format, args...)
	}
}

// Run executes one full sync. Any failure aborts the run; batches already
// written stay applied.
func (e *Engine) Run() (*Summary, error) {
	start := time.Now()

	e.progressf("building row index from database %s", e.databaseID)
	index, err := e.BuildRowIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to build row index: %w", err)
	}
	logger.Debug("sync: indexed %d existing rows", len(index))

	e.progressf("fetching open issues from %s", e.repo)
	issues, err := e.FetchIssues()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issues: %w", err)
	}
	logger.Debug("sync: fetched %d open issues", len(issues))

	toCreate, toUpdate := Reconcile(issues, index)
	logger.Debug("sync: reconciled %d to create, %d to update", len(toCreate), len(toUpdate))

	summary := &Summary{
		Fetched: len(issues),
		Created: len(toCreate),
		Updated: len(toUpdate),
	}

	if e.dryRun {
		for _, issue := range toCreate {
			e.progressf("would create row for issue #%d: %s", issue.Number, issue.Title)
		}
		for _, update := range toUpdate {
			e.progressf("would update row %s for issue #%d: %s", update.PageID, update.Issue.Number, update.Issue.Title)
		}
		summary.Duration = time.Since(start)
		return summary, nil
	}

	e.progressf("creating %d rows", len(toCreate))
	if err := e.createRows(toCreate); err != nil {
		return nil, fmt.Errorf("failed to create rows: %w", err)
	}

	e.progressf("updating %d rows", len(toUpdate))
	if err := e.updateRows(toUpdate); err != nil {
		return nil, fmt.Errorf("failed to update rows: %w", err)
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// BuildRowIndex queries every row of the database and resolves its issue
// number, producing the issue number → page id mapping. Any fetch failure
// aborts; a partial index is never returned.
func (e *Engine) BuildRowIndex() (RowIndex, error) {
	pages, err := e.db.QueryDatabase(e.databaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}

	index := make(RowIndex, len(pages))
	for _, page := range pages {
		ref, ok := page.Properties[issueNumberProperty]
		if !ok {
			return nil, fmt.Errorf("row %s has no %q property", page.ID, issueNumberProperty)
		}

		// The query only returns a property reference; the value costs a
		// second request per row.
		number, err := e.db.PageNumberProperty(page.ID, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve issue number for row %s: %w", page.ID, err)
		}

		index[number] = page.ID
	}

	return index, nil
}

// FetchIssues lists the repository's open issues (pull requests excluded) and
// enriches each with its follow-up classification.
func (e *Engine) FetchIssues() ([]Issue, error) {
	ghIssues, err := e.gh.ListOpenIssues(e.owner, e.repoName)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	issues := make([]Issue, 0, len(ghIssues))
	for _, ghIssue := range ghIssues {
		latest, err := e.gh.LatestComment(e.owner, e.repoName, ghIssue.Number)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch latest comment for issue #%d: %w", ghIssue.Number, err)
		}

		labels := make([]string, len(ghIssue.Labels))
		for i, l := range ghIssue.Labels {
			labels[i] = l.Name
		}

		var assignee *string
		if ghIssue.Assignee != nil {
			assignee = &ghIssue.Assignee.Login
		}

		issues = append(issues, Issue{
			Number:    ghIssue.Number,
			Title:     ghIssue.Title,
			State:     ghIssue.State,
			Comments:  ghIssue.Comments,
			URL:       ghIssue.HTMLURL,
			Labels:    labels,
			Assignee:  assignee,
			FollowUp:  NeedsFollowUp(latest),
			CreatedAt: ghIssue.CreatedAt,
		})
	}

	return issues, nil
}

// trustedAssociations are the author associations of people who maintain the
// repository. A latest comment from any of them means the issue is not
// waiting on the maintainers.
var trustedAssociations = map[string]bool{
	"COLLABORATOR": true,
	"OWNER":        true,
	"MEMBER":       true,
}

// NeedsFollowUp classifies an issue from its newest comment: true when the
// thread is empty or the last word belongs to a non-maintainer.
func NeedsFollowUp(latest *gh.Comment) bool {
	if latest == nil {
		return true
	}
	return !trustedAssociations[latest.AuthorAssociation]
}

// rowProperties maps an issue onto the database's fixed schema. The sentinel
// "None" for a missing assignee exists only here, at the write boundary.
func rowProperties(issue Issue) notion.Properties {
	assignee := "None"
	if issue.Assignee != nil {
		assignee = *issue.Assignee
	}

	return notion.Properties{
		"Name":               notion.Title(issue.Title),
		"Issue Number":       notion.Number(issue.Number),
		"State":              notion.Select(issue.State),
		"Number of Comments": notion.Number(issue.Comments),
		"Issue URL":          notion.URL(issue.URL),
		"Labels":             notion.MultiSelect(issue.Labels),
		"Follow Up":          notion.Select(strconv.FormatBool(issue.FollowUp)),
		"Assignee":           notion.RichText(assignee),
	}
}
