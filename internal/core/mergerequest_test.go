package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/git-lab/internal/config"
	"github.com/kilupskalvis/git-lab/internal/gitlab"
	"github.com/kilupskalvis/git-lab/internal/models"
)

func newSync(f *fixture, opts ReviewOptions) *ReviewRequestSync {
	return NewReviewRequestSync(f.session, NewForkManager(f.session), f.prompt, opts)
}

// withFork registers alice's fork both remotely and as the local fork remote.
func (f *fixture) withFork() {
	f.client.AddProject(aliceFork())
	f.repo.RemoteURLMap[ForkRemote] = []string{forkSSH}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		opts     ReviewOptions
		branch   string
		wantWarn bool
	}{
		{"fork workflow", ReviewOptions{Workflow: config.WorkflowFork, WorkBranchPrefix: "work/"}, "feature", false},
		{"no convention", ReviewOptions{Workflow: config.WorkflowWorkBranch}, "feature", false},
		{"follows convention", ReviewOptions{Workflow: config.WorkflowWorkBranch, WorkBranchPrefix: "work/"}, "work/feature", false},
		{"ignores convention", ReviewOptions{Workflow: config.WorkflowWorkBranch, WorkBranchPrefix: "work/"}, "feature", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.onBranch(tt.branch)

			warning, err := newSync(f, tt.opts).Check(context.Background())
			require.NoError(t, err)
			if tt.wantWarn {
				assert.Contains(t, warning, "'work/'")
			} else {
				assert.Empty(t, warning)
			}
		})
	}
}

func TestCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing staged", func(t *testing.T) {
		f := newFixture(t)
		committed, err := newSync(f, ReviewOptions{}).Commit(ctx)
		require.NoError(t, err)
		assert.False(t, committed)
		assert.Empty(t, f.prompt.asked)
	})

	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(t)
		f.repo.Staged = true
		f.prompt.answers = []bool{true}

		committed, err := newSync(f, ReviewOptions{}).Commit(ctx)
		require.NoError(t, err)
		assert.True(t, committed)
		assert.Equal(t, []string{"commit"}, f.repo.Calls)
	})

	t.Run("declined", func(t *testing.T) {
		f := newFixture(t)
		f.repo.Staged = true
		f.prompt.answers = []bool{false}

		committed, err := newSync(f, ReviewOptions{}).Commit(ctx)
		require.NoError(t, err)
		assert.False(t, committed)
		assert.Empty(t, f.repo.Calls)
	})

	t.Run("commit fails", func(t *testing.T) {
		f := newFixture(t)
		f.repo.Staged = true
		f.repo.Errs["Commit"] = errors.New("pre-commit hook failed")
		f.prompt.answers = []bool{true}

		_, err := newSync(f, ReviewOptions{}).Commit(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCommitFailed)
		assert.Equal(t, Git, KindOf(err))
	})
}

func TestPush_Fork(t *testing.T) {
	f := newFixture(t)
	f.withFork()
	f.onBranch("feature")

	upstream, err := newSync(f, ReviewOptions{Workflow: config.WorkflowFork}).Push(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "fork/feature", upstream)
	assert.Equal(t, []string{"push fork feature force=true", "set-upstream feature fork/feature"}, f.repo.Calls)
	assert.Equal(t, "fork/feature", f.repo.LocalBranches["feature"].Upstream)
}

func TestPush_WorkBranch(t *testing.T) {
	f := newFixture(t)
	f.onBranch("work/feature")

	upstream, err := newSync(f, ReviewOptions{Workflow: config.WorkflowWorkBranch}).Push(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "origin/work/feature", upstream)
	assert.Equal(t, []string{"origin HEAD"}, f.repo.Pushed)
	assert.Empty(t, f.client.Calls, "the work branch workflow never needs a fork")
}

func TestPush_DetachedHead(t *testing.T) {
	f := newFixture(t)
	f.repo.Current = ""

	_, err := newSync(f, ReviewOptions{Workflow: config.WorkflowWorkBranch}).Push(context.Background())
	require.Error(t, err)
	assert.Equal(t, State, KindOf(err))
	assert.Empty(t, f.repo.Pushed)
}

func TestCreateMergeRequest_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	f.withFork()
	f.onBranch("feature")
	f.repo.Subject, f.repo.Body = "Fix crash on start", "The account list was nil."
	f.prompt.title, f.prompt.description = "Fix crash on start", "The account list was nil."
	ctx := context.Background()

	s := newSync(f, ReviewOptions{Workflow: config.WorkflowFork})
	first, err := s.CreateMergeRequest(ctx, MergeRequestOptions{})
	require.NoError(t, err)
	assert.False(t, first.Existing)
	assert.Equal(t, "Fix crash on start", f.prompt.gotTitle)
	assert.Equal(t, "The account list was nil.", f.prompt.gotDescription)

	second, err := s.CreateMergeRequest(ctx, MergeRequestOptions{})
	require.NoError(t, err)
	assert.True(t, second.Existing)
	assert.Equal(t, first.MergeRequest.IID, second.MergeRequest.IID)

	assert.Len(t, f.client.MergeRequests, 1)
	assert.Equal(t, 1, f.prompt.described, "the editor only opens when creating")

	want := &gitlab.CreateMergeRequestOptions{
		SourceBranch:       "feature",
		TargetBranch:       "master",
		Title:              "Fix crash on start",
		Description:        "The account list was nil.",
		TargetProjectID:    1,
		AllowCollaboration: true,
		RemoveSourceBranch: true,
	}
	if diff := cmp.Diff(want, f.client.Created[0]); diff != "" {
		t.Errorf("create options mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, first.MergeRequest.SourceProjectID, "created from the fork")
}

func TestCreateMergeRequest_IgnoresOtherSourceProjects(t *testing.T) {
	f := newFixture(t)
	f.withFork()
	f.onBranch("feature")
	f.prompt.title = "Mine"
	f.client.MergeRequests = []*models.MergeRequest{{
		IID: 1, State: models.MergeRequestOpened, SourceBranch: "feature", TargetBranch: "master",
		SourceProjectID: 3, TargetProjectID: 1,
	}}

	res, err := newSync(f, ReviewOptions{Workflow: config.WorkflowFork}).CreateMergeRequest(context.Background(), MergeRequestOptions{})
	require.NoError(t, err)
	assert.False(t, res.Existing)
	assert.Len(t, f.client.MergeRequests, 2)
}

func TestCreateMergeRequest_WorkBranchTarget(t *testing.T) {
	f := newFixture(t)
	f.onBranch("work/feature")
	f.prompt.title = "Title"

	res, err := newSync(f, ReviewOptions{Workflow: config.WorkflowWorkBranch}).CreateMergeRequest(context.Background(),
		MergeRequestOptions{TargetBranch: "release/24.02"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.MergeRequest.SourceProjectID)
	assert.Equal(t, "release/24.02", res.MergeRequest.TargetBranch)
	assert.Equal(t, 0, f.calledClient("ForkProject 1"))
}

func TestCreateMergeRequest_EmptyTitle(t *testing.T) {
	f := newFixture(t)
	f.onBranch("work/feature")
	f.prompt.title = "  "

	_, err := newSync(f, ReviewOptions{Workflow: config.WorkflowWorkBranch}).CreateMergeRequest(context.Background(), MergeRequestOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Equal(t, Declined, KindOf(err))
	assert.Empty(t, f.client.MergeRequests)
}

func TestCreateMergeRequest_UploadsImages(t *testing.T) {
	f := newFixture(t)
	f.onBranch("work/feature")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.png"), []byte("PNG"), 0644))

	f.prompt.title = "Title"
	f.prompt.description = strings.Join([]string{
		"Before: ![shot](shot.png)",
		"Logo: ![logo](https://example.com/logo.png)",
		"Gone: ![gone](missing.png)",
		"Again: ![same shot](shot.png)",
	}, "\n")

	res, err := newSync(f, ReviewOptions{Workflow: config.WorkflowWorkBranch, Dir: dir}).CreateMergeRequest(context.Background(), MergeRequestOptions{})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"shot.png": "PNG"}, f.client.Uploaded)
	assert.Equal(t, 1, f.calledClient("UploadFile 1 shot.png"))

	desc := f.client.Created[0].Description
	lines := strings.Split(desc, "\n")
	assert.Regexp(t, `^Before: !\[shot\]\(/uploads/\d+/shot\.png\)$`, lines[0])
	assert.Equal(t, "Logo: ![logo](https://example.com/logo.png)", lines[1])
	assert.Equal(t, "Gone: ![gone](missing.png)", lines[2])
	assert.Regexp(t, `^Again: !\[same shot\]\(/uploads/\d+/shot\.png\)$`, lines[3])

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "missing.png")
}

func TestCreateMergeRequest_ImageWithTitle(t *testing.T) {
	f := newFixture(t)
	f.onBranch("work/feature")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flow.png"), []byte("PNG"), 0644))

	f.prompt.title = "Title"
	f.prompt.description = strings.Join([]string{
		`![flow](flow.png "Data flow")`,
		`![gone](missing.png 'Old')`,
	}, "\n")

	res, err := newSync(f, ReviewOptions{Workflow: config.WorkflowWorkBranch, Dir: dir}).CreateMergeRequest(context.Background(), MergeRequestOptions{})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"flow.png": "PNG"}, f.client.Uploaded)
	lines := strings.Split(f.client.Created[0].Description, "\n")
	assert.Regexp(t, `^!\[flow\]\(/uploads/\d+/flow\.png "Data flow"\)$`, lines[0])
	assert.Equal(t, `![gone](missing.png 'Old')`, lines[1])

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "missing.png")
}

func TestCreateMergeRequest_NoDefaultBranch(t *testing.T) {
	f := newFixture(t)
	f.onBranch("work/feature")
	f.session.Project.DefaultBranch = ""

	_, err := newSync(f, ReviewOptions{Workflow: config.WorkflowWorkBranch}).CreateMergeRequest(context.Background(), MergeRequestOptions{})
	require.Error(t, err)
	assert.Equal(t, Configuration, KindOf(err))
}
