package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/buildbuddy/engine/internal/generation"
	"github.com/buildbuddy/engine/internal/identity"
	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGeminiHackWalkthrough(t *testing.T) {
	h := newHarness(t).storeOK()
	ctx := h.ctx

	hack, err := h.m.AnalyzeHackathon(ctx, HackathonInput{Name: "  Gemini Hack ", Rules: geminiInput.Rules})
	require.NoError(t, err)
	require.Equal(t, "Gemini Hack", hack.Name)
	require.Equal(t, "48 hours", hack.Deadline)
	require.Equal(t, h.user.ID, hack.UserID)
	require.Len(t, hack.JudgingCriteria, 3)

	view, err := h.m.View(ctx)
	require.NoError(t, err)
	require.Equal(t, StepIdeas, view.ActiveStep)
	require.Equal(t, "Gemini Hack", view.HackathonName)

	ideas, err := h.m.Ideas(ctx, false)
	require.NoError(t, err)
	require.Len(t, ideas, 5)
	require.Equal(t, models.DifficultyBeginner, ideas[0].Difficulty)

	project, err := h.m.SelectIdea(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "StudyPal", project.Name)
	require.Equal(t, hack.ID, project.HackathonID)

	_, err = h.m.Continue(ctx)
	require.True(t, appErr.IsCode(err, appErr.CodeStepLocked))

	plan, err := h.m.Architecture(ctx, false)
	require.NoError(t, err)
	require.Len(t, plan.Nodes, 4)
	require.Len(t, plan.Edges, 3)
	require.Equal(t, nodeWidth, plan.Nodes[0].Style["width"])
	require.Equal(t, nodeClass, plan.Nodes[0].Class)
	require.Equal(t, arrowClosed, plan.Edges[0].MarkerEnd.Type)

	view, err = h.m.Continue(ctx)
	require.NoError(t, err)
	require.Equal(t, StepGuide, view.ActiveStep)
	require.Equal(t, StepGuide, view.HighestStep)

	guide, err := h.m.Guide(ctx, false)
	require.NoError(t, err)
	require.Len(t, guide.Steps, 8)
	for i, s := range guide.Steps {
		require.Equal(t, i, s.OrderIndex)
		require.Equal(t, project.ID, s.ProjectID)
	}

	for i := 0; i < 3; i++ {
		_, err := h.m.ToggleStep(ctx, i)
		require.NoError(t, err)
	}
	_, err = h.m.FinishGuide(ctx)
	require.True(t, appErr.IsCode(err, appErr.CodeStepLocked))

	progress, err := h.m.ToggleStep(ctx, 3)
	require.NoError(t, err)
	require.True(t, progress.CanFinish)
	view, err = h.m.FinishGuide(ctx)
	require.NoError(t, err)
	require.Equal(t, StepDeployment, view.ActiveStep)

	dep, err := h.m.Deployment(ctx)
	require.NoError(t, err)
	require.Equal(t, "StudyPal", dep.ProjectName)
	require.True(t, dep.Hosting[0].Recommended)
	require.Contains(t, dep.Checklist, "Demo covers: Impact")

	ack, err := h.m.CompleteDeployment(ctx)
	require.NoError(t, err)
	require.Equal(t, "Project published successfully!", ack.Message)
	require.True(t, ack.View.Published)

	// going back never re-runs earlier stages
	_, err = h.m.SelectStep(ctx, StepIdeas)
	require.NoError(t, err)
	again, err := h.m.Ideas(ctx, false)
	require.NoError(t, err)
	require.Equal(t, ideas, again)
	_, err = h.m.Architecture(ctx, false)
	require.NoError(t, err)

	for _, name := range []string{reqHackathon, reqIdeas, reqArchitecture, reqGuide} {
		assert.Equal(t, 1, h.gen.count(name), name)
	}
	h.store.AssertNumberOfCalls(t, "CreateHackathon", 1)
	h.store.AssertNumberOfCalls(t, "CreateProject", 1)
	h.store.AssertNumberOfCalls(t, "CreateArchitecture", 1)
	h.store.AssertNumberOfCalls(t, "CreateSteps", 1)
}

func TestAnalyzeRequiresNameAndRules(t *testing.T) {
	h := newHarness(t)

	_, err := h.m.AnalyzeHackathon(h.ctx, HackathonInput{Name: "Gemini Hack", Rules: "   "})
	require.True(t, appErr.IsCode(err, appErr.CodeValidation))
	require.Equal(t, 0, h.gen.count(reqHackathon))
	h.store.AssertNotCalled(t, "CreateHackathon", mock.Anything, mock.Anything)
}

func TestAnalyzeRequiresIdentityBeforeGenerating(t *testing.T) {
	h := newHarness(t)
	h.oracle.setSignedOut(true)

	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.True(t, appErr.IsCode(err, appErr.CodeAuthRequired))
	require.Equal(t, 0, h.gen.count(reqHackathon))
}

func TestAnalyzeIsIdempotentForSameInput(t *testing.T) {
	h := newHarness(t).storeOK()

	first, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)
	second, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, h.gen.count(reqHackathon))
	h.store.AssertNumberOfCalls(t, "CreateHackathon", 1)
}

func TestGenerationFailureLeavesNothingBehind(t *testing.T) {
	h := newHarness(t).storeOK()
	h.gen.fail(reqHackathon, errors.New("model overloaded"))

	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.True(t, appErr.IsCode(err, appErr.CodeGeneration))
	require.ErrorIs(t, err, generation.ErrGenerationFailed)
	h.store.AssertNotCalled(t, "CreateHackathon", mock.Anything, mock.Anything)

	view, err := h.m.View(h.ctx)
	require.NoError(t, err)
	require.Equal(t, StepHackathon, view.ActiveStep)
	require.Nil(t, view.Hackathon)

	h.gen.fail(reqHackathon, nil)
	_, err = h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)
	require.Equal(t, 2, h.gen.count(reqHackathon))
}

func TestPersistenceFailureRetriesWithoutRegenerating(t *testing.T) {
	h := newHarness(t)
	h.store.On("CreateHackathon", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()
	h.store.On("CreateHackathon", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.True(t, appErr.IsCode(err, appErr.CodePersistence))
	require.True(t, err.(*appErr.AppError).Retryable())

	hack, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)
	require.Equal(t, "Multimodal AI for everyday problems", hack.Theme)

	require.Equal(t, 1, h.gen.count(reqHackathon))
	h.store.AssertNumberOfCalls(t, "CreateHackathon", 2)
	h.store.AssertExpectations(t)
}

func TestSignOutBeforeSaveKeepsAnalysisPending(t *testing.T) {
	h := newHarness(t).storeOK()
	gate := h.gen.hold(reqHackathon)

	errs := make(chan error, 1)
	go func() {
		_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
		errs <- err
	}()
	<-h.gen.entered
	h.oracle.setSignedOut(true)
	close(gate)

	require.True(t, appErr.IsCode(<-errs, appErr.CodeAuthRequired))
	h.store.AssertNotCalled(t, "CreateHackathon", mock.Anything, mock.Anything)

	h.oracle.setSignedOut(false)
	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)
	require.Equal(t, 1, h.gen.count(reqHackathon))
}

func TestCanceledCallerDoesNotFailJoinedCall(t *testing.T) {
	h := newHarness(t).storeOK()
	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)
	gate := h.gen.hold(reqIdeas)

	first, cancel := context.WithCancel(h.ctx)
	defer cancel()
	firstErr := make(chan error, 1)
	go func() {
		_, err := h.m.Ideas(first, false)
		firstErr <- err
	}()
	<-h.gen.entered

	joined := make(chan []Idea, 1)
	go func() {
		ideas, err := h.m.Ideas(h.ctx, false)
		assert.NoError(t, err)
		joined <- ideas
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(gate)

	require.NoError(t, <-firstErr)
	require.Len(t, <-joined, 5)
	require.Equal(t, 1, h.gen.count(reqIdeas))
}

func TestStaleResultAfterResetIsDiscarded(t *testing.T) {
	h := newHarness(t).storeOK()
	gate := h.gen.hold(reqHackathon)

	errs := make(chan error, 1)
	go func() {
		_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
		errs <- err
	}()
	<-h.gen.entered
	h.oracle.emit(identity.SessionEvent{UserID: h.user.ID})
	close(gate)

	err := <-errs
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))
	require.Contains(t, err.Error(), "stale result discarded")
	h.store.AssertNotCalled(t, "CreateHackathon", mock.Anything, mock.Anything)

	view, err := h.m.View(h.ctx)
	require.NoError(t, err)
	require.Nil(t, view.Hackathon)
	require.Equal(t, StepHackathon, view.ActiveStep)
}

func TestLoadingEventsDoNotReset(t *testing.T) {
	h := newHarness(t).storeOK()
	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)

	h.oracle.emit(identity.SessionEvent{UserID: h.user.ID, IsLoading: true})
	h.oracle.emit(identity.SessionEvent{UserID: h.user.ID, SignedIn: true})

	view, err := h.m.View(h.ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Hackathon)
}

func TestIdeasRequireHackathon(t *testing.T) {
	h := newHarness(t)
	_, err := h.m.Ideas(h.ctx, false)
	require.True(t, appErr.IsCode(err, appErr.CodeStepLocked))
	_, err = h.m.SelectIdea(h.ctx, 0)
	require.True(t, appErr.IsCode(err, appErr.CodeStepLocked))
}

func TestIdeasMustBeExactlyFive(t *testing.T) {
	h := newHarness(t).storeOK()
	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)

	four := geminiIdeas()
	four["projects"] = four["projects"].([]map[string]any)[:4]
	h.gen.set(reqIdeas, four)
	_, err = h.m.Ideas(h.ctx, false)
	require.True(t, appErr.IsCode(err, appErr.CodeGeneration))

	h.gen.set(reqIdeas, geminiIdeas())
	ideas, err := h.m.Ideas(h.ctx, false)
	require.NoError(t, err)
	require.Len(t, ideas, 5)

	again, err := h.m.Ideas(h.ctx, true)
	require.NoError(t, err)
	require.Len(t, again, 5)
	require.Equal(t, 3, h.gen.count(reqIdeas))
}

func TestParseDifficulty(t *testing.T) {
	d, ok := parseDifficulty(" advanced ")
	require.True(t, ok)
	require.Equal(t, models.DifficultyAdvanced, d)

	_, ok = parseDifficulty("Expert")
	require.False(t, ok)
}

func TestDoubleSelectionCreatesOneProject(t *testing.T) {
	h := newHarness(t)
	h.store.On("CreateHackathon", mock.Anything, mock.Anything).Return(nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	h.store.On("CreateProject", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(nil).Once()

	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)
	_, err = h.m.Ideas(h.ctx, false)
	require.NoError(t, err)

	type result struct {
		p   *models.Project
		err error
	}
	first := make(chan result, 1)
	go func() {
		p, err := h.m.SelectIdea(h.ctx, 1)
		first <- result{p, err}
	}()
	<-entered

	_, err = h.m.SelectIdea(h.ctx, 2)
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))

	close(release)
	r := <-first
	require.NoError(t, r.err)
	require.Equal(t, "FridgeChef", r.p.Name)

	again, err := h.m.SelectIdea(h.ctx, 3)
	require.NoError(t, err)
	require.Equal(t, r.p.ID, again.ID)
	h.store.AssertNumberOfCalls(t, "CreateProject", 1)
}

func TestSelectIdeaPersistenceFailureAllowsRetry(t *testing.T) {
	h := newHarness(t)
	h.store.On("CreateHackathon", mock.Anything, mock.Anything).Return(nil)
	h.store.On("CreateProject", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	h.store.On("CreateProject", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)
	_, err = h.m.Ideas(h.ctx, false)
	require.NoError(t, err)

	_, err = h.m.SelectIdea(h.ctx, 0)
	require.True(t, appErr.IsCode(err, appErr.CodePersistence))
	_, err = h.m.SelectIdea(h.ctx, 9)
	require.True(t, appErr.IsCode(err, appErr.CodeValidation))

	p, err := h.m.SelectIdea(h.ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "StudyPal", p.Name)
}

func TestConcurrentIdeasShareOneGeneration(t *testing.T) {
	h := newHarness(t).storeOK()
	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)
	gate := h.gen.hold(reqIdeas)

	var wg sync.WaitGroup
	results := make([][]Idea, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ideas, err := h.m.Ideas(context.Background(), false)
			assert.NoError(t, err)
			results[i] = ideas
		}(i)
	}
	<-h.gen.entered
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(t, 1, h.gen.count(reqIdeas))
	for _, r := range results {
		require.Len(t, r, 5)
	}
}

func TestArchitectureRejectsDanglingEdges(t *testing.T) {
	h := newHarness(t).storeOK()
	h.toProject(t)

	plan := studyPalPlan()
	plan["edges"] = append(plan["edges"].([]map[string]any), map[string]any{"id": "e4", "source": "api", "target": "queue"})
	h.gen.set(reqArchitecture, plan)

	_, err := h.m.Architecture(h.ctx, false)
	require.True(t, appErr.IsCode(err, appErr.CodeGeneration))
	h.store.AssertNotCalled(t, "CreateArchitecture", mock.Anything, mock.Anything)
}

func TestArchitectureRegenerateAddsVersion(t *testing.T) {
	h := newHarness(t).storeOK()
	_, err := h.m.Architecture(h.ctx, false)
	require.True(t, appErr.IsCode(err, appErr.CodeStepLocked))

	h.toProject(t)
	first, err := h.m.Architecture(h.ctx, false)
	require.NoError(t, err)
	same, err := h.m.Architecture(h.ctx, false)
	require.NoError(t, err)
	require.Equal(t, first.ID, same.ID)

	second, err := h.m.Architecture(h.ctx, true)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	require.Equal(t, 2, h.gen.count(reqArchitecture))
	h.store.AssertNumberOfCalls(t, "CreateArchitecture", 2)
}

func TestRestoreArchitectureReplacesCurrentPlan(t *testing.T) {
	h := newHarness(t).storeOK()
	_, err := h.m.ArchitectureVersions(h.ctx)
	require.True(t, appErr.IsCode(err, appErr.CodeStepLocked))
	_, err = h.m.RestoreArchitecture(h.ctx, 1)
	require.True(t, appErr.IsCode(err, appErr.CodeStepLocked))
	_, err = h.m.RestoreArchitecture(h.ctx, 0)
	require.True(t, appErr.IsCode(err, appErr.CodeValidation))

	p := h.toProject(t)
	current, err := h.m.Architecture(h.ctx, false)
	require.NoError(t, err)

	older := &models.ProjectArchitecture{ID: current.ID, ProjectID: p.ID, Version: 1, IsCurrent: true, Nodes: current.Nodes[:1]}
	h.store.On("ListArchitectures", mock.Anything, p.ID).Return([]models.ProjectArchitecture{{Version: 2}, {Version: 1}}, nil)
	h.store.On("RestoreArchitecture", mock.Anything, p.ID, 1).Return(older, nil)
	h.store.On("RestoreArchitecture", mock.Anything, p.ID, 9).Return(nil, appErr.New(appErr.CodeNotFound, "architecture version not found"))

	versions, err := h.m.ArchitectureVersions(h.ctx)
	require.NoError(t, err)
	require.Len(t, versions, 2)

	restored, err := h.m.RestoreArchitecture(h.ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, restored.Version)
	require.Len(t, restored.Nodes, 1)

	again, err := h.m.Architecture(h.ctx, false)
	require.NoError(t, err)
	require.Len(t, again.Nodes, 1)
	require.Equal(t, 1, h.gen.count(reqArchitecture))

	var cached models.ProjectArchitecture
	ok, err := h.m.cache.Get(h.ctx, StepArchitecture, p.ID, &cached)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, cached.Version)

	_, err = h.m.RestoreArchitecture(h.ctx, 9)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestRestoreArchitectureStoreFailure(t *testing.T) {
	h := newHarness(t).storeOK()
	p := h.toProject(t)
	h.store.On("ListArchitectures", mock.Anything, p.ID).Return(nil, errors.New("connection reset"))
	h.store.On("RestoreArchitecture", mock.Anything, p.ID, 1).Return(nil, errors.New("connection reset"))

	_, err := h.m.ArchitectureVersions(h.ctx)
	require.True(t, appErr.IsCode(err, appErr.CodePersistence))
	_, err = h.m.RestoreArchitecture(h.ctx, 1)
	require.True(t, appErr.IsCode(err, appErr.CodePersistence))
}

func TestSaveArchitectureRetriesPendingPlan(t *testing.T) {
	h := newHarness(t)
	h.store.On("CreateHackathon", mock.Anything, mock.Anything).Return(nil)
	h.store.On("CreateProject", mock.Anything, mock.Anything).Return(nil)
	h.store.On("CreateArchitecture", mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()
	h.store.On("CreateArchitecture", mock.Anything, mock.Anything).Return(nil).Once()
	h.toProject(t)

	_, err := h.m.SaveArchitecture(h.ctx)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = h.m.Architecture(h.ctx, false)
	require.True(t, appErr.IsCode(err, appErr.CodePersistence))

	plan, err := h.m.SaveArchitecture(h.ctx)
	require.NoError(t, err)
	require.True(t, plan.IsCurrent)
	require.Equal(t, 1, h.gen.count(reqArchitecture))
	h.store.AssertExpectations(t)
}

func TestGuideStepCountBounds(t *testing.T) {
	h := newHarness(t).storeOK()
	h.toProject(t)

	h.gen.set(reqGuide, studyPalGuide(5))
	_, err := h.m.Guide(h.ctx, false)
	require.True(t, appErr.IsCode(err, appErr.CodeGeneration))

	h.gen.set(reqGuide, studyPalGuide(9))
	_, err = h.m.Guide(h.ctx, false)
	require.True(t, appErr.IsCode(err, appErr.CodeGeneration))
	h.store.AssertNotCalled(t, "CreateSteps", mock.Anything, mock.Anything)

	h.gen.set(reqGuide, studyPalGuide(6))
	g, err := h.m.Guide(h.ctx, false)
	require.NoError(t, err)
	require.Len(t, g.Steps, 6)
	require.Equal(t, 6, g.Progress.Total)
}

func TestGuideRegenerateResetsProgress(t *testing.T) {
	h := newHarness(t).storeOK()
	h.toProject(t)

	_, err := h.m.Guide(h.ctx, false)
	require.NoError(t, err)
	_, err = h.m.ToggleStep(h.ctx, 0)
	require.NoError(t, err)

	g, err := h.m.Guide(h.ctx, true)
	require.NoError(t, err)
	require.Empty(t, g.Progress.Completed)
	h.store.AssertNumberOfCalls(t, "CreateSteps", 2)
}

func TestDeploymentRequiresProject(t *testing.T) {
	h := newHarness(t).storeOK()
	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)

	_, err = h.m.Deployment(h.ctx)
	require.True(t, appErr.IsCode(err, appErr.CodeStepLocked))
	_, err = h.m.SelectStep(h.ctx, StepDeployment)
	require.True(t, appErr.IsCode(err, appErr.CodeStepLocked))
	_, err = h.m.CompleteDeployment(h.ctx)
	require.True(t, appErr.IsCode(err, appErr.CodeStepLocked))
}

func TestCacheServesRevisitAcrossSessions(t *testing.T) {
	h := newHarness(t).storeOK()
	p := h.toProject(t)
	_, err := h.m.Architecture(h.ctx, false)
	require.NoError(t, err)

	// with the session copy dropped the plan comes from the cache
	s := h.m.Session(h.user.ID)
	s.mu.Lock()
	s.architecture = nil
	s.mu.Unlock()

	plan, err := h.m.Architecture(h.ctx, false)
	require.NoError(t, err)
	require.Equal(t, p.ID, plan.ProjectID)
	require.Equal(t, 1, h.gen.count(reqArchitecture))
}
