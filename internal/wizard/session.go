package wizard

import (
	"sort"
	"sync"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/google/uuid"
)

// ticket pins an async stage call to the session state it started from.
type ticket struct {
	epoch uint64
	input string
}

type flightMark struct {
	epoch uint64
	input string
	n     int
}

type pendingHackathon struct {
	fingerprint string
	record      *models.Hackathon
}

// Session is one user's wizard state. All fields are guarded by mu and no
// lock is held across generator or store calls.
type Session struct {
	mu     sync.Mutex
	userID uuid.UUID
	epoch  uint64

	active  Step
	highest Step

	hackathon *models.Hackathon
	project   *models.Project

	ideas        []Idea
	architecture *models.ProjectArchitecture
	guide        []models.ProjectStep
	completed    map[int]bool
	published    bool
	selecting    bool

	pendingHackathon    *pendingHackathon
	pendingArchitecture *models.ProjectArchitecture
	pendingGuide        []models.ProjectStep

	inflight map[Step]*flightMark
}

// NewSession returns a session positioned on step 1.
func NewSession(userID uuid.UUID) *Session {
	s := &Session{userID: userID}
	s.clear()
	return s
}

func (s *Session) clear() {
	s.active, s.highest = StepHackathon, StepHackathon
	s.hackathon, s.project = nil, nil
	s.pendingHackathon = nil
	s.inflight = map[Step]*flightMark{}
	s.clearProjectState()
	s.ideas = nil
	s.selecting = false
}

func (s *Session) clearProjectState() {
	s.architecture, s.pendingArchitecture = nil, nil
	s.guide, s.pendingGuide = nil, nil
	s.completed = map[int]bool{}
	s.published = false
}

func (s *Session) UserID() uuid.UUID { return s.userID }

// SelectStep moves to step n. Step 1 is always reachable, later steps need a
// resolved hackathon and step 5 also needs a project.
func (s *Session) SelectStep(n Step) error {
	if !n.Valid() {
		return appErr.New(appErr.CodeInvalid, "unknown step").WithMeta("step", int(n))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unlocked(n) {
		return lockedError(n)
	}
	s.moveTo(n)
	return nil
}

func lockedError(n Step) *appErr.AppError {
	msg := "analyze a hackathon first"
	if n == StepDeployment {
		msg = "select a project idea first"
	}
	return appErr.StepLocked(msg).WithMeta("step", int(n))
}

func (s *Session) unlocked(n Step) bool {
	switch {
	case n == StepHackathon:
		return true
	case n == StepDeployment:
		return s.hackathon != nil && s.project != nil
	default:
		return s.hackathon != nil
	}
}

func (s *Session) moveTo(n Step) {
	s.active = n
	if n > s.highest {
		s.highest = n
	}
}

// OnHackathonResolved records the analyzed hackathon and moves to step 2.
// A different hackathon than the current one drops everything downstream.
func (s *Session) OnHackathonResolved(h *models.Hackathon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolveHackathon(h)
}

func (s *Session) resolveHackathon(h *models.Hackathon) {
	if s.hackathon == nil || s.hackathon.ID != h.ID {
		s.project = nil
		s.ideas = nil
		s.selecting = false
		s.clearProjectState()
	}
	s.hackathon = h
	s.moveTo(StepIdeas)
}

// OnProjectResolved records the selected project and moves to step 3.
func (s *Session) OnProjectResolved(p *models.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolveProject(p)
}

func (s *Session) resolveProject(p *models.Project) {
	if s.project == nil || s.project.ID != p.ID {
		s.clearProjectState()
	}
	s.project = p
	s.selecting = false
	s.moveTo(StepArchitecture)
}

// Advance moves one step forward, stopping at the last step.
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
}

func (s *Session) advance() {
	if s.active < StepDeployment {
		s.moveTo(s.active + 1)
	}
}

// Continue advances from step 3 or 4. Step 3 needs a saved plan and step 4
// the same threshold as Finish. Steps 1 and 2 advance when their entity is
// resolved, and step 5 is the last one.
func (s *Session) Continue() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.active {
	case StepArchitecture:
		if s.architecture == nil {
			return appErr.StepLocked("save an execution plan first").WithMeta("step", int(StepGuide))
		}
	case StepGuide:
		if !s.canFinish() {
			return appErr.StepLocked("complete at least half of the steps to continue").WithMeta("step", int(StepGuide))
		}
	case StepDeployment:
		return nil
	default:
		return appErr.New(appErr.CodeInvalid, "this step continues once its result is saved").WithMeta("step", int(s.active))
	}
	s.advance()
	return nil
}

// Reset forgets everything. Results of calls started before Reset are
// discarded when they complete.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.clear()
}

// ToggleStep flips completion of guide step i and returns the new progress.
func (s *Session) ToggleStep(i int) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.guide) == 0 {
		return Progress{}, appErr.New(appErr.CodeInvalid, "generate the build guide first")
	}
	if i < 0 || i >= len(s.guide) {
		return Progress{}, appErr.Validation("step index out of range").WithMeta("index", i)
	}
	if s.completed[i] {
		delete(s.completed, i)
	} else {
		s.completed[i] = true
	}
	return s.progress(), nil
}

// CanFinish reports whether at least half of the guide steps are complete.
func (s *Session) CanFinish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canFinish()
}

func (s *Session) canFinish() bool {
	return len(s.guide) > 0 && 2*len(s.completed) >= len(s.guide)
}

// Finish leaves the build guide for deployment.
func (s *Session) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return lockedError(StepDeployment)
	}
	if !s.canFinish() {
		return appErr.StepLocked("complete at least half of the steps to continue").WithMeta("step", int(StepGuide))
	}
	s.moveTo(StepDeployment)
	return nil
}

// Progress is the completion state of the current build guide.
type Progress struct {
	Completed []int `json:"completed"`
	Total     int   `json:"total"`
	CanFinish bool  `json:"can_finish"`
}

func (s *Session) progress() Progress {
	done := make([]int, 0, len(s.completed))
	for i := range s.completed {
		done = append(done, i)
	}
	sort.Ints(done)
	return Progress{Completed: done, Total: len(s.guide), CanFinish: s.canFinish()}
}

// StepView is a step as shown in the sidebar.
type StepView struct {
	StepInfo
	Unlocked bool `json:"unlocked"`
	Active   bool `json:"active"`
	Visited  bool `json:"visited"`
}

// View is an immutable snapshot of a session.
type View struct {
	ActiveStep    Step              `json:"active_step"`
	HighestStep   Step              `json:"highest_step"`
	HackathonName string            `json:"hackathon_name,omitempty"`
	Steps         []StepView        `json:"steps"`
	Hackathon     *models.Hackathon `json:"hackathon,omitempty"`
	Project       *models.Project   `json:"project,omitempty"`
	Progress      *Progress         `json:"progress,omitempty"`
	Published     bool              `json:"published"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Session) view() View {
	v := View{ActiveStep: s.active, HighestStep: s.highest, Published: s.published}
	for _, info := range stepInfo {
		v.Steps = append(v.Steps, StepView{
			StepInfo: info,
			Unlocked: s.unlocked(info.Number),
			Active:   info.Number == s.active,
			Visited:  info.Number <= s.highest,
		})
	}
	if s.hackathon != nil {
		h := *s.hackathon
		v.Hackathon = &h
		v.HackathonName = h.Name
	}
	if s.project != nil {
		p := *s.project
		v.Project = &p
	}
	if len(s.guide) > 0 {
		p := s.progress()
		v.Progress = &p
	}
	return v
}

// inputFor names the entity a stage reads from: none for intake, the
// hackathon for ideas and the project afterwards.
func (s *Session) inputFor(stage Step) string {
	switch stage {
	case StepIdeas:
		if s.hackathon != nil {
			return s.hackathon.ID.String()
		}
	case StepArchitecture, StepGuide, StepDeployment:
		if s.project != nil {
			return s.project.ID.String()
		}
	}
	return ""
}

func (s *Session) ticket(stage Step) ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ticket{epoch: s.epoch, input: s.inputFor(stage)}
}

func (s *Session) current(t ticket, stage Step) bool {
	return s.epoch == t.epoch && s.inputFor(stage) == t.input
}

// apply runs fn under the lock if t still matches the session.
func (s *Session) apply(t ticket, stage Step, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(t, stage) {
		return staleError(stage)
	}
	fn()
	return nil
}

func staleError(stage Step) *appErr.AppError {
	return appErr.New(appErr.CodeConflict, "stale result discarded").WithMeta("step", int(stage))
}

// enter registers an in-flight call for stage. A call for a different
// input while one is running is rejected.
func (s *Session) enter(stage Step, input string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.inflight[stage]; ok && m.epoch == s.epoch && m.input != input {
		return "", appErr.New(appErr.CodeConflict, "another request for this step is in progress").WithMeta("step", int(stage))
	}
	m, ok := s.inflight[stage]
	if !ok || m.epoch != s.epoch {
		m = &flightMark{epoch: s.epoch, input: input}
		s.inflight[stage] = m
	}
	m.n++
	return flightKey(s.userID, s.epoch, stage, input), nil
}

func (s *Session) leave(stage Step, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.inflight[stage]
	if !ok || flightKey(s.userID, m.epoch, stage, m.input) != key {
		return
	}
	if m.n--; m.n <= 0 {
		delete(s.inflight, stage)
	}
}
