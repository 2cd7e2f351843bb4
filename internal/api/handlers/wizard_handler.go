package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/buildbuddy/engine/internal/api/types"
	"github.com/buildbuddy/engine/internal/identity"
	"github.com/buildbuddy/engine/internal/models"
	"github.com/buildbuddy/engine/internal/queue/tasks"
	"github.com/buildbuddy/engine/internal/wizard"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Wizard is the stage surface served over HTTP. *wizard.Manager implements it.
type Wizard interface {
	View(ctx context.Context) (wizard.View, error)
	SelectStep(ctx context.Context, n wizard.Step) (wizard.View, error)
	AnalyzeHackathon(ctx context.Context, in wizard.HackathonInput) (*models.Hackathon, error)
	Ideas(ctx context.Context, regenerate bool) ([]wizard.Idea, error)
	SelectIdea(ctx context.Context, i int) (*models.Project, error)
	Architecture(ctx context.Context, regenerate bool) (*models.ProjectArchitecture, error)
	SaveArchitecture(ctx context.Context) (*models.ProjectArchitecture, error)
	ArchitectureVersions(ctx context.Context) ([]models.ProjectArchitecture, error)
	RestoreArchitecture(ctx context.Context, version int) (*models.ProjectArchitecture, error)
	Continue(ctx context.Context) (wizard.View, error)
	Guide(ctx context.Context, regenerate bool) (*wizard.Guide, error)
	SaveGuide(ctx context.Context) (*wizard.Guide, error)
	ToggleStep(ctx context.Context, i int) (wizard.Progress, error)
	FinishGuide(ctx context.Context) (wizard.View, error)
	Deployment(ctx context.Context) (*wizard.DeploymentGuide, error)
	CompleteDeployment(ctx context.Context) (*wizard.Acknowledgment, error)
}

// Exports requests and serves rendered plan documents. *tasks.Exporter
// implements it.
type Exports interface {
	Request(ctx context.Context, userID, projectID uuid.UUID) (tasks.ExportStatus, error)
	Fetch(ctx context.Context, userID, projectID uuid.UUID) ([]byte, error)
}

var _ Wizard = (*wizard.Manager)(nil)
var _ Exports = (*tasks.Exporter)(nil)

type WizardHandler struct {
	wiz     Wizard
	exports Exports
}

func NewWizardHandler(wiz Wizard, exports Exports) *WizardHandler {
	return &WizardHandler{wiz: wiz, exports: exports}
}

// Mount registers the wizard routes on r.
func (h *WizardHandler) Mount(r chi.Router) {
	r.Get("/", h.State)
	r.Post("/steps/{step}", h.SelectStep)
	r.Post("/continue", h.Continue)
	r.Post("/hackathon", h.AnalyzeHackathon)
	r.Get("/ideas", h.Ideas)
	r.Post("/ideas/{index}/select", h.SelectIdea)
	r.Get("/architecture", h.Architecture)
	r.Post("/architecture/regenerate", h.RegenerateArchitecture)
	r.Post("/architecture/save", h.SaveArchitecture)
	r.Get("/architecture/versions", h.ArchitectureVersions)
	r.Post("/architecture/versions/{version}/restore", h.RestoreArchitecture)
	r.Get("/guide", h.Guide)
	r.Post("/guide/save", h.SaveGuide)
	r.Post("/guide/steps/{index}/toggle", h.ToggleStep)
	r.Post("/guide/finish", h.FinishGuide)
	r.Get("/deployment", h.Deployment)
	r.Post("/deployment/complete", h.CompleteDeployment)
	r.Post("/export", h.RequestExport)
	r.Get("/export", h.DownloadExport)
}

func regenerate(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("regenerate"))
	return v
}

func intParam(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, appErr.Validation(name + " must be a number")
	}
	return n, nil
}

// respond writes v, or err when it is set.
func respond[T any](w http.ResponseWriter, r *http.Request, v T, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

// State returns the session view.
//
//	@Summary	Wizard state
//	@Tags		wizard
//	@Security	BearerAuth
//	@Success	200	{object}	types.APIResponse{data=wizard.View}
//	@Router		/wizard [get]
func (h *WizardHandler) State(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.View(r.Context())
	respond(w, r, v, err)
}

// SelectStep navigates to a step.
//
//	@Summary	Select step
//	@Tags		wizard
//	@Security	BearerAuth
//	@Param		step	path		int	true	"step number 1-5"
//	@Success	200		{object}	types.APIResponse{data=wizard.View}
//	@Failure	409		{object}	types.APIResponse
//	@Router		/wizard/steps/{step} [post]
func (h *WizardHandler) SelectStep(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "step")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.wiz.SelectStep(r.Context(), wizard.Step(n))
	respond(w, r, v, err)
}

// Continue leaves the execution plan or build guide for the next step.
//
//	@Summary	Continue to next step
//	@Tags		wizard
//	@Security	BearerAuth
//	@Success	200	{object}	types.APIResponse{data=wizard.View}
//	@Failure	409	{object}	types.APIResponse
//	@Router		/wizard/continue [post]
func (h *WizardHandler) Continue(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.Continue(r.Context())
	respond(w, r, v, err)
}

// AnalyzeHackathon runs stage 1.
//
//	@Summary	Analyze hackathon
//	@Tags		wizard
//	@Security	BearerAuth
//	@Param		body	body		types.HackathonRequest	true	"hackathon name and rules"
//	@Success	200		{object}	types.APIResponse{data=models.Hackathon}
//	@Failure	400		{object}	types.APIResponse
//	@Failure	502		{object}	types.APIResponse
//	@Router		/wizard/hackathon [post]
func (h *WizardHandler) AnalyzeHackathon(w http.ResponseWriter, r *http.Request) {
	var req types.HackathonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.wiz.AnalyzeHackathon(r.Context(), wizard.HackathonInput{Name: req.Name, Rules: req.Rules})
	respond(w, r, v, err)
}

// Ideas runs stage 2.
//
//	@Summary	Project ideas
//	@Tags		wizard
//	@Security	BearerAuth
//	@Param		regenerate	query		bool	false	"bypass cached ideas"
//	@Success	200			{object}	types.APIResponse{data=[]wizard.Idea}
//	@Router		/wizard/ideas [get]
func (h *WizardHandler) Ideas(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.Ideas(r.Context(), regenerate(r))
	respond(w, r, v, err)
}

// SelectIdea persists the chosen idea as the project.
//
//	@Summary	Select idea
//	@Tags		wizard
//	@Security	BearerAuth
//	@Param		index	path		int	true	"idea index 0-4"
//	@Success	200		{object}	types.APIResponse{data=models.Project}
//	@Router		/wizard/ideas/{index}/select [post]
func (h *WizardHandler) SelectIdea(w http.ResponseWriter, r *http.Request) {
	i, err := intParam(r, "index")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.wiz.SelectIdea(r.Context(), i)
	respond(w, r, v, err)
}

// Architecture runs stage 3.
//
//	@Summary	Execution plan
//	@Tags		wizard
//	@Security	BearerAuth
//	@Param		regenerate	query		bool	false	"generate a new version"
//	@Success	200			{object}	types.APIResponse{data=models.ProjectArchitecture}
//	@Router		/wizard/architecture [get]
func (h *WizardHandler) Architecture(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.Architecture(r.Context(), regenerate(r))
	respond(w, r, v, err)
}

// RegenerateArchitecture always generates a new plan version.
//
//	@Summary	Regenerate execution plan
//	@Tags		wizard
//	@Security	BearerAuth
//	@Success	200	{object}	types.APIResponse{data=models.ProjectArchitecture}
//	@Router		/wizard/architecture/regenerate [post]
func (h *WizardHandler) RegenerateArchitecture(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.Architecture(r.Context(), true)
	respond(w, r, v, err)
}

// SaveArchitecture retries a failed plan save.
//
//	@Summary	Save execution plan
//	@Tags		wizard
//	@Security	BearerAuth
//	@Success	200	{object}	types.APIResponse{data=models.ProjectArchitecture}
//	@Router		/wizard/architecture/save [post]
func (h *WizardHandler) SaveArchitecture(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.SaveArchitecture(r.Context())
	respond(w, r, v, err)
}

// ArchitectureVersions lists saved plan versions, newest first.
//
//	@Summary	Execution plan history
//	@Tags		wizard
//	@Security	BearerAuth
//	@Success	200	{object}	types.APIResponse{data=[]models.ProjectArchitecture}
//	@Router		/wizard/architecture/versions [get]
func (h *WizardHandler) ArchitectureVersions(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.ArchitectureVersions(r.Context())
	respond(w, r, v, err)
}

// RestoreArchitecture makes an earlier version current.
//
//	@Summary	Restore execution plan version
//	@Tags		wizard
//	@Security	BearerAuth
//	@Param		version	path		int	true	"plan version"
//	@Success	200		{object}	types.APIResponse{data=models.ProjectArchitecture}
//	@Failure	404		{object}	types.APIResponse
//	@Router		/wizard/architecture/versions/{version}/restore [post]
func (h *WizardHandler) RestoreArchitecture(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "version")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.wiz.RestoreArchitecture(r.Context(), n)
	respond(w, r, v, err)
}

// Guide runs stage 4.
//
//	@Summary	Build guide
//	@Tags		wizard
//	@Security	BearerAuth
//	@Param		regenerate	query		bool	false	"generate a new batch"
//	@Success	200			{object}	types.APIResponse{data=wizard.Guide}
//	@Router		/wizard/guide [get]
func (h *WizardHandler) Guide(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.Guide(r.Context(), regenerate(r))
	respond(w, r, v, err)
}

// SaveGuide retries a failed guide save.
//
//	@Summary	Save build guide
//	@Tags		wizard
//	@Security	BearerAuth
//	@Success	200	{object}	types.APIResponse{data=wizard.Guide}
//	@Router		/wizard/guide/save [post]
func (h *WizardHandler) SaveGuide(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.SaveGuide(r.Context())
	respond(w, r, v, err)
}

// ToggleStep flips completion of one guide step.
//
//	@Summary	Toggle guide step
//	@Tags		wizard
//	@Security	BearerAuth
//	@Param		index	path		int	true	"guide step index"
//	@Success	200		{object}	types.APIResponse{data=wizard.Progress}
//	@Router		/wizard/guide/steps/{index}/toggle [post]
func (h *WizardHandler) ToggleStep(w http.ResponseWriter, r *http.Request) {
	i, err := intParam(r, "index")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.wiz.ToggleStep(r.Context(), i)
	respond(w, r, v, err)
}

// FinishGuide moves on to deployment once half the guide is done.
//
//	@Summary	Finish build guide
//	@Tags		wizard
//	@Security	BearerAuth
//	@Success	200	{object}	types.APIResponse{data=wizard.View}
//	@Failure	409	{object}	types.APIResponse
//	@Router		/wizard/guide/finish [post]
func (h *WizardHandler) FinishGuide(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.FinishGuide(r.Context())
	respond(w, r, v, err)
}

// Deployment returns hosting options and the submission checklist.
//
//	@Summary	Deployment guidance
//	@Tags		wizard
//	@Security	BearerAuth
//	@Success	200	{object}	types.APIResponse{data=wizard.DeploymentGuide}
//	@Router		/wizard/deployment [get]
func (h *WizardHandler) Deployment(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.Deployment(r.Context())
	respond(w, r, v, err)
}

// CompleteDeployment marks the project published.
//
//	@Summary	Mark project published
//	@Tags		wizard
//	@Security	BearerAuth
//	@Success	200	{object}	types.APIResponse{data=wizard.Acknowledgment}
//	@Router		/wizard/deployment/complete [post]
func (h *WizardHandler) CompleteDeployment(w http.ResponseWriter, r *http.Request) {
	v, err := h.wiz.CompleteDeployment(r.Context())
	respond(w, r, v, err)
}

func (h *WizardHandler) exportTarget(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	uid, ok := identity.UserIDFrom(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, appErr.AuthRequired()
	}
	v, err := h.wiz.View(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if v.Project == nil {
		return uuid.Nil, uuid.Nil, appErr.StepLocked("select a project idea first").WithMeta("step", int(wizard.StepArchitecture))
	}
	return uid, v.Project.ID, nil
}

// RequestExport starts a plan export for the session's project.
//
//	@Summary	Export plan
//	@Tags		wizard
//	@Security	BearerAuth
//	@Success	202	{object}	types.APIResponse{data=tasks.ExportStatus}
//	@Router		/wizard/export [post]
func (h *WizardHandler) RequestExport(w http.ResponseWriter, r *http.Request) {
	uid, pid, err := h.exportTarget(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := h.exports.Request(r.Context(), uid, pid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code := http.StatusAccepted
	if status.State == tasks.ExportReady {
		code = http.StatusOK
	}
	writeJSON(w, r, code, status)
}

// DownloadExport returns the rendered YAML document.
//
//	@Summary	Download plan export
//	@Tags		wizard
//	@Security	BearerAuth
//	@Produce	application/yaml
//	@Success	200
//	@Failure	404	{object}	types.APIResponse
//	@Router		/wizard/export [get]
func (h *WizardHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	uid, pid, err := h.exportTarget(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := h.exports.Fetch(r.Context(), uid, pid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="plan-`+pid.String()+`.yaml"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
