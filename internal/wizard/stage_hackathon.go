package wizard

import (
	"context"
	"strings"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/buildbuddy/engine/pkg/utils"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// HackathonInput is what the user types on step 1.
type HackathonInput struct {
	Name  string `json:"name" validate:"required"`
	Rules string `json:"rules" validate:"required"`
}

type hackathonAnalysis struct {
	Theme           string   `json:"theme"`
	JudgingCriteria []string `json:"judgingCriteria"`
	TimeConstraints string   `json:"timeConstraints"`
	AllowedTech     []string `json:"allowedTech,omitempty"`
}

// AnalyzeHackathon runs step 1: it analyzes the rules, saves the hackathon
// and moves the session to step 2. Submitting the same name and rules again
// returns the saved hackathon.
func (m *Manager) AnalyzeHackathon(ctx context.Context, in HackathonInput) (*models.Hackathon, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Rules = strings.TrimSpace(in.Rules)
	if err := validate.Struct(in); err != nil {
		return nil, appErr.Validation("please fill in both hackathon name and rules")
	}

	s, user, err := m.sessionFor(ctx)
	if err != nil {
		return nil, err
	}
	m.log.Info("analyze hackathon called", zap.String("user_id", user.ID.String()), zap.String("name", in.Name))

	s.mu.Lock()
	if h := s.hackathon; h != nil && h.Name == in.Name && h.Rules == in.Rules {
		s.moveTo(StepIdeas)
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	fp := utils.Fingerprint(in.Name, in.Rules)
	v, err := m.flight(ctx, s, StepHackathon, fp, func(ctx context.Context) (any, error) {
		return m.analyzeHackathon(ctx, s, user, in, fp)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Hackathon), nil
}

func (m *Manager) analyzeHackathon(ctx context.Context, s *Session, user *models.User, in HackathonInput, fp string) (*models.Hackathon, error) {
	t := s.ticket(StepHackathon)

	s.mu.Lock()
	var record *models.Hackathon
	if p := s.pendingHackathon; p != nil && p.fingerprint == fp {
		record = p.record
	}
	s.mu.Unlock()

	if record == nil {
		var out hackathonAnalysis
		if err := m.gen.Generate(ctx, hackathonRequest(in), &out); err != nil {
			m.log.Error("hackathon analysis failed", zap.String("user_id", user.ID.String()), zap.Error(err))
			return nil, appErr.Generation(err, "could not analyze the hackathon rules, please try again")
		}
		record = &models.Hackathon{
			UserID:          user.ID,
			Name:            in.Name,
			Rules:           in.Rules,
			Theme:           out.Theme,
			JudgingCriteria: out.JudgingCriteria,
			Deadline:        out.TimeConstraints,
			AllowedTech:     out.AllowedTech,
		}
		if err := s.apply(t, StepHackathon, func() {
			s.pendingHackathon = &pendingHackathon{fingerprint: fp, record: record}
		}); err != nil {
			return nil, err
		}
	} else {
		m.log.Info("retrying save of pending hackathon", zap.String("user_id", user.ID.String()))
	}

	if err := m.ensureSignedIn(ctx); err != nil {
		return nil, err
	}
	if err := m.store.CreateHackathon(ctx, record); err != nil {
		m.log.Error("save hackathon failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, appErr.Persistence(err, "could not save the hackathon, please try again")
	}

	if err := s.apply(t, StepHackathon, func() {
		s.pendingHackathon = nil
		s.resolveHackathon(record)
	}); err != nil {
		return nil, err
	}
	m.log.Info("hackathon analyzed", zap.String("user_id", user.ID.String()), zap.String("hackathon_id", record.ID.String()))
	return record, nil
}
