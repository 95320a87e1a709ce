package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"slices"
	"strings"
	"time"

	"github.com/resquick/portal/internal/assessment"
	"github.com/resquick/portal/internal/metrics"
	"github.com/resquick/portal/internal/model"
	"github.com/resquick/portal/internal/repository"
	"github.com/resquick/portal/internal/storage"
	"github.com/resquick/portal/internal/validation"
)

var (
	ErrNotFoundOrForbidden = errors.New("application not found or not authorized")
	ErrNoEvidence          = errors.New("no evidence images found for this application")
	ErrEvidenceMissing     = errors.New("image file not found on server")
	ErrCitizenOnly         = errors.New("only citizens can submit applications")
	ErrInvalidInput        = errors.New("invalid input")
)

// SubmissionInput is the citizen's application form.
type SubmissionInput struct {
	Name          string
	GramPanchayat string
	Block         string
	PoliceStation string
	District      string
	State         string
	Latitude      string
	Longitude     string
}

func (in SubmissionInput) Validate() error {
	if err := validation.ValidateName(in.Name); err != nil {
		return err
	}
	optional := []struct{ field, value string }{
		{"gram panchayat", in.GramPanchayat},
		{"block", in.Block},
		{"police station", in.PoliceStation},
		{"district", in.District},
		{"state", in.State},
	}
	for _, f := range optional {
		if len(f.value) > 200 {
			return fmt.Errorf("%s is too long (max 200 characters)", f.field)
		}
	}
	if err := validation.ValidateCoordinate(in.Latitude, 90); err != nil {
		return fmt.Errorf("latitude: %w", err)
	}
	if err := validation.ValidateCoordinate(in.Longitude, 180); err != nil {
		return fmt.Errorf("longitude: %w", err)
	}
	return nil
}

type ApplicationService struct {
	applicationRepository repository.ApplicationRepository
	evidence              *EvidenceService
	analyzer              *assessment.Analyzer
	now                   func() time.Time
}

func NewApplicationService(
	applicationRepository repository.ApplicationRepository,
	evidence *EvidenceService,
	analyzer *assessment.Analyzer,
) *ApplicationService {
	return &ApplicationService{
		applicationRepository: applicationRepository,
		evidence:              evidence,
		analyzer:              analyzer,
		now:                   time.Now,
	}
}

// Submit stores the evidence first, then inserts the application. If the
// insert fails the stored evidence is removed again.
func (s *ApplicationService) Submit(p *model.Principal, in SubmissionInput, files []*multipart.FileHeader) (*model.Application, error) {
	accountID, ok := p.AccountID()
	if !ok {
		return nil, ErrCitizenOnly
	}

	in = in.trimmed()
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	paths, err := s.evidence.Store(files)
	if err != nil {
		metrics.Submissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	app := &model.Application{
		AccountID:     accountID,
		Name:          in.Name,
		GramPanchayat: in.GramPanchayat,
		Block:         in.Block,
		PoliceStation: in.PoliceStation,
		District:      in.District,
		State:         in.State,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		SubmittedAt:   s.now().UTC().Truncate(time.Second),
		Evidence:      paths,
	}

	err = s.applicationRepository.Create(app)
	if err != nil {
		s.evidence.Delete(paths)
		metrics.Submissions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	metrics.Submissions.WithLabelValues("accepted").Inc()
	slog.Info("application submitted", "app_id", app.ID, "account_id", accountID, "evidence", len(paths))
	return app, nil
}

// List returns the applications visible to p, newest first: a citizen's own,
// or every application for an official.
func (s *ApplicationService) List(p *model.Principal) ([]*model.Application, error) {
	if p.IsOfficial() {
		return s.applicationRepository.All()
	}

	accountID, ok := p.AccountID()
	if !ok {
		return nil, ErrNotFoundOrForbidden
	}

	return s.applicationRepository.ByAccount(accountID)
}

// View returns an application if p is its owner or an official.
func (s *ApplicationService) View(p *model.Principal, id int64) (*model.Application, error) {
	app, err := s.applicationRepository.ByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, ErrNotFoundOrForbidden
		}
		return nil, err
	}

	if p.IsOfficial() {
		return app, nil
	}

	accountID, ok := p.AccountID()
	if !ok || !app.OwnedBy(accountID) {
		return nil, ErrNotFoundOrForbidden
	}

	return app, nil
}

// EvidenceVisible reports whether p may fetch the stored evidence file.
// Officials see every file; citizens only files attached to their own
// applications.
func (s *ApplicationService) EvidenceVisible(p *model.Principal, storagePath string) (bool, error) {
	if p.IsOfficial() {
		return true, nil
	}

	apps, err := s.List(p)
	if errors.Is(err, ErrNotFoundOrForbidden) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, app := range apps {
		if slices.Contains(app.Evidence, storagePath) {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes an application owned by p together with its evidence.
// Any other caller gets ErrNotFoundOrForbidden and nothing changes.
func (s *ApplicationService) Delete(p *model.Principal, id int64) error {
	accountID, ok := p.AccountID()
	if !ok {
		return ErrNotFoundOrForbidden
	}

	app, err := s.applicationRepository.ByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return ErrNotFoundOrForbidden
		}
		return err
	}

	if !app.OwnedBy(accountID) {
		return ErrNotFoundOrForbidden
	}

	err = s.applicationRepository.Delete(id, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return ErrNotFoundOrForbidden
		}
		return fmt.Errorf("failed to delete application: %w", err)
	}

	s.evidence.Delete(app.Evidence)
	slog.Info("application deleted", "app_id", id, "account_id", accountID)
	return nil
}

// Assess runs the AI assessment on the first evidence photo and stores the
// result, marking the application Reviewed. On failure the record is unchanged.
func (s *ApplicationService) Assess(ctx context.Context, id int64) (*model.Application, error) {
	app, err := s.applicationRepository.ByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, ErrNotFoundOrForbidden
		}
		return nil, err
	}

	first, ok := app.Evidence.First()
	if !ok {
		return nil, ErrNoEvidence
	}

	image, err := s.evidence.ReadFile(first)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEvidenceMissing, first)
		}
		return nil, fmt.Errorf("failed to read evidence: %w", err)
	}

	result, err := s.analyzer.Analyze(ctx, image, validation.DetectImageType(image))
	if err != nil {
		metrics.Assessments.WithLabelValues("failed").Inc()
		slog.Warn("assessment failed", "error", err, "app_id", id)
		return nil, err
	}

	assessed := model.Assessment{
		DamagePercentage:   result.DamagePercentage,
		CompensationAmount: result.EstimatedCompensation,
		Reasoning:          result.Reasoning,
		Recommendations:    result.Recommendations,
	}

	err = s.applicationRepository.UpdateAssessment(id, assessed)
	if err != nil {
		metrics.Assessments.WithLabelValues("error").Inc()
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("failed to store assessment: %w", err)
	}

	metrics.Assessments.WithLabelValues("reviewed").Inc()

	app.Status = model.StatusReviewed
	app.DamagePercentage = &assessed.DamagePercentage
	app.CompensationAmount = &assessed.CompensationAmount
	app.Reasoning = &assessed.Reasoning
	app.Recommendations = &assessed.Recommendations
	return app, nil
}

func (in SubmissionInput) trimmed() SubmissionInput {
	return SubmissionInput{
		Name:          strings.TrimSpace(in.Name),
		GramPanchayat: strings.TrimSpace(in.GramPanchayat),
		Block:         strings.TrimSpace(in.Block),
		PoliceStation: strings.TrimSpace(in.PoliceStation),
		District:      strings.TrimSpace(in.District),
		State:         strings.TrimSpace(in.State),
		Latitude:      strings.TrimSpace(in.Latitude),
		Longitude:     strings.TrimSpace(in.Longitude),
	}
}
