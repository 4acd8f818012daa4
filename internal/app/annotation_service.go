package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/appraise/internal/core/annotation"
	"github.com/example/appraise/internal/core/credential"
	"github.com/example/appraise/internal/core/normalize"
	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/logging"
	"github.com/example/appraise/internal/metrics"
	"github.com/example/appraise/internal/ports/primary"
	"github.com/example/appraise/internal/ports/secondary"
)

const stampLayout = "2006-01-02T15:04:05.000000Z"

// AnnotationRepos groups the repositories the annotation flow needs.
type AnnotationRepos struct {
	Users     secondary.UserRepository
	Campaigns secondary.CampaignRepository
	Batches   secondary.BatchRepository
	Metadata  secondary.MetadataRepository
	Agenda    secondary.AgendaRepository
}

// AnnotationServiceImpl implements the AnnotationService interface.
type AnnotationServiceImpl struct {
	userRepo     secondary.UserRepository
	campaignRepo secondary.CampaignRepository
	batchRepo    secondary.BatchRepository
	metadataRepo secondary.MetadataRepository
	agendaRepo   secondary.AgendaRepository
	signer       *credential.Signer
	now          func() time.Time
	metrics      *metrics.CampaignMetrics
	logger       *zap.Logger
}

// NewAnnotationService creates a new AnnotationService. signer may be nil,
// in which case receipts carry no confirmation token.
func NewAnnotationService(repos AnnotationRepos, signer *credential.Signer, m *metrics.CampaignMetrics, logger *zap.Logger) *AnnotationServiceImpl {
	return &AnnotationServiceImpl{
		userRepo:     repos.Users,
		campaignRepo: repos.Campaigns,
		batchRepo:    repos.Batches,
		metadataRepo: repos.Metadata,
		agendaRepo:   repos.Agenda,
		signer:       signer,
		now:          time.Now,
		metrics:      m,
		logger:       logging.OrNop(logger),
	}
}

// Authenticate checks a username and password against the stored hash.
func (s *AnnotationServiceImpl) Authenticate(ctx context.Context, username, password string) (*primary.Annotator, error) {
	const op = "authenticate"
	user, err := s.userRepo.GetByUsername(ctx, username)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.New(errs.ErrUnauthorized, op, "bad credentials")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, errs.New(errs.ErrUnauthorized, op, "bad credentials")
	}
	return toAnnotator(user), nil
}

// NextTask returns the annotator's oldest open task of the given type.
func (s *AnnotationServiceImpl) NextTask(ctx context.Context, username string, taskType tasktype.Type) (*primary.TaskContext, error) {
	const op = "next task"
	h, err := tasktype.Lookup(string(taskType))
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	task, err := s.agendaRepo.NextAssigned(ctx, user.ID, string(h.Type()))
	if err != nil {
		return nil, err
	}
	state, _ := annotation.Next("", annotation.EventOffer)
	if task == nil {
		state, _ = annotation.Next("", annotation.EventExhaust)
		s.logger.Debug("no task", zap.String("username", username), zap.String("state", string(state)))
		return nil, errs.New(errs.ErrNoEligibleTask, op, "no open %s tasks for %s", h.Type(), username)
	}

	var item normalize.Item
	if err := json.Unmarshal([]byte(task.ItemPayload), &item); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", task.ItemKey, err)
	}
	campaign, err := s.campaignRepo.GetByID(ctx, task.CampaignID)
	if err != nil {
		return nil, err
	}
	instructions, err := s.instructionsFor(ctx, task.BatchID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("task offered",
		zap.String("username", username),
		zap.String("task", task.ID),
		zap.String("state", string(state)),
	)
	return &primary.TaskContext{
		TaskID:       task.ID,
		ItemID:       task.ItemKey,
		ItemType:     task.ItemType,
		TaskType:     task.TaskType,
		Campaign:     campaign.Name,
		Instructions: instructions,
		Fields:       item.Fields,
	}, nil
}

// Submit validates a result and completes the task it belongs to. When
// sub.TaskID is empty the annotator's current task is assumed.
func (s *AnnotationServiceImpl) Submit(ctx context.Context, username string, taskType tasktype.Type, sub primary.Submission) (*primary.SubmitReceipt, error) {
	h, err := tasktype.Lookup(string(taskType))
	if err != nil {
		return nil, err
	}
	typ := string(h.Type())

	receipt, err := s.submit(ctx, username, h, sub)
	outcome := "recorded"
	switch {
	case errors.Is(err, errs.ErrNoEligibleTask):
		outcome = "no_task"
	case errors.Is(err, errs.ErrInvalidSubmission):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	s.metrics.RecordSubmission(typ, outcome)
	return receipt, err
}

func (s *AnnotationServiceImpl) submit(ctx context.Context, username string, h tasktype.Handler, sub primary.Submission) (*primary.SubmitReceipt, error) {
	const op = "submit"
	typ := string(h.Type())

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	var task *secondary.AgendaTaskRecord
	if sub.TaskID == "" {
		task, err = s.agendaRepo.NextAssigned(ctx, user.ID, typ)
	} else {
		task, err = s.agendaRepo.GetByID(ctx, sub.TaskID)
		if errors.Is(err, errs.ErrNotFound) {
			task, err = nil, nil
		}
	}
	if err != nil {
		return nil, err
	}

	sc := annotation.SubmitContext{TaskID: sub.TaskID, ItemID: sub.ItemID}
	if task != nil && task.UserID == user.ID && task.TaskType == typ {
		sc.TaskID = task.ID
		sc.EntryFound = true
		sc.EntryState = task.State
		sc.EntryItem = task.ItemKey
	}
	if sub.StartTimestamp != "" {
		if sc.Start, err = annotation.ParseTimestamp(sub.StartTimestamp); err != nil {
			return nil, err
		}
	}
	if sub.EndTimestamp != "" {
		if sc.End, err = annotation.ParseTimestamp(sub.EndTimestamp); err != nil {
			return nil, err
		}
	}
	if err := annotation.CanSubmit(sc).Error(); err != nil {
		return nil, err
	}
	state, _ := annotation.Next(annotation.StateOffered, annotation.EventSubmit)

	scores, err := h.ParseSubmission(sub.Values)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(scores)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scores: %w", err)
	}

	completedAt := s.now().UTC().Format(stampLayout)
	ok, err := s.agendaRepo.Complete(ctx, &secondary.CompletionRecord{
		EntryID:     task.ID,
		UserID:      user.ID,
		Payload:     string(payload),
		StartTS:     sc.Start.Format(stampLayout),
		EndTS:       sc.End.Format(stampLayout),
		CompletedAt: completedAt,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.ErrNoEligibleTask, op, "task %s was completed concurrently", task.ID)
	}
	state, _ = annotation.Next(state, annotation.EventRecord)

	receipt := &primary.SubmitReceipt{
		TaskID:      task.ID,
		ItemID:      task.ItemKey,
		Scores:      scores,
		CompletedAt: completedAt,
	}
	if s.signer != nil {
		campaign, err := s.campaignRepo.GetByID(ctx, task.CampaignID)
		if err != nil {
			return nil, err
		}
		receipt.Token = s.signer.Token(username, campaign.Name, typ)
	}

	s.logger.Info("result recorded",
		zap.String("username", username),
		zap.String("task", task.ID),
		zap.String("item", task.ItemKey),
		zap.String("state", string(state)),
	)
	return receipt, nil
}

func (s *AnnotationServiceImpl) instructionsFor(ctx context.Context, batchID string) (string, error) {
	b, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return "", err
	}
	if b.MetadataID == "" {
		return "", nil
	}
	md, err := s.metadataRepo.GetByID(ctx, b.MetadataID)
	if err != nil {
		return "", err
	}
	return md.Instructions, nil
}

func toAnnotator(u *secondary.UserRecord) *primary.Annotator {
	return &primary.Annotator{
		UserID:         u.ID,
		Username:       u.Username,
		SourceLanguage: u.SourceLanguage,
		TargetLanguage: u.TargetLanguage,
		Active:         u.Active,
	}
}

// Ensure AnnotationServiceImpl implements the interface
var _ primary.AnnotationService = (*AnnotationServiceImpl)(nil)
