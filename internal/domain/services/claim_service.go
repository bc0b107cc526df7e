package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/athebyme/gomarket-sync/internal/metrics"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type approveInput struct {
	ClaimID     string   `validate:"required"`
	LineItemIDs []string `validate:"min=1,dive,required"`
}

type rejectInput struct {
	ClaimID     string   `validate:"required"`
	LineItemIDs []string `validate:"min=1,dive,required"`
	ReasonID    int      `validate:"gt=0"`
	Description string   `validate:"required,max=200"`
}

// ClaimService управляет решениями по позициям возврата.
// Разрешены только переходы awaiting_decision -> approved и awaiting_decision -> rejected
type ClaimService struct {
	accounts AccountRepository
	claims   ClaimRepository
	gateway  MarketplaceGateway
	events   EventPublisher
	logger   interfaces.LoggerPort
}

// NewClaimService создает сервис возвратов
func NewClaimService(
	accounts AccountRepository,
	claims ClaimRepository,
	gateway MarketplaceGateway,
	events EventPublisher,
	logger interfaces.LoggerPort,
) *ClaimService {
	return &ClaimService{
		accounts: accounts,
		claims:   claims,
		gateway:  gateway,
		events:   events,
		logger:   logger,
	}
}

// ListRejectionReasons возвращает причины отказа. Состояние не меняется
func (s *ClaimService) ListRejectionReasons(ctx context.Context, accountID string) ([]models.RejectionReason, error) {
	creds, err := loadCredentials(ctx, s.accounts, accountID)
	if err != nil {
		return nil, err
	}
	return s.gateway.FetchClaimReasons(ctx, creds)
}

// Approve одобряет позиции возврата
func (s *ClaimService) Approve(ctx context.Context, accountID, claimID string, lineItemIDs []string) error {
	in := approveInput{ClaimID: claimID, LineItemIDs: lineItemIDs}
	if err := validate.Struct(in); err != nil {
		return validationError("approve claim", err)
	}

	return s.transition(ctx, accountID, models.ClaimTransition{
		ClaimID:     claimID,
		LineItemIDs: lineItemIDs,
		Action:      models.ClaimApprove,
	})
}

// Reject отклоняет позиции возврата с причиной и комментарием до 200 символов
func (s *ClaimService) Reject(ctx context.Context, accountID, claimID string, lineItemIDs []string, reasonID int, description string) error {
	in := rejectInput{
		ClaimID:     claimID,
		LineItemIDs: lineItemIDs,
		ReasonID:    reasonID,
		Description: strings.TrimSpace(description),
	}
	if err := validate.Struct(in); err != nil {
		return validationError("reject claim", err)
	}

	return s.transition(ctx, accountID, models.ClaimTransition{
		ClaimID:     claimID,
		LineItemIDs: lineItemIDs,
		Action:      models.ClaimReject,
		ReasonID:    reasonID,
		Description: in.Description,
	})
}

// transition проверяет состояние позиций по локальной копии заявки и делает один вызов API.
// Локальная копия не меняется: результат увидит следующая синхронизация возвратов
func (s *ClaimService) transition(ctx context.Context, accountID string, t models.ClaimTransition) error {
	op := string(t.Action) + " claim"

	creds, err := loadCredentials(ctx, s.accounts, accountID)
	if err != nil {
		return err
	}

	claim, err := s.claims.GetClaim(ctx, accountID, t.ClaimID)
	if err != nil {
		return fmt.Errorf("failed to get claim: %w", err)
	}
	if claim == nil {
		return apperrors.Newf(apperrors.KindNotFound, op, "claim %s not found", t.ClaimID)
	}

	seen := make(map[string]struct{}, len(t.LineItemIDs))
	for _, id := range t.LineItemIDs {
		if _, dup := seen[id]; dup {
			return apperrors.Newf(apperrors.KindValidation, op, "line item %s is listed twice", id)
		}
		seen[id] = struct{}{}

		item, ok := claim.Item(id)
		if !ok {
			return apperrors.Newf(apperrors.KindValidation, op, "line item %s does not belong to claim %s", id, t.ClaimID)
		}
		if item.State != models.ClaimItemAwaitingDecision {
			return apperrors.Newf(apperrors.KindInvalidStateTransition, op,
				"line item %s is %s, only %s items can be changed", id, item.State, models.ClaimItemAwaitingDecision)
		}
	}

	if err := s.gateway.TransitionClaimItems(ctx, creds, t); err != nil {
		metrics.ClaimTransitions.WithLabelValues(string(t.Action), "error").Inc()
		s.logger.ErrorWithContext(ctx, "Маркетплейс не принял решение по возврату",
			"claim_id", t.ClaimID,
			"action", string(t.Action),
			"items", len(t.LineItemIDs),
			"error", err.Error(),
		)
		return err
	}
	metrics.ClaimTransitions.WithLabelValues(string(t.Action), "ok").Inc()

	s.logger.InfoWithContext(ctx, "Решение по возврату отправлено",
		"claim_id", t.ClaimID,
		"action", string(t.Action),
		"items", len(t.LineItemIDs),
	)

	if s.events != nil {
		if err := s.events.ClaimItemsTransitioned(ctx, accountID, t); err != nil {
			s.logger.WarnWithContext(ctx, "Не удалось опубликовать событие возврата", "error", err.Error())
		}
	}
	return nil
}

// loadCredentials загружает ключи API аккаунта
func loadCredentials(ctx context.Context, accounts AccountRepository, accountID string) (models.Credentials, error) {
	account, err := accounts.GetAccount(ctx, accountID)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return models.Credentials{}, apperrors.Newf(apperrors.KindNotFound, "load credentials", "account %s not found", accountID)
	}
	creds := account.Credentials
	creds.AccountID = account.ID
	return creds, nil
}

func validationError(op string, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Wrap(apperrors.KindValidation, op, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: rule '%s=%s'", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: rule '%s'", fe.Field(), fe.Tag()))
		}
	}
	return apperrors.New(apperrors.KindValidation, op, strings.Join(msgs, "; "))
}
